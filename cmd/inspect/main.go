package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"wander-core/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	// By default scan the message threads; indexes live under msgid:/ntfid:
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, ntf:, usr:, head:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "From", "To", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			// Skip the secondary id indexes, they only point at primary keys
			if strings.HasPrefix(rawKey, "msgid:") || strings.HasPrefix(rawKey, "ntfid:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(toRow(rawKey, v))
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	color.Cyan.Printf("Rows under %q: %d\n\n", *prefix, rows)
	table.Render()
}

func toRow(rawKey string, v []byte) []string {
	switch {
	case strings.HasPrefix(rawKey, "msg:"), strings.HasPrefix(rawKey, "head:"):
		var msg domain.Message
		if err := json.Unmarshal(v, &msg); err != nil {
			return []string{rawKey, "?", "", "", "", "", "unmarshal failed"}
		}
		return []string{
			rawKey,
			"MESSAGE",
			msg.CreatedAt.Format("15:04:05"),
			msg.SenderID,
			msg.ReceiverID,
			string(msg.Status),
			msg.Text,
		}
	case strings.HasPrefix(rawKey, "ntf:"):
		var n domain.Notification
		if err := json.Unmarshal(v, &n); err != nil {
			return []string{rawKey, "?", "", "", "", "", "unmarshal failed"}
		}
		recipient := n.RecipientID
		if n.Broadcast() {
			recipient = "(everyone)"
		}
		read := "unread"
		if n.Read {
			read = "read"
		}
		return []string{
			rawKey,
			"NOTIFICATION",
			n.CreatedAt.Format("15:04:05"),
			n.SenderID,
			recipient,
			read,
			fmt.Sprintf("[%s] %s", n.Type, n.Content),
		}
	case strings.HasPrefix(rawKey, "usr:"):
		var profile domain.Profile
		if err := json.Unmarshal(v, &profile); err != nil {
			return []string{rawKey, "?", "", "", "", "", "unmarshal failed"}
		}
		return []string{rawKey, "PROFILE", "", profile.ID, "", "", profile.Username}
	}
	return []string{rawKey, "?", "", "", "", "", string(v)}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A dirty value log needs one writable open to truncate it
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
