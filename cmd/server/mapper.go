package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"wander-core/domain"

	"github.com/mama165/sdk-go/database"
)

// storeMapper renders the realtime store's rows in the debug inspector.
// Unknown prefixes fall back to the raw default rendering.
func storeMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	switch {
	case strings.HasPrefix(key, "msg:"), strings.HasPrefix(key, "head:"):
		var msg domain.Message
		if err := json.Unmarshal(val, &msg); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "MESSAGE"
		row.EntityID = msg.ID.String()
		row.Timestamp = msg.CreatedAt.Format("2006-01-02 15:04:05")
		row.Detail = fmt.Sprintf("%s -> %s [%s] %s", msg.SenderID, msg.ReceiverID, msg.Status, msg.Text)
	case strings.HasPrefix(key, "ntf:"):
		var n domain.Notification
		if err := json.Unmarshal(val, &n); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "NOTIFICATION"
		row.EntityID = n.ID.String()
		row.Timestamp = n.CreatedAt.Format("2006-01-02 15:04:05")
		recipient := n.RecipientID
		if n.Broadcast() {
			recipient = "(everyone)"
		}
		row.Detail = fmt.Sprintf("%s to %s: %s", n.Type, recipient, n.Content)
	case strings.HasPrefix(key, "usr:"):
		var profile domain.Profile
		if err := json.Unmarshal(val, &profile); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "PROFILE"
		row.EntityID = profile.ID
		row.Detail = profile.Username
	case strings.HasPrefix(key, "msgid:"), strings.HasPrefix(key, "ntfid:"):
		row.Type = "INDEX"
		row.Detail = string(val)
	}

	return row
}
