package storage

import (
	"context"
	"log/slog"

	"wander-core/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// SearchIndex maintains a bluge full-text index over message bodies.
// Both participants are indexed so either side of a conversation can
// search its own history.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("text", msg.Text)).
		AddField(bluge.NewKeywordField("participant", msg.SenderID)).
		AddField(bluge.NewKeywordField("participant", msg.ReceiverID))
	return s.writer.Update(doc.ID(), doc)
}

// Search returns ids of the caller's messages matching the query,
// best score first.
func (s *SearchIndex) Search(ctx context.Context, userID, query string, limit int) ([]uuid.UUID, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(bluge.NewTermQuery(userID).SetField("participant"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != "_id" {
				return true
			}
			id, parseErr := uuid.Parse(string(value))
			if parseErr != nil {
				s.log.Warn("Skipping non-uuid document in message index", "raw", string(value))
				return true
			}
			ids = append(ids, id)
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
