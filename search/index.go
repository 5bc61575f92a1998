package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"pulsechat/domain"
)

// Hit is one search result, rebuilt from the stored fields.
type Hit struct {
	MessageID string
	SessionID string
	Sender    string
	Content   string
	CreatedAt time.Time
}

// Index is a Bluge-backed full-text index over cached messages.
// Writes are visible to Search after the writer flushes the batch, which
// Update does on every call; volumes here are per-session and small.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessages upserts a batch of messages. Keyed by message id, so
// re-indexing a re-merged feed is idempotent.
func (i *Index) IndexMessages(messages []domain.Message) error {
	batch := bluge.NewBatch()
	for _, m := range messages {
		doc := bluge.NewDocument(m.ID).
			AddField(bluge.NewTextField("content", m.Content).StoreValue()).
			AddField(bluge.NewKeywordField("session", m.SessionID).StoreValue()).
			AddField(bluge.NewKeywordField("sender", domain.NormalizeID(m.Sender.Scalar())).StoreValue()).
			AddField(bluge.NewDateTimeField("created_at", m.CreatedAt).StoreValue())
		batch.Update(doc.ID(), doc)
	}
	return i.writer.Batch(batch)
}

// Search runs a parsed query and returns up to query.Limit hits.
func (i *Index) Search(ctx context.Context, query *Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	boolean := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query.Terms).SetField("content"))
	if query.SessionID != "" {
		boolean.AddMust(bluge.NewTermQuery(query.SessionID).SetField("session"))
	}
	if query.Sender != "" {
		boolean.AddMust(bluge.NewTermQuery(domain.NormalizeID(query.Sender)).SetField("sender"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(query.Limit, boolean))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "content":
				hit.Content = string(value)
			case "session":
				hit.SessionID = string(value)
			case "sender":
				hit.Sender = string(value)
			case "created_at":
				if at, err := bluge.DecodeDateTime(value); err == nil {
					hit.CreatedAt = at
				}
			}
			return true
		})
		if err != nil {
			i.log.Debug("Skipping unreadable hit", "error", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
