package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pulsechat/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := NewIndex(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func indexedMsg(id, session, sender, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        id,
		SessionID: session,
		Sender:    domain.NewSenderRef(sender),
		Content:   content,
		CreatedAt: at,
	}
}

func TestIndex_SearchByContent(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	req.NoError(index.IndexMessages([]domain.Message{
		indexedMsg("m1", "s1", "u1", "the invoice is overdue", at),
		indexedMsg("m2", "s1", "u2", "thanks for the quick reply", at.Add(time.Minute)),
		indexedMsg("m3", "s2", "u1", "another invoice question", at.Add(2*time.Minute)),
	}))

	hits, err := index.Search(context.Background(), ParseQuery("/find invoice"))
	req.NoError(err)
	req.Len(hits, 2)

	ids := []string{hits[0].MessageID, hits[1].MessageID}
	req.ElementsMatch([]string{"m1", "m3"}, ids)
	req.Equal("s1", hitByID(hits, "m1").SessionID)
	req.Equal("the invoice is overdue", hitByID(hits, "m1").Content)
}

func TestIndex_SessionAndSenderFilters(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	req.NoError(index.IndexMessages([]domain.Message{
		indexedMsg("m1", "s1", "User-1", "invoice one", at),
		indexedMsg("m2", "s2", "user_1", "invoice two", at.Add(time.Minute)),
		indexedMsg("m3", "s2", "u2", "invoice three", at.Add(2*time.Minute)),
	}))

	hits, err := index.Search(context.Background(), ParseQuery("/find invoice --session s2"))
	req.NoError(err)
	req.Len(hits, 2)

	// Sender filters go through the same identity normalization as the feed.
	hits, err = index.Search(context.Background(), ParseQuery("/find invoice --from USER1"))
	req.NoError(err)
	req.Len(hits, 2)
	req.ElementsMatch(
		[]string{"m1", "m2"},
		[]string{hits[0].MessageID, hits[1].MessageID})

	hits, err = index.Search(context.Background(), ParseQuery("/find invoice --session s2 --from u2"))
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("m3", hits[0].MessageID)
}

func TestIndex_ReindexIsIdempotent(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	batch := []domain.Message{indexedMsg("m1", "s1", "u1", "hello world", at)}
	req.NoError(index.IndexMessages(batch))
	req.NoError(index.IndexMessages(batch))

	hits, err := index.Search(context.Background(), ParseQuery("/find hello"))
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(at, hits[0].CreatedAt.UTC())
}

func TestIndex_LimitCapsHits(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	var batch []domain.Message
	for i := 0; i < 5; i++ {
		batch = append(batch, indexedMsg(
			string(rune('a'+i)), "s1", "u1", "repeated phrase", at.Add(time.Duration(i)*time.Minute)))
	}
	req.NoError(index.IndexMessages(batch))

	hits, err := index.Search(context.Background(), ParseQuery("/find repeated phrase --limit 3"))
	req.NoError(err)
	req.Len(hits, 3)
}

func hitByID(hits []Hit, id string) Hit {
	for _, h := range hits {
		if h.MessageID == id {
			return h
		}
	}
	return Hit{}
}
