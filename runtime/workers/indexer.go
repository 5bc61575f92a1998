package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"pulsechat/conversation"
	"pulsechat/domain"
	"pulsechat/search"
)

// IndexerWorker periodically mirrors the merged feed into the search index.
// Indexing keys on the message id, so repeated passes over the same feed are
// idempotent.
type IndexerWorker struct {
	log        *slog.Logger
	controller *conversation.Controller
	index      *search.Index
	interval   time.Duration
}

func NewIndexerWorker(
	log *slog.Logger,
	controller *conversation.Controller,
	index *search.Index,
	interval time.Duration,
) *IndexerWorker {
	return &IndexerWorker{
		log:        log,
		controller: controller,
		index:      index,
		interval:   interval,
	}
}

func (w *IndexerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			feed := w.controller.Feed()
			if len(feed) == 0 {
				continue
			}
			messages := lo.Map(feed, func(m domain.AnnotatedMessage, _ int) domain.Message {
				return m.Message
			})
			if err := w.index.IndexMessages(messages); err != nil {
				w.log.Warn("Index refresh failed", "error", err)
			}
		}
	}
}
