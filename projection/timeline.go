// Package projection builds the presented feed from observed inputs.
// Handles ordering, deduplication, and identity annotations.
// Does not talk to the network or the UI.
package projection

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"pulsechat/domain"
)

// DedupWindow bounds how far apart two equal-content messages may sit and
// still be collapsed. A heuristic, not an idempotency key: two genuinely
// distinct identical texts inside the window are wrongly merged.
const DedupWindow = 1000 * time.Millisecond

// Timeline reconciles the persisted history batch, live channel arrivals and
// local sends into one ordered sequence. It is not safe for concurrent use;
// the owning controller serializes access.
type Timeline struct {
	viewerID string
	messages []domain.Message
}

func NewTimeline(viewerID string) *Timeline {
	return &Timeline{viewerID: viewerID}
}

// SetHistory installs the authoritative batch. Messages observed before the
// batch landed (live frames racing the history fetch) are kept unless they
// duplicate a history row. The whole sequence is re-ordered afterwards.
func (t *Timeline) SetHistory(history []domain.Message) {
	merged := make([]domain.Message, len(history))
	copy(merged, history)

	for _, held := range t.messages {
		if !hasDuplicate(merged, held) {
			merged = append(merged, held)
		}
	}

	t.messages = merged
	t.reorder()
}

// Append adds one live or locally-sent message unless an already-held
// message duplicates it. Reports whether the message was kept.
func (t *Timeline) Append(m domain.Message) bool {
	if hasDuplicate(t.messages, m) {
		return false
	}
	t.messages = append(t.messages, m)
	t.reorder()
	return true
}

func (t *Timeline) Len() int { return len(t.messages) }

// Messages returns a copy of the raw held sequence, ascending by CreatedAt.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Annotate recomputes the full presented sequence. IsMine resolves each
// sender against the viewer; IsGroupStart compares each sender against the
// previous message's sender. Recomputation is O(n) per call, chosen over
// incremental patching so the output is always internally consistent.
func (t *Timeline) Annotate() []domain.AnnotatedMessage {
	return lo.Map(t.messages, func(m domain.Message, i int) domain.AnnotatedMessage {
		groupStart := i == 0 ||
			!domain.SameIdentity(t.messages[i-1].Sender.Scalar(), m.Sender.Scalar())
		return domain.AnnotatedMessage{
			Message:      m,
			IsMine:       domain.IsMine(m.Sender, t.viewerID),
			IsGroupStart: groupStart,
		}
	})
}

// reorder keeps the sequence ascending by CreatedAt. Stable, so messages
// carrying the same timestamp keep their arrival order.
func (t *Timeline) reorder() {
	sort.SliceStable(t.messages, func(i, j int) bool {
		return t.messages[i].CreatedAt.Before(t.messages[j].CreatedAt)
	})
}

func hasDuplicate(held []domain.Message, m domain.Message) bool {
	return lo.SomeBy(held, func(h domain.Message) bool {
		return isDuplicate(h, m)
	})
}

// isDuplicate applies the content + time-window rule. Exact content equality
// only; the window absorbs the clock skew between server-assigned and
// locally generated timestamps.
func isDuplicate(a, b domain.Message) bool {
	if a.Content != b.Content {
		return false
	}
	delta := a.CreatedAt.Sub(b.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < DedupWindow
}
