package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"pulsechat/domain"
	"pulsechat/moderation"
	"pulsechat/observability"
	"pulsechat/search"
)

// renderer prints the feed incrementally: only entries beyond the last
// rendered offset are written. A re-merge that reorders or collapses the
// feed shrinks it, which triggers a full redraw.
type renderer struct {
	mu        sync.Mutex
	out       io.Writer
	moderator *moderation.Moderator
	rendered  int
	lastID    string
}

func newRenderer(out io.Writer, moderator *moderation.Moderator) *renderer {
	return &renderer{out: out, moderator: moderator}
}

func (r *renderer) Render(feed []domain.AnnotatedMessage, connected bool, lastErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from := r.rendered
	if len(feed) < r.rendered || (r.rendered > 0 && feed[r.rendered-1].ID != r.lastID) {
		fmt.Fprintln(r.out, "--- conversation ---")
		from = 0
	}

	for _, m := range feed[from:] {
		r.printMessage(m)
	}
	r.rendered = len(feed)
	if len(feed) > 0 {
		r.lastID = feed[len(feed)-1].ID
	}

	if lastErr != nil {
		fmt.Fprintln(r.out, color.New(color.FgRed).Render(lastErr.Error()))
	}
	if !connected && lastErr == nil {
		fmt.Fprintln(r.out, color.New(color.FgDarkGray).Render("(offline)"))
	}
}

func (r *renderer) printMessage(m domain.AnnotatedMessage) {
	if m.IsGroupStart {
		header := m.Sender.Scalar()
		if m.IsMine {
			header = "you"
		}
		fmt.Fprintln(r.out, color.New(color.BgBlack, color.FgGreen).Render(header))
	}

	content := m.Content
	if r.moderator != nil {
		content = r.moderator.Mask(content)
	}
	stamp := m.CreatedAt.Local().Format("15:04")
	fmt.Fprintf(r.out, "  [%s] %s\n", stamp, content)
}

func (r *renderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, color.New(color.FgRed).Render(err.Error()))
}

func (r *renderer) Sessions(sessions []domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := newTable(r.out, []string{"ID", "Tenant", "Customer", "Active", "Created"})
	for _, s := range sessions {
		table.Append([]string{
			s.ID,
			s.TenantID,
			s.CustomerID,
			strconv.FormatBool(s.Active),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func (r *renderer) Hits(hits []search.Hit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(hits) == 0 {
		fmt.Fprintln(r.out, "No matches.")
		return
	}
	table := newTable(r.out, []string{"Session", "Sender", "When", "Content"})
	for _, h := range hits {
		content := h.Content
		if r.moderator != nil {
			content = r.moderator.Mask(content)
		}
		table.Append([]string{
			h.SessionID,
			h.Sender,
			h.CreatedAt.Local().Format("2006-01-02 15:04"),
			content,
		})
	}
	table.Render()
}

func (r *renderer) Stats(stats observability.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := newTable(r.out, []string{"Metric", "Value"})
	table.AppendBulk([][]string{
		{"Uptime", stats.Uptime.String()},
		{"Live state", stats.LiveState},
		{"Connected", strconv.FormatBool(stats.Connected)},
		{"Feed length", strconv.Itoa(stats.FeedLength)},
		{"Notify state", stats.NotifyState},
		{"Notify attempts", strconv.Itoa(stats.NotifyAttempts)},
		{"Notify opens", strconv.Itoa(stats.NotifyOpens)},
		{"RSS", fmt.Sprintf("%.1f MB", float64(stats.RSSBytes)/1024/1024)},
		{"CPU", fmt.Sprintf("%.1f%%", stats.CPUPercent)},
	})
	table.Render()
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	if out == nil {
		out = os.Stdout
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
