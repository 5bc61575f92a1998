// Package observability aggregates realtime client metrics for the stats
// surface.
package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"pulsechat/conversation"
	"pulsechat/notifications"
)

// Stats is one point-in-time aggregation across both channels plus process
// self-metrics.
type Stats struct {
	Uptime         time.Duration
	LiveState      string
	Connected      bool
	FeedLength     int
	NotifyState    string
	NotifyAttempts int
	NotifyOpens    int
	RSSBytes       uint64
	CPUPercent     float64
}

type Monitor struct {
	log        *slog.Logger
	start      time.Time
	proc       *process.Process
	controller *conversation.Controller
	center     *notifications.Center
}

func NewMonitor(
	log *slog.Logger,
	controller *conversation.Controller,
	center *notifications.Center,
) (*Monitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{
		log:        log,
		start:      time.Now(),
		proc:       p,
		controller: controller,
		center:     center,
	}, nil
}

// Snapshot collects the current state. Self-metric failures degrade to
// zeroes instead of failing the whole snapshot.
func (m *Monitor) Snapshot() Stats {
	stats := Stats{
		Uptime: time.Since(m.start).Round(time.Second),
	}

	if m.controller != nil {
		stats.LiveState = m.controller.ChannelState().String()
		stats.Connected = m.controller.Connected()
		stats.FeedLength = len(m.controller.Feed())
	}

	if m.center != nil {
		if snap, ok := m.center.Snapshot(); ok {
			stats.NotifyState = snap.State.String()
			stats.NotifyAttempts = snap.Attempts
			stats.NotifyOpens = snap.Opens
		}
	}

	if memInfo, err := m.proc.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	} else {
		m.log.Debug("Failed to collect memory stats", "error", err)
	}
	if cpu, err := m.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	} else {
		m.log.Debug("Failed to collect CPU stats", "error", err)
	}

	return stats
}
