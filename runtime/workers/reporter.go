package workers

import (
	"context"
	"log/slog"
	"time"
)

// ChannelReport is the state of one joined channel at report time.
type ChannelReport struct {
	Token    string
	State    string
	Viewers  int
	Chatters int
}

// Report is a snapshot of the client. Buffered and Capacity describe the notification buffer.
type Report struct {
	Channels []ChannelReport
	Buffered int
	Capacity int
}

type ReportSource interface {
	Report() Report
}

// ReporterWorker periodically logs a Report, and a last one when stopped.
// Reading the buffer length is non-blocking, so reporting never slows the sessions down.
type ReporterWorker struct {
	log      *slog.Logger
	source   ReportSource
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, source ReportSource, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, source: source, interval: interval}
}

func (w *ReporterWorker) Name() string { return "Reporter" }

// Run starts the reporting loop until context cancellation
func (w *ReporterWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.printStats(startTime)
			return nil
		case <-ticker.C:
			w.printStats(startTime)
		}
	}
}

func (w *ReporterWorker) printStats(startTime time.Time) {
	report := w.source.Report()
	uptime := time.Since(startTime).Round(time.Second).String()
	for _, c := range report.Channels {
		w.log.Info("Channel stats", "channel", c.Token, "state", c.State,
			"viewers", c.Viewers, "chatters", c.Chatters, "uptime", uptime)
	}
	// Sinks are lagging once three quarters of the buffer are used
	if report.Capacity > 0 && report.Buffered*4 >= report.Capacity*3 {
		w.log.Warn("Notification buffer filling up", "length", report.Buffered, "capacity", report.Capacity)
	}
}
