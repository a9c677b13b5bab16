package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
}

func (c *countingSource) Report() Report {
	c.calls.Add(1)
	return Report{
		Channels: []ChannelReport{{Token: "streamer", State: "connected", Viewers: 10, Chatters: 3}},
		Buffered: 900,
		Capacity: 1024,
	}
}

func TestReporterWorker_Reports_Until_Stopped(t *testing.T) {
	req := require.New(t)
	source := &countingSource{}
	worker := NewReporterWorker(logs.GetLoggerFromLevel(slog.LevelDebug), source, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Given a few ticks happened
	req.Eventually(func() bool { return source.calls.Load() >= 2 }, time.Second, time.Millisecond)

	// When stopped, a last report is printed
	before := source.calls.Load()
	cancel()
	req.NoError(<-done)
	req.Greater(source.calls.Load(), before)
	req.Equal("Reporter", worker.Name())
}
