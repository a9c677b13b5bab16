package workers

import (
	"beam-chat/contract"
	"beam-chat/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultSinkTimeout = 5 * time.Second

// EventFanout hands every session notification to the subscribed sinks.
//
// Sinks are called one after the other, in subscription order, so each of them
// sees the notifications of a channel in the order they happened. A sink gets
// sinkTimeout to consume a notification; errors are logged and never retried.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
	mu          sync.RWMutex
	sinks       []contract.EventSink
}

func NewEventFanout(log *slog.Logger, events <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &EventFanout{log: log, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Name() string { return "EventFanout" }

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel closed")
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout One sink after the other
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	w.mu.RLock()
	sinks := append([]contract.EventSink(nil), w.sinks...)
	w.mu.RUnlock()

	for _, sink := range sinks {
		w.consume(ctx, sink, evt)
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Sink panicked", "event", fmt.Sprintf("%T", evt), "panic", r)
		}
	}()
	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Sink failed", "event", fmt.Sprintf("%T", evt), "channel", evt.ChannelID(), "error", err)
	}
}
