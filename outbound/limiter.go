// Package outbound throttles chat messages sent by one session ("slow chat").
package outbound

import (
	"time"
)

// DefaultWindow is the spacing applied until the channel tells otherwise.
const DefaultWindow = 500 * time.Millisecond

// SendFunc transmits one message. It is called from the goroutine driving the Limiter.
type SendFunc func(text string) error

// ArmFunc schedules a call to Limiter.Fire after d.
// The Limiter guarantees it never has two timers pending.
type ArmFunc func(d time.Duration)

// Limiter enforces a minimum spacing between consecutive sends and queues the overflow.
// It is not safe for concurrent use: the owning session drives Enqueue and Fire from its own goroutine.
// The queue is unbounded.
type Limiter struct {
	window     time.Duration
	lastSentAt time.Time
	pending    []string
	armed      bool
	send       SendFunc
	arm        ArmFunc
	now        func() time.Time
}

func NewLimiter(window time.Duration, send SendFunc, arm ArmFunc) *Limiter {
	return &Limiter{window: window, send: send, arm: arm, now: time.Now}
}

// WithClock replaces the time source, used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Window() time.Duration { return l.window }

// SetWindow changes the spacing for every following send.
func (l *Limiter) SetWindow(window time.Duration) {
	if window < 0 {
		window = 0
	}
	l.window = window
}

func (l *Limiter) Pending() int { return len(l.pending) }

// Enqueue sends text right away when the window elapsed and nothing waits ahead of it,
// otherwise it is queued behind the pending messages.
func (l *Limiter) Enqueue(text string) error {
	var err error
	if len(l.pending) == 0 && l.elapsed() {
		err = l.transmit(text)
	} else {
		l.pending = append(l.pending, text)
	}
	l.rearm()
	return err
}

// Fire is called when the armed timer expires. It sends the oldest queued message
// if the window allows it and re-arms while messages remain.
func (l *Limiter) Fire() error {
	l.armed = false
	var err error
	if len(l.pending) > 0 && l.elapsed() {
		text := l.pending[0]
		l.pending = l.pending[1:]
		err = l.transmit(text)
	}
	l.rearm()
	return err
}

// Reset drops the timer bookkeeping after the owner stopped its timer.
// Queued messages are kept and go out once the owner arms again.
func (l *Limiter) Reset() {
	l.armed = false
}

// Resume re-arms the timer for queued messages, after a Reset.
func (l *Limiter) Resume() {
	l.rearm()
}

func (l *Limiter) transmit(text string) error {
	l.lastSentAt = l.now()
	return l.send(text)
}

func (l *Limiter) elapsed() bool {
	return l.lastSentAt.IsZero() || l.now().Sub(l.lastSentAt) >= l.window
}

func (l *Limiter) rearm() {
	if l.armed || len(l.pending) == 0 {
		return
	}
	l.armed = true
	wait := l.window
	if !l.lastSentAt.IsZero() {
		if remaining := l.window - l.now().Sub(l.lastSentAt); remaining > 0 {
			wait = remaining
		} else {
			wait = 0
		}
	}
	l.arm(wait)
}
