package outbound

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sent struct {
	text string
	at   time.Time
}

// fakeClock drives a Limiter the way a session goroutine does, with a virtual clock.
type fakeClock struct {
	now     time.Time
	timerAt *time.Time
	arms    int
	sent    []sent
}

func newHarness(window time.Duration) (*Limiter, *fakeClock) {
	c := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(window,
		func(text string) error {
			c.sent = append(c.sent, sent{text: text, at: c.now})
			return nil
		},
		func(d time.Duration) {
			if c.timerAt != nil {
				panic("second timer armed while one is pending")
			}
			at := c.now.Add(d)
			c.timerAt = &at
			c.arms++
		}).WithClock(func() time.Time { return c.now })
	return l, c
}

// advance moves the clock to t, firing the pending timer on the way when due.
func (c *fakeClock) advance(l *Limiter, t time.Time) {
	for c.timerAt != nil && !c.timerAt.After(t) {
		c.now = *c.timerAt
		c.timerAt = nil
		_ = l.Fire()
	}
	c.now = t
}

func TestLimiter_Sends_Immediately_When_Idle(t *testing.T) {
	req := require.New(t)
	l, c := newHarness(500 * time.Millisecond)

	req.NoError(l.Enqueue("hello"))

	req.Len(c.sent, 1)
	req.Equal("hello", c.sent[0].text)
	req.Nil(c.timerAt)
	req.Zero(l.Pending())
}

func TestLimiter_Queues_Inside_Window_With_Single_Timer(t *testing.T) {
	req := require.New(t)
	window := 500 * time.Millisecond
	l, c := newHarness(window)
	start := c.now

	// Given a first message just sent
	req.NoError(l.Enqueue("one"))

	// When three more arrive inside the window
	req.NoError(l.Enqueue("two"))
	req.NoError(l.Enqueue("three"))
	req.NoError(l.Enqueue("four"))

	// Then they wait behind one armed timer
	req.Len(c.sent, 1)
	req.Equal(3, l.Pending())
	req.Equal(1, c.arms)

	// And drain one per window, in order
	c.advance(l, start.Add(10*window))
	req.Equal([]string{"one", "two", "three", "four"}, texts(c.sent))
	for i := 1; i < len(c.sent); i++ {
		req.GreaterOrEqual(c.sent[i].at.Sub(c.sent[i-1].at), window)
	}
	req.Nil(c.timerAt)
}

func TestLimiter_New_Message_Does_Not_Overtake_Queue(t *testing.T) {
	req := require.New(t)
	window := 100 * time.Millisecond
	l, c := newHarness(window)

	req.NoError(l.Enqueue("a"))
	req.NoError(l.Enqueue("b"))

	// Given the window elapsed but the timer has not been handled yet
	c.now = c.now.Add(3 * window)

	// When another message arrives
	req.NoError(l.Enqueue("c"))

	// Then it is queued behind b
	c.advance(l, c.now.Add(10*window))
	req.Equal([]string{"a", "b", "c"}, texts(c.sent))
}

func TestLimiter_SetWindow_Applies_To_Next_Send(t *testing.T) {
	req := require.New(t)
	l, c := newHarness(100 * time.Millisecond)

	req.NoError(l.Enqueue("a"))
	l.SetWindow(2 * time.Second)
	req.NoError(l.Enqueue("b"))

	c.advance(l, c.now.Add(time.Second))
	req.Len(c.sent, 1)

	c.advance(l, c.now.Add(time.Second))
	req.Len(c.sent, 2)
	req.Equal(2*time.Second, c.sent[1].at.Sub(c.sent[0].at))
}

func TestLimiter_Random_Sequences_Keep_Order_And_Spacing(t *testing.T) {
	req := require.New(t)
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		window := time.Duration(rng.Intn(900)+100) * time.Millisecond
		l, c := newHarness(window)
		var expected []string

		for i := 0; i < 40; i++ {
			c.advance(l, c.now.Add(time.Duration(rng.Intn(1200))*time.Millisecond))
			text := fmt.Sprintf("r%d-m%d", round, i)
			expected = append(expected, text)
			req.NoError(l.Enqueue(text))
		}
		c.advance(l, c.now.Add(time.Duration(len(expected)+1)*window))

		req.Equal(expected, texts(c.sent))
		for i := 1; i < len(c.sent); i++ {
			req.GreaterOrEqual(c.sent[i].at.Sub(c.sent[i-1].at), window)
		}
	}
}

func TestLimiter_Reset_Then_Resume_Keeps_Queue(t *testing.T) {
	req := require.New(t)
	l, c := newHarness(time.Second)

	req.NoError(l.Enqueue("a"))
	req.NoError(l.Enqueue("b"))

	// Given the owner dropped its timer
	c.timerAt = nil
	l.Reset()

	// When it resumes
	l.Resume()

	// Then the queued message still goes out
	req.NotNil(c.timerAt)
	c.advance(l, c.now.Add(2*time.Second))
	req.Equal([]string{"a", "b"}, texts(c.sent))
}

func texts(s []sent) []string {
	out := make([]string, 0, len(s))
	for _, m := range s {
		out = append(out, m.text)
	}
	return out
}
