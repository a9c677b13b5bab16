package runtime

import (
	"beam-chat/api"
	"beam-chat/contract"
	"beam-chat/domain"
	"beam-chat/domain/event"
	"beam-chat/errors"
	"beam-chat/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultEventBuffer = 1024

type ClientConfig struct {
	Session SessionConfig
	// AutoJoin joins the channel of the logged in user right after Login.
	AutoJoin    bool
	SinkTimeout time.Duration
	EventBuffer int
	// ReportInterval enables the periodic stats log when positive.
	ReportInterval time.Duration
}

// Client is one account connected to any number of channels.
// Each joined channel runs as a supervised Session; all notifications go through one EventFanout.
type Client struct {
	log        *slog.Logger
	gateway    contract.Gateway
	dialer     contract.Dialer
	cfg        ClientConfig
	supervisor contract.ISupervisor
	registry   *Registry
	events     chan event.DomainEvent
	fanout     *workers.EventFanout

	mu       sync.Mutex
	user     *domain.User
	channels map[string]domain.Channel
	runCtx   context.Context
}

func NewClient(log *slog.Logger, gateway contract.Gateway, dialer contract.Dialer,
	supervisor contract.ISupervisor, cfg ClientConfig) *Client {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	events := make(chan event.DomainEvent, cfg.EventBuffer)
	return &Client{
		log:        log,
		gateway:    gateway,
		dialer:     dialer,
		cfg:        cfg,
		supervisor: supervisor,
		registry:   NewRegistry(),
		events:     events,
		fanout:     workers.NewEventFanout(log, events, cfg.SinkTimeout),
		channels:   make(map[string]domain.Channel),
	}
}

// Subscribe adds sinks receiving the notifications of every joined channel.
func (c *Client) Subscribe(sinks ...contract.EventSink) {
	c.fanout.Add(sinks...)
}

// Run supervises the fanout and every joined session until ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.supervisor.Add(c.fanout)
	if c.cfg.ReportInterval > 0 {
		c.supervisor.Add(workers.NewReporterWorker(c.log, c, c.cfg.ReportInterval))
	}
	for _, s := range c.registry.All() {
		c.supervisor.Add(s)
	}
	c.mu.Unlock()

	c.supervisor.Run(ctx)

	for _, s := range c.registry.All() {
		s.Close()
	}
	return nil
}

func (c *Client) User() (domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return domain.User{}, false
	}
	return *c.user, true
}

// Login reuses the session cookie when it is still valid, otherwise logs in with the credentials.
func (c *Client) Login(ctx context.Context, login api.LoginRequest) (domain.User, error) {
	user, ok, err := api.CurrentUser(ctx, c.gateway)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		if user, err = api.Login(ctx, c.gateway, login); err != nil {
			return domain.User{}, err
		}
	}
	c.mu.Lock()
	c.user = &user
	if user.Channel != nil {
		c.channels[domain.CleanToken(user.Channel.Token)] = *user.Channel
	}
	c.mu.Unlock()
	c.log.Info("Logged in", "user", user.Username, "id", user.ID, "reused_session", ok)

	if c.cfg.AutoJoin && user.Channel != nil {
		if _, err = c.JoinChannel(ctx, user.Channel.Token); err != nil {
			return user, fmt.Errorf("join own channel: %w", err)
		}
	}
	return user, nil
}

// GetChannel resolves a channel, from the cache when it was seen already.
func (c *Client) GetChannel(ctx context.Context, token string) (domain.Channel, error) {
	key := domain.CleanToken(token)
	c.mu.Lock()
	channel, ok := c.channels[key]
	c.mu.Unlock()
	if ok {
		return channel, nil
	}

	channel, err := api.GetChannel(ctx, c.gateway, token)
	if err != nil {
		return domain.Channel{}, err
	}
	c.mu.Lock()
	c.channels[key] = channel
	c.mu.Unlock()
	return channel, nil
}

// JoinChannel opens the chat of a channel. Each channel can be joined once.
func (c *Client) JoinChannel(ctx context.Context, token string) (*Session, error) {
	user, ok := c.User()
	if !ok {
		return nil, errors.ErrNotLoggedIn
	}
	if _, joined := c.registry.Get(token); joined {
		return nil, fmt.Errorf("%w: %s", errors.ErrAlreadyJoined, token)
	}
	channel, err := c.GetChannel(ctx, token)
	if err != nil {
		return nil, err
	}

	session := NewSession(c.log, channel, user, c.gateway, c.dialer, c.events, c.cfg.Session)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err = c.registry.Add(session); err != nil {
		return nil, fmt.Errorf("%w: %s", err, token)
	}
	if c.runCtx != nil {
		c.supervisor.Start(c.runCtx, session)
	}
	return session, nil
}

func (c *Client) LeaveChannel(token string) error {
	session, ok := c.registry.Remove(token)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrNotJoined, token)
	}
	session.Close()
	return nil
}

func (c *Client) Session(token string) (*Session, bool) {
	return c.registry.Get(token)
}

// Channels lists the joined channels.
func (c *Client) Channels() []domain.Channel {
	sessions := c.registry.All()
	out := make([]domain.Channel, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Channel())
	}
	return out
}

// SendMessage sends text to a joined channel. @viewers and @chatters are replaced by the live counts.
func (c *Client) SendMessage(ctx context.Context, token, text string) error {
	session, ok := c.registry.Get(token)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrNotJoined, token)
	}
	text = strings.NewReplacer(
		"@viewers", strconv.Itoa(session.Viewers()),
		"@chatters", strconv.Itoa(session.Chatters()),
	).Replace(text)
	return session.SendMessage(ctx, text)
}

// Reply answers a received message in its channel. Parts are joined with spaces and
// @user is replaced by a mention of the author.
func (c *Client) Reply(ctx context.Context, msg event.MessageReceived, parts ...string) error {
	text := strings.ReplaceAll(strings.Join(parts, " "), "@user", "@"+msg.Author.Username)
	session, ok := c.registry.GetByChannel(msg.ChannelID())
	if !ok {
		return fmt.Errorf("%w: %d", errors.ErrNotJoined, msg.ChannelID())
	}
	return c.SendMessage(ctx, session.Channel().Token, text)
}

// Report snapshots every joined channel and the notification buffer.
func (c *Client) Report() workers.Report {
	sessions := c.registry.All()
	report := workers.Report{
		Channels: make([]workers.ChannelReport, 0, len(sessions)),
		Buffered: len(c.events),
		Capacity: cap(c.events),
	}
	for _, s := range sessions {
		report.Channels = append(report.Channels, workers.ChannelReport{
			Token:    s.Channel().Token,
			State:    s.State().String(),
			Viewers:  s.Viewers(),
			Chatters: s.Chatters(),
		})
	}
	return report
}
