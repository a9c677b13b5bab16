package runtime

import (
	"beam-chat/api"
	"beam-chat/contract"
	"beam-chat/domain"
	"beam-chat/domain/event"
	"beam-chat/errors"
	"beam-chat/outbound"
	"beam-chat/projection"
	"beam-chat/protocol"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultCredentialRetry   = 1 * time.Second
	mailboxSize              = 64
)

// SessionConfig tunes one chat session. Zero values take the defaults.
type SessionConfig struct {
	HeartbeatInterval time.Duration
	CredentialRetry   time.Duration
	SlowChat          time.Duration
	// EventDumpDir receives the last payload of every event name when set.
	EventDumpDir string
	Inspector    protocol.Inspector
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.CredentialRetry <= 0 {
		c.CredentialRetry = DefaultCredentialRetry
	}
	if c.SlowChat <= 0 {
		c.SlowChat = outbound.DefaultWindow
	}
	return c
}

// Session is the chat connection of one channel.
//
// A single goroutine, the one executing Run, owns the connection, the roster, the limiter
// and every timer. Other goroutines (connection reader, REST calls, dials, timers, public methods)
// only post closures to its mailbox. Results belonging to a superseded connection attempt are
// recognized by their generation and dropped.
type Session struct {
	id      string
	channel domain.Channel
	user    domain.User
	gateway contract.Gateway
	dialer  contract.Dialer
	log     *slog.Logger
	cfg     SessionConfig
	events  chan<- event.DomainEvent

	state    atomic.Int32
	viewers  atomic.Int64
	chatters atomic.Int64
	role     atomic.Value

	// held for the whole Run, so Close knows whether a loop owns the state below
	runMu     sync.Mutex
	mailbox   chan func()
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once

	// owned by the Run goroutine
	runCtx       context.Context
	gen          uint64
	conn         contract.Conn
	nextID       int
	reconnecting bool
	left         bool
	outbox       []event.DomainEvent
	heartbeat    *time.Ticker
	retry        *time.Timer
	limiterTimer *time.Timer
	roster       *projection.Roster
	dispatcher   *protocol.Dispatcher
	limiter      *outbound.Limiter
	description  string
}

func NewSession(log *slog.Logger, channel domain.Channel, user domain.User,
	gateway contract.Gateway, dialer contract.Dialer, events chan<- event.DomainEvent, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	s := &Session{
		id:          id,
		channel:     channel,
		user:        user,
		gateway:     gateway,
		dialer:      dialer,
		log:         log.With("channel", channel.Token, "session", id),
		cfg:         cfg,
		events:      events,
		mailbox:     make(chan func(), mailboxSize),
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
		roster:      projection.NewRoster(),
		description: channel.Description,
	}
	s.role.Store("")
	s.dispatcher = protocol.NewDispatcher(s.log, sessionTarget{s})
	if cfg.Inspector != nil {
		s.dispatcher.WithInspector(cfg.Inspector)
	}
	if cfg.EventDumpDir != "" {
		s.dispatcher.WithEventDump(cfg.EventDumpDir)
	}
	s.limiter = outbound.NewLimiter(cfg.SlowChat, s.transmitChat, s.armLimiter)
	return s
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Channel() domain.Channel { return s.channel }
func (s *Session) Name() string            { return "ChatSession:" + s.channel.Token }
func (s *Session) Viewers() int            { return int(s.viewers.Load()) }
func (s *Session) Chatters() int           { return int(s.chatters.Load()) }

// Role is the role granted by the last successful authentication.
func (s *Session) Role() string { return s.role.Load().(string) }

func (s *Session) State() domain.ConnectionState {
	return domain.ConnectionState(s.state.Load())
}

// Done is closed once the session reached Closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// setState refuses to leave a terminal state, except Closing → Closed.
func (s *Session) setState(next domain.ConnectionState) bool {
	for {
		cur := domain.ConnectionState(s.state.Load())
		if cur == domain.Closed || (cur == domain.Closing && next != domain.Closed) {
			return false
		}
		if s.state.CompareAndSwap(int32(cur), int32(next)) {
			return true
		}
	}
}

// Run drives the session until Close is called or ctx is canceled.
// It may be called again after a panic: the previous connection is dropped and a fresh one is made.
func (s *Session) Run(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.runCtx = runCtx
	defer s.release()

	if s.closeRequested() {
		s.shutdown()
		return nil
	}
	if s.gen > 0 {
		s.reconnecting = true
	}
	s.log.Info("Joining chat", "channel_id", s.channel.ID)
	s.fetchCredentials()

	for {
		out, next := s.nextNotification()
		select {
		case out <- next:
			s.outbox = s.outbox[1:]
		case <-s.closing:
			s.shutdown()
			return nil
		case <-runCtx.Done():
			s.shutdown()
			return nil
		case <-s.heartbeatC():
			s.sendHeartbeat()
		case fn := <-s.mailbox:
			if s.closeRequested() {
				s.shutdown()
				return nil
			}
			fn()
		}
	}
}

// Close stops the session for good. It is idempotent and never blocks on the network.
// A session that is not running is finished right away; a running one is finished by its loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setState(domain.Closing)
		close(s.closing)
		if s.runMu.TryLock() {
			defer s.runMu.Unlock()
			s.shutdownIdle()
		}
	})
}

// shutdownIdle is shutdown without a loop: ChannelLeft is handed over without waiting for the consumer.
func (s *Session) shutdownIdle() {
	if !s.left {
		s.left = true
		if s.events != nil {
			select {
			case s.events <- event.ChannelLeft{Header: s.header()}:
			default:
				s.log.Warn("ChannelLeft dropped, notification buffer full")
			}
		}
		s.log.Info("Left chat")
	}
	s.outbox = nil
	s.setState(domain.Closed)
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) closeRequested() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// post hands fn to the Run goroutine of ctx. It reports false when that run is over.
func (s *Session) post(ctx context.Context, fn func()) bool {
	select {
	case s.mailbox <- fn:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// call runs fn on the session goroutine and waits for its result.
func (s *Session) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case s.mailbox <- func() { result <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.ErrSessionClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.ErrSessionClosed
	}
}

// publish queues a notification. The loop hands queued notifications to the consumer
// in order without ever blocking on it.
func (s *Session) publish(e event.DomainEvent) {
	if s.events == nil {
		return
	}
	s.outbox = append(s.outbox, e)
}

func (s *Session) nextNotification() (chan<- event.DomainEvent, event.DomainEvent) {
	if len(s.outbox) == 0 {
		return nil, nil
	}
	return s.events, s.outbox[0]
}

// flush delivers the remaining notifications unless the run is canceled.
func (s *Session) flush() {
	for len(s.outbox) > 0 {
		select {
		case s.events <- s.outbox[0]:
			s.outbox = s.outbox[1:]
		case <-s.runCtx.Done():
			s.log.Debug("Notifications dropped, session stopping", "count", len(s.outbox))
			s.outbox = nil
			return
		}
	}
}

func (s *Session) header() event.Header {
	return event.NewHeader(s.channel)
}

func (s *Session) fetchCredentials() {
	s.gen++
	gen, ctx := s.gen, s.runCtx
	s.setState(domain.FetchingCredentials)
	go func() {
		creds, err := api.FetchChatCredentials(ctx, s.gateway, s.channel.ID)
		s.post(ctx, func() { s.onCredentials(gen, creds, err) })
	}()
}

func (s *Session) scheduleRetry(gen uint64) {
	ctx := s.runCtx
	s.retry = time.AfterFunc(s.cfg.CredentialRetry, func() {
		s.post(ctx, func() {
			if gen == s.gen {
				s.fetchCredentials()
			}
		})
	})
}

func (s *Session) onCredentials(gen uint64, creds api.ChatCredentials, err error) {
	if gen != s.gen {
		return
	}
	if err != nil {
		s.log.Warn("Unable to fetch chat credentials, retrying", "error", err, "retry_in", s.cfg.CredentialRetry)
		s.scheduleRetry(gen)
		return
	}
	s.setState(domain.Connecting)
	endpoint := lo.Sample(creds.Endpoints)
	ctx := s.runCtx
	go func() {
		conn, err := s.dialer.Dial(ctx, endpoint)
		if !s.post(ctx, func() { s.onDialed(gen, endpoint, creds.AuthKey, conn, err) }) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (s *Session) onDialed(gen uint64, endpoint, authKey string, conn contract.Conn, err error) {
	if gen != s.gen {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		s.log.Warn("Unable to connect, retrying", "endpoint", endpoint, "error", err)
		s.setState(domain.Reconnecting)
		s.scheduleRetry(gen)
		return
	}
	s.conn = conn
	s.nextID = 1
	go s.read(s.runCtx, gen, conn)

	s.setState(domain.Authenticating)
	auth := protocol.NewMethod(s.takeID(), protocol.AuthMethod, s.channel.ID, s.user.ID, authKey)
	if err = s.write(auth); err != nil {
		s.log.Warn("Unable to send auth frame", "error", err)
		_ = conn.Close()
		return
	}
	s.log.Info("Connected", "endpoint", endpoint)
}

// read forwards every frame of conn to the session goroutine, then its closing error.
func (s *Session) read(ctx context.Context, gen uint64, conn contract.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.post(ctx, func() { s.onClosed(gen, err) })
			return
		}
		if !s.post(ctx, func() { s.onFrame(gen, data) }) {
			return
		}
	}
}

func (s *Session) onFrame(gen uint64, data []byte) {
	if gen != s.gen {
		return
	}
	res := s.dispatcher.Dispatch(data)
	if s.State() != domain.Authenticating {
		return
	}
	switch {
	case res.Outcome == protocol.AuthReply && res.Authenticated:
		s.onAuthenticated(gen, res.Role)
	case res.Outcome == protocol.AuthReply, res.Outcome == protocol.UnhandledReply:
		s.log.Warn("Authentication refused, reconnecting")
		_ = s.conn.Close()
	}
}

func (s *Session) onAuthenticated(gen uint64, role string) {
	s.setState(domain.Connected)
	s.role.Store(role)
	s.heartbeat = time.NewTicker(s.cfg.HeartbeatInterval)
	s.log.Info("Authenticated", "role", role, "reconnect", s.reconnecting)
	s.publish(event.ChannelJoined{Header: s.header(), Reconnect: s.reconnecting, Role: role})
	s.reconnecting = false
	s.limiter.Resume()

	ctx := s.runCtx
	go func() {
		users, err := api.FetchChatUsers(ctx, s.gateway, s.channel.ID)
		s.post(ctx, func() { s.onRoster(gen, users, err) })
	}()
}

func (s *Session) onRoster(gen uint64, users []api.ChatUser, err error) {
	if gen != s.gen {
		return
	}
	if err != nil {
		s.log.Warn("Unable to fetch chat users", "error", err)
		return
	}
	for _, u := range users {
		participant := s.roster.FindOrCreate(u.ID, u.Username, u.Roles)
		s.publish(event.ParticipantJoined{Header: s.header(), Participant: participant.Snapshot(), Initial: true})
	}
}

// onClosed runs the reconnect cycle for the current connection.
func (s *Session) onClosed(gen uint64, err error) {
	if gen != s.gen || s.State().Terminal() {
		return
	}
	s.log.Info("Connection closed", "error", err)
	s.release()
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.publish(event.Disconnected{Header: s.header(), Reason: reason})
	s.reconnecting = true
	s.setState(domain.Reconnecting)
	s.fetchCredentials()
}

func (s *Session) heartbeatC() <-chan time.Time {
	if s.heartbeat == nil {
		return nil
	}
	return s.heartbeat.C
}

func (s *Session) sendHeartbeat() {
	if s.conn == nil || s.State() != domain.Connected {
		return
	}
	if err := s.conn.WriteMessage(protocol.Heartbeat); err != nil {
		s.log.Warn("Heartbeat failed", "error", err)
		_ = s.conn.Close()
	}
}

// release stops every timer and drops the connection. Queued messages stay in the limiter.
func (s *Session) release() {
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	if s.limiterTimer != nil {
		s.limiterTimer.Stop()
		s.limiterTimer = nil
	}
	s.limiter.Reset()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) shutdown() {
	s.setState(domain.Closing)
	s.gen++
	s.release()
	if !s.left {
		s.left = true
		s.publish(event.ChannelLeft{Header: s.header()})
		s.log.Info("Left chat")
	}
	s.flush()
	s.setState(domain.Closed)
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) takeID() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Session) write(m protocol.Method) error {
	if s.conn == nil {
		return errors.ErrNotConnected
	}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(data)
}

func (s *Session) transmitChat(text string) error {
	if s.State() != domain.Connected {
		return errors.ErrNotConnected
	}
	return s.write(protocol.NewMethod(s.takeID(), protocol.MsgMethod, text))
}

func (s *Session) armLimiter(d time.Duration) {
	ctx := s.runCtx
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.post(ctx, func() {
			if s.limiterTimer != timer {
				return
			}
			s.limiterTimer = nil
			if s.State() != domain.Connected {
				s.limiter.Reset()
				return
			}
			if err := s.limiter.Fire(); err != nil {
				s.log.Warn("Unable to send queued message", "error", err)
			}
		})
	})
	s.limiterTimer = timer
}

// SendMessage queues text behind the slow chat window of the channel.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	return s.call(ctx, func() error {
		if s.State() != domain.Connected {
			return errors.ErrNotConnected
		}
		return s.limiter.Enqueue(text)
	})
}

func (s *Session) StartGiveaway(ctx context.Context) error {
	return s.call(ctx, func() error {
		if s.State() != domain.Connected {
			return errors.ErrNotConnected
		}
		return s.write(protocol.NewMethod(s.takeID(), protocol.GiveawayMethod))
	})
}

// Roster returns a copy of the participants currently known.
func (s *Session) Roster(ctx context.Context) ([]domain.Participant, error) {
	var out []domain.Participant
	err := s.call(ctx, func() error {
		out = s.roster.Snapshot()
		return nil
	})
	return out, err
}

// Participant looks a participant up by id.
func (s *Session) Participant(ctx context.Context, id domain.ParticipantID) (domain.Participant, bool, error) {
	var (
		out   domain.Participant
		found bool
	)
	err := s.call(ctx, func() error {
		if p, ok := s.roster.Get(id); ok {
			out, found = p.Snapshot(), true
		}
		return nil
	})
	return out, found, err
}

func (s *Session) ClearChat(ctx context.Context) (bool, error) {
	return api.ClearChat(ctx, s.gateway, s.channel.ID)
}

func (s *Session) DeleteMessage(ctx context.Context, messageID string) (bool, error) {
	return api.DeleteMessage(ctx, s.gateway, s.channel.ID, messageID)
}

func (s *Session) ModUser(ctx context.Context, user domain.UserID) (bool, error) {
	return api.UpdateUserRoles(ctx, s.gateway, s.channel.ID, user, api.RoleChange{Add: []string{api.RoleMod}})
}

func (s *Session) UnmodUser(ctx context.Context, user domain.UserID) (bool, error) {
	return api.UpdateUserRoles(ctx, s.gateway, s.channel.ID, user, api.RoleChange{Remove: []string{api.RoleMod}})
}

func (s *Session) BanUser(ctx context.Context, user domain.UserID) (bool, error) {
	return api.UpdateUserRoles(ctx, s.gateway, s.channel.ID, user, api.RoleChange{Add: []string{api.RoleBanned}})
}

func (s *Session) UnbanUser(ctx context.Context, user domain.UserID) (bool, error) {
	return api.UpdateUserRoles(ctx, s.gateway, s.channel.ID, user, api.RoleChange{Remove: []string{api.RoleBanned}})
}

// sessionTarget exposes the session state to the dispatcher. Only used on the session goroutine.
type sessionTarget struct{ s *Session }

func (t sessionTarget) Channel() domain.Channel    { return t.s.channel }
func (t sessionTarget) Roster() *projection.Roster { return t.s.roster }

func (t sessionTarget) SetStats(viewers, chatters int) {
	t.s.viewers.Store(int64(viewers))
	t.s.chatters.Store(int64(chatters))
}

func (t sessionTarget) SetDescription(description string) { t.s.description = description }
func (t sessionTarget) SetSlowChat(window time.Duration)  { t.s.limiter.SetWindow(window) }

func (t sessionTarget) Options() (string, time.Duration) {
	return t.s.description, t.s.limiter.Window()
}

func (t sessionTarget) Publish(e event.DomainEvent) { t.s.publish(e) }
