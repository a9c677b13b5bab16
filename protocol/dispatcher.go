package protocol

import (
	"beam-chat/domain"
	"beam-chat/domain/event"
	"beam-chat/projection"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// Target is the session state the dispatcher reads and mutates.
// All methods are called from the session goroutine.
type Target interface {
	Channel() domain.Channel
	Roster() *projection.Roster
	SetStats(viewers, chatters int)
	SetDescription(description string)
	SetSlowChat(window time.Duration)
	Options() (description string, slowChat time.Duration)
	Publish(e event.DomainEvent)
}

// Inspector enriches the clean text of inbound messages.
type Inspector interface {
	Inspect(text string) (censored, lang string)
}

type Outcome int

const (
	Dropped Outcome = iota
	EventHandled
	AckReply
	AuthReply
	UnhandledReply
)

// Result tells the session what a frame meant for the handshake.
type Result struct {
	Outcome       Outcome
	Authenticated bool
	Role          string
}

type eventHandler func(d *Dispatcher, data any) error

var handlers = map[string]eventHandler{
	"Stats":          handleStats,
	"PollStart":      handlePollStart,
	"PollEnd":        handlePollEnd,
	"UserJoin":       handleUserJoin,
	"UserLeave":      handleUserLeave,
	"UserUpdate":     handleUserUpdate,
	"DeleteMessage":  handleDeleteMessage,
	"ClearMessages":  handleClearMessages,
	"ChatMessage":    handleChatMessage,
	"ChannelOptions": handleChannelOptions,
	"Error":          handleError,
}

// Dispatcher interprets inbound frames for one session.
// Unknown frames and failing handlers are logged and never stop the session.
type Dispatcher struct {
	log       *slog.Logger
	target    Target
	inspector Inspector
	dumpDir   string
}

func NewDispatcher(log *slog.Logger, target Target) *Dispatcher {
	return &Dispatcher{log: log, target: target}
}

func (d *Dispatcher) WithInspector(inspector Inspector) *Dispatcher {
	d.inspector = inspector
	return d
}

// WithEventDump writes the last payload of each event name into dir, for protocol debugging.
func (d *Dispatcher) WithEventDump(dir string) *Dispatcher {
	d.dumpDir = dir
	return d
}

// Dispatch parses and interprets one transport message.
func (d *Dispatcher) Dispatch(raw []byte) Result {
	frame, err := ParseFrame(raw)
	if err != nil {
		d.log.Warn("Error parsing message", "error", err)
		return Result{Outcome: Dropped}
	}
	switch frame.Type {
	case ReplyFrame:
		return d.handleReply(frame.Reply)
	default:
		d.handleEvent(frame.Event)
		return Result{Outcome: EventHandled}
	}
}

func (d *Dispatcher) handleReply(reply *Reply) Result {
	if !reply.IsError {
		if auth, err := decodePayload[authPayload](asMap(reply.Data)); err == nil && auth.Authenticated != nil {
			return Result{Outcome: AuthReply, Authenticated: *auth.Authenticated, Role: auth.Role}
		}
		if text, ok := reply.Data.(string); ok && text == MessageSentText {
			return Result{Outcome: AckReply}
		}
	}
	d.log.Warn("Unhandled reply", "id", reply.ID, "error", reply.Error, "data", reply.Data)
	return Result{Outcome: UnhandledReply}
}

func (d *Dispatcher) handleEvent(evt *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Event handler panicked", "event", evt.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	defer d.dump(evt)

	handler, ok := handlers[evt.Name]
	if !ok {
		d.log.Warn("Unknown event", "event", evt.Name, "data", evt.Data)
		return
	}
	if err := handler(d, evt.Data); err != nil {
		d.log.Error("Event handling failed", "event", evt.Name, "error", err)
	}
}

func (d *Dispatcher) dump(evt *Event) {
	if d.dumpDir == "" {
		return
	}
	body, err := json.MarshalIndent(map[string]any{"type": EventFrame, "event": evt.Name, "data": evt.Data}, "", "    ")
	if err != nil {
		return
	}
	if err = os.WriteFile(filepath.Join(d.dumpDir, evt.Name+".json"), body, 0o644); err != nil {
		d.log.Debug("Event dump failed", "event", evt.Name, "error", err)
	}
}

func (d *Dispatcher) header() event.Header {
	return event.NewHeader(d.target.Channel())
}

func handleStats(d *Dispatcher, data any) error {
	p, err := decodePayload[statsPayload](data)
	if err != nil {
		return err
	}
	d.target.SetStats(p.Viewers, p.Chatters)
	return nil
}

func handlePollStart(d *Dispatcher, data any) error {
	d.target.Publish(event.PollStarted{Header: d.header(), Payload: asMap(data)})
	return nil
}

func handlePollEnd(d *Dispatcher, data any) error {
	d.target.Publish(event.PollEnded{Header: d.header(), Payload: asMap(data)})
	return nil
}

func handleUserJoin(d *Dispatcher, data any) error {
	p, err := decodePayload[userPayload](data)
	if err != nil {
		return err
	}
	if p.ID == domain.AnonymousID {
		return nil
	}
	participant := d.target.Roster().FindOrCreate(p.ID, p.Username, p.Roles)
	d.target.Publish(event.ParticipantJoined{Header: d.header(), Participant: participant.Snapshot()})
	return nil
}

func handleUserLeave(d *Dispatcher, data any) error {
	p, err := decodePayload[userPayload](data)
	if err != nil {
		return err
	}
	if p.ID == domain.AnonymousID {
		return nil
	}
	d.target.Roster().Remove(p.ID)
	d.target.Publish(event.ParticipantLeft{Header: d.header(), ID: p.ID, Username: p.Username})
	return nil
}

// handleUserUpdate keys on "user", older payloads only carried "id".
func handleUserUpdate(d *Dispatcher, data any) error {
	p, err := decodePayload[userPayload](data)
	if err != nil {
		return err
	}
	id := p.User
	if id == "" {
		id = p.ID
	}
	if id == "" {
		return fmt.Errorf("user update without id")
	}
	participant := d.target.Roster().FindOrCreate(id, p.Username, p.Roles)
	participant.Roles = p.Roles
	participant.Username = p.Username
	d.target.Publish(event.ParticipantUpdated{Header: d.header(), Participant: participant.Snapshot()})
	return nil
}

func handleDeleteMessage(d *Dispatcher, data any) error {
	p, err := decodePayload[deletePayload](data)
	if err != nil {
		return err
	}
	d.target.Publish(event.MessageDeleted{Header: d.header(), MessageID: p.ID})
	return nil
}

func handleClearMessages(d *Dispatcher, _ any) error {
	d.target.Publish(event.ChatCleared{Header: d.header()})
	return nil
}

func handleChatMessage(d *Dispatcher, data any) error {
	p, err := decodePayload[chatMessagePayload](data)
	if err != nil {
		return err
	}
	roster := d.target.Roster()
	author, known := roster.Get(p.UserID)
	if !known {
		author = roster.FindOrCreate(p.UserID, p.UserName, p.UserRoles)
	} else if !author.Roles.Equal(p.UserRoles) {
		author.Roles = p.UserRoles
		d.target.Publish(event.ParticipantUpdated{Header: d.header(), Participant: author.Snapshot()})
	}

	clean, emotes := Reassemble(p.Message.Message)
	message := domain.Message{
		ID:         p.ID,
		Channel:    d.target.Channel().ID,
		AuthorID:   p.UserID,
		AuthorName: p.UserName,
		AuthorRole: p.UserRoles,
		Parts:      p.Message.Message,
		Meta:       p.Message.Meta,
		CleanText:  clean,
		Emotes:     emotes,
		Censored:   clean,
	}
	if d.inspector != nil {
		message.Censored, message.Lang = d.inspector.Inspect(clean)
	}
	author.Remember(clean)

	d.target.Publish(event.MessageReceived{Header: d.header(), Author: author.Snapshot(), Message: message})
	return nil
}

func handleChannelOptions(d *Dispatcher, data any) error {
	opts, err := parseChannelOptions(data)
	if err != nil {
		return err
	}
	switch o := opts.(type) {
	case DescriptionUpdate:
		d.target.SetDescription(o.Body)
	case SlowChatUpdate:
		d.target.SetSlowChat(o.SlowChat)
	}
	description, slowChat := d.target.Options()
	d.target.Publish(event.ChannelUpdated{Header: d.header(), Description: description, SlowChat: slowChat})
	return nil
}

func handleError(d *Dispatcher, data any) error {
	p, err := decodePayload[errorPayload](data)
	if err != nil {
		return err
	}
	if p.Type == "ENOTJSON" {
		return nil
	}
	d.log.Warn("Unknown error event", "type", p.Type, "data", data)
	return nil
}
