// Package event defines the notifications a chat session surfaces to its consumers.
// Every notification is a plain value; sessions publish them in the order they happened.
package event

import (
	"beam-chat/domain"
	"time"
)

type DomainEvent interface {
	ChannelID() domain.ChannelID
}

// Header is embedded in every notification.
type Header struct {
	Channel domain.ChannelID
	Token   string
	At      time.Time
}

func (h Header) ChannelID() domain.ChannelID { return h.Channel }

func NewHeader(channel domain.Channel) Header {
	return Header{Channel: channel.ID, Token: channel.Token, At: time.Now().UTC()}
}

// ChannelJoined is published once the auth handshake succeeded.
// Reconnect is true when the join follows a dropped connection.
type ChannelJoined struct {
	Header
	Reconnect bool
	Role      string
}

type ChannelLeft struct {
	Header
}

// Disconnected is published when the transport closed without Close being called.
type Disconnected struct {
	Header
	Reason string
}

// ParticipantJoined is published for UserJoin events and for every roster seed entry.
// Initial marks entries coming from the roster seed after (re)authentication.
type ParticipantJoined struct {
	Header
	Participant domain.Participant
	Initial     bool
}

type ParticipantUpdated struct {
	Header
	Participant domain.Participant
}

type ParticipantLeft struct {
	Header
	ID       domain.ParticipantID
	Username string
}

type MessageReceived struct {
	Header
	Author  domain.Participant
	Message domain.Message
}

type MessageDeleted struct {
	Header
	MessageID string
}

type ChatCleared struct {
	Header
}

type PollStarted struct {
	Header
	Payload map[string]any
}

type PollEnded struct {
	Header
	Payload map[string]any
}

// ChannelUpdated carries the channel options after a ChannelOptions event was applied.
type ChannelUpdated struct {
	Header
	Description string
	SlowChat    time.Duration
}
