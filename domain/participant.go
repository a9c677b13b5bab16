// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/samber/lo"

// AnonymousID is the participant id the chat server uses for viewers that are not logged in.
const AnonymousID = "anon"

// HistorySize bounds the number of recent messages kept per participant.
const HistorySize = 100

type ParticipantID string

// Roles is an unordered set of role names (User, Mod, Owner, Banned...).
type Roles []string

// Equal compares two role sets regardless of order or duplicates.
func (r Roles) Equal(other Roles) bool {
	a, b := lo.Uniq(r), lo.Uniq(other)
	return len(a) == len(b) && lo.Every(a, b)
}

func (r Roles) Has(role string) bool {
	return lo.Contains(r, role)
}

// Participant is one roster entry of a chat session.
// Messages holds the participant's recent clean messages, oldest first.
type Participant struct {
	ID       ParticipantID
	Username string
	Roles    Roles
	Messages []string
}

func NewParticipant(id ParticipantID, username string, roles Roles) *Participant {
	return &Participant{ID: id, Username: username, Roles: roles}
}

// Remember appends a message to the history and evicts the oldest ones
// once HistorySize is exceeded.
func (p *Participant) Remember(message string) {
	p.Messages = append(p.Messages, message)
	if overflow := len(p.Messages) - HistorySize; overflow > 0 {
		p.Messages = append([]string(nil), p.Messages[overflow:]...)
	}
}

// Snapshot returns a copy that can safely leave the session goroutine.
func (p *Participant) Snapshot() Participant {
	return Participant{
		ID:       p.ID,
		Username: p.Username,
		Roles:    append(Roles(nil), p.Roles...),
		Messages: append([]string(nil), p.Messages...),
	}
}
