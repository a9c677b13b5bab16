// Package projection builds the local view of a chat channel from observed events.
// It holds the participants present in one session and their recent messages.
// Does not emit events or interact with the transport directly.
package projection

import (
	"beam-chat/domain"

	"github.com/samber/lo"
)

// Roster is the set of currently known participants of one session.
// It is owned by a single session goroutine and is not safe for concurrent use.
// Lookups scan the slice linearly.
type Roster struct {
	entries []*domain.Participant
}

func NewRoster() *Roster {
	return &Roster{}
}

// FindOrCreate returns the entry for id, creating and appending it when unseen.
// An existing entry is returned untouched.
func (r *Roster) FindOrCreate(id domain.ParticipantID, username string, roles domain.Roles) *domain.Participant {
	if p, ok := r.Get(id); ok {
		return p
	}
	p := domain.NewParticipant(id, username, roles)
	r.entries = append(r.entries, p)
	return p
}

func (r *Roster) Get(id domain.ParticipantID) (*domain.Participant, bool) {
	return lo.Find(r.entries, func(p *domain.Participant) bool {
		return p.ID == id
	})
}

// Remove deletes the entry for id. Unknown ids are ignored.
func (r *Roster) Remove(id domain.ParticipantID) bool {
	before := len(r.entries)
	r.entries = lo.Reject(r.entries, func(p *domain.Participant, _ int) bool {
		return p.ID == id
	})
	return len(r.entries) != before
}

func (r *Roster) Len() int {
	return len(r.entries)
}

// Snapshot copies every entry so it can be handed to another goroutine.
func (r *Roster) Snapshot() []domain.Participant {
	return lo.Map(r.entries, func(p *domain.Participant, _ int) domain.Participant {
		return p.Snapshot()
	})
}
