package runtime

import (
	"beam-chat/domain"
	"beam-chat/errors"
	"sort"
	"sync"
)

// Registry indexes the joined channels by lowercase token.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	tokens   map[domain.ChannelID]string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		tokens:   make(map[domain.ChannelID]string),
	}
}

// Add registers the session of a channel. A channel can only be joined once.
func (r *Registry) Add(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.CleanToken(session.Channel().Token)
	if _, ok := r.sessions[key]; ok {
		return errors.ErrAlreadyJoined
	}
	r.sessions[key] = session
	r.tokens[session.Channel().ID] = key
	return nil
}

// Remove unregisters the channel and returns its session.
// The channel id index is cleaned as well so no dangling entry is left behind.
func (r *Registry) Remove(token string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.CleanToken(token)
	session, ok := r.sessions[key]
	if !ok {
		return nil, false
	}
	delete(r.sessions, key)
	delete(r.tokens, session.Channel().ID)
	return session, true
}

func (r *Registry) Get(token string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[domain.CleanToken(token)]
	return session, ok
}

func (r *Registry) GetByChannel(id domain.ChannelID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.tokens[id]
	if !ok {
		return nil, false
	}
	return r.sessions[key], true
}

// All returns the sessions ordered by token.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Session, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.sessions[k])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
