package runtime

import (
	"beam-chat/domain"
	"beam-chat/errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newIdleSession(channel domain.Channel) *Session {
	return NewSession(slog.Default(), channel, domain.User{ID: 1}, nil, nil, nil, SessionConfig{})
}

func TestRegistry_Add_One_Channel(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := newIdleSession(domain.Channel{ID: 1, Token: "Streamer"})

	// Given no channel is joined
	req.Zero(registry.Len())

	// When a channel is added
	req.NoError(registry.Add(session))

	// Then it is found by token whatever the case, and by id
	found, ok := registry.Get("STREAMER")
	req.True(ok)
	req.Same(session, found)
	found, ok = registry.GetByChannel(1)
	req.True(ok)
	req.Same(session, found)
}

func TestRegistry_Add_Twice_Is_Refused(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	req.NoError(registry.Add(newIdleSession(domain.Channel{ID: 1, Token: "streamer"})))

	err := registry.Add(newIdleSession(domain.Channel{ID: 1, Token: "Streamer"}))

	req.ErrorIs(err, errors.ErrAlreadyJoined)
	req.Equal(1, registry.Len())
}

func TestRegistry_Remove_Cleans_Both_Indexes(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	req.NoError(registry.Add(newIdleSession(domain.Channel{ID: 1, Token: "alpha"})))
	req.NoError(registry.Add(newIdleSession(domain.Channel{ID: 2, Token: "beta"})))

	// When a channel is removed
	removed, ok := registry.Remove("Alpha")

	// Then only the other one is left
	req.True(ok)
	req.Equal("alpha", removed.Channel().Token)
	_, ok = registry.GetByChannel(1)
	req.False(ok)
	req.Len(registry.All(), 1)
	req.Equal("beta", registry.All()[0].Channel().Token)

	// And removing again is a no-op
	_, ok = registry.Remove("alpha")
	req.False(ok)
}

func TestRegistry_All_Is_Ordered(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	for i, token := range []string{"charlie", "alpha", "bravo"} {
		req.NoError(registry.Add(newIdleSession(domain.Channel{ID: domain.ChannelID(i), Token: token})))
	}

	all := registry.All()

	req.Equal("alpha", all[0].Channel().Token)
	req.Equal("bravo", all[1].Channel().Token)
	req.Equal("charlie", all[2].Channel().Token)
}
