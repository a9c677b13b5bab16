package projection

import (
	"beam-chat/domain"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoster_FindOrCreate_Reuses_Existing_Entry(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()

	// Given a participant already seen
	first := roster.FindOrCreate("42", "alice", domain.Roles{"User"})

	// When the same id shows up with other attributes
	second := roster.FindOrCreate("42", "renamed", domain.Roles{"Mod"})

	// Then the original entry is returned untouched and no duplicate exists
	req.Same(first, second)
	req.Equal("alice", second.Username)
	req.Equal(1, roster.Len())
}

func TestRoster_Never_Holds_Duplicate_Ids(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()

	for i := 0; i < 50; i++ {
		roster.FindOrCreate(domain.ParticipantID(fmt.Sprint(i%7)), "user", nil)
	}

	req.Equal(7, roster.Len())
	seen := map[domain.ParticipantID]bool{}
	for _, p := range roster.Snapshot() {
		req.False(seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestRoster_Remove_Then_FindOrCreate_Yields_Fresh_Entry(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()

	// Given a participant with some history
	p := roster.FindOrCreate("7", "bob", nil)
	p.Remember("hello")
	p.Remember("again")

	// When he leaves and comes back
	req.True(roster.Remove("7"))
	back := roster.FindOrCreate("7", "bob", nil)

	// Then his history starts empty
	req.NotSame(p, back)
	req.Empty(back.Messages)
}

func TestRoster_Remove_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	roster.FindOrCreate("1", "carol", nil)

	req.False(roster.Remove("404"))
	req.Equal(1, roster.Len())
}

func TestRoster_Get_Unknown(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()

	p, ok := roster.Get("nobody")

	req.False(ok)
	req.Nil(p)
}

func TestParticipant_History_Is_Bounded_Fifo(t *testing.T) {
	req := require.New(t)
	p := domain.NewParticipant("1", "dave", nil)

	// When more than HistorySize messages are remembered
	for i := 0; i < domain.HistorySize+25; i++ {
		p.Remember(fmt.Sprintf("msg-%d", i))
	}

	// Then only the most recent ones are kept, oldest first
	req.Len(p.Messages, domain.HistorySize)
	req.Equal("msg-25", p.Messages[0])
	req.Equal(fmt.Sprintf("msg-%d", domain.HistorySize+24), p.Messages[domain.HistorySize-1])
}

func TestRoles_Equal_Ignores_Order(t *testing.T) {
	req := require.New(t)

	req.True(domain.Roles{"User", "Mod"}.Equal(domain.Roles{"Mod", "User"}))
	req.False(domain.Roles{"User"}.Equal(domain.Roles{"User", "Mod"}))
	req.True(domain.Roles(nil).Equal(domain.Roles{}))
}
