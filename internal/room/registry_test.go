package room

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewRegistryParams{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRegistry_CanAdmit_EnforcesCapacity(t *testing.T) {
	registry := newTestRegistry()

	require.True(t, registry.CanAdmit("room1"), "absent room must be joinable")

	for i := 0; i < MaxParticipants; i++ {
		require.True(t, registry.CanAdmit("room1"))
		registry.Add("room1", fmt.Sprintf("user-%d", i), fmt.Sprintf("socket-%d", i), nil)
	}

	require.False(t, registry.CanAdmit("room1"))
	require.Equal(t, MaxParticipants, registry.Stats("room1").UserCount)

	// Other rooms are unaffected by a full one.
	require.True(t, registry.CanAdmit("room2"))
}

func TestRegistry_IsMember_MatchesUserAcrossSockets(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)

	require.True(t, registry.IsMember("room1", "u1"))
	require.False(t, registry.IsMember("room1", "u2"))
	require.False(t, registry.IsMember("room2", "u1"))
	require.False(t, registry.IsMember("missing", "u1"))
}

func TestRegistry_Remove_DeletesEmptyRoom(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)
	registry.Add("room1", "u2", "socket-b", nil)

	registry.Remove("room1", "socket-a")
	stats := registry.Stats("room1")
	require.True(t, stats.Exists)
	require.Equal(t, 1, stats.UserCount)

	registry.Remove("room1", "socket-b")
	stats = registry.Stats("room1")
	require.False(t, stats.Exists)
	require.Equal(t, 0, stats.UserCount)
	require.Empty(t, stats.Users)
	require.Empty(t, registry.ListRooms())
}

func TestRegistry_Remove_UnknownKeysAreNoOps(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)

	registry.Remove("missing", "socket-a")
	registry.Remove("room1", "missing-socket")

	require.Equal(t, 1, registry.Stats("room1").UserCount)
}

func TestRegistry_Members_ReturnsSnapshot(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", map[string]any{"name": "Alice"})

	members := registry.Members("room1")
	require.Len(t, members, 1)
	require.Equal(t, "u1", members[0].UserID)
	require.Equal(t, "socket-a", members[0].SocketID)
	require.False(t, members[0].JoinedAt.IsZero())

	members[0].UserID = "mutated"
	require.Equal(t, "u1", registry.Members("room1")[0].UserID)

	require.Empty(t, registry.Members("missing"))
}

func TestRegistry_FindBySocket_ScansAllRooms(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)
	registry.Add("room2", "u2", "socket-b", nil)

	participant, roomID, found := registry.FindBySocket("socket-b")
	require.True(t, found)
	require.Equal(t, "room2", roomID)
	require.Equal(t, "u2", participant.UserID)

	_, _, found = registry.FindBySocket("missing")
	require.False(t, found)
}

func TestRegistry_UserSocketIndex_LastWriteWins(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)
	registry.Add("room2", "u1", "socket-b", nil)

	socketID, found := registry.SocketOfUser("u1")
	require.True(t, found)
	require.Equal(t, "socket-b", socketID)

	// Removing either membership drops the single index entry.
	registry.Remove("room1", "socket-a")
	_, found = registry.SocketOfUser("u1")
	require.False(t, found)
}

func TestRegistry_Add_OverwritesSameSocket(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)
	registry.Add("room1", "u2", "socket-a", nil)

	stats := registry.Stats("room1")
	require.Equal(t, 1, stats.UserCount)
	require.Equal(t, "u2", stats.Users[0].UserID)
}

func TestRegistry_ListRooms_SummarizesEveryRoom(t *testing.T) {
	registry := newTestRegistry()
	registry.Add("room1", "u1", "socket-a", nil)
	registry.Add("room1", "u2", "socket-b", nil)
	registry.Add("room2", "u3", "socket-c", nil)

	summaries := registry.ListRooms()
	require.Len(t, summaries, 2)

	counts := make(map[string]int)
	for _, summary := range summaries {
		counts[summary.RoomID] = summary.UserCount
	}
	require.Equal(t, map[string]int{"room1": 2, "room2": 1}, counts)
}
