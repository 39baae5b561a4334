// Package room holds the authoritative in-memory view of video-room
// membership. The registry is pure state: it performs no I/O and signals no
// errors. Missing rooms or participants degrade to no-ops and empty results
// because the registry backs a best-effort real-time feature.
package room

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
)

// MaxParticipants is the hard per-room admission limit.
const MaxParticipants = 10

// Participant is one connection's membership record inside a room. SocketID
// is the transport-assigned connection id and the primary key within a room;
// UserID is asserted by the caller and not verified at this layer.
type Participant struct {
	UserID   string         `json:"userId"`
	SocketID string         `json:"socketId"`
	JoinedAt time.Time      `json:"joinedAt"`
	UserInfo map[string]any `json:"userInfo,omitempty"`
}

// Stats is the client-facing summary of a single room.
type Stats struct {
	Exists    bool          `json:"exists"`
	UserCount int           `json:"userCount"`
	Users     []Participant `json:"users"`
}

// Summary describes one live room in a full listing.
type Summary struct {
	RoomID    string        `json:"roomId"`
	UserCount int           `json:"userCount"`
	Users     []Participant `json:"users"`
}

// Registry owns every Room and Participant record. Mutations come from the
// gateway dispatch loop while the REST layer reads concurrently, so all
// state is guarded by the embedded mutex.
type Registry struct {
	sync.Mutex

	logger     *slog.Logger
	rooms      map[string]map[string]*Participant
	userSocket map[string]string
}

type NewRegistryParams struct {
	fx.In

	Logger *slog.Logger
}

func NewRegistry(params NewRegistryParams) *Registry {
	return &Registry{
		logger:     params.Logger,
		rooms:      make(map[string]map[string]*Participant),
		userSocket: make(map[string]string),
	}
}

// CanAdmit reports whether the room has capacity for one more participant.
// A room that does not exist yet can always be joined.
func (r *Registry) CanAdmit(roomID string) bool {
	r.Lock()
	defer r.Unlock()

	room, exist := r.rooms[roomID]
	return !exist || len(room) < MaxParticipants
}

// IsMember reports whether any participant of the room carries this userID,
// regardless of which connection it joined from.
func (r *Registry) IsMember(roomID, userID string) bool {
	r.Lock()
	defer r.Unlock()

	room, exist := r.rooms[roomID]
	if !exist {
		return false
	}

	for _, participant := range room {
		if participant.UserID == userID {
			return true
		}
	}
	return false
}

// Add inserts the participant keyed by socketID, creating the room lazily.
// Admission checks are the caller's responsibility; Add never re-validates.
// The global userID index is last-write-wins.
func (r *Registry) Add(roomID, userID, socketID string, userInfo map[string]any) {
	r.Lock()
	defer r.Unlock()

	room, exist := r.rooms[roomID]
	if !exist {
		room = make(map[string]*Participant)
		r.rooms[roomID] = room
	}

	room[socketID] = &Participant{
		UserID:   userID,
		SocketID: socketID,
		JoinedAt: time.Now(),
		UserInfo: userInfo,
	}
	r.userSocket[userID] = socketID

	r.logger.Info("participant added",
		slog.String("roomId", roomID),
		slog.String("userId", userID),
		slog.String("socketId", socketID),
		slog.Int("userCount", len(room)))
}

// Remove deletes the participant and drops the room once it is empty.
// No-op when the room or the participant is unknown.
func (r *Registry) Remove(roomID, socketID string) {
	r.Lock()
	defer r.Unlock()

	room, exist := r.rooms[roomID]
	if !exist {
		return
	}

	participant, exist := room[socketID]
	if !exist {
		return
	}

	delete(r.userSocket, participant.UserID)
	delete(room, socketID)

	r.logger.Info("participant removed",
		slog.String("roomId", roomID),
		slog.String("userId", participant.UserID),
		slog.String("socketId", socketID),
		slog.Int("userCount", len(room)))

	if len(room) == 0 {
		delete(r.rooms, roomID)
		r.logger.Info("room cleaned up", slog.String("roomId", roomID))
	}
}

// Members returns a snapshot of the room's participants, empty when the room
// is absent.
func (r *Registry) Members(roomID string) []Participant {
	r.Lock()
	defer r.Unlock()

	return snapshot(r.rooms[roomID])
}

// Stats summarizes a room for client display.
func (r *Registry) Stats(roomID string) Stats {
	r.Lock()
	defer r.Unlock()

	room, exist := r.rooms[roomID]
	if !exist {
		return Stats{Exists: false, UserCount: 0, Users: []Participant{}}
	}

	return Stats{
		Exists:    true,
		UserCount: len(room),
		Users:     snapshot(room),
	}
}

// FindBySocket scans all rooms for the given connection and returns the
// participant snapshot with its room id.
func (r *Registry) FindBySocket(socketID string) (Participant, string, bool) {
	r.Lock()
	defer r.Unlock()

	for roomID, room := range r.rooms {
		if participant, exist := room[socketID]; exist {
			return *participant, roomID, true
		}
	}
	return Participant{}, "", false
}

// SocketOfUser resolves the last connection a user joined from.
func (r *Registry) SocketOfUser(userID string) (string, bool) {
	r.Lock()
	defer r.Unlock()

	socketID, exist := r.userSocket[userID]
	return socketID, exist
}

// ListRooms summarizes every live room.
func (r *Registry) ListRooms() []Summary {
	r.Lock()
	defer r.Unlock()

	result := make([]Summary, 0, len(r.rooms))
	for roomID, room := range r.rooms {
		result = append(result, Summary{
			RoomID:    roomID,
			UserCount: len(room),
			Users:     snapshot(room),
		})
	}
	return result
}

func snapshot(room map[string]*Participant) []Participant {
	return lo.Map(lo.Values(room), func(p *Participant, _ int) Participant {
		return *p
	})
}
