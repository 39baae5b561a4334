package signaling

import (
	"encoding/json"
	"time"
)

// Envelope is the wire frame for every client<->server signaling message.
// Data stays opaque until the handler for the event decodes it.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinRoom         = "join-room"
	EventLeaveRoom        = "leave-room"
	EventGetRoomInfo      = "get-room-info"
	EventSignal           = "signal"
	EventCallUser         = "call-user"
	EventAcceptCall       = "accept-call"
	EventRejectCall       = "reject-call"
	EventToggleMute       = "toggle-mute"
	EventStartScreenShare = "start-screen-share"
	EventStopScreenShare  = "stop-screen-share"
	EventSendMessage      = "send-message"
	EventPing             = "ping"
)

// Outbound event names.
const (
	EventExistingUsers      = "existing-users"
	EventUserJoined         = "user-joined"
	EventRoomJoined         = "room-joined"
	EventUserLeft           = "user-left"
	EventRoomLeft           = "room-left"
	EventRoomInfo           = "room-info"
	EventIncomingCall       = "incoming-call"
	EventCallAccepted       = "call-accepted"
	EventCallRejected       = "call-rejected"
	EventUserMuteChanged    = "user-mute-changed"
	EventScreenShareStarted = "screen-share-started"
	EventScreenShareStopped = "screen-share-stopped"
	EventMessageReceived    = "message-received"
	EventUserDisconnected   = "user-disconnected"
	EventPong               = "pong"
	EventError              = "error"
	EventUpdateRooms        = "update-rooms"
)

type joinRoomPayload struct {
	RoomID   string         `json:"roomId" validate:"required"`
	UserID   string         `json:"userId" validate:"required"`
	UserInfo map[string]any `json:"userInfo"`
}

type getRoomInfoPayload struct {
	RoomID string `json:"roomId"`
}

type signalPayload struct {
	To     string          `json:"to" validate:"required"`
	Signal json.RawMessage `json:"signal"`
	From   string          `json:"from"`
}

type callUserPayload struct {
	To         string          `json:"to" validate:"required"`
	SignalData json.RawMessage `json:"signalData"`
	UserInfo   map[string]any  `json:"userInfo"`
}

type acceptCallPayload struct {
	To     string          `json:"to" validate:"required"`
	Signal json.RawMessage `json:"signal"`
}

type rejectCallPayload struct {
	To     string `json:"to" validate:"required"`
	Reason string `json:"reason"`
}

type toggleMutePayload struct {
	Muted bool   `json:"muted"`
	Type  string `json:"type" validate:"required,oneof=audio video"`
}

type screenSharePayload struct {
	To string `json:"to"`
}

type sendMessagePayload struct {
	Message   string     `json:"message" validate:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

type memberInfo struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

type existingUsersEvent struct {
	Users []memberInfo `json:"users"`
}

type userJoinedEvent struct {
	UserID   string         `json:"userId"`
	SocketID string         `json:"socketId"`
	UserInfo map[string]any `json:"userInfo,omitempty"`
}

type statsMember struct {
	UserID   string    `json:"userId"`
	SocketID string    `json:"socketId"`
	JoinedAt time.Time `json:"joinedAt"`
}

type roomInfoEvent struct {
	Exists    bool          `json:"exists"`
	UserCount int           `json:"userCount"`
	Users     []statsMember `json:"users"`
}

type roomJoinedEvent struct {
	RoomID       string        `json:"roomId"`
	Exists       bool          `json:"exists"`
	UserCount    int           `json:"userCount"`
	Users        []statsMember `json:"users"`
	YourSocketID string        `json:"yourSocketId"`
}

type userLeftEvent struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

type roomLeftEvent struct {
	RoomID string `json:"roomId"`
}

type signalEvent struct {
	Signal json.RawMessage `json:"signal,omitempty"`
	From   string          `json:"from"`
	RoomID string          `json:"roomId"`
}

type incomingCallEvent struct {
	Signal     json.RawMessage `json:"signal,omitempty"`
	From       string          `json:"from"`
	FromUserID string          `json:"fromUserId"`
	UserInfo   map[string]any  `json:"userInfo,omitempty"`
	RoomID     string          `json:"roomId"`
}

type callAcceptedEvent struct {
	Signal json.RawMessage `json:"signal,omitempty"`
	From   string          `json:"from"`
}

type callRejectedEvent struct {
	From   string `json:"from"`
	Reason string `json:"reason"`
}

type userMuteChangedEvent struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
	Muted    bool   `json:"muted"`
	Type     string `json:"type"`
}

type screenShareEvent struct {
	From   string `json:"from"`
	UserID string `json:"userId"`
}

type messageReceivedEvent struct {
	Message   string    `json:"message"`
	From      string    `json:"from"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"roomId"`
}

type userDisconnectedEvent struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

type errorEvent struct {
	Message string `json:"message"`
}
