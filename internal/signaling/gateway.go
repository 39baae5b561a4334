// Package signaling translates socket events into room-registry operations
// and directed or broadcast notifications. All registry mutations and peer
// bookkeeping run on a single dispatch goroutine, so an admission check and
// the insert that follows it can never interleave with another connection's
// events.
package signaling

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/study-along/signaling-server/internal/room"
	"go.uber.org/fx"
)

type eventKind int

const (
	attachEvent eventKind = iota
	frameEvent
	detachEvent
)

type dispatchItem struct {
	kind eventKind
	peer *Peer
	env  Envelope
}

// Gateway routes inbound signaling events. It is stateless beyond the peer
// table; all room state lives in the registry.
type Gateway struct {
	logger   *slog.Logger
	registry *room.Registry
	notifier *Notifier
	validate *validator.Validate

	peers  map[string]*Peer
	events chan dispatchItem
}

type NewGatewayParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *slog.Logger
	Registry  *room.Registry
	Notifier  *Notifier
	Config    Config
}

func NewGateway(params NewGatewayParams) *Gateway {
	gw := &Gateway{
		logger:   params.Logger,
		registry: params.Registry,
		notifier: params.Notifier,
		validate: validator.New(),
		peers:    make(map[string]*Peer),
		events:   make(chan dispatchItem, params.Config.EventBuffer),
	}

	ctx, cancel := context.WithCancel(context.Background())
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go gw.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})

	return gw
}

// Attach hands a freshly upgraded connection to the dispatch loop. Frames
// dispatched afterwards from the same connection are ordered behind it.
func (gw *Gateway) Attach(p *Peer) {
	gw.events <- dispatchItem{kind: attachEvent, peer: p}
}

// Dispatch queues one inbound frame for handling.
func (gw *Gateway) Dispatch(p *Peer, env Envelope) {
	gw.events <- dispatchItem{kind: frameEvent, peer: p, env: env}
}

// Detach runs the disconnect path. It is the transport's responsibility to
// call this once the connection is gone, whether or not the client ever sent
// leave-room.
func (gw *Gateway) Detach(p *Peer) {
	gw.events <- dispatchItem{kind: detachEvent, peer: p}
}

// Run consumes dispatch items until ctx is canceled. It is the only
// goroutine that touches the peer table and peer room state.
func (gw *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-gw.events:
			switch item.kind {
			case attachEvent:
				gw.handleAttach(item.peer)
			case frameEvent:
				gw.handleEvent(item.peer, item.env)
			case detachEvent:
				gw.handleDetach(item.peer)
			}
		}
	}
}

func (gw *Gateway) handleAttach(p *Peer) {
	gw.peers[p.id] = p
	gw.logger.Info("peer connected", slog.String("socketId", p.id))
}

func (gw *Gateway) handleDetach(p *Peer) {
	if _, exist := gw.peers[p.id]; !exist {
		return
	}
	delete(gw.peers, p.id)

	if p.inRoom() {
		roomID, userID := p.roomID, p.userID
		gw.registry.Remove(roomID, p.id)
		gw.broadcast(roomID, p.id, EventUserDisconnected, userDisconnectedEvent{
			UserID:   userID,
			SocketID: p.id,
		})
		p.clearRoom()
		gw.notifier.DispatchUpdateRooms()
	}

	gw.logger.Info("peer disconnected", slog.String("socketId", p.id))
}

func (gw *Gateway) handleEvent(p *Peer, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			gw.logger.Error("handler panic",
				slog.String("event", env.Event),
				slog.String("socketId", p.id),
				slog.Any("panic", r))
		}
	}()

	switch env.Event {
	case EventJoinRoom:
		gw.handleJoinRoom(p, env.Data)
	case EventLeaveRoom:
		gw.handleLeaveRoom(p)
	case EventGetRoomInfo:
		gw.handleGetRoomInfo(p, env.Data)
	case EventSignal:
		gw.handleSignal(p, env.Data)
	case EventCallUser:
		gw.handleCallUser(p, env.Data)
	case EventAcceptCall:
		gw.handleAcceptCall(p, env.Data)
	case EventRejectCall:
		gw.handleRejectCall(p, env.Data)
	case EventToggleMute:
		gw.handleToggleMute(p, env.Data)
	case EventStartScreenShare:
		gw.handleScreenShare(p, env.Data, EventScreenShareStarted)
	case EventStopScreenShare:
		gw.handleScreenShare(p, env.Data, EventScreenShareStopped)
	case EventSendMessage:
		gw.handleSendMessage(p, env.Data)
	case EventPing:
		p.send(EventPong, nil)
	default:
		gw.logger.Debug("unknown event",
			slog.String("event", env.Event),
			slog.String("socketId", p.id))
	}
}

func (gw *Gateway) handleJoinRoom(p *Peer, data json.RawMessage) {
	var payload joinRoomPayload
	if err := gw.decode(data, &payload); err != nil {
		gw.logger.Error("join-room payload", slog.String("err", err.Error()))
		p.sendError("Failed to join room")
		return
	}

	if !gw.registry.CanAdmit(payload.RoomID) {
		p.sendError("Room is full (max 10 users)")
		return
	}
	if gw.registry.IsMember(payload.RoomID, payload.UserID) {
		p.sendError("User already in this room")
		return
	}

	gw.registry.Add(payload.RoomID, payload.UserID, p.id, payload.UserInfo)
	p.roomID = payload.RoomID
	p.userID = payload.UserID
	p.userInfo = payload.UserInfo

	existing := lo.FilterMap(gw.registry.Members(payload.RoomID),
		func(m room.Participant, _ int) (memberInfo, bool) {
			return memberInfo{UserID: m.UserID, SocketID: m.SocketID}, m.SocketID != p.id
		})
	p.send(EventExistingUsers, existingUsersEvent{Users: existing})

	gw.broadcast(payload.RoomID, p.id, EventUserJoined, userJoinedEvent{
		UserID:   payload.UserID,
		SocketID: p.id,
		UserInfo: payload.UserInfo,
	})

	stats := gw.registry.Stats(payload.RoomID)
	p.send(EventRoomJoined, roomJoinedEvent{
		RoomID:       payload.RoomID,
		Exists:       stats.Exists,
		UserCount:    stats.UserCount,
		Users:        toStatsMembers(stats.Users),
		YourSocketID: p.id,
	})

	gw.notifier.DispatchUpdateRooms()
	gw.logger.Info("user joined room",
		slog.String("roomId", payload.RoomID),
		slog.String("userId", payload.UserID),
		slog.Int("userCount", stats.UserCount))
}

func (gw *Gateway) handleLeaveRoom(p *Peer) {
	if !p.inRoom() {
		return
	}

	roomID, userID := p.roomID, p.userID
	gw.registry.Remove(roomID, p.id)
	gw.broadcast(roomID, p.id, EventUserLeft, userLeftEvent{
		UserID:   userID,
		SocketID: p.id,
	})
	p.clearRoom()
	p.send(EventRoomLeft, roomLeftEvent{RoomID: roomID})

	gw.notifier.DispatchUpdateRooms()
	gw.logger.Info("user left room",
		slog.String("roomId", roomID),
		slog.String("userId", userID))
}

func (gw *Gateway) handleGetRoomInfo(p *Peer, data json.RawMessage) {
	var payload getRoomInfoPayload
	if err := gw.decode(data, &payload); err != nil {
		p.sendError("Failed to get room info")
		return
	}

	roomID := payload.RoomID
	if roomID == "" {
		roomID = p.roomID
	}
	if roomID == "" {
		p.sendError("No room specified")
		return
	}

	p.send(EventRoomInfo, toRoomInfo(gw.registry.Stats(roomID)))
}

func (gw *Gateway) handleSignal(p *Peer, data json.RawMessage) {
	var payload signalPayload
	if err := gw.decode(data, &payload); err != nil {
		p.sendError("Failed to send signal")
		return
	}

	if !p.inRoom() {
		p.sendError("Not in a room")
		return
	}

	from := payload.From
	if from == "" {
		from = p.id
	}

	gw.sendTo(payload.To, EventSignal, signalEvent{
		Signal: payload.Signal,
		From:   from,
		RoomID: p.roomID,
	})
}

func (gw *Gateway) handleCallUser(p *Peer, data json.RawMessage) {
	var payload callUserPayload
	if err := gw.decode(data, &payload); err != nil {
		p.sendError("Failed to initiate call")
		return
	}

	if !p.inRoom() {
		p.sendError("Not in a room")
		return
	}

	gw.sendTo(payload.To, EventIncomingCall, incomingCallEvent{
		Signal:     payload.SignalData,
		From:       p.id,
		FromUserID: p.userID,
		UserInfo:   payload.UserInfo,
		RoomID:     p.roomID,
	})
}

func (gw *Gateway) handleAcceptCall(p *Peer, data json.RawMessage) {
	var payload acceptCallPayload
	if err := gw.decode(data, &payload); err != nil {
		p.sendError("Failed to accept call")
		return
	}

	if !p.inRoom() {
		p.sendError("Not in a room")
		return
	}

	gw.sendTo(payload.To, EventCallAccepted, callAcceptedEvent{
		Signal: payload.Signal,
		From:   p.id,
	})
}

// handleRejectCall is best-effort: nothing is surfaced to the caller.
func (gw *Gateway) handleRejectCall(p *Peer, data json.RawMessage) {
	var payload rejectCallPayload
	if err := gw.decode(data, &payload); err != nil {
		gw.logger.Debug("reject-call payload", slog.String("err", err.Error()))
		return
	}

	reason := payload.Reason
	if reason == "" {
		reason = "Call rejected"
	}

	gw.sendTo(payload.To, EventCallRejected, callRejectedEvent{
		From:   p.id,
		Reason: reason,
	})
}

func (gw *Gateway) handleToggleMute(p *Peer, data json.RawMessage) {
	var payload toggleMutePayload
	if err := gw.decode(data, &payload); err != nil {
		gw.logger.Debug("toggle-mute payload", slog.String("err", err.Error()))
		return
	}

	if !p.inRoom() {
		return
	}

	gw.broadcast(p.roomID, p.id, EventUserMuteChanged, userMuteChangedEvent{
		UserID:   p.userID,
		SocketID: p.id,
		Muted:    payload.Muted,
		Type:     payload.Type,
	})
}

func (gw *Gateway) handleScreenShare(p *Peer, data json.RawMessage, event string) {
	var payload screenSharePayload
	if err := gw.decode(data, &payload); err != nil {
		gw.logger.Debug("screen-share payload", slog.String("err", err.Error()))
		return
	}

	if !p.inRoom() {
		return
	}

	notification := screenShareEvent{From: p.id, UserID: p.userID}
	if payload.To != "" {
		gw.sendTo(payload.To, event, notification)
		return
	}
	gw.broadcast(p.roomID, p.id, event, notification)
}

func (gw *Gateway) handleSendMessage(p *Peer, data json.RawMessage) {
	var payload sendMessagePayload
	if err := gw.decode(data, &payload); err != nil {
		gw.logger.Debug("send-message payload", slog.String("err", err.Error()))
		return
	}

	if !p.inRoom() {
		return
	}

	timestamp := time.Now()
	if payload.Timestamp != nil {
		timestamp = *payload.Timestamp
	}

	// The one inclusive broadcast: the sender gets its own message back.
	gw.broadcast(p.roomID, "", EventMessageReceived, messageReceivedEvent{
		Message:   payload.Message,
		From:      p.id,
		UserID:    p.userID,
		Timestamp: timestamp,
		RoomID:    p.roomID,
	})
}

// sendTo relays to a single live socket. Target room membership is not
// checked; an unknown target is dropped silently.
func (gw *Gateway) sendTo(socketID, event string, payload any) {
	target, exist := gw.peers[socketID]
	if !exist {
		gw.logger.Debug("relay target not connected",
			slog.String("event", event),
			slog.String("socketId", socketID))
		return
	}
	target.send(event, payload)
}

// broadcast fans an event out to every room member except excludeSocketID.
// Pass an empty exclude id for an inclusive broadcast.
func (gw *Gateway) broadcast(roomID, excludeSocketID, event string, payload any) {
	for _, member := range gw.registry.Members(roomID) {
		if member.SocketID == excludeSocketID {
			continue
		}
		if peer, exist := gw.peers[member.SocketID]; exist {
			peer.send(event, payload)
		}
	}
}

func (gw *Gateway) decode(data json.RawMessage, v any) error {
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return err
		}
	}
	return gw.validate.Struct(v)
}

func toRoomInfo(stats room.Stats) roomInfoEvent {
	return roomInfoEvent{
		Exists:    stats.Exists,
		UserCount: stats.UserCount,
		Users:     toStatsMembers(stats.Users),
	}
}

func toStatsMembers(members []room.Participant) []statsMember {
	return lo.Map(members, func(m room.Participant, _ int) statsMember {
		return statsMember{UserID: m.UserID, SocketID: m.SocketID, JoinedAt: m.JoinedAt}
	})
}
