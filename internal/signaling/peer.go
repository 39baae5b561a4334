package signaling

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// MessageWriter is the outbound half of a peer connection.
type MessageWriter interface {
	WriteJSON(v any) error
	Close() error
}

// Peer is the gateway's view of one connected socket. The room fields are
// owned by the gateway dispatch loop and must not be touched elsewhere.
type Peer struct {
	id     string
	writer MessageWriter
	logger *slog.Logger

	roomID   string
	userID   string
	userInfo map[string]any
}

func NewPeer(writer MessageWriter, logger *slog.Logger) *Peer {
	return &Peer{
		id:     uuid.NewString(),
		writer: writer,
		logger: logger,
	}
}

// ID is the transport-assigned socket id, unique per connection.
func (p *Peer) ID() string {
	return p.id
}

func (p *Peer) inRoom() bool {
	return p.roomID != ""
}

func (p *Peer) clearRoom() {
	p.roomID = ""
	p.userID = ""
	p.userInfo = nil
}

func (p *Peer) send(event string, payload any) {
	envelope := Envelope{Event: event}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			p.logger.Error("marshal outbound payload",
				slog.String("event", event),
				slog.String("socketId", p.id),
				slog.String("err", err.Error()))
			return
		}
		envelope.Data = data
	}

	if err := p.writer.WriteJSON(&envelope); err != nil {
		p.logger.Debug("write to peer",
			slog.String("event", event),
			slog.String("socketId", p.id),
			slog.String("err", err.Error()))
	}
}

func (p *Peer) sendError(message string) {
	p.send(EventError, errorEvent{Message: message})
}
