package signaling

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
	"github.com/study-along/signaling-server/internal/room"
	"github.com/study-along/signaling-server/pkg/protocol"
	"github.com/study-along/signaling-server/pkg/wsutils"
	"go.uber.org/fx"
)

const writeWait = 10 * time.Second

type signalingController struct {
	logger   *slog.Logger
	config   Config
	gateway  *Gateway
	registry *room.Registry
	notifier *Notifier
	upgrader websocket.Upgrader
}

type NewControllerParams struct {
	fx.In

	Logger   *slog.Logger
	Config   Config
	Gateway  *Gateway
	Registry *room.Registry
	Notifier *Notifier
}

func NewController(params NewControllerParams) *signalingController {
	allowedOrigin := params.Config.AllowedOrigin
	return &signalingController{
		logger:   params.Logger,
		config:   params.Config,
		gateway:  params.Gateway,
		registry: params.Registry,
		notifier: params.Notifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func (ctrl *signalingController) Resolve(router protocol.HttpRouter) error {
	router.GET("/healthz", ctrl.health)
	router.GET("/ws", ctrl.serveSocket)
	router.GET("/rooms", ctrl.listRooms)
	router.GET("/rooms/notifier", ctrl.serveNotifier)
	router.GET("/rooms/:roomId", ctrl.roomInfo)
	return nil
}

func (ctrl *signalingController) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// serveSocket upgrades the request and pumps frames into the gateway until
// the connection dies. The deferred Detach is the disconnect path; it must
// run no matter how the read loop ends.
func (ctrl *signalingController) serveSocket(c echo.Context) error {
	conn, err := ctrl.upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		ctrl.logger.Error(fmt.Sprintf("unable upgrade request %+v", c.Request()))
		return err
	}

	w := wsutils.NewThreadSafeWriter(conn)
	defer w.Close()

	peer := NewPeer(w, ctrl.logger)
	ctrl.gateway.Attach(peer)
	defer ctrl.gateway.Detach(peer)

	done := make(chan struct{})
	defer close(done)
	if ctrl.config.PingPeriod > 0 {
		go ctrl.pingLoop(conn, done)
	}

	if ctrl.config.ReadLimit > 0 {
		conn.SetReadLimit(ctrl.config.ReadLimit)
	}
	if ctrl.config.PongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(ctrl.config.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(ctrl.config.PongWait))
		})
	}

	for {
		var envelope Envelope
		if err := w.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				ctrl.logger.Error(fmt.Sprintf("%s | Err: %s", conn.RemoteAddr(), err))
			}
			return nil
		}
		ctrl.gateway.Dispatch(peer, envelope)
	}
}

func (ctrl *signalingController) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(ctrl.config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// WriteControl is safe alongside the gateway's JSON writes.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// serveNotifier subscribes the connection to lobby room-list updates.
func (ctrl *signalingController) serveNotifier(c echo.Context) error {
	conn, err := ctrl.upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		ctrl.logger.Error(fmt.Sprintf("unable upgrade request %+v", c.Request()))
		return err
	}

	w := wsutils.NewThreadSafeWriter(conn)
	defer w.Close()

	id := uuid.NewString()
	ctrl.notifier.Listen(id, w)
	defer ctrl.notifier.Stop(id)

	// Initial nudge so the subscriber fetches the current room list.
	if err := w.WriteJSON(&Envelope{Event: EventUpdateRooms}); err != nil {
		return nil
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

type roomListResponse struct {
	Rooms []room.Summary `json:"rooms"`
}

func (ctrl *signalingController) listRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, roomListResponse{
		Rooms: ctrl.registry.ListRooms(),
	})
}

func (ctrl *signalingController) roomInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, toRoomInfo(ctrl.registry.Stats(c.Param("roomId"))))
}

var _ protocol.HttpResolvable = (*signalingController)(nil)
