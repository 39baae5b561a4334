package signaling

import (
	"context"
	"log/slog"
	"sync"

	"github.com/study-along/signaling-server/pkg/executils"
	"github.com/study-along/signaling-server/pkg/wsutils"
	"go.uber.org/fx"
)

// Notifier pushes an update-rooms event to lobby listeners whenever room
// membership changes, so room pickers can refresh without polling.
type Notifier struct {
	logger *slog.Logger

	listenersMu sync.Mutex
	listeners   map[string]*wsutils.ThreadSafeWriter
	updateCh    chan struct{}
}

type NewNotifierParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *slog.Logger
}

func NewNotifier(params NewNotifierParams) *Notifier {
	n := &Notifier{
		logger:    params.Logger,
		listeners: make(map[string]*wsutils.ThreadSafeWriter),
		updateCh:  make(chan struct{}, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go n.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})

	return n
}

func (n *Notifier) Listen(id string, w *wsutils.ThreadSafeWriter) {
	n.listenersMu.Lock()
	defer n.listenersMu.Unlock()
	n.listeners[id] = w
}

func (n *Notifier) Stop(id string) {
	n.listenersMu.Lock()
	defer n.listenersMu.Unlock()
	delete(n.listeners, id)
}

// DispatchUpdateRooms never blocks the caller; pending notifications
// coalesce into one.
func (n *Notifier) DispatchUpdateRooms() {
	select {
	case n.updateCh <- struct{}{}:
	default:
	}
}

func (n *Notifier) getListeners() []*wsutils.ThreadSafeWriter {
	n.listenersMu.Lock()
	defer n.listenersMu.Unlock()

	result := make([]*wsutils.ThreadSafeWriter, 0, len(n.listeners))
	for _, listener := range n.listeners {
		result = append(result, listener)
	}
	return result
}

func (n *Notifier) Run(ctx context.Context) {
	var threshold uint64 = 1000
	var step uint64 = 8
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.updateCh:
			executils.ParallelExec(n.getListeners(), threshold, step, func(w *wsutils.ThreadSafeWriter) {
				if err := w.WriteJSON(&Envelope{Event: EventUpdateRooms}); err != nil {
					n.logger.Debug("notify lobby listener", slog.String("err", err.Error()))
				}
			})
		}
	}
}
