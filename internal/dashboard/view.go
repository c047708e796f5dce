// AngelaMos | 2026
// view.go

package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/notify"
)

// view is the lifecycle shared by both dashboards: a context that ends on
// unmount, one goroutine per live channel, and a torn-down flag that makes
// late events and action results no-ops.
type view struct {
	src    Source
	notes  *notify.Queue
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	changes chan struct{}
}

func newView(src Source, notes *notify.Queue, logger *slog.Logger) *view {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &view{
		src:     src,
		notes:   notes,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		changes: make(chan struct{}, 1),
	}
}

func (v *view) live() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Changes fires, coalesced, whenever the rendered state may differ.
func (v *view) Changes() <-chan struct{} { return v.changes }

// Done closes when the view is unmounted.
func (v *view) Done() <-chan struct{} { return v.ctx.Done() }

func (v *view) changed() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

func (v *view) notify(msg string, sev notify.Severity) {
	if v.notes != nil && v.live() {
		v.notes.Notify(msg, sev)
	}
}

// watch subscribes to ch and feeds each change to handle. A channel that
// cannot be opened or that ends is logged; other channels keep running.
func (v *view) watch(ch backend.Channel, handle func(backend.Change)) {
	stream, err := v.src.Subscribe(v.ctx, ch)
	if err != nil {
		if v.ctx.Err() == nil {
			v.logger.Warn("live subscription failed", "channel", ch.String(), "error", err)
		}
		return
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer stream.Close()

		for {
			select {
			case <-v.ctx.Done():
				return
			case c, ok := <-stream.C():
				if !ok {
					if err := stream.Err(); err != nil && v.ctx.Err() == nil {
						v.logger.Warn("live subscription ended", "channel", ch.String(), "error", err)
					}
					return
				}
				if !v.live() {
					return
				}
				handle(c)
				v.changed()
			}
		}
	}()
}

// close tears the view down and waits for its subscriptions to stop.
func (v *view) close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	v.wg.Wait()
}
