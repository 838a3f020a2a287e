package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/pkg/logger"
)

// Writer receives the coalesced remote writes. Quantity 0 means delete.
type Writer interface {
	SetQuantity(ctx context.Context, itemID string, category model.Category, quantity int) error
}

type entry struct {
	timer    *time.Timer
	quantity int
	category model.Category
}

// Debouncer coalesces rapid quantity changes into one trailing remote
// write per item id. Scheduling again for the same id before the quiet
// window elapses cancels the earlier timer and restarts the window
// with the new payload; distinct ids run fully independent timers.
// The payload is captured at schedule time, so a firing timer never
// reads shared aggregate state.
type Debouncer struct {
	window  time.Duration
	timeout time.Duration
	writer  Writer

	mu      sync.Mutex
	pending map[string]*entry
}

func New(writer Writer, window, timeout time.Duration) *Debouncer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Debouncer{
		window:  window,
		timeout: timeout,
		writer:  writer,
		pending: make(map[string]*entry),
	}
}

// Schedule registers the latest absolute quantity for itemID. Only the
// most recent payload per id survives to the wire.
func (d *Debouncer) Schedule(itemID string, quantity int, category model.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[itemID]; ok {
		prev.timer.Stop()
	}

	e := &entry{quantity: quantity, category: category}
	e.timer = time.AfterFunc(d.window, func() {
		d.fire(itemID, e)
	})
	d.pending[itemID] = e

	logger.Debug("Remote write scheduled", map[string]interface{}{
		"item_id":  itemID,
		"quantity": quantity,
	})
}

func (d *Debouncer) fire(itemID string, e *entry) {
	d.mu.Lock()
	// A concurrent Schedule may have replaced this entry already;
	// only remove the bookkeeping if it is still ours.
	if cur, ok := d.pending[itemID]; ok && cur == e {
		delete(d.pending, itemID)
	}
	d.mu.Unlock()

	d.send(itemID, e)
}

func (d *Debouncer) send(itemID string, e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.writer.SetQuantity(ctx, itemID, e.category, e.quantity); err != nil {
		// Swallowed: the next mutation of this item re-schedules and
		// re-sends the then-current quantity.
		logger.Warn("Remote cart write failed", map[string]interface{}{
			"item_id":  itemID,
			"quantity": e.quantity,
			"error":    err.Error(),
		})
		return
	}

	logger.Debug("Remote cart write sent", map[string]interface{}{
		"item_id":  itemID,
		"quantity": e.quantity,
	})
}

// CancelAll drops every pending write without sending it. Used when
// the whole cart is cleared so a stale per-item write cannot
// resurrect a cleared item.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, id)
	}
}

// Flush sends every pending write immediately. Used at session end.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	flushed := make(map[string]*entry, len(d.pending))
	for id, e := range d.pending {
		if e.timer.Stop() {
			flushed[id] = e
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	for id, e := range flushed {
		d.send(id, e)
	}
}

// PendingCount reports how many item ids have an unfired timer.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
