package storage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/service"
)

// changeBus fans installment change events out to subscribers.
type changeBus struct {
	listeners map[int]service.ChangeListener
	now       func() time.Time
	mu        sync.RWMutex
	nextID    int
}

func newChangeBus() *changeBus {
	return &changeBus{
		listeners: make(map[int]service.ChangeListener),
		now:       time.Now,
	}
}

func (b *changeBus) subscribe(listener service.ChangeListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *changeBus) publish(kind service.ChangeKind, owner *model.PlanOwner, ids []string) {
	event := service.ChangeEvent{
		At:    b.now(),
		Owner: owner,
		Kind:  kind,
		IDs:   ids,
	}

	b.mu.RLock()
	listeners := make([]service.ChangeListener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	slog.Debug("installment store changed", "kind", kind, "ids", len(ids), "listeners", len(listeners))
	for _, l := range listeners {
		l(event)
	}
}

// Subscribe registers listener for change events published after every
// successful installment write. The returned function unsubscribes.
func (s *SQLiteStorage) Subscribe(listener service.ChangeListener) func() {
	return s.bus.subscribe(listener)
}
