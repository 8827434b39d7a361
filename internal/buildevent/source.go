package buildevent

import (
	"fmt"
	"sync"
)

// HandlerFunc handles a single event. A non-nil error stops delivery of that event.
type HandlerFunc func(Event) error

// Source delivers build events to subscribers. Subscribe returns the function
// that removes the subscription again.
type Source interface {
	Subscribe(kind Kind, fn HandlerFunc) (unsubscribe func())
}

// Listener is a secondary consumer attached to a Source for the duration of one
// build. Shutdown releases whatever Initialize acquired so the listener can be
// attached to the next build.
type Listener interface {
	Initialize(src Source) error
	Shutdown() error
}

type subscriber struct {
	id uint64
	fn HandlerFunc
}

// Dispatcher is an in-process Source. Dispatch delivers one event at a time, so
// handlers are never invoked concurrently even when producers are.
type Dispatcher struct {
	deliver sync.Mutex // serializes Dispatch

	mu     sync.RWMutex // guards subs and nextID
	subs   map[Kind][]subscriber
	nextID uint64
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subs: make(map[Kind][]subscriber),
	}
}

// Subscribe registers fn for events of the given kind.
func (d *Dispatcher) Subscribe(kind Kind, fn HandlerFunc) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.subs[kind] = append(d.subs[kind], subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(kind, id) })
	}
}

func (d *Dispatcher) remove(kind Kind, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// Copy so a Dispatch holding the old slice is unaffected.
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			d.subs[kind] = next
			return
		}
	}
}

// Subscribers returns the number of handlers registered for kind.
func (d *Dispatcher) Subscribers(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[kind])
}

// Dispatch delivers ev to every handler subscribed to its kind, in subscription
// order. The first handler error is returned and the remaining handlers are skipped.
// Handlers must not call Dispatch.
func (d *Dispatcher) Dispatch(ev Event) error {
	if ev == nil {
		return fmt.Errorf("dispatch: nil event")
	}

	d.deliver.Lock()
	defer d.deliver.Unlock()

	d.mu.RLock()
	subs := d.subs[ev.Kind()]
	d.mu.RUnlock()

	for _, s := range subs {
		if err := s.fn(ev); err != nil {
			return fmt.Errorf("handling %s: %w", ev.Kind(), err)
		}
	}
	return nil
}
