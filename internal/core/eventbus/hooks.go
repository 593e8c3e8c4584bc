package eventbus

import "sync"

// hooks are observers of the bus itself rather than of any one event.
type hooks struct {
	mu        sync.RWMutex
	onPublish []func(Event, any)
	onDrop    []func(Event, any)
	onPanic   []func(Event, any, any)
}

// OnPublish registers fn to run, on the publishing goroutine, after an
// event is enqueued.
func (bus *EventBus) OnPublish(fn func(Event, any)) {
	addHook(bus, &bus.hooks.onPublish, fn)
}

// OnDrop registers fn to run when an event is dropped because the buffer
// is full.
func (bus *EventBus) OnDrop(fn func(Event, any)) {
	addHook(bus, &bus.hooks.onDrop, fn)
}

// OnPanic registers fn to run with the recovered value when a subscriber
// panics. A panicking hook is ignored.
func (bus *EventBus) OnPanic(fn func(Event, any, any)) {
	addHook(bus, &bus.hooks.onPanic, fn)
}

// send enqueues an event without blocking. Used by the typed Publish*
// methods.
func (bus *EventBus) send(event Event, payload any) {
	if bus == nil {
		return
	}
	select {
	case bus.ch <- envelope{event: event, payload: payload}:
		for _, fn := range snapshot(bus, &bus.hooks.onPublish) {
			fn(event, payload)
		}
	default:
		for _, fn := range snapshot(bus, &bus.hooks.onDrop) {
			fn(event, payload)
		}
	}
}

func (bus *EventBus) runOnPanic(event Event, payload any, recovered any) {
	for _, fn := range snapshot(bus, &bus.hooks.onPanic) {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(event, payload, recovered)
		}()
	}
}

func addHook[F any](bus *EventBus, list *[]F, fn F) {
	bus.hooks.mu.Lock()
	*list = append(*list, fn)
	bus.hooks.mu.Unlock()
}

// snapshot copies a hook list so hooks run without holding the lock.
func snapshot[F any](bus *EventBus, list *[]F) []F {
	bus.hooks.mu.RLock()
	defer bus.hooks.mu.RUnlock()
	return append([]F(nil), *list...)
}
