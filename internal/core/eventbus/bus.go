package eventbus

import (
	"context"
	"sync"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers events to subscribers on a single goroutine, in publish
// order. Publishing never blocks: when the buffer is full the event is
// dropped and the OnDrop hooks fire.
//
// All methods are safe on a nil *EventBus, so components can publish
// without checking whether a bus was configured.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size.
func New(size int) *EventBus {
	if size <= 0 {
		size = 1
	}
	return &EventBus{
		ch:   make(chan envelope, size),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is done. A panicking subscriber is
// recovered and reported to the OnPanic hooks.
func (bus *EventBus) Start(ctx context.Context) {
	if bus == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]func(any), len(bus.subs[env.event]))
	copy(subs, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	if bus == nil {
		return
	}
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
}

func subscribeTyped[T any](bus *EventBus, event Event, fn func(T)) {
	bus.subscribe(event, func(p any) {
		if v, ok := p.(T); ok {
			fn(v)
		}
	})
}

// PublishTriggerOpened publishes a trigger.opened event.
func (bus *EventBus) PublishTriggerOpened(p TriggerOpenedPayload) {
	bus.send(EventTriggerOpened, p)
}

// SubscribeTriggerOpened registers fn for trigger.opened events.
func (bus *EventBus) SubscribeTriggerOpened(fn func(TriggerOpenedPayload)) {
	subscribeTyped(bus, EventTriggerOpened, fn)
}

// PublishTriggerClosed publishes a trigger.closed event.
func (bus *EventBus) PublishTriggerClosed(p TriggerClosedPayload) {
	bus.send(EventTriggerClosed, p)
}

// SubscribeTriggerClosed registers fn for trigger.closed events.
func (bus *EventBus) SubscribeTriggerClosed(fn func(TriggerClosedPayload)) {
	subscribeTyped(bus, EventTriggerClosed, fn)
}

// PublishDiffSubmitted publishes a diff.submitted event.
func (bus *EventBus) PublishDiffSubmitted(p DiffSubmittedPayload) {
	bus.send(EventDiffSubmitted, p)
}

// SubscribeDiffSubmitted registers fn for diff.submitted events.
func (bus *EventBus) SubscribeDiffSubmitted(fn func(DiffSubmittedPayload)) {
	subscribeTyped(bus, EventDiffSubmitted, fn)
}

// PublishDiffChunkApplied publishes a diff.chunk-applied event.
func (bus *EventBus) PublishDiffChunkApplied(p DiffChunkAppliedPayload) {
	bus.send(EventDiffChunkApplied, p)
}

// SubscribeDiffChunkApplied registers fn for diff.chunk-applied events.
func (bus *EventBus) SubscribeDiffChunkApplied(fn func(DiffChunkAppliedPayload)) {
	subscribeTyped(bus, EventDiffChunkApplied, fn)
}

// PublishDiffStreamFinished publishes a diff.stream-finished event.
func (bus *EventBus) PublishDiffStreamFinished(p DiffStreamFinishedPayload) {
	bus.send(EventDiffStreamFinished, p)
}

// SubscribeDiffStreamFinished registers fn for diff.stream-finished events.
func (bus *EventBus) SubscribeDiffStreamFinished(fn func(DiffStreamFinishedPayload)) {
	subscribeTyped(bus, EventDiffStreamFinished, fn)
}

// PublishDiffAborted publishes a diff.aborted event.
func (bus *EventBus) PublishDiffAborted(p DiffAbortedPayload) {
	bus.send(EventDiffAborted, p)
}

// SubscribeDiffAborted registers fn for diff.aborted events.
func (bus *EventBus) SubscribeDiffAborted(fn func(DiffAbortedPayload)) {
	subscribeTyped(bus, EventDiffAborted, fn)
}

// PublishDiffFailed publishes a diff.failed event.
func (bus *EventBus) PublishDiffFailed(p DiffFailedPayload) {
	bus.send(EventDiffFailed, p)
}

// SubscribeDiffFailed registers fn for diff.failed events.
func (bus *EventBus) SubscribeDiffFailed(fn func(DiffFailedPayload)) {
	subscribeTyped(bus, EventDiffFailed, fn)
}

// PublishDiffResolved publishes a diff.resolved event.
func (bus *EventBus) PublishDiffResolved(p DiffResolvedPayload) {
	bus.send(EventDiffResolved, p)
}

// SubscribeDiffResolved registers fn for diff.resolved events.
func (bus *EventBus) SubscribeDiffResolved(fn func(DiffResolvedPayload)) {
	subscribeTyped(bus, EventDiffResolved, fn)
}

// PublishNotificationPublished publishes a notification.published event.
func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

// SubscribeNotificationPublished registers fn for notification.published events.
func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) {
	subscribeTyped(bus, EventNotificationPublished, fn)
}
