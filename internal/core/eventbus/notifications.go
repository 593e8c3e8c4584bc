package eventbus

import (
	"fmt"

	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/notify"
)

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeDiffFailed(func(p DiffFailedPayload) {
		if p.Err == nil {
			r.notifyf(notify.LevelError, "generation for diff %s failed", p.DiffID)
			return
		}
		r.notifyf(notify.LevelError, "generation for diff %s failed: %v", p.DiffID, p.Err)
	})

	r.bus.SubscribeDiffAborted(func(p DiffAbortedPayload) {
		r.notifyf(notify.LevelInfo, "generation for diff %s stopped", p.DiffID)
	})

	r.bus.SubscribeDiffResolved(func(p DiffResolvedPayload) {
		switch {
		case p.Entry.Fallback:
			r.notifyf(notify.LevelWarning, "diff %s had no proposal; original kept", p.Entry.DiffID)
		case p.Entry.Outcome == history.OutcomeAccepted:
			r.notifyf(notify.LevelInfo, "diff %s accepted", p.Entry.DiffID)
		default:
			r.notifyf(notify.LevelInfo, "diff %s rejected", p.Entry.DiffID)
		}
	})
}

func (r *NotificationRouter) notifyf(level notify.Level, format string, args ...any) {
	r.bus.PublishNotificationPublished(NotificationPublishedPayload{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}
