// Package eventbus provides a typed publish/subscribe event bus that reports
// diff lifecycle activity to observers such as the TUI, the websocket server
// and the debug logger.
package eventbus

import (
	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/notify"
)

// Event names a kind of bus event.
type Event string

// Keep list sorted A-Z.
const (
	EventDiffAborted           Event = "diff.aborted"
	EventDiffChunkApplied      Event = "diff.chunk-applied"
	EventDiffFailed            Event = "diff.failed"
	EventDiffResolved          Event = "diff.resolved"
	EventDiffStreamFinished    Event = "diff.stream-finished"
	EventDiffSubmitted         Event = "diff.submitted"
	EventNotificationPublished Event = "notification.published"
	EventTriggerClosed         Event = "trigger.closed"
	EventTriggerOpened         Event = "trigger.opened"
)

// TriggerOpenedPayload is emitted when an edit is triggered on a selection.
type TriggerOpenedPayload struct {
	DiffID    string
	Strategy  diffsession.Strategy
	Selection string
	Context   string
}

// TriggerClosedPayload is emitted when a trigger ends, either by submission
// or by cancellation.
type TriggerClosedPayload struct {
	DiffID    string
	Submitted bool
}

// DiffSubmittedPayload is emitted when a proposal is created in the tree.
type DiffSubmittedPayload struct {
	Session diffsession.Session
}

// DiffChunkAppliedPayload is emitted after a streamed chunk is applied.
type DiffChunkAppliedPayload struct {
	DiffID string
	Chunk  int
	Raw    string
}

// DiffStreamFinishedPayload is emitted when generation completes normally.
type DiffStreamFinishedPayload struct {
	DiffID string
	Chunks int
}

// DiffAbortedPayload is emitted when the user stops generation.
type DiffAbortedPayload struct {
	DiffID string
}

// DiffFailedPayload is emitted when generation fails.
type DiffFailedPayload struct {
	DiffID string
	Err    error
}

// DiffResolvedPayload is emitted when a proposal is accepted or rejected.
type DiffResolvedPayload struct {
	Entry history.Entry
}

// NotificationPublishedPayload is a user-facing message derived from other events.
type NotificationPublishedPayload struct {
	Level   notify.Level
	Message string
}
