package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger logs every published event at debug level, dropped
// events as warnings and subscriber panics as errors. Events that belong to
// a diff carry its diff_id.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		e := logger.Debug().Str("event", string(event))
		if id := DiffIDOf(payload); id != "" {
			e = e.Str("diff_id", id)
		}
		switch p := payload.(type) {
		case DiffChunkAppliedPayload:
			e = e.Int("chunk", p.Chunk).Int("len", len(p.Raw))
		case DiffResolvedPayload:
			e = e.Str("outcome", string(p.Entry.Outcome)).Bool("fallback", p.Entry.Fallback)
		}
		e.Msg("event fired")
	})

	bus.OnDrop(func(event Event, payload any) {
		logger.Warn().
			Str("event", string(event)).
			Str("diff_id", DiffIDOf(payload)).
			Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}

// DiffIDOf returns the diff a payload refers to, or "" for payloads that
// are not tied to one.
func DiffIDOf(payload any) string {
	switch p := payload.(type) {
	case TriggerOpenedPayload:
		return p.DiffID
	case TriggerClosedPayload:
		return p.DiffID
	case DiffSubmittedPayload:
		return p.Session.ID
	case DiffChunkAppliedPayload:
		return p.DiffID
	case DiffStreamFinishedPayload:
		return p.DiffID
	case DiffAbortedPayload:
		return p.DiffID
	case DiffFailedPayload:
		return p.DiffID
	case DiffResolvedPayload:
		return p.Entry.DiffID
	default:
		return ""
	}
}
