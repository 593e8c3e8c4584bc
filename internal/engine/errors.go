package engine

import "errors"

var (
	// ErrAnchorNotFound is returned when the tagged content of a diff is no
	// longer in the document, because it was resolved already or edited away.
	// Callers should treat it as a stale command, not a fault.
	ErrAnchorNotFound = errors.New("diff anchor not found")

	// ErrParseFailure is returned when a proposal cannot be parsed into blocks.
	ErrParseFailure = errors.New("proposal parse failed")

	// ErrGeneration is returned when the text generator fails.
	ErrGeneration = errors.New("generation failed")

	// ErrAborted is returned for chunks arriving after the user stopped generation.
	ErrAborted = errors.New("generation aborted")

	// ErrStreamFinished is returned for chunks arriving after the generator
	// signalled completion.
	ErrStreamFinished = errors.New("stream already finished")

	// ErrSessionNotFound is returned when no live session has the given ID.
	ErrSessionNotFound = errors.New("diff session not found")

	// ErrNoTrigger is returned when submit or cancel has no pending trigger.
	ErrNoTrigger = errors.New("no pending trigger")

	// ErrTriggerActive is returned when a trigger is already pending.
	ErrTriggerActive = errors.New("trigger already pending")

	// ErrEmptySelection is returned when triggering without selected text.
	ErrEmptySelection = errors.New("selection is empty")

	// ErrOverlappingSession is returned when a selection intersects the
	// content of a live diff.
	ErrOverlappingSession = errors.New("selection overlaps a live diff")

	// ErrStreamingSession is returned when the document is serialized while a
	// proposal is still streaming.
	ErrStreamingSession = errors.New("a diff is still streaming")
)
