package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/markdown"
	"github.com/colonyops/redline/internal/engine"
)

// SelectionRequest selects either an explicit range or the first
// occurrence of Match.
type SelectionRequest struct {
	Range *doc.Range `json:"range,omitempty"`
	Match string     `json:"match,omitempty"`
}

// TriggerRequest opens a trigger on the current selection.
type TriggerRequest struct {
	Strategy diffsession.Strategy `json:"strategy,omitempty"`
}

// SubmitRequest submits a pending trigger.
type SubmitRequest struct {
	Instruction string `json:"instruction"`
}

// errorResponse writes err with the status it maps to.
func errorResponse(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound),
		errors.Is(err, engine.ErrAnchorNotFound),
		errors.Is(err, engine.ErrNoTrigger),
		errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrTriggerActive),
		errors.Is(err, engine.ErrOverlappingSession),
		errors.Is(err, engine.ErrStreamingSession),
		errors.Is(err, diffsession.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, engine.ErrEmptySelection),
		errors.Is(err, doc.ErrInvalidPath),
		errors.Is(err, doc.ErrSchema):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getDocument(c *gin.Context) {
	ed := s.eng.Editor()
	c.JSON(http.StatusOK, gin.H{
		"markdown":  markdown.Render(ed.Doc()),
		"version":   ed.Version(),
		"selection": ed.Selection(),
	})
}

// getTree returns the JSON form of the document. It is refused while a
// proposal is streaming.
func (s *Server) getTree(c *gin.Context) {
	root, err := s.eng.Snapshot()
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, root)
}

func (s *Server) saveDocument(c *gin.Context) {
	root, err := s.eng.Snapshot()
	if err != nil {
		errorResponse(c, err)
		return
	}
	if s.save == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "saving is not configured"})
		return
	}
	if err := s.save(c.Request.Context(), root); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (s *Server) putSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ed := s.eng.Editor()
	var r doc.Range
	switch {
	case req.Range != nil:
		r = *req.Range
	case req.Match != "":
		found, ok := ed.Doc().FindText(req.Match)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "text not found"})
			return
		}
		r = found
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "range or match is required"})
		return
	}

	if err := ed.Select(r); err != nil {
		errorResponse(c, err)
		return
	}
	sel := ed.Selection()
	c.JSON(http.StatusOK, gin.H{"selection": sel, "text": ed.Doc().TextBetween(sel)})
}

func (s *Server) postTrigger(c *gin.Context) {
	var req TriggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sess, err := s.eng.Trigger(c.Request.Context(), req.Strategy)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) deleteTrigger(c *gin.Context) {
	if err := s.eng.CancelTrigger(c.Request.Context(), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listDiffs(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Sessions())
}

func (s *Server) getDiff(c *gin.Context) {
	sess, err := s.eng.Session(c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// submitDiff submits a trigger and starts streaming the proposal. The
// response does not wait for generation.
func (s *Server) submitDiff(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.eng.Submit(c.Request.Context(), c.Param("id"), req.Instruction)
	if err != nil {
		errorResponse(c, err)
		return
	}
	s.startStream(sess.ID)
	c.JSON(http.StatusAccepted, sess)
}

func (s *Server) abortDiff(c *gin.Context) {
	if err := s.eng.Abort(c.Request.Context(), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resolveDiff(outcome history.Outcome) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var (
			entry history.Entry
			err   error
		)
		if outcome == history.OutcomeAccepted {
			entry, err = s.eng.Accept(c.Request.Context(), id)
		} else {
			entry, err = s.eng.Reject(c.Request.Context(), id)
		}
		if err != nil {
			errorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, []history.Entry{})
		return
	}
	entries, err := s.history.List(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) listNotifications(c *gin.Context) {
	if s.notes == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	notes, err := s.notes.List(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}
