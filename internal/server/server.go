// Package server exposes the engine's commands over HTTP and forwards bus
// events to websocket clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/eventbus"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/notify"
	"github.com/colonyops/redline/internal/engine"
	"github.com/colonyops/redline/internal/generate"
)

// SaveFunc persists a snapshot of the document.
type SaveFunc func(ctx context.Context, root *doc.Node) error

// Deps are the collaborators the server drives.
type Deps struct {
	Engine        *engine.Engine
	Generator     generate.Generator
	History       history.Store
	Notifications notify.Store
	Bus           *eventbus.EventBus
	Save          SaveFunc
	Logger        zerolog.Logger
}

// Server serves one document.
type Server struct {
	eng     *engine.Engine
	gen     generate.Generator
	history history.Store
	notes   notify.Store
	save    SaveFunc
	hub     *Hub
	log     zerolog.Logger
	router  *gin.Engine

	// streams run on base so they outlive the request that started them.
	base    context.Context
	stop    context.CancelFunc
	streams sync.WaitGroup
}

// New creates a server. Bus events are forwarded to websocket clients from
// the moment New returns.
func New(d Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	base, stop := context.WithCancel(context.Background())
	s := &Server{
		eng:     d.Engine,
		gen:     d.Generator,
		history: d.History,
		notes:   d.Notifications,
		save:    d.Save,
		hub:     NewHub(d.Logger),
		log:     d.Logger,
		base:    base,
		stop:    stop,
	}
	if d.Bus != nil {
		d.Bus.OnPublish(s.hub.Broadcast)
	}

	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down and waits for
// running streams to stop.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close aborts running streams and disconnects websocket clients.
func (s *Server) Close() {
	s.stop()
	s.streams.Wait()
	s.hub.Close()
}

// startStream feeds the generator into a submitted diff in the background.
func (s *Server) startStream(diffID string) {
	s.streams.Add(1)
	go func() {
		defer s.streams.Done()
		if err := s.eng.Stream(s.base, diffID, s.gen); err != nil {
			s.log.Warn().Err(err).Str("diff_id", diffID).Msg("stream ended with error")
		}
	}()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/document", s.getDocument)
	r.GET("/document/tree", s.getTree)
	r.POST("/document/save", s.saveDocument)
	r.PUT("/selection", s.putSelection)

	r.POST("/trigger", s.postTrigger)
	r.DELETE("/trigger/:id", s.deleteTrigger)

	diffs := r.Group("/diffs")
	diffs.GET("", s.listDiffs)
	diffs.GET("/:id", s.getDiff)
	diffs.POST("/:id/submit", s.submitDiff)
	diffs.POST("/:id/abort", s.abortDiff)
	diffs.POST("/:id/accept", s.resolveDiff(history.OutcomeAccepted))
	diffs.POST("/:id/reject", s.resolveDiff(history.OutcomeRejected))

	r.GET("/history", s.listHistory)
	r.GET("/notifications", s.listNotifications)

	r.GET("/ws", s.hub.Connect)
	return r
}

// requestLogger logs each request with zerolog.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
