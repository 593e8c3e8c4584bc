package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/eventbus"
	"github.com/colonyops/redline/internal/core/eventbus/testbus"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/markdown"
	"github.com/colonyops/redline/internal/core/notify"
	"github.com/colonyops/redline/internal/engine"
	"github.com/colonyops/redline/internal/generate"
	"github.com/colonyops/redline/internal/store/jsonfile"
)

type fixture struct {
	srv  *Server
	http *httptest.Server
	eng  *engine.Engine
	bus  *testbus.Bus

	mu    sync.Mutex
	saved []string
}

func (f *fixture) savedDocs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.saved)
}

func newFixture(t *testing.T, gen generate.Generator) *fixture {
	t.Helper()
	ed, err := doc.NewEditor(doc.Doc(doc.P("Hello world."), doc.P("Bye.")))
	require.NoError(t, err)

	bus := testbus.New(t)
	store := jsonfile.NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))

	n := 0
	eng := engine.New(ed, markdown.NewGoldmark(),
		engine.WithLogger(zerolog.Nop()),
		engine.WithBus(bus.EventBus),
		engine.WithHistory(store, 10),
		engine.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("d%d", n)
		}),
	)

	f := &fixture{eng: eng, bus: bus}
	f.srv = New(Deps{
		Engine:        eng,
		Generator:     gen,
		History:       store,
		Notifications: notify.NewMemory(10),
		Bus:           bus.EventBus,
		Logger:        zerolog.Nop(),
		Save: func(_ context.Context, root *doc.Node) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.saved = append(f.saved, markdown.Render(root))
			return nil
		},
	})
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(func() {
		f.http.Close()
		f.srv.Close()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

// propose selects match, triggers and submits, and returns the diff ID.
func (f *fixture) propose(t *testing.T, match string, strategy diffsession.Strategy) string {
	t.Helper()
	code, body := f.do(t, http.MethodPut, "/selection", SelectionRequest{Match: match})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, match, body["text"])

	code, body = f.do(t, http.MethodPost, "/trigger", TriggerRequest{Strategy: strategy})
	require.Equal(t, http.StatusCreated, code, body)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	code, body = f.do(t, http.MethodPost, "/diffs/"+id+"/submit", SubmitRequest{Instruction: "make it Earth"})
	require.Equal(t, http.StatusAccepted, code, body)
	return id
}

func (f *fixture) waitStreamed(t *testing.T, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := f.eng.Session(id)
		return err == nil && !s.Streaming && s.Chunks > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_AcceptFlow(t *testing.T) {
	tests := []struct {
		strategy diffsession.Strategy
		accept   bool
		want     string
	}{
		{diffsession.StrategyInline, true, "Hello Earth.\n\nBye.\n"},
		{diffsession.StrategyInline, false, "Hello world.\n\nBye.\n"},
		{diffsession.StrategyBlock, true, "Hello Earth.\n\nBye.\n"},
		{diffsession.StrategyBlock, false, "Hello world.\n\nBye.\n"},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s accept=%v", tt.strategy, tt.accept)
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, generate.Static{Text: "Earth"})
			id := f.propose(t, "world", tt.strategy)
			f.waitStreamed(t, id)

			path := "/diffs/" + id + "/reject"
			outcome := string(history.OutcomeRejected)
			if tt.accept {
				path = "/diffs/" + id + "/accept"
				outcome = string(history.OutcomeAccepted)
			}
			code, body := f.do(t, http.MethodPost, path, nil)
			require.Equal(t, http.StatusOK, code, body)
			assert.Equal(t, outcome, body["outcome"])

			code, body = f.do(t, http.MethodGet, "/document", nil)
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.want, body["markdown"])

			code, _ = f.do(t, http.MethodPost, path, nil)
			assert.Equal(t, http.StatusNotFound, code, "second resolution finds no anchor")
		})
	}
}

func TestServer_History(t *testing.T) {
	f := newFixture(t, generate.Static{Text: "Earth"})
	id := f.propose(t, "world", diffsession.StrategyInline)
	f.waitStreamed(t, id)

	code, _ := f.do(t, http.MethodPost, "/diffs/"+id+"/accept", nil)
	require.Equal(t, http.StatusOK, code)

	resp, err := http.Get(f.http.URL + "/history")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var entries []history.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].DiffID)
	assert.Equal(t, "world", entries[0].OriginalText)
	assert.Equal(t, "make it Earth", entries[0].Instruction)
}

func TestServer_TriggerErrors(t *testing.T) {
	f := newFixture(t, generate.Static{Text: "Earth"})

	code, _ := f.do(t, http.MethodPost, "/trigger", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code, "nothing selected")

	code, _ = f.do(t, http.MethodPut, "/selection", SelectionRequest{Match: "Grievous"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPut, "/selection", SelectionRequest{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPut, "/selection", SelectionRequest{Range: &doc.Range{
		From: doc.Pos{Path: doc.Path{7}, Offset: 0},
		To:   doc.Pos{Path: doc.Path{7}, Offset: 1},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "path outside the document")

	code, _ = f.do(t, http.MethodPut, "/selection", SelectionRequest{Match: "world"})
	require.Equal(t, http.StatusOK, code)
	code, body := f.do(t, http.MethodPost, "/trigger", nil)
	require.Equal(t, http.StatusCreated, code)
	id := body["id"].(string)

	code, _ = f.do(t, http.MethodPost, "/trigger", nil)
	assert.Equal(t, http.StatusConflict, code, "trigger already pending")

	code, _ = f.do(t, http.MethodDelete, "/trigger/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = f.do(t, http.MethodPost, "/diffs/"+id+"/submit", SubmitRequest{Instruction: "x"})
	assert.Equal(t, http.StatusNotFound, code, "cancelled trigger cannot be submitted")

	code, _ = f.do(t, http.MethodGet, "/diffs/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_OverlappingTrigger(t *testing.T) {
	f := newFixture(t, generate.Static{Text: "Earth"})
	id := f.propose(t, "world", diffsession.StrategyInline)
	f.waitStreamed(t, id)

	code, _ := f.do(t, http.MethodPut, "/selection", SelectionRequest{Match: "Hello Earth"})
	require.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodPost, "/trigger", nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestServer_SnapshotWhileStreaming(t *testing.T) {
	blocking := generate.Func(func(context.Context, generate.Request) (<-chan generate.Chunk, error) {
		ch := make(chan generate.Chunk, 1)
		ch <- generate.Chunk{Text: "Ear"}
		return ch, nil
	})
	f := newFixture(t, blocking)
	id := f.propose(t, "world", diffsession.StrategyBlock)

	require.Eventually(t, func() bool {
		s, err := f.eng.Session(id)
		return err == nil && s.Chunks == 1
	}, 2*time.Second, 10*time.Millisecond)

	code, _ := f.do(t, http.MethodGet, "/document/tree", nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = f.do(t, http.MethodPost, "/document/save", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Empty(t, f.savedDocs())

	code, _ = f.do(t, http.MethodPost, "/diffs/"+id+"/abort", nil)
	require.Equal(t, http.StatusNoContent, code)

	code, body := f.do(t, http.MethodGet, "/diffs/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(diffsession.StatusCancelled), body["status"])

	code, body = f.do(t, http.MethodGet, "/document/tree", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "doc", body["type"])

	code, _ = f.do(t, http.MethodPost, "/diffs/"+id+"/accept", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, http.MethodPost, "/document/save", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"Hello Ear.\n\nBye.\n"}, f.savedDocs())
}

func TestServer_WebsocketForwardsEvents(t *testing.T) {
	f := newFixture(t, generate.Static{Text: "Earth"})

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return f.srv.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	id := f.propose(t, "world", diffsession.StrategyInline)
	f.waitStreamed(t, id)
	code, _ := f.do(t, http.MethodPost, "/diffs/"+id+"/accept", nil)
	require.Equal(t, http.StatusOK, code)

	var seen []string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		seen = append(seen, msg.Type)
		if msg.Type == "diff.resolved" {
			assert.Equal(t, id, msg.DiffID)
			break
		}
	}
	assert.Equal(t, []string{
		"trigger.opened",
		"trigger.closed",
		"diff.submitted",
		"diff.chunk-applied",
		"diff.stream-finished",
		"diff.resolved",
	}, seen)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("accept d1: %w", engine.ErrAnchorNotFound), http.StatusNotFound},
		{engine.ErrSessionNotFound, http.StatusNotFound},
		{engine.ErrStreamingSession, http.StatusConflict},
		{diffsession.ErrInvalidTransition, http.StatusConflict},
		{engine.ErrEmptySelection, http.StatusUnprocessableEntity},
		{doc.ErrSchema, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestMessageFor(t *testing.T) {
	msg := messageFor(eventbus.EventDiffFailed, eventbus.DiffFailedPayload{DiffID: "d1", Err: errors.New("rate limited")})
	assert.Equal(t, "diff.failed", msg.Type)
	assert.Equal(t, "d1", msg.DiffID)
	assert.Equal(t, map[string]any{"error": "rate limited"}, msg.Payload)
}
