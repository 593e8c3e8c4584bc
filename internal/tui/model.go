// Package tui implements the interactive review of a single proposal: the
// proposal streams into the document on screen and the user accepts or
// rejects it.
package tui

import (
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/styles"
	"github.com/colonyops/redline/internal/engine"
	"github.com/colonyops/redline/internal/generate"
	"github.com/colonyops/redline/internal/render"
)

const (
	headerHeight = 3
	footerHeight = 2
)

// Options configures the review TUI.
type Options struct {
	Engine    *engine.Engine
	Generator generate.Generator
	// Watcher, when set, flags changes other programs make to the file
	// while it is under review.
	Watcher *DocWatcher
	DiffID  string
	Title   string
}

// editMsg is sent after each committed change to the document.
type editMsg struct{ version int }

type streamDoneMsg struct{ err error }

// Model reviews one submitted diff.
type Model struct {
	eng     *engine.Engine
	gen     generate.Generator
	watcher *DocWatcher
	diffID  string
	title   string

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	spinner  spinner.Model

	updates chan tea.Msg
	ctx     context.Context
	cancel  context.CancelFunc

	session   diffsession.Session
	streaming bool
	version   int
	pending   history.Outcome // resolve once the stream has stopped
	result    *history.Entry
	err       error
	width     int
	height    int
	quitting  bool
	modified  bool // changed on disk since opened
}

// New creates a review model for opts.DiffID, which must be submitted and
// not yet streamed.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		eng:       opts.Engine,
		gen:       opts.Generator,
		watcher:   opts.Watcher,
		diffID:    opts.DiffID,
		title:     opts.Title,
		keys:      defaultKeys(),
		help:      help.New(),
		viewport:  viewport.New(viewport.WithWidth(80), viewport.WithHeight(24-headerHeight-footerHeight)),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		ctx:       ctx,
		cancel:    cancel,
		streaming: true,
		width:     80,
		height:    24,
	}

	updates := make(chan tea.Msg, 64)
	opts.Engine.Editor().OnChange(func(c doc.Change) {
		select {
		case updates <- editMsg{version: c.Version}:
		default: // a later change or the stream end refreshes anyway
		}
	})
	m.updates = updates

	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.streamCmd(), m.waitForEdit(), m.waitForChange(), m.spinner.Tick)
}

func (m Model) streamCmd() tea.Cmd {
	eng, ctx, id, gen := m.eng, m.ctx, m.diffID, m.gen
	return func() tea.Msg {
		return streamDoneMsg{err: eng.Stream(ctx, id, gen)}
	}
}

func (m Model) waitForEdit() tea.Cmd {
	ch := m.updates
	return func() tea.Msg { return <-ch }
}

func (m Model) waitForChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Wait()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(1, msg.Height-headerHeight-footerHeight))
		m.help.SetWidth(msg.Width)
		return m, nil

	case editMsg:
		m.version = msg.version
		m.refresh()
		if m.quitting {
			return m, nil
		}
		return m, m.waitForEdit()

	case docChangedMsg:
		m.modified = true
		if m.quitting {
			return m, nil
		}
		return m, m.waitForChange()

	case streamDoneMsg:
		m.streaming = false
		if msg.err != nil && !errors.Is(msg.err, engine.ErrAborted) {
			m.err = msg.err
		}
		m.refresh()
		if m.pending != "" {
			return m.resolve(m.pending)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Accept):
			return m.request(history.OutcomeAccepted)
		case key.Matches(msg, m.keys.Reject), key.Matches(msg, m.keys.Quit):
			return m.request(history.OutcomeRejected)
		case key.Matches(msg, m.keys.Stop):
			m.cancel()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// request resolves the diff, stopping generation first if it is running.
func (m Model) request(outcome history.Outcome) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	if m.streaming {
		m.pending = outcome
		m.cancel()
		return m, nil
	}
	return m.resolve(outcome)
}

func (m Model) resolve(outcome history.Outcome) (tea.Model, tea.Cmd) {
	var (
		entry history.Entry
		err   error
	)
	ctx := context.Background()
	if outcome == history.OutcomeAccepted {
		entry, err = m.eng.Accept(ctx, m.diffID)
	} else {
		entry, err = m.eng.Reject(ctx, m.diffID)
	}
	m.pending = ""
	if err != nil {
		m.err = err
		if !errors.Is(err, engine.ErrAnchorNotFound) {
			m.refresh()
			return m, nil
		}
	} else {
		m.result = &entry
	}
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m *Model) refresh() {
	if s, err := m.eng.Session(m.diffID); err == nil {
		m.session = s
	}
	m.viewport.SetContent(render.Annotated(m.eng.Editor().Doc()))
}

// Result returns the resolution, if the diff was resolved.
func (m Model) Result() (history.Entry, bool) {
	if m.result == nil {
		return history.Entry{}, false
	}
	return *m.result, true
}

// Err returns the last generation or resolution error.
func (m Model) Err() error {
	return m.err
}

// View implements tea.Model.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	v := tea.NewView(lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.help.View(m.keys),
	))
	v.AltScreen = true
	return v
}

// statusLabel names the session state, calling a finished stream ready.
func (m Model) statusLabel() string {
	st := m.session.Status
	if !m.streaming && (st == diffsession.StatusSubmitted || st == diffsession.StatusStreaming) {
		return "ready"
	}
	return string(st)
}

func (m Model) header() string {
	status := m.statusLabel()
	title := m.title
	if title == "" {
		title = m.diffID
	}

	line := styles.TitleStyle.Render(title) + "  " +
		styles.StatusStyle(status).Render(styles.StatusIcon(status)+" "+status)
	if m.streaming {
		line += " " + m.spinner.View()
	}

	var b strings.Builder
	b.WriteString(line)
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render(m.err.Error()))
	} else if m.modified {
		b.WriteString(styles.WarningStyle.Render("file changed on disk; accepting overwrites it"))
	} else if m.session.Instruction != "" {
		b.WriteString(styles.MutedStyle.Render("instruction: ") + styles.InstructionText.Render(m.session.Instruction))
	}
	b.WriteString("\n")
	b.WriteString(styles.DividerStyle.Render(strings.Repeat("─", max(1, m.width))))
	return b.String()
}
