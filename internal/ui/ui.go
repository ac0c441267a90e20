package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/loopauth/internal/server"
	"github.com/desertthunder/loopauth/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WaitingView ViewState = iota
	DeliveredView
	FailedView
)

// Options configures a waiting [Model].
type Options struct {
	AppName string
	AuthURL string
	Port    uint16
	Done    <-chan server.Result
	Timeout time.Duration
	Open    func(url string) error // reopens the browser; nil disables the key
	Now     func() time.Time
}

// Model represents the TUI application state.
type Model struct {
	opts     Options
	view     ViewState
	deadline time.Time
	now      time.Time
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	result   server.Result
	notice   string
}

// NewModel creates a waiting model. The deadline starts counting when the model is created.
func NewModel(opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	now := opts.Now()
	m := &Model{
		opts:    opts,
		view:    WaitingView,
		now:     now,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
	if opts.Timeout > 0 {
		m.deadline = now.Add(opts.Timeout)
	}
	return m
}

// Init starts the spinner, the countdown and the wait for the listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForResult(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != WaitingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgResult:
		if m.view != WaitingView {
			return m, nil
		}
		m.result = msg.data.(server.Result)
		if m.result.Err != nil {
			m.view = FailedView
		} else {
			m.view = DeliveredView
		}
		return m, tea.Quit

	case MsgTick:
		if m.view != WaitingView {
			return m, nil
		}
		m.now = msg.data.(time.Time)
		if !m.deadline.IsZero() && !m.now.Before(m.deadline) {
			m.finish(fmt.Errorf("%w: no callback after %s", shared.ErrTimeout, m.opts.Timeout))
			return m, tea.Quit
		}
		return m, m.tick()

	case MsgBrowserOpened:
		if err, _ := msg.data.(error); err != nil {
			m.notice = fmt.Sprintf("could not open browser: %v", err)
		} else {
			m.notice = "opened browser"
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.view == WaitingView {
			m.finish(shared.ErrCancelled)
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if m.view == WaitingView && m.opts.Open != nil {
			return m, m.openBrowser()
		}
	}
	return m, nil
}

func (m *Model) finish(err error) {
	m.result = server.Result{Err: err}
	m.view = FailedView
}

func (m *Model) waitForResult() tea.Cmd {
	done := m.opts.Done
	return func() tea.Msg {
		result, ok := <-done
		if !ok {
			return resultMsg(server.Result{Err: shared.ErrAttemptsExhausted})
		}
		return resultMsg(result)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) openBrowser() tea.Cmd {
	open, url := m.opts.Open, m.opts.AuthURL
	return func() tea.Msg { return browserOpenedMsg(open(url)) }
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case WaitingView:
		return m.renderWaiting()
	case DeliveredView:
		return styles.ok.Render("✓ Callback received") + "\n"
	case FailedView:
		return styles.err.Render(fmt.Sprintf("✗ %v", m.result.Err)) + "\n"
	default:
		return ""
	}
}

func (m *Model) renderWaiting() string {
	var b strings.Builder

	appName := m.opts.AppName
	if appName == "" {
		appName = "the application"
	}
	b.WriteString(styles.title.Render(fmt.Sprintf("Sign in to %s", appName)))
	b.WriteString("\n")

	if m.opts.AuthURL != "" {
		b.WriteString("Open this URL if the browser did not start:\n")
		b.WriteString(styles.url.Render(m.opts.AuthURL))
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("%s Waiting for callback on 127.0.0.1:%d", m.spinner.View(), m.opts.Port))
	if remaining := m.Remaining(); remaining > 0 {
		b.WriteString(styles.help.Render(fmt.Sprintf(" (%s left)", remaining.Round(time.Second))))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.quit}
	if m.opts.Open != nil {
		helpKeys = []key.Binding{m.keys.open, m.keys.quit}
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))

	return b.String()
}

// State returns the current view state.
func (m *Model) State() ViewState {
	return m.view
}

// Remaining is the time left before the deadline, or zero without one.
func (m *Model) Remaining() time.Duration {
	if m.deadline.IsZero() {
		return 0
	}
	if d := m.deadline.Sub(m.now); d > 0 {
		return d
	}
	return 0
}

// Result returns the captured URL, or the error that ended the wait.
func (m *Model) Result() (string, error) {
	if m.view == WaitingView {
		return "", shared.ErrCancelled
	}
	return m.result.URL, m.result.Err
}

// Run shows the waiting screen until the flow finishes, the deadline passes or the user quits.
func Run(opts Options, programOpts ...tea.ProgramOption) (string, error) {
	model := NewModel(opts)

	if _, err := tea.NewProgram(model, programOpts...).Run(); err != nil {
		return "", fmt.Errorf("failed to run TUI: %w", err)
	}

	return model.Result()
}
