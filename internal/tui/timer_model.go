package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/wrokdesk/internal/engine"
	"github.com/balkashynov/wrokdesk/internal/models"
)

// SessionTimer is the part of the session engine the timer drives
type SessionTimer interface {
	Current(workerID uint) *engine.Snapshot
	Load(ctx context.Context, workerID uint) (*engine.Snapshot, error)
	SessionElapsedSeconds(workerID uint) int64
	ActiveEntryElapsedSeconds(workerID uint) int64
	StopSession(ctx context.Context, workerID uint) error
	SwitchTaskEntry(ctx context.Context, workerID, taskID uint) error
	StopActiveTaskEntry(ctx context.Context, workerID uint) error
	DismissActiveTaskEntry(ctx context.Context, workerID uint) error
}

// TaskFinder resolves a user typed reference ("12", "#12" or "ACME-12") to
// a task.
type TaskFinder func(ctx context.Context, ref string) (*models.Task, error)

// TimerOptions describes the session the timer shows
type TimerOptions struct {
	WorkerID uint
	Subject  models.Subject
	Tasks    []models.Task // the client's open tasks, listed in the side panel
	FindTask TaskFinder
}

// reload the snapshot from the store every this many ticks, so changes made
// from another terminal show up
const refreshEvery = 5

// TimerModel represents the TUI model for a running client session
type TimerModel struct {
	ctx   context.Context
	timer SessionTimer
	opts  TimerOptions
	tasks map[uint]models.Task

	width  int
	height int

	// Timer state
	sessionSeconds int64
	entrySeconds   int64
	ticks          int

	// Animation state
	timerAnimation int

	// UI state
	keys      timerKeyMap
	help      help.Model
	input     textinput.Model
	prompting bool   // switch prompt is open
	busy      bool   // an engine call is in flight
	notice    string // result of the last action
	err       error

	stopped        bool // session stopped from here
	endedElsewhere bool // session closed by another process
	exiting        bool // left with the session still running
}

type timerKeyMap struct {
	Stop     key.Binding
	StopTask key.Binding
	Dismiss  key.Binding
	Switch   key.Binding
	Exit     key.Binding
}

func (k timerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.StopTask, k.Dismiss, k.Stop, k.Exit}
}

func (k timerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newTimerKeyMap() timerKeyMap {
	return timerKeyMap{
		Stop:     key.NewBinding(key.WithKeys("s", "S"), key.WithHelp("s", "stop session")),
		StopTask: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "stop task")),
		Dismiss:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "dismiss task")),
		Switch:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "switch task")),
		Exit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("esc/q", "exit (keep running)")),
	}
}

// timerTickMsg is sent every second to update the timer
type timerTickMsg struct{}

// animationTickMsg is sent for faster animations
type animationTickMsg struct{}

// actionMsg reports the outcome of an engine call
type actionMsg struct {
	notice string
	task   *models.Task
	stop   bool
	err    error
}

// refreshMsg carries a snapshot reloaded from the store
type refreshMsg struct {
	snap *engine.Snapshot
	err  error
}

// NewTimerModel creates a new timer TUI model
func NewTimerModel(ctx context.Context, timer SessionTimer, opts TimerOptions) TimerModel {
	tasks := make(map[uint]models.Task, len(opts.Tasks))
	for _, t := range opts.Tasks {
		tasks[t.ID] = t
	}

	input := textinput.New()
	input.Placeholder = "task id or reference"
	input.Prompt = "switch to ▸ "
	input.CharLimit = 120

	m := TimerModel{
		ctx:   ctx,
		timer: timer,
		opts:  opts,
		tasks: tasks,
		keys:  newTimerKeyMap(),
		help:  help.New(),
		input: input,
	}
	m.readElapsed()
	return m
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg{}
	})
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

// Init initializes the timer model
func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(timerTick(), animationTick())
}

func (m TimerModel) done() bool {
	return m.stopped || m.exiting || m.endedElsewhere
}

func (m *TimerModel) readElapsed() {
	m.sessionSeconds = m.timer.SessionElapsedSeconds(m.opts.WorkerID)
	m.entrySeconds = m.timer.ActiveEntryElapsedSeconds(m.opts.WorkerID)
}

// Update handles messages
func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		m.readElapsed()
		m.ticks++
		if m.done() {
			return m, nil
		}
		if m.ticks%refreshEvery == 0 && !m.busy {
			return m, tea.Batch(timerTick(), m.refresh())
		}
		return m, timerTick()

	case animationTickMsg:
		m.timerAnimation = (m.timerAnimation + 1) % 4
		if m.done() {
			return m, nil
		}
		return m, animationTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.readElapsed()
		if !msg.snap.HasOpenSession() {
			m.endedElsewhere = true
			return m, tea.Quit
		}
		return m, nil

	case actionMsg:
		m.busy = false
		m.readElapsed()
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
			return m, nil
		}
		m.err = nil
		m.notice = msg.notice
		if msg.task != nil {
			m.tasks[msg.task.ID] = *msg.task
		}
		if msg.stop {
			m.stopped = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		if key.Matches(msg, m.keys.Exit) {
			m.exiting = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Stop):
			return m.run(func(ctx context.Context) actionMsg {
				if err := m.timer.StopSession(ctx, m.opts.WorkerID); err != nil {
					return actionMsg{err: err}
				}
				return actionMsg{notice: "session stopped", stop: true}
			})
		case key.Matches(msg, m.keys.StopTask):
			return m.run(func(ctx context.Context) actionMsg {
				return actionMsg{notice: "task stopped", err: m.timer.StopActiveTaskEntry(ctx, m.opts.WorkerID)}
			})
		case key.Matches(msg, m.keys.Dismiss):
			return m.run(func(ctx context.Context) actionMsg {
				return actionMsg{notice: "task dismissed", err: m.timer.DismissActiveTaskEntry(ctx, m.opts.WorkerID)}
			})
		case key.Matches(msg, m.keys.Switch):
			m.prompting = true
			m.err = nil
			return m, m.input.Focus()
		}
	}

	return m, nil
}

func (m TimerModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyCtrlC:
		m.exiting = true
		return m, tea.Quit
	case tea.KeyEnter:
		ref := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		if ref == "" {
			return m, nil
		}
		return m.run(func(ctx context.Context) actionMsg {
			return m.switchTo(ctx, ref)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *TimerModel) closePrompt() {
	m.prompting = false
	m.input.Reset()
	m.input.Blur()
}

func (m TimerModel) switchTo(ctx context.Context, ref string) actionMsg {
	if m.opts.FindTask == nil {
		return actionMsg{err: fmt.Errorf("task lookup unavailable")}
	}
	task, err := m.opts.FindTask(ctx, ref)
	if err != nil {
		return actionMsg{err: fmt.Errorf("task %q: %w", ref, err)}
	}
	// the engine ignores cross-client switches silently; say so here
	if task.SubjectID != m.opts.Subject.ID {
		return actionMsg{err: fmt.Errorf("task #%d belongs to another client", task.ID)}
	}
	if err := m.timer.SwitchTaskEntry(ctx, m.opts.WorkerID, task.ID); err != nil {
		return actionMsg{err: err}
	}
	return actionMsg{notice: fmt.Sprintf("now on #%d", task.ID), task: task}
}

func (m TimerModel) run(fn func(ctx context.Context) actionMsg) (tea.Model, tea.Cmd) {
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg {
		return fn(ctx)
	}
}

func (m TimerModel) refresh() tea.Cmd {
	ctx, timer, workerID := m.ctx, m.timer, m.opts.WorkerID
	return func() tea.Msg {
		snap, err := timer.Load(ctx, workerID)
		return refreshMsg{snap: snap, err: err}
	}
}

// activeTitle names what the open entry is timing
func (m TimerModel) activeTitle() (string, *uint) {
	snap := m.timer.Current(m.opts.WorkerID)
	if snap == nil || snap.Entry == nil || snap.Entry.IsDefault() {
		return models.DefaultEntryTitle, nil
	}
	id := *snap.Entry.TaskID
	if t, ok := m.tasks[id]; ok {
		return t.Title, &id
	}
	return fmt.Sprintf("Task #%d", id), &id
}

// View renders the timer TUI
func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	bottom := m.renderBottom()
	contentHeight := m.height - lipgloss.Height(bottom) - 1

	// Narrow view: just timer panel, full width
	if m.width < 90 {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.renderTimerPanel(m.width, contentHeight),
			bottom,
		)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTimerPanel(leftWidth, contentHeight),
		"  ",
		m.renderClientPanel(rightWidth, contentHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		bottom,
	)
}

// renderTimerPanel renders the left timer panel
func (m TimerModel) renderTimerPanel(width, height int) string {
	var components []string

	// Animated header
	animChars := []string{"⏱", "⏲", "⏱", "⏲"}
	animChar := animChars[m.timerAnimation]
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true).
		Align(lipgloss.Center).
		Width(width)
	components = append(components, headerStyle.Render(fmt.Sprintf("%s  %s  %s", animChar, strings.ToUpper(m.opts.Subject.Name), animChar)))

	// Big clock: whole session
	clockLines := strings.Split(renderBigClock(m.sessionSeconds), "\n")
	centered := make([]string, 0, len(clockLines))
	for _, line := range clockLines {
		centered = append(centered, lipgloss.NewStyle().Align(lipgloss.Center).Width(width).Render(line))
	}
	components = append(components, strings.Join(centered, "\n"))

	// Current entry
	title, taskID := m.activeTitle()
	idStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Align(lipgloss.Center).
		Width(width)
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Align(lipgloss.Center).
		Width(width)
	if taskID == nil {
		titleStyle = titleStyle.Foreground(lipgloss.Color(ColorSecondaryText)).Bold(false).Italic(true)
	}

	label := "no task"
	if taskID != nil {
		label = fmt.Sprintf("#%d", *taskID)
	}
	components = append(components,
		idStyle.Render(label)+"\n"+
			titleStyle.Render(truncate(title, width-4))+"\n"+
			titleStyle.Render(formatClock(m.entrySeconds)))

	if snap := m.timer.Current(m.opts.WorkerID); snap != nil && snap.Session != nil {
		sessionStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Align(lipgloss.Center).
			Width(width)
		components = append(components, sessionStyle.Render(fmt.Sprintf("Started at %s", snap.Session.StartedAt.Local().Format("15:04:05"))))
	}

	panelStyle := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return panelStyle.Render(strings.Join(components, "\n\n"))
}

// ASCII art for digits (5x5 characters each)
var bigDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// renderBigClock renders seconds as an ASCII art clock, MM:SS under an hour
func renderBigClock(seconds int64) string {
	var lines [5]strings.Builder
	for _, char := range formatClock(seconds) {
		art, ok := bigDigits[char]
		if !ok {
			continue
		}
		for i := range lines {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	clockStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true)

	rendered := make([]string, len(lines))
	for i := range lines {
		rendered[i] = clockStyle.Render(lines[i].String())
	}
	return strings.Join(rendered, "\n")
}

// renderClientPanel renders the right panel: logo, client and its tasks
func (m TimerModel) renderClientPanel(width, height int) string {
	var b strings.Builder

	b.WriteString("\n")

	logoLines := []string{
		"██╗    ██╗██████╗  ██████╗ ██╗  ██╗",
		"██║    ██║██╔══██╗██╔═══██╗██║ ██╔╝",
		"██║ █╗ ██║██████╔╝██║   ██║█████╔╝ ",
		"██║███╗██║██╔══██╗██║   ██║██╔═██╗ ",
		"╚███╔███╔╝██║  ██║╚██████╔╝██║  ██╗",
		" ╚══╝╚══╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝",
	}
	logoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Align(lipgloss.Center).
		Width(width - 8)
	b.WriteString(logoStyle.Render(strings.Join(logoLines, "\n")))
	b.WriteString("\n\n")

	separatorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBorder)).
		Align(lipgloss.Center).
		Width(width - 8)
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(min(width-12, 40), 0))))
	b.WriteString("\n\n")

	clientStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Width(width-12).
		Padding(0, 1)
	b.WriteString(clientStyle.Render("👤 " + m.opts.Subject.Name))
	b.WriteString("\n\n")

	_, activeID := m.activeTitle()
	rowStyle := lipgloss.NewStyle().Width(width - 8).PaddingLeft(4)
	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain)).Bold(true)
	refStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))

	if len(m.opts.Tasks) == 0 {
		b.WriteString(rowStyle.Foreground(lipgloss.Color(ColorDisabledText)).Render("no open tasks"))
		return b.String()
	}

	// rows left after logo, separator and client box
	room := height - 16
	for i, t := range m.opts.Tasks {
		if room > 0 && i >= room {
			b.WriteString(rowStyle.Foreground(lipgloss.Color(ColorDisabledText)).Render(fmt.Sprintf("… %d more", len(m.opts.Tasks)-i)))
			break
		}
		marker := "  "
		if activeID != nil && *activeID == t.ID {
			marker = "▶ "
		}
		line := marker + idStyle.Render(fmt.Sprintf("#%d", t.ID)) + " " + truncate(t.Title, width-30)
		if t.Reference != "" {
			line += " " + refStyle.Render(t.Reference)
		}
		b.WriteString(rowStyle.Render(line))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderBottom renders the prompt or status line and the help bar
func (m TimerModel) renderBottom() string {
	var status string
	switch {
	case m.prompting:
		status = m.input.View()
	case m.err != nil:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("❌ " + m.err.Error())
	case m.busy:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render("…")
	case m.notice != "":
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render("✓ " + m.notice)
	}

	statusStyle := lipgloss.NewStyle().Align(lipgloss.Center).Width(m.width)
	helpStyle := lipgloss.NewStyle().Align(lipgloss.Center).Width(m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		statusStyle.Render(status),
		helpStyle.Render(m.help.View(m.keys)),
	)
}

func formatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h, mnt, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%02d:%02d", mnt, s)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
