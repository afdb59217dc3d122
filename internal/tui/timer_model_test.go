package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/wrokdesk/internal/clock"
	"github.com/balkashynov/wrokdesk/internal/engine"
	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/store"
)

type timerFixture struct {
	mem    *store.Memory
	clk    *clock.FakeClock
	eng    *engine.Engine
	worker models.Worker
	acme   models.Subject
	task   models.Task
	other  models.Task
}

func newTimerFixture(t *testing.T) (*timerFixture, TimerModel) {
	t.Helper()
	f := &timerFixture{
		mem: store.NewMemory(),
		clk: clock.Fake(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
	}
	f.worker = f.mem.AddWorker("dana")
	f.acme = f.mem.AddSubject("Acme")
	globex := f.mem.AddSubject("Globex")
	f.task = f.mem.AddTask(f.acme.ID, "Draft contract")
	f.other = f.mem.AddTask(globex.ID, "Globex audit")
	f.eng = engine.New(f.mem, engine.WithClock(f.clk))

	_, err := f.eng.StartSession(context.Background(), f.worker.ID, f.acme.ID)
	require.NoError(t, err)

	find := func(ctx context.Context, ref string) (*models.Task, error) {
		id, err := strconv.ParseUint(strings.TrimPrefix(ref, "#"), 10, 64)
		if err != nil {
			return nil, store.ErrNotFound
		}
		return f.mem.GetTask(ctx, uint(id))
	}

	m := NewTimerModel(context.Background(), f.eng, TimerOptions{
		WorkerID: f.worker.ID,
		Subject:  f.acme,
		Tasks:    []models.Task{f.task},
		FindTask: find,
	})
	return f, m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and, if the model started an engine call, delivers its
// result.
func press(t *testing.T, m TimerModel, msg tea.Msg) (TimerModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(TimerModel)
	if m.busy {
		require.NotNil(t, cmd)
		next, cmd = m.Update(cmd())
		m = next.(TimerModel)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestTimerTickReadsElapsed(t *testing.T) {
	f, m := newTimerFixture(t)

	f.clk.Advance(75 * time.Second)
	next, cmd := m.Update(timerTickMsg{})
	m = next.(TimerModel)

	assert.NotNil(t, cmd)
	assert.Equal(t, int64(75), m.sessionSeconds)
	assert.Equal(t, int64(75), m.entrySeconds)
}

func TestTimerSwitchPrompt(t *testing.T) {
	f, m := newTimerFixture(t)
	f.clk.Advance(time.Minute)

	m, _ = press(t, m, keyRunes("w"))
	require.True(t, m.prompting)

	m, _ = press(t, m, keyRunes("#"+strconv.Itoa(int(f.task.ID))))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.prompting)
	require.NoError(t, m.err)
	assert.Contains(t, m.notice, "now on")

	title, id := m.activeTitle()
	require.NotNil(t, id)
	assert.Equal(t, f.task.ID, *id)
	assert.Equal(t, "Draft contract", title)
	assert.Zero(t, m.entrySeconds)
	assert.Equal(t, int64(60), m.sessionSeconds)
}

func TestTimerSwitchRejectsOtherClient(t *testing.T) {
	f, m := newTimerFixture(t)

	m, _ = press(t, m, keyRunes("w"))
	m, _ = press(t, m, keyRunes(strconv.Itoa(int(f.other.ID))))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Error(t, m.err)
	assert.Contains(t, m.err.Error(), "another client")
	title, id := m.activeTitle()
	assert.Nil(t, id)
	assert.Equal(t, models.DefaultEntryTitle, title)
}

func TestTimerSwitchUnknownTask(t *testing.T) {
	_, m := newTimerFixture(t)

	m, _ = press(t, m, keyRunes("w"))
	m, _ = press(t, m, keyRunes("nope"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Error(t, m.err)
	assert.True(t, errors.Is(m.err, store.ErrNotFound))
}

func TestTimerPromptEscCancels(t *testing.T) {
	_, m := newTimerFixture(t)

	m, _ = press(t, m, keyRunes("w"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.prompting)
	assert.False(t, m.exiting)
	assert.False(t, isQuit(cmd))
}

func TestTimerStopTaskAndDismiss(t *testing.T) {
	f, m := newTimerFixture(t)
	ctx := context.Background()

	f.clk.Advance(time.Minute)
	require.NoError(t, f.eng.SwitchTaskEntry(ctx, f.worker.ID, f.task.ID))
	f.clk.Advance(time.Minute)

	m, _ = press(t, m, keyRunes("u"))
	require.NoError(t, m.err)
	assert.Equal(t, "task dismissed", m.notice)
	_, id := m.activeTitle()
	assert.Nil(t, id)

	require.NoError(t, f.eng.SwitchTaskEntry(ctx, f.worker.ID, f.task.ID))
	m, _ = press(t, m, keyRunes("t"))
	require.NoError(t, m.err)
	assert.Equal(t, "task stopped", m.notice)
	_, id = m.activeTitle()
	assert.Nil(t, id)
}

func TestTimerStopSessionQuits(t *testing.T) {
	f, m := newTimerFixture(t)
	f.clk.Advance(10 * time.Minute)

	m, cmd := press(t, m, keyRunes("s"))

	assert.True(t, m.stopped)
	assert.True(t, isQuit(cmd))
	assert.False(t, f.eng.Current(f.worker.ID).HasOpenSession())
	assert.Equal(t, int64(600), m.sessionSeconds)
}

func TestTimerStopSessionFailureStays(t *testing.T) {
	f, m := newTimerFixture(t)
	f.clk.Advance(time.Minute)
	f.mem.FailOn("UpdateSession", errors.New("disk full"))

	m, cmd := press(t, m, keyRunes("s"))

	assert.False(t, m.stopped)
	assert.False(t, isQuit(cmd))
	require.Error(t, m.err)
	assert.True(t, errors.Is(m.err, engine.ErrStoreUnavailable))
	assert.True(t, f.eng.Current(f.worker.ID).HasOpenSession())
}

func TestTimerExitKeepsSession(t *testing.T) {
	f, m := newTimerFixture(t)

	m, cmd := press(t, m, keyRunes("q"))

	assert.True(t, m.exiting)
	assert.True(t, isQuit(cmd))
	assert.True(t, f.eng.Current(f.worker.ID).HasOpenSession())
}

func TestTimerRefreshNoticesExternalStop(t *testing.T) {
	f, m := newTimerFixture(t)

	// another process stops the session through its own engine
	other := engine.New(f.mem, engine.WithClock(f.clk))
	require.NoError(t, other.StopSession(context.Background(), f.worker.ID))

	next, cmd := m.Update(m.refresh()())
	m = next.(TimerModel)

	assert.True(t, m.endedElsewhere)
	assert.True(t, isQuit(cmd))
}

func TestTimerView(t *testing.T) {
	_, m := newTimerFixture(t)

	assert.Equal(t, "Loading...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := next.(TimerModel).View()
	assert.Contains(t, view, "ACME")
	assert.Contains(t, view, "Draft contract")
	assert.Contains(t, view, models.DefaultEntryTitle)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", formatClock(-3))
	assert.Equal(t, "01:05", formatClock(65))
	assert.Equal(t, "02:00:01", formatClock(7201))
}
