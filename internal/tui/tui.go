// Package tui holds the full-screen session timer
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/wrokdesk/internal/report"
)

// RunTimerTUI runs the session timer until the user stops the session or
// leaves it running in the background.
func RunTimerTUI(ctx context.Context, timer SessionTimer, opts TimerOptions) error {
	model := NewTimerModel(ctx, timer, opts)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	m, ok := finalModel.(TimerModel)
	if !ok {
		return nil
	}

	elapsed := report.FormatDuration(timer.SessionElapsedSeconds(opts.WorkerID))
	switch {
	case m.stopped:
		fmt.Printf("⏹️  Stopped session for %s\n", opts.Subject.Name)
		fmt.Printf("📊 Session duration: %s\n", elapsed)
	case m.endedElsewhere:
		fmt.Printf("⏹️  Session for %s was stopped elsewhere (%s)\n", opts.Subject.Name, elapsed)
	default:
		fmt.Printf("\n💡 Session for %s is still running (%s so far)\n", opts.Subject.Name, elapsed)
		fmt.Printf("   Use 'wrokdesk status' to check it or 'wrokdesk stop' to stop it.\n")
	}
	if m.err != nil {
		fmt.Printf("❌ Last error: %v\n", m.err)
	}

	return nil
}
