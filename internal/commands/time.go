package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/db"
	"github.com/balkashynov/wrokdesk/internal/engine"
	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/report"
	"github.com/balkashynov/wrokdesk/internal/tui"
)

var errNoSession = errors.New("no session running, start one with 'wrokdesk start <client>'")

var startCmd = &cobra.Command{
	Use:   "start [client]",
	Short: "Start a work session for a client",
	Long: `Start a work session for a client. Opens the interactive timer by default, use --no-ui for a simple start.
A session already running is stopped first.

Examples:
  wrokdesk start acme          # Start with the interactive timer
  wrokdesk start acme --no-ui  # Start without UI`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, err := a.worker(ctx)
		if err != nil {
			return err
		}
		subject, err := a.store.FindSubject(ctx, args[0])
		if err != nil {
			return err
		}

		before, err := a.engine.Load(ctx, worker.ID)
		if err != nil {
			return err
		}
		if before.HasOpenSession() {
			fmt.Printf("⏹️  Stopped running session for %s (%s)\n",
				subjectName(cmd, a, before.Session.SubjectID),
				report.FormatDuration(a.engine.SessionElapsedSeconds(worker.ID)))
		}

		session, err := a.engine.StartSession(ctx, worker.ID, subject.ID)
		if err != nil {
			return err
		}

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			fmt.Printf("⏱️  Started session for %s\n", subject.Name)
			fmt.Printf("Started at: %s\n", session.StartedAt.Local().Format("15:04:05"))
			return nil
		}
		return runTimer(ctx, a, worker, subject)
	}),
}

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Open the interactive timer for the running session",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, snap, err := loadWorker(ctx, a)
		if err != nil {
			return err
		}
		if !snap.HasOpenSession() {
			return errNoSession
		}
		subject, err := a.store.GetSubject(ctx, snap.Session.SubjectID)
		if err != nil {
			return err
		}
		return runTimer(ctx, a, worker, subject)
	}),
}

func runTimer(ctx context.Context, a *app, worker *models.Worker, subject *models.Subject) error {
	tasks, err := a.store.ListTasks(ctx, db.TaskQuery{SubjectID: subject.ID, Status: models.TaskStatusOpen})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	return tui.RunTimerTUI(ctx, a.engine, tui.TimerOptions{
		WorkerID: worker.ID,
		Subject:  *subject,
		Tasks:    tasks,
		FindTask: a.store.FindTask,
	})
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running session",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, snap, err := loadWorker(ctx, a)
		if err != nil {
			return err
		}
		if !snap.HasOpenSession() {
			fmt.Println("No active session")
			return nil
		}

		if err := a.engine.StopSession(ctx, worker.ID); err != nil {
			return err
		}
		fmt.Printf("⏹️  Stopped session for %s\n", subjectName(cmd, a, snap.Session.SubjectID))
		fmt.Printf("Session duration: %s\n", report.FormatDuration(a.engine.SessionElapsedSeconds(worker.ID)))
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running session and what it is timing",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, snap, err := loadWorker(ctx, a)
		if err != nil {
			return err
		}

		if !snap.HasOpenSession() {
			fmt.Printf("No active session for %s\n", worker.Name)
			if snap.Session != nil {
				fmt.Printf("Last session: %s for %s, ended %s\n",
					report.FormatDuration(a.engine.SessionElapsedSeconds(worker.ID)),
					subjectName(cmd, a, snap.Session.SubjectID),
					snap.Session.EndedAt.Local().Format("Mon 02/01 15:04"))
			}
			return nil
		}

		fmt.Printf("⏱️  %s is working for %s\n", worker.Name, subjectName(cmd, a, snap.Session.SubjectID))
		fmt.Printf("Started at: %s\n", snap.Session.StartedAt.Local().Format("15:04:05"))
		fmt.Printf("Session time: %s\n", report.FormatDuration(a.engine.SessionElapsedSeconds(worker.ID)))
		fmt.Printf("Now on: %s (%s)\n", entryLabel(cmd, a, snap.Entry), report.FormatDuration(a.engine.ActiveEntryElapsedSeconds(worker.ID)))
		return nil
	}),
}

var switchCmd = &cobra.Command{
	Use:   "switch [task]",
	Short: "Move the running session onto a task",
	Long: `Move the running session onto a task, given by id or reference. The time
since the last switch is recorded against whatever was running before.

Examples:
  wrokdesk switch 12
  wrokdesk switch ACME-12`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, snap, err := loadWorker(ctx, a)
		if err != nil {
			return err
		}
		if !snap.HasOpenSession() {
			return errNoSession
		}
		task, err := a.store.FindTask(ctx, args[0])
		if err != nil {
			return err
		}
		if task.SubjectID != snap.Session.SubjectID {
			return fmt.Errorf("task #%d is for %s, the running session is for %s",
				task.ID, subjectName(cmd, a, task.SubjectID), subjectName(cmd, a, snap.Session.SubjectID))
		}

		if err := a.engine.SwitchTaskEntry(ctx, worker.ID, task.ID); err != nil {
			return err
		}
		fmt.Printf("🔀 Now on task #%d: %s\n", task.ID, task.Title)
		return nil
	}),
}

var untaskCmd = &cobra.Command{
	Use:   "untask",
	Short: "Stop the current task and keep the session running",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, snap, err := loadWorker(ctx, a)
		if err != nil {
			return err
		}
		if !snap.HasOpenSession() {
			return errNoSession
		}
		if snap.Entry.IsDefault() {
			fmt.Println("Not on a task")
			return nil
		}

		label := entryLabel(cmd, a, snap.Entry)
		if err := a.engine.StopActiveTaskEntry(ctx, worker.ID); err != nil {
			return err
		}
		fmt.Printf("⏸️  Stopped %s, back on %s\n", label, models.DefaultEntryTitle)
		return nil
	}),
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss",
	Short: "Throw away the current task's time and go back to what ran before",
	Long: `Throw away the current task's time. If the task was switched to from
another task, that task resumes as if the switch never happened; otherwise the
session goes back to unattributed time.`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, snap, err := loadWorker(ctx, a)
		if err != nil {
			return err
		}
		if !snap.HasOpenSession() {
			return errNoSession
		}
		if snap.Entry.IsDefault() {
			fmt.Println("Not on a task, nothing to dismiss")
			return nil
		}

		dropped := entryLabel(cmd, a, snap.Entry)
		if err := a.engine.DismissActiveTaskEntry(ctx, worker.ID); err != nil {
			return err
		}
		now := a.engine.Current(worker.ID)
		fmt.Printf("🗑️  Dismissed %s\n", dropped)
		fmt.Printf("Now on: %s\n", entryLabel(cmd, a, now.Entry))
		return nil
	}),
}

// loadWorker resolves the acting worker and reads their state from the store
func loadWorker(ctx context.Context, a *app) (*models.Worker, *engine.Snapshot, error) {
	worker, err := a.worker(ctx)
	if err != nil {
		return nil, nil, err
	}
	snap, err := a.engine.Load(ctx, worker.ID)
	if err != nil {
		return nil, nil, err
	}
	return worker, snap, nil
}

// entryLabel names what an entry is timing
func entryLabel(cmd *cobra.Command, a *app, entry *models.Entry) string {
	if entry == nil || entry.IsDefault() {
		return models.DefaultEntryTitle
	}
	task, err := a.store.GetTask(cmd.Context(), *entry.TaskID)
	if err != nil {
		return fmt.Sprintf("task #%d", *entry.TaskID)
	}
	return fmt.Sprintf("task #%d: %s", task.ID, task.Title)
}

func init() {
	startCmd.Flags().Bool("no-ui", false, "Start without the interactive timer")
}
