package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/db"
	"github.com/balkashynov/wrokdesk/internal/models"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage the people who time work",
}

var workerAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a worker",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		worker, err := a.store.CreateWorker(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("✅ Worker \"%s\" added - ID: %d\n", worker.Name, worker.ID)
		return nil
	}),
}

var workerListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List workers",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		workers, err := a.store.ListWorkers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list workers: %w", err)
		}
		if len(workers) == 0 {
			fmt.Println("No workers yet. Use 'wrokdesk worker add <name>' to add one.")
			return nil
		}

		fmt.Printf("%-4s %-30s %s\n", "ID", "NAME", "TIMING")
		fmt.Println(strings.Repeat("-", 50))
		for _, w := range workers {
			timing := "-"
			if snap, err := a.engine.Load(cmd.Context(), w.ID); err == nil && snap.HasOpenSession() {
				timing = subjectName(cmd, a, snap.Session.SubjectID)
			}
			fmt.Printf("%-4d %-30s %s\n", w.ID, w.Name, timing)
		}
		return nil
	}),
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a client",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		subject, err := a.store.CreateSubject(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("✅ Client \"%s\" added - ID: %d\n", subject.Name, subject.ID)
		return nil
	}),
}

var clientListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List clients with their open task count",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		subjects, err := a.store.ListSubjects(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}
		if len(subjects) == 0 {
			fmt.Println("No clients yet. Use 'wrokdesk client add <name>' to add one.")
			return nil
		}

		fmt.Printf("%-4s %-30s %s\n", "ID", "NAME", "OPEN TASKS")
		fmt.Println(strings.Repeat("-", 50))
		for _, s := range subjects {
			tasks, err := a.store.ListTasks(cmd.Context(), db.TaskQuery{SubjectID: s.ID, Status: models.TaskStatusOpen})
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}
			fmt.Printf("%-4d %-30s %d\n", s.ID, s.Name, len(tasks))
		}
		return nil
	}),
}

// subjectName returns the client's name, or its id when it can't be read
func subjectName(cmd *cobra.Command, a *app, id uint) string {
	subject, err := a.store.GetSubject(cmd.Context(), id)
	if err != nil {
		return fmt.Sprintf("client #%d", id)
	}
	return subject.Name
}

func init() {
	workerCmd.AddCommand(workerAddCmd, workerListCmd)
	clientCmd.AddCommand(clientAddCmd, clientListCmd)
}
