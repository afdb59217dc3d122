package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/models"
)

var doneCmd = &cobra.Command{
	Use:   "done [task]",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		task, err := setStatus(cmd, a, args[0], models.TaskStatusDone)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Marked task #%d as done: %s\n", task.ID, task.Title)
		return nil
	}),
}

var reopenCmd = &cobra.Command{
	Use:     "reopen [task]",
	Aliases: []string{"undone", "unarchive"},
	Short:   "Mark a done or archived task open again",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		task, err := setStatus(cmd, a, args[0], models.TaskStatusOpen)
		if err != nil {
			return err
		}
		fmt.Printf("↩️  Reopened task #%d: %s\n", task.ID, task.Title)
		return nil
	}),
}

// setStatus resolves ref and moves the task to status. Tasks keep their
// time records whatever their status.
func setStatus(cmd *cobra.Command, a *app, ref, status string) (*models.Task, error) {
	task, err := a.store.FindTask(cmd.Context(), ref)
	if err != nil {
		return nil, err
	}
	return a.store.SetTaskStatus(cmd.Context(), task.ID, status)
}
