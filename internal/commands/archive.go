package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/models"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [task]",
	Short: "Archive a task so it no longer shows in ls",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		task, err := setStatus(cmd, a, args[0], models.TaskStatusArchived)
		if err != nil {
			return err
		}
		fmt.Printf("📦 Archived task #%d: %s\n", task.ID, task.Title)
		return nil
	}),
}
