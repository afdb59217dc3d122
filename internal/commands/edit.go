package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/db"
)

var editCmd = &cobra.Command{
	Use:   "edit [task]",
	Short: "Change a task's title or reference",
	Long: `Change a task's title or reference. The task is given by id or reference.

Examples:
  wrokdesk edit 12 --title "Draft lease"
  wrokdesk edit ACME-12 --ref ACME-14
  wrokdesk edit 12 --ref ""     # clear the reference`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		task, err := a.store.FindTask(ctx, args[0])
		if err != nil {
			return err
		}

		var req db.UpdateTaskRequest
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			req.Title = &title
		}
		if cmd.Flags().Changed("ref") {
			ref, _ := cmd.Flags().GetString("ref")
			req.Reference = &ref
		}
		if req.Title == nil && req.Reference == nil {
			return errors.New("nothing to change, use --title or --ref")
		}

		updated, err := a.store.UpdateTask(ctx, task.ID, req)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		fmt.Printf("✏️  Updated task #%d: %s\n", updated.ID, updated.Title)
		if updated.Reference != "" {
			fmt.Printf("🎯 Reference: %s\n", updated.Reference)
		}
		return nil
	}),
}

func init() {
	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("ref", "", "New ticket reference")
}
