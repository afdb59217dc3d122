package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/db"
	"github.com/balkashynov/wrokdesk/internal/models"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks",
	Long:    "List tasks, open ones by default, optionally for one client",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		q, err := taskQuery(cmd, a)
		if err != nil {
			return err
		}
		tasks, err := a.store.ListTasks(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("error fetching tasks: %w", err)
		}
		return printTasks(cmd, a, tasks, "No tasks found. Use 'wrokdesk add \"task @client\"' to create one.")
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search tasks by title or reference",
	Long: `Search tasks by title or reference. Matching is case insensitive and
looks at every status unless --status is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		q, err := taskQuery(cmd, a)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("status") {
			q.Status = ""
		}
		q.Search = strings.Join(args, " ")

		tasks, err := a.store.ListTasks(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("error searching tasks: %w", err)
		}
		return printTasks(cmd, a, tasks, fmt.Sprintf("No tasks match %q.", q.Search))
	}),
}

// taskQuery builds the filter shared by ls and search
func taskQuery(cmd *cobra.Command, a *app) (db.TaskQuery, error) {
	q := db.TaskQuery{}

	status, _ := cmd.Flags().GetString("status")
	switch status {
	case "all":
	case models.TaskStatusOpen, models.TaskStatusDone, models.TaskStatusArchived:
		q.Status = status
	default:
		return q, fmt.Errorf("invalid status %q: use open, done, archived or all", status)
	}

	if ref, _ := cmd.Flags().GetString("client"); ref != "" {
		subject, err := a.store.FindSubject(cmd.Context(), ref)
		if err != nil {
			return q, err
		}
		q.SubjectID = subject.ID
	}
	return q, nil
}

func printTasks(cmd *cobra.Command, a *app, tasks []models.Task, empty string) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if tasks == nil {
			tasks = []models.Task{}
		}
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		fmt.Println(empty)
		return nil
	}

	names := map[uint]string{}
	fmt.Printf("%-4s %-8s %-40s %-15s %s\n", "ID", "STATUS", "TITLE", "CLIENT", "REF")
	fmt.Println(strings.Repeat("-", 80))
	for _, task := range tasks {
		name, ok := names[task.SubjectID]
		if !ok {
			name = subjectName(cmd, a, task.SubjectID)
			names[task.SubjectID] = name
		}

		title := task.Title
		if len(title) > 38 {
			title = title[:35] + "..."
		}
		if len(name) > 13 {
			name = name[:10] + "..."
		}
		fmt.Printf("%-4d %-8s %-40s %-15s %s\n", task.ID, task.Status, title, name, task.Reference)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{listCmd, searchCmd} {
		c.Flags().StringP("status", "s", models.TaskStatusOpen, "Filter by status: open, done, archived, all")
		c.Flags().StringP("client", "c", "", "Filter by client name or id")
		c.Flags().Bool("json", false, "JSON output")
	}
}
