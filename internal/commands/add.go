package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/db"
	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/parser"
)

var addCmd = &cobra.Command{
	Use:   "add [task title]",
	Short: "Add a task for a client",
	Long: `Add a task for a client.

Smart parsing syntax:
  @client     - Client name (or use --client)
  ABC-123     - Ticket reference (auto-detected, or use --ref)

Without a client the task goes to the client of your running session.

Examples:
  wrokdesk add "Draft contract @acme ACME-12"
  wrokdesk add "Review invoice" --client globex`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		parsed := parser.ParseTaskTitle(strings.Join(args, " "))
		for _, msg := range parsed.Errors {
			fmt.Printf("⚠️  %s\n", msg)
		}
		if parsed.Title == "" {
			return errors.New("task title cannot be empty")
		}

		clientRef, _ := cmd.Flags().GetString("client")
		if clientRef == "" {
			clientRef = parsed.Client
		}
		subject, err := resolveClient(ctx, a, clientRef)
		if err != nil {
			return err
		}

		reference := parsed.Reference
		if ref, _ := cmd.Flags().GetString("ref"); ref != "" {
			reference = ref
		}

		task, err := a.store.CreateTask(ctx, db.CreateTaskRequest{
			SubjectID: subject.ID,
			Title:     parsed.Title,
			Reference: reference,
		})
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		fmt.Printf("✅ New task \"%s\" added for %s - ID: %d\n", task.Title, subject.Name, task.ID)
		if task.Reference != "" {
			fmt.Printf("🎯 Reference: %s\n", task.Reference)
		}
		return nil
	}),
}

// resolveClient finds the named client, or the client of the worker's
// running session when ref is empty.
func resolveClient(ctx context.Context, a *app, ref string) (*models.Subject, error) {
	if ref != "" {
		return a.store.FindSubject(ctx, ref)
	}

	worker, err := a.worker(ctx)
	if err != nil {
		return nil, fmt.Errorf("no client given: %w", err)
	}
	snap, err := a.engine.Load(ctx, worker.ID)
	if err != nil {
		return nil, err
	}
	if !snap.HasOpenSession() {
		return nil, errors.New("no client given and no session running, use @client or --client")
	}
	return a.store.GetSubject(ctx, snap.Session.SubjectID)
}

func init() {
	addCmd.Flags().StringP("client", "c", "", "Client name or id")
	addCmd.Flags().String("ref", "", "Ticket reference (e.g. ACME-12)")
}
