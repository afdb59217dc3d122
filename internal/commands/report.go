package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/parser"
	"github.com/balkashynov/wrokdesk/internal/report"
	"github.com/balkashynov/wrokdesk/internal/store"
	"github.com/balkashynov/wrokdesk/internal/tui"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time records grouped by session",
	Long: `Show time records grouped by session, newest session first.

Periods: today, yesterday, week, month, N days, N weeks, dd/mm/yyyy, all.

Examples:
  wrokdesk report                    # today
  wrokdesk report --period week --client acme
  wrokdesk report --period "7 days" --json`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		periodArg, _ := cmd.Flags().GetString("period")
		period, err := parser.ParseLocalPeriod(periodArg, a.clock.Now())
		if err != nil {
			return err
		}

		filter := store.TimeRecordFilter{WholeSessions: true}
		if all, _ := cmd.Flags().GetBool("all-workers"); !all {
			worker, err := a.worker(ctx)
			if err != nil {
				return err
			}
			filter.WorkerID = &worker.ID
		}
		if ref, _ := cmd.Flags().GetString("client"); ref != "" {
			subject, err := a.store.FindSubject(ctx, ref)
			if err != nil {
				return err
			}
			filter.SubjectID = &subject.ID
		}
		if !period.IsZero() {
			filter.From, filter.To = &period.From, &period.To
		}

		records, err := a.store.QueryTimeRecords(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to query time records: %w", err)
		}
		lines := report.BuildDisplayLines(records)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"period":        period.String(),
				"lines":         lines,
				"total_seconds": report.Totals(lines),
			})
		}

		fmt.Print(renderReport(period.String(), lines))
		return nil
	}),
}

// renderReport lays the display lines out as an indented table
func renderReport(period string, lines []report.Line) string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentBright)).Bold(true)
	sessionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentMain)).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorSecondaryText))

	b.WriteString(headerStyle.Render("📊 Time records: " + period))
	b.WriteString("\n\n")

	if len(lines) == 0 {
		b.WriteString("No time tracked in this period.\n")
		return b.String()
	}

	for _, l := range lines {
		span := fmt.Sprintf("%s %s-%s",
			l.StartedAt.Local().Format("02/01"),
			l.StartedAt.Local().Format("15:04"),
			l.EndedAt.Local().Format("15:04"))
		duration := fmt.Sprintf("%7s", report.FormatDuration(l.DurationSeconds))

		if l.IsSessionSummary {
			b.WriteString(sessionStyle.Render(fmt.Sprintf("%s  %s  %s", span, duration, l.Title)))
		} else {
			indent := strings.Repeat("    ", l.Level)
			title := l.Title
			if l.TaskID != nil {
				title = fmt.Sprintf("#%d %s", *l.TaskID, title)
			}
			b.WriteString(indent + mutedStyle.Render(span) + "  " + duration + "  " + title)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Total: " + report.FormatDuration(report.Totals(lines))))
	b.WriteString("\n")
	return b.String()
}

func init() {
	reportCmd.Flags().StringP("period", "p", "today", "Period to report on")
	reportCmd.Flags().StringP("client", "c", "", "Only this client (name or id)")
	reportCmd.Flags().Bool("all-workers", false, "Include every worker")
	reportCmd.Flags().Bool("json", false, "JSON output")
}
