package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/parser"
	"github.com/balkashynov/wrokdesk/internal/report"
	"github.com/balkashynov/wrokdesk/internal/store"
)

var timesheetCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Show a weekly timesheet for invoicing",
	Long: `Show a weekly timesheet of tracked hours per task and day.

Displays hours for the current calendar week, or the week containing --date.
Time not spent on a task shows as "Client Work".

Example output:
  Task                      Mon   Tue   Wed   Thu   Fri  Total
  ACME-12 Draft contract    2.0   1.5     -     -     -    3.5
  Client Work               0.5     -     -     -     -    0.5
  Total                     2.5   1.5   0.0   0.0   0.0    4.0`,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		worker, err := a.worker(ctx)
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetString("date")
		weekStart, err := timesheetWeek(raw, a.clock.Now())
		if err != nil {
			return err
		}
		weekEnd := weekStart.AddDate(0, 0, 7)

		filter := store.TimeRecordFilter{WorkerID: &worker.ID, From: &weekStart, To: &weekEnd}
		if ref, _ := cmd.Flags().GetString("client"); ref != "" {
			subject, err := a.store.FindSubject(ctx, ref)
			if err != nil {
				return err
			}
			filter.SubjectID = &subject.ID
		}

		records, err := a.store.QueryTimeRecords(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to get time records: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No time tracked this week.")
			return nil
		}

		tasks := map[uint]models.Task{}
		for _, r := range records {
			if r.TaskID == nil {
				continue
			}
			if _, ok := tasks[*r.TaskID]; ok {
				continue
			}
			if t, err := a.store.GetTask(ctx, *r.TaskID); err == nil {
				tasks[t.ID] = *t
			}
		}

		fmt.Print(buildTimesheet(records, tasks, weekStart).render())
		return nil
	}),
}

// timesheetWeek returns the local Monday of the week holding date, or of
// the current week when date is empty.
func timesheetWeek(date string, now time.Time) (time.Time, error) {
	day := now.In(time.Local)
	if date != "" {
		p, err := parser.ParseLocalPeriod(date, now)
		if err != nil {
			return time.Time{}, err
		}
		day = p.From
	}
	return parser.WeekStart(day), nil
}

// timesheet is a week of hours per row and weekday, Monday first
type timesheet struct {
	weekStart time.Time
	rows      []timesheetRow
	showDays  []int // indexes into hours, 0 = Monday
}

type timesheetRow struct {
	label   string
	sortKey string
	hours   [7]float64
}

// buildTimesheet sums records into one row per task plus one for time not
// on a task. Weekdays always show; weekend days only when worked.
func buildTimesheet(records []models.TimeRecord, tasks map[uint]models.Task, weekStart time.Time) timesheet {
	rows := map[string]*timesheetRow{}
	for _, r := range records {
		started := r.StartedAt.In(weekStart.Location())
		if r.DurationSeconds <= 0 || started.Before(weekStart) || !started.Before(weekStart.AddDate(0, 0, 7)) {
			continue
		}

		key, label, sortKey := "none", report.ClientWorkTitle, "~"
		if r.TaskID != nil {
			key = fmt.Sprintf("%d", *r.TaskID)
			label, sortKey = taskLabel(*r.TaskID, r.Title, tasks)
		}
		row, ok := rows[key]
		if !ok {
			row = &timesheetRow{label: label, sortKey: sortKey}
			rows[key] = row
		}

		day := (int(started.Weekday()) + 6) % 7
		row.hours[day] += float64(r.DurationSeconds) / 3600.0
	}

	ts := timesheet{weekStart: weekStart}
	worked := [7]bool{}
	for _, row := range rows {
		ts.rows = append(ts.rows, *row)
		for d, h := range row.hours {
			if h > 0 {
				worked[d] = true
			}
		}
	}
	// References first, then task ids, unattributed time last
	sort.Slice(ts.rows, func(i, j int) bool {
		return ts.rows[i].sortKey < ts.rows[j].sortKey
	})

	for d := 0; d < 7; d++ {
		if d < 5 || worked[d] {
			ts.showDays = append(ts.showDays, d)
		}
	}
	return ts
}

// taskLabel prefers the ticket reference, like invoices do
func taskLabel(id uint, title string, tasks map[uint]models.Task) (string, string) {
	t, ok := tasks[id]
	if !ok {
		return fmt.Sprintf("#%d %s", id, title), fmt.Sprintf("1%010d", id)
	}
	if t.Reference != "" {
		return fmt.Sprintf("%s %s", t.Reference, t.Title), "0" + t.Reference
	}
	return fmt.Sprintf("#%d %s", t.ID, t.Title), fmt.Sprintf("1%010d", t.ID)
}

func (ts timesheet) total(day int) float64 {
	var sum float64
	for _, row := range ts.rows {
		sum += row.hours[day]
	}
	return sum
}

func (ts timesheet) render() string {
	dayNames := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	nameWidth := 20
	for _, row := range ts.rows {
		if len(row.label) > nameWidth {
			nameWidth = len(row.label)
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}

	var b strings.Builder
	separator := func() {
		b.WriteString(strings.Repeat("-", nameWidth))
		for range ts.showDays {
			b.WriteString("  " + strings.Repeat("-", 4))
		}
		b.WriteString("  " + strings.Repeat("-", 5) + "\n")
	}
	cell := func(h float64) string {
		if h <= 0 {
			return fmt.Sprintf("  %4s", "-")
		}
		return fmt.Sprintf("  %4.1f", h)
	}

	fmt.Fprintf(&b, "%-*s", nameWidth, "Task")
	for _, d := range ts.showDays {
		fmt.Fprintf(&b, "  %4s", dayNames[d])
	}
	fmt.Fprintf(&b, "  %5s\n", "Total")
	separator()

	var grand float64
	for _, row := range ts.rows {
		label := row.label
		if len(label) > nameWidth {
			label = label[:nameWidth-3] + "..."
		}
		fmt.Fprintf(&b, "%-*s", nameWidth, label)

		var rowTotal float64
		for _, d := range ts.showDays {
			b.WriteString(cell(row.hours[d]))
			rowTotal += row.hours[d]
		}
		fmt.Fprintf(&b, "  %5.1f\n", rowTotal)
		grand += rowTotal
	}

	separator()
	fmt.Fprintf(&b, "%-*s", nameWidth, "Total")
	for _, d := range ts.showDays {
		fmt.Fprintf(&b, "  %4.1f", ts.total(d))
	}
	fmt.Fprintf(&b, "  %5.1f\n", grand)

	fmt.Fprintf(&b, "\nWeek of %s to %s\n",
		ts.weekStart.Format("Jan 2"),
		ts.weekStart.AddDate(0, 0, 6).Format("Jan 2, 2006"))
	return b.String()
}

func init() {
	timesheetCmd.Flags().StringP("client", "c", "", "Only this client (name or id)")
	timesheetCmd.Flags().String("date", "", "Any day in the week to show (dd/mm/yyyy, yesterday, ...)")
}
