// Package report turns flat time records into the two-level listing shown
// to users: a summary line per session with its entries nested beneath, and
// standalone records on their own. Most recent activity comes first.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/balkashynov/wrokdesk/internal/models"
)

const (
	// SessionTitle labels session summary lines
	SessionTitle = "Session"
	// ClientWorkTitle replaces bookkeeping titles on unattributed time
	ClientWorkTitle = "Client Work"
)

// placeholder titles hidden from users when a record has no task
var placeholderTitles = map[string]bool{
	"client session": true,
	"client work":    true,
	"unassigned":     true,
}

// Line is one row of a report. Summary lines have no RecordID.
type Line struct {
	RecordID         string    `json:"record_id,omitempty"`
	SessionID        *string   `json:"session_id,omitempty"`
	TaskID           *uint     `json:"task_id,omitempty"`
	Title            string    `json:"title"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	DurationSeconds  int64     `json:"duration_seconds"`
	Level            int       `json:"level"`
	IsSessionSummary bool      `json:"is_session_summary"`
}

type block struct {
	key     time.Time
	session *string
	members []models.TimeRecord
}

// BuildDisplayLines groups records by session and orders the groups by their
// latest activity, newest first. Inside a session, entries read oldest first.
// The input is not modified.
func BuildDisplayLines(records []models.TimeRecord) []Line {
	if len(records) == 0 {
		return []Line{}
	}

	var blocks []*block
	bySession := make(map[string]*block)
	for _, r := range records {
		if r.SessionID == nil {
			blocks = append(blocks, &block{key: r.StartedAt, members: []models.TimeRecord{r}})
			continue
		}
		b, ok := bySession[*r.SessionID]
		if !ok {
			id := *r.SessionID
			b = &block{session: &id}
			bySession[id] = b
			blocks = append(blocks, b)
		}
		b.members = append(b.members, r)
	}

	for _, b := range blocks {
		if b.session == nil {
			continue
		}
		sort.SliceStable(b.members, func(i, j int) bool {
			return b.members[i].StartedAt.Before(b.members[j].StartedAt)
		})
		b.key = b.members[0].EndedAt
		for _, m := range b.members[1:] {
			if m.EndedAt.After(b.key) {
				b.key = m.EndedAt
			}
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].key.After(blocks[j].key)
	})

	lines := make([]Line, 0, len(records)+len(bySession))
	for _, b := range blocks {
		if b.session == nil {
			lines = append(lines, recordLine(b.members[0], 0))
			continue
		}

		summary := Line{
			SessionID:        b.session,
			Title:            SessionTitle,
			StartedAt:        b.members[0].StartedAt,
			EndedAt:          b.key,
			Level:            0,
			IsSessionSummary: true,
		}
		for _, m := range b.members {
			if m.DurationSeconds > 0 {
				summary.DurationSeconds += m.DurationSeconds
			}
		}
		lines = append(lines, summary)
		for _, m := range b.members {
			lines = append(lines, recordLine(m, 1))
		}
	}
	return lines
}

func recordLine(r models.TimeRecord, level int) Line {
	return Line{
		RecordID:        r.ID,
		SessionID:       r.SessionID,
		TaskID:          r.TaskID,
		Title:           displayTitle(r),
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		DurationSeconds: r.DurationSeconds,
		Level:           level,
	}
}

func displayTitle(r models.TimeRecord) string {
	if r.TaskID == nil && placeholderTitles[strings.ToLower(strings.TrimSpace(r.Title))] {
		return ClientWorkTitle
	}
	return r.Title
}

// Totals returns the tracked seconds across lines, counting each record once
// and ignoring non-positive durations.
func Totals(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		if l.IsSessionSummary || l.DurationSeconds <= 0 {
			continue
		}
		total += l.DurationSeconds
	}
	return total
}

// FormatDuration renders seconds the compact way the CLI shows durations
func FormatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}

// FormatClock renders seconds as HH:MM:SS for live timers
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
