package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/wrokdesk/internal/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func rec(id string, session string, start, end time.Time) models.TimeRecord {
	r := models.TimeRecord{
		ID:              id,
		Title:           "Task " + id,
		StartedAt:       start,
		EndedAt:         end,
		DurationSeconds: int64(end.Sub(start) / time.Second),
	}
	if session != "" {
		s := session
		r.SessionID = &s
	}
	task := uint(len(id))
	r.TaskID = &task
	return r
}

func TestBuildDisplayLinesScenario(t *testing.T) {
	records := []models.TimeRecord{
		rec("1", "s1", at(10, 0), at(10, 20)),
		rec("2", "s1", at(10, 20), at(10, 45)),
		rec("3", "", at(9, 0), at(9, 10)),
	}

	lines := BuildDisplayLines(records)
	require.Len(t, lines, 4)

	assert.True(t, lines[0].IsSessionSummary)
	assert.Equal(t, SessionTitle, lines[0].Title)
	assert.Equal(t, "s1", *lines[0].SessionID)
	assert.Equal(t, int64(45*60), lines[0].DurationSeconds)
	assert.Equal(t, 0, lines[0].Level)
	assert.Equal(t, at(10, 0), lines[0].StartedAt)
	assert.Equal(t, at(10, 45), lines[0].EndedAt)

	assert.Equal(t, "1", lines[1].RecordID)
	assert.Equal(t, int64(20*60), lines[1].DurationSeconds)
	assert.Equal(t, 1, lines[1].Level)

	assert.Equal(t, "2", lines[2].RecordID)
	assert.Equal(t, int64(25*60), lines[2].DurationSeconds)
	assert.Equal(t, 1, lines[2].Level)

	assert.Equal(t, "3", lines[3].RecordID)
	assert.Equal(t, 0, lines[3].Level)
	assert.False(t, lines[3].IsSessionSummary)
	assert.Equal(t, int64(10*60), lines[3].DurationSeconds)
}

func TestBuildDisplayLinesEmpty(t *testing.T) {
	assert.Empty(t, BuildDisplayLines(nil))
	assert.NotNil(t, BuildDisplayLines([]models.TimeRecord{}))
}

func TestSingleMemberSessionKeepsSummary(t *testing.T) {
	lines := BuildDisplayLines([]models.TimeRecord{rec("1", "s1", at(8, 0), at(8, 30))})

	require.Len(t, lines, 2)
	assert.True(t, lines[0].IsSessionSummary)
	assert.Equal(t, int64(30*60), lines[0].DurationSeconds)
	assert.Equal(t, 1, lines[1].Level)
}

func TestBlocksOrderByLatestEnd(t *testing.T) {
	// s1 started first but ran longest, so it is the most recent block
	records := []models.TimeRecord{
		rec("a", "s2", at(11, 0), at(11, 15)),
		rec("b", "s1", at(9, 0), at(9, 30)),
		rec("c", "", at(11, 30), at(11, 40)),
		rec("d", "s1", at(11, 45), at(12, 30)),
	}

	lines := BuildDisplayLines(records)
	require.Len(t, lines, 6)

	var order []string
	for _, l := range lines {
		if l.IsSessionSummary {
			order = append(order, "summary:"+*l.SessionID)
			continue
		}
		order = append(order, l.RecordID)
	}
	assert.Equal(t, []string{"summary:s1", "b", "d", "c", "summary:s2", "a"}, order)
}

func TestMembersSortedOldestFirst(t *testing.T) {
	records := []models.TimeRecord{
		rec("late", "s1", at(10, 30), at(10, 40)),
		rec("early", "s1", at(10, 0), at(10, 30)),
	}

	lines := BuildDisplayLines(records)
	require.Len(t, lines, 3)
	assert.Equal(t, "early", lines[1].RecordID)
	assert.Equal(t, "late", lines[2].RecordID)
	assert.Equal(t, "late", records[0].ID, "input untouched")
}

func TestSumPreservation(t *testing.T) {
	records := []models.TimeRecord{
		rec("1", "s1", at(9, 0), at(9, 12)),
		rec("2", "s1", at(9, 12), at(9, 50)),
		rec("3", "s2", at(13, 0), at(14, 5)),
		rec("4", "", at(15, 0), at(15, 7)),
	}

	var want int64
	for _, r := range records {
		want += r.DurationSeconds
	}

	lines := BuildDisplayLines(records)
	assert.Equal(t, want, Totals(lines))

	var summaries int64
	for _, l := range lines {
		if l.IsSessionSummary {
			summaries += l.DurationSeconds
		}
	}
	assert.Equal(t, want-records[3].DurationSeconds, summaries)
}

func TestNonPositiveDurationsKept(t *testing.T) {
	zero := rec("z", "s1", at(10, 0), at(10, 0))
	negative := rec("n", "s1", at(10, 5), at(10, 5))
	negative.DurationSeconds = -30
	normal := rec("ok", "s1", at(10, 10), at(10, 20))

	lines := BuildDisplayLines([]models.TimeRecord{zero, negative, normal})
	require.Len(t, lines, 4)
	assert.Equal(t, int64(600), lines[0].DurationSeconds)
	assert.Equal(t, int64(-30), lines[2].DurationSeconds)
	assert.Equal(t, int64(600), Totals(lines))
}

func TestTitleNormalization(t *testing.T) {
	tests := []struct {
		title  string
		task   bool
		expect string
	}{
		{"Client Session", false, ClientWorkTitle},
		{"  client work ", false, ClientWorkTitle},
		{"UNASSIGNED", false, ClientWorkTitle},
		{"Client Session", true, "Client Session"},
		{"Discovery call", false, "Discovery call"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			r := rec("1", "", at(9, 0), at(9, 5))
			r.Title = tt.title
			if !tt.task {
				r.TaskID = nil
			}
			lines := BuildDisplayLines([]models.TimeRecord{r})
			require.Len(t, lines, 1)
			assert.Equal(t, tt.expect, lines[0].Title)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "25m", FormatDuration(25*60))
	assert.Equal(t, "1.5h", FormatDuration(90*60))
	assert.Equal(t, "00:00:00", FormatClock(-5))
	assert.Equal(t, "01:02:03", FormatClock(3723))
}
