package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskTitle(t *testing.T) {
	tests := []struct {
		input     string
		title     string
		client    string
		reference string
		errors    int
	}{
		{"Draft contract @acme ACME-12", "Draft contract", "acme", "ACME-12", 0},
		{"review q3 invoice", "review q3 invoice", "", "", 0},
		{"fix ops-7 handover   @globex_inc", "fix handover", "globex_inc", "OPS-7", 0},
		{"call @acme and @globex", "call and", "acme", "", 1},
		{"link AB-1 and CD-2", "link and", "", "AB-1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseTaskTitle(tt.input)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.client, got.Client)
			assert.Equal(t, tt.reference, got.Reference)
			assert.Len(t, got.Errors, tt.errors)
		})
	}
}

func TestNormalizeReference(t *testing.T) {
	got, err := NormalizeReference(" acme-42 ")
	require.NoError(t, err)
	assert.Equal(t, "ACME-42", got)

	got, err = NormalizeReference("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeReference("ACME42")
	assert.Error(t, err)

	assert.True(t, IsValidReference("ops-1"))
	assert.True(t, IsValidReference(""))
	assert.False(t, IsValidReference("https://tracker/1"))
}

func TestParsePeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		input string
		from  time.Time
		to    time.Time
	}{
		{"today", day(12), day(13)},
		{"Yesterday", day(11), day(12)},
		{"week", day(10), day(17)},
		{"month", day(1), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"7 days", day(6), day(13)},
		{"1 day", day(12), day(13)},
		{"2 weeks", time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), day(13)},
		{"03/03/2025", day(3), day(4)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePeriod(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.from, p.From)
			assert.Equal(t, tt.to, p.To)
		})
	}
}

func TestParsePeriodAllAndInvalid(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

	p, err := ParsePeriod("", now)
	require.NoError(t, err)
	assert.True(t, p.IsZero())
	assert.Equal(t, "all time", p.String())

	for _, input := range []string{"fortnight", "31/02/2025", "0 days", "400 days", "12/13/2025"} {
		_, err := ParsePeriod(input, now)
		assert.Error(t, err, input)
	}
}

func TestWeekStartOnSunday(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
}

func TestPeriodString(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

	p, err := ParsePeriod("today", now)
	require.NoError(t, err)
	assert.Equal(t, "Wed 12/03/2025", p.String())

	p, err = ParsePeriod("week", now)
	require.NoError(t, err)
	assert.Equal(t, "10/03/2025 to 16/03/2025", p.String())
}

func TestParseLocalPeriodUsesMachineZone(t *testing.T) {
	auckland := time.FixedZone("NZDT", 13*60*60)
	saved := time.Local
	time.Local = auckland
	t.Cleanup(func() { time.Local = saved })

	// 15:00 Monday in Auckland; the 01:30 local record is Sunday in UTC
	now := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)
	worked := time.Date(2026, 10, 19, 1, 30, 0, 0, auckland)

	p, err := ParseLocalPeriod("today", now)
	require.NoError(t, err)
	assert.True(t, p.From.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, auckland)))
	assert.False(t, worked.Before(p.From))
	assert.True(t, worked.Before(p.To))
	assert.Equal(t, "Mon 19/10/2026", p.String())

	week, err := ParseLocalPeriod("week", now)
	require.NoError(t, err)
	assert.True(t, week.From.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, auckland)))

	utc, err := ParsePeriod("today", now)
	require.NoError(t, err)
	assert.True(t, worked.Before(utc.From), "a UTC day misses the local morning")
}
