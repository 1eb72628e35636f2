package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/schedd/internal/model"
)

func oct(day int) model.Date { return model.NewDate(2025, time.October, day) }

func calendar(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return strings.Join(all, "\r\n")
}

const stamp = "DTSTAMP:20250901T000000Z"

func TestExpandRecurringWithExdateAndOverride(t *testing.T) {
	body := calendar(
		"BEGIN:VEVENT", "UID:yoga@test", stamp,
		"DTSTART:20251006T070000Z", "DTEND:20251006T080000Z",
		"RRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=4",
		"EXDATE:20251013T070000Z",
		"SUMMARY:Yoga", "CATEGORIES:Health", "END:VEVENT",

		"BEGIN:VEVENT", "UID:yoga@test", stamp,
		"RECURRENCE-ID:20251020T070000Z",
		"DTSTART:20251020T090000Z", "DTEND:20251020T100000Z",
		"SUMMARY:Yoga (late)", "END:VEVENT",

		"BEGIN:VEVENT", "UID:trip@test", stamp,
		"DTSTART;VALUE=DATE:20251008", "DTEND;VALUE=DATE:20251010",
		"SUMMARY:Trip", "END:VEVENT",

		"BEGIN:VEVENT", "UID:holiday@test", stamp,
		"DTSTART;VALUE=DATE:20251009", "SUMMARY:Holiday", "END:VEVENT",

		"BEGIN:VEVENT", stamp, "DTSTART:20251002T070000Z", "SUMMARY:No uid", "END:VEVENT",
	)

	events, skipped, err := Parse(strings.NewReader(body), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, events, 4)

	occs, rep, err := Expand(events, ExpandOptions{Location: time.UTC, From: oct(1), To: oct(31)})
	require.NoError(t, err)
	assert.Equal(t, []string{"trip@test"}, rep.Unsupported)
	require.Len(t, occs, 4)

	assert.Equal(t, oct(6), occs[0].Anchor)
	assert.Equal(t, 7*60, occs[0].Start)
	assert.Equal(t, "Health", occs[0].Label)
	assert.Contains(t, occs[0].Rule, "FREQ=WEEKLY")

	assert.Equal(t, oct(9), occs[1].Anchor)
	assert.Equal(t, 0, occs[1].Start)
	assert.Equal(t, 0, occs[1].End)
	assert.Equal(t, model.MinutesPerDay, occs[1].Span().Duration())

	assert.Equal(t, oct(20), occs[2].Anchor)
	assert.Equal(t, 9*60, occs[2].Start)
	assert.Equal(t, "Yoga (late)", occs[2].Title)

	assert.Equal(t, oct(27), occs[3].Anchor)
}

func TestExpandClipsToRange(t *testing.T) {
	body := calendar(
		"BEGIN:VEVENT", "UID:daily@test", stamp,
		"DTSTART:20251001T120000Z", "DTEND:20251001T123000Z",
		"RRULE:FREQ=DAILY", "SUMMARY:Lunch", "END:VEVENT",
	)
	events, _, err := Parse(strings.NewReader(body), time.UTC)
	require.NoError(t, err)

	occs, _, err := Expand(events, ExpandOptions{Location: time.UTC, From: oct(5), To: oct(7)})
	require.NoError(t, err)
	require.Len(t, occs, 3)
	assert.Equal(t, oct(5), occs[0].Anchor)
	assert.Equal(t, oct(7), occs[2].Anchor)

	capped, rep, err := Expand(events, ExpandOptions{Location: time.UTC, From: oct(1), To: oct(31), MaxPerEvent: 10})
	require.NoError(t, err)
	assert.Len(t, capped, 10)
	assert.Equal(t, []string{"daily@test"}, rep.Truncated)

	_, _, err = Expand(events, ExpandOptions{From: oct(7), To: oct(5)})
	assert.Error(t, err)
}

func TestExpandReportsBadRule(t *testing.T) {
	events := []Event{{
		UID:   "bad@test",
		Start: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC),
		RRule: "FREQ=SOMETIMES",
	}}
	occs, rep, err := Expand(events, ExpandOptions{Location: time.UTC, From: oct(1), To: oct(31)})
	require.NoError(t, err)
	assert.Empty(t, occs)
	assert.Equal(t, []string{"bad@test"}, rep.BadRules)
}

func TestExportRoundTrip(t *testing.T) {
	created := time.Date(2025, 9, 30, 8, 0, 0, 0, time.UTC)
	appts := []model.Appointment{
		{ID: "A1", Date: oct(2), Start: 9 * 60, End: 10 * 60, Title: "Dentist", Location: "Main St", Label: "Health", Modality: model.ModalityInPerson, CreatedAt: created, UpdatedAt: created},
		{ID: "B1", Date: oct(3), Start: 22 * 60, End: model.MinutesPerDay, Title: "Night shift", CreatedAt: created, UpdatedAt: created},
		{ID: "B2", Date: oct(4), Start: 0, End: 60, Title: "Night shift", LinkedID: "B1", CreatedAt: created, UpdatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, appts, time.UTC, created))
	out := buf.String()
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"), "linked halves merge")

	events, skipped, err := Parse(&buf, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, events, 2)

	occs, _, err := Expand(events, ExpandOptions{Location: time.UTC, From: oct(1), To: oct(31)})
	require.NoError(t, err)
	require.Len(t, occs, 2)

	assert.Equal(t, "Dentist", occs[0].Title)
	assert.Equal(t, "Main St", occs[0].Location)
	assert.Equal(t, "Health", occs[0].Label)
	assert.Equal(t, model.ModalityInPerson, occs[0].Modality)
	assert.Equal(t, model.Span{Date: oct(2), Start: 9 * 60, End: 10 * 60}, occs[0].Span())

	assert.Equal(t, model.Span{Date: oct(3), Start: 22 * 60, End: 60}, occs[1].Span())
}

func TestExportAllDay(t *testing.T) {
	appts := []model.Appointment{{ID: "H", Date: oct(9), Start: 0, End: model.MinutesPerDay, Title: "Holiday"}}
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, appts, time.UTC, time.Now()))
	assert.Contains(t, buf.String(), "20251009")

	events, _, err := Parse(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, _, err := Parse(strings.NewReader("not a calendar"), time.UTC)
	assert.Error(t, err)
}
