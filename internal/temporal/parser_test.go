package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
)

// Wednesday, October 1st 2025.
var fixedNow = time.Date(2025, time.October, 1, 10, 0, 0, 0, time.UTC)

func newParser() *Parser {
	return New(time.UTC, func() time.Time { return fixedNow })
}

func d(m time.Month, day int) model.Date { return model.NewDate(2025, m, day) }

func TestDate(t *testing.T) {
	p := newParser()
	cases := map[string]model.Date{
		"dentist today":                 d(time.October, 1),
		"lunch tomorrow at noon":        d(time.October, 2),
		"the day after tomorrow":        d(time.October, 3),
		"on Friday":                     d(time.October, 3),
		"this wednesday":                d(time.October, 1),
		"next wednesday":                d(time.October, 8),
		"Oct 11":                        d(time.October, 11),
		"October 11, 2026":              model.NewDate(2026, time.October, 11),
		"11th October":                  d(time.October, 11),
		"on the 28th of August":         d(time.August, 28),
		"meeting on 2025-10-15 at 3pm":  d(time.October, 15),
		"tomorrow or rather on Oct 20 ": d(time.October, 20),
	}
	for text, want := range cases {
		got, ok := p.Date(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}

	_, ok := p.Date("sometime soon")
	assert.False(t, ok)
	_, ok = p.Date("February 30")
	assert.False(t, ok)
}

func TestMentionsAreOrdered(t *testing.T) {
	p := newParser()
	got := p.Mentions("move standup from tomorrow to Oct 9")
	assert.Equal(t, []model.Date{d(time.October, 2), d(time.October, 9)}, got)
}

func TestDateRange(t *testing.T) {
	p := newParser()
	cases := map[string]model.DateRange{
		"between Oct 1 and Oct 31":      {From: d(time.October, 1), To: d(time.October, 31)},
		"from 2025-11-03 to 2025-11-01": {From: d(time.November, 1), To: d(time.November, 3)},
		"this week":                     {From: d(time.September, 29), To: d(time.October, 5)},
		"next week":                     {From: d(time.October, 6), To: d(time.October, 12)},
		"this month":                    {From: d(time.October, 1), To: d(time.October, 31)},
		"next month":                    {From: d(time.November, 1), To: d(time.November, 30)},
		"in the next 3 days":            {From: d(time.October, 1), To: d(time.October, 3)},
	}
	for text, want := range cases {
		got, ok := p.DateRange(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	assert.Equal(t, MaxNextDays, p.NextDays("next 900 days"))
}

func TestTimeRange(t *testing.T) {
	p := newParser()
	cases := []struct {
		text       string
		start, end int
	}{
		{"free tomorrow between 1-5pm", 13 * 60, 17 * 60},
		{"free tomorrow between 1–5pm", 13 * 60, 17 * 60},
		{"from 9am to 11:30am", 9 * 60, 11*60 + 30},
		{"between 14:00 and 15:30", 14 * 60, 15*60 + 30},
		{"11-1pm", 11 * 60, 13 * 60},
		{"10pm-1am", 22 * 60, 60},
		{"9:00 - 17:00", 9 * 60, 17 * 60},
	}
	for _, tc := range cases {
		start, end, ok := p.TimeRange(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.start, start, tc.text)
		assert.Equal(t, tc.end, end, tc.text)
	}

	_, _, ok := p.TimeRange("on 2025-10-15")
	assert.False(t, ok, "iso dates are not time ranges")
	_, _, ok = p.TimeRange("3-4 times")
	assert.False(t, ok)
}

func TestTimeAndAfter(t *testing.T) {
	p := newParser()
	cases := map[string]int{
		"at 5:40 pm":    17*60 + 40,
		"at 14:00":      14 * 60,
		"lunch at noon": 12 * 60,
		"call at 7":     7 * 60,
		"at 12am":       0,
		"standup 9:15":  9*60 + 15,
		"dinner 7 p.m.": 19 * 60,
	}
	for text, want := range cases {
		got, ok := p.Time(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	_, ok := p.Time("for 45 minutes")
	assert.False(t, ok)

	after, ok := p.After("anything after 6pm today?")
	require.True(t, ok)
	assert.Equal(t, 18*60, after)

	s := p.Extract("anything after 6pm today?")
	require.NotNil(t, s.End)
	assert.True(t, s.OpenEnded)
	assert.Equal(t, model.MinutesPerDay, *s.End)
}

func TestDuration(t *testing.T) {
	p := newParser()
	cases := map[string]int{
		"for 60 min":         60,
		"for 45 minutes":     45,
		"1h 30m":             90,
		"2 hours 15 min":     135,
		"1.5 hours":          90,
		"a 90-minute review": 90,
		"1hr":                60,
		"an hour":            60,
		"half an hour":       30,
		"an hour and a half": 90,
		"two hours":          120,
	}
	for text, want := range cases {
		got, ok := p.Duration(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	_, ok := p.Duration("remind me 10 minutes before")
	assert.False(t, ok, "lead phrases are not durations")
}

func TestLead(t *testing.T) {
	p := newParser()
	cases := map[string]int{
		"10 minutes before": 10,
		"2 hours before":    120,
		"1.5 hours before":  90,
		"an hour before":    60,
		"the day before":    1440,
		"a week before":     10080,
	}
	for text, want := range cases {
		got, ok := p.Lead(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
}

func TestTitle(t *testing.T) {
	p := newParser()
	cases := map[string]string{
		`book "Quarterly review" tomorrow at 3pm`:              "Quarterly review",
		"every Thursday at 7pm until Oct 15 titled Dance":      "Dance",
		"create a meeting called Team Sync for friday at 10am": "Team Sync",
		"schedule a meeting with the title Demo tomorrow":      "Demo",
		"Schedule Dentist tomorrow at 3pm":                     "Dentist",
		"Book Ana Review on Friday at 2pm PST":                 "Ana Review",
	}
	for text, want := range cases {
		got, ok := p.Title(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	_, ok := p.Title("what do I have on Friday")
	assert.False(t, ok)
}

func TestZoneAndShift(t *testing.T) {
	p := newParser()
	loc, ok := p.Zone("call at 9am PST")
	require.True(t, ok)
	assert.Equal(t, "America/Los_Angeles", loc.String())

	again, ok := p.Zone("call at 9am pst")
	require.True(t, ok)
	assert.Same(t, loc, again, "zones are served from the cache")

	date, minute := p.Shift(d(time.October, 2), 9*60, loc)
	assert.Equal(t, d(time.October, 2), date)
	assert.Equal(t, 16*60, minute)

	date, minute = p.Shift(d(time.October, 2), 20*60, loc)
	assert.Equal(t, d(time.October, 3), date)
	assert.Equal(t, 3*60, minute)

	iana, ok := p.Zone("sync at 9 Europe/Berlin")
	require.True(t, ok)
	assert.Equal(t, "Europe/Berlin", iana.String())
}

func TestRecurrenceSlots(t *testing.T) {
	p := newParser()
	text := "every Thursday at 7pm until Oct 15 titled Dance"
	assert.True(t, p.Recurring(text))
	assert.Equal(t, []time.Weekday{time.Thursday}, p.Weekdays(text))
	until, ok := p.Until(text)
	require.True(t, ok)
	assert.Equal(t, d(time.October, 15), until)

	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, p.Weekdays("every mon, wed and fri"))
	assert.Len(t, p.Weekdays("every weekday at 9"), 5)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, p.Weekdays("recurring on weekends"))
	assert.Len(t, p.Weekdays("every day check free time"), 7)
	assert.Nil(t, p.Weekdays("meet on Thursday"))

	assert.Equal(t, 2, p.Interval("every other Tuesday"))
	assert.Equal(t, 3, p.Interval("every 3 weeks on monday"))
	assert.Equal(t, 1, p.Interval("every monday"))

	count, weeks := p.Count("yoga every monday 6 times")
	require.NotNil(t, count)
	assert.Equal(t, 6, *count)
	assert.Nil(t, weeks)
	count, weeks = p.Count("yoga every monday for 4 weeks")
	assert.Nil(t, count)
	require.NotNil(t, weeks)
	assert.Equal(t, 4, *weeks)

	count, _ = p.Count("gym every monday for 0 times")
	require.NotNil(t, count, "an explicit zero is still a count")
	assert.Zero(t, *count)
	count, _ = p.Count("gym every monday for -2 times")
	require.NotNil(t, count)
	assert.Equal(t, -2, *count)
	_, weeks = p.Count("gym every monday for -3 weeks")
	require.NotNil(t, weeks)
	assert.Equal(t, -3, *weeks)
	count, weeks = p.Count("gym every monday")
	assert.Nil(t, count)
	assert.Nil(t, weeks)

	assert.False(t, p.Recurring("every time I try"))
}

func TestWindow(t *testing.T) {
	p := newParser()
	w, ok := p.Window("free tomorrow afternoon")
	require.True(t, ok)
	assert.Equal(t, freeslot.Named["afternoon"], w)
}

func TestExtractInfersDurationFromRange(t *testing.T) {
	s := newParser().Extract("book sync tomorrow from 10pm to 1am")
	require.NotNil(t, s.Date)
	require.NotNil(t, s.Duration)
	assert.Equal(t, 180, *s.Duration)
	span, ok := s.Span(60)
	require.True(t, ok)
	assert.True(t, span.CrossesMidnight())
	assert.Len(t, span.Segments(), 2)
}

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("Am I free tomorrow?", "free"))
	assert.True(t, HasAny("show my open slot", "open slot"))
	assert.False(t, HasAny("freedom", "free"))
}
