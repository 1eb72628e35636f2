// Package temporal extracts dates, times, durations and related slots from
// free text. Every extractor walks an ordered pattern table and returns its
// first match; a slot that cannot be resolved is simply absent.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sandeepkv93/schedd/internal/model"
)

const zoneCacheSize = 64

type Parser struct {
	loc   *time.Location
	now   func() time.Time
	zones *lru.Cache[string, *time.Location]
}

// New returns a parser resolving relative phrases against now in loc.
func New(loc *time.Location, now func() time.Time) *Parser {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	zones, _ := lru.New[string, *time.Location](zoneCacheSize)
	return &Parser{loc: loc, now: now, zones: zones}
}

func (p *Parser) Location() *time.Location { return p.loc }

func (p *Parser) Now() time.Time { return p.now().In(p.loc) }

// Today is the current civil date in the parser's location.
func (p *Parser) Today() model.Date {
	return model.DateOf(p.now().In(p.loc))
}

// Slots holds everything Extract could resolve. Nil pointers and zero
// values mean the slot was absent.
type Slots struct {
	Date       *model.Date
	Dates      []model.Date
	Range      *model.DateRange
	NextDays   int
	Start      *int
	End        *int
	OpenEnded  bool
	Duration   *int
	Lead       *int
	Title      string
	Zone       *time.Location
	Weekdays   []time.Weekday
	Interval   int
	Count      *int
	CountWeeks *int
	Until      *model.Date
}

// HasTime reports whether a start time was found.
func (s Slots) HasTime() bool { return s.Start != nil }

// Span returns the requested span when both a date and a start are known.
// The duration falls back to the range span and then to def.
func (s Slots) Span(def int) (model.Span, bool) {
	if s.Date == nil || s.Start == nil {
		return model.Span{}, false
	}
	if s.End != nil && !s.OpenEnded {
		return model.Span{Date: *s.Date, Start: *s.Start, End: *s.End}, true
	}
	d := def
	if s.Duration != nil {
		d = *s.Duration
	}
	return model.SpanFor(*s.Date, *s.Start, d), true
}

// Extract runs every slot extractor over text.
func (p *Parser) Extract(text string) Slots {
	var s Slots
	if d, ok := p.Date(text); ok {
		s.Date = &d
	}
	s.Dates = p.Mentions(text)
	if r, ok := p.DateRange(text); ok {
		s.Range = &r
	}
	s.NextDays = p.NextDays(text)
	if start, end, ok := p.TimeRange(text); ok {
		s.Start, s.End = &start, &end
	} else if start, ok := p.After(text); ok {
		end := model.MinutesPerDay
		s.Start, s.End, s.OpenEnded = &start, &end, true
	} else if t, ok := p.Time(text); ok {
		s.Start = &t
	}
	if d, ok := p.Duration(text); ok {
		s.Duration = &d
	} else if s.Start != nil && s.End != nil && !s.OpenEnded {
		d := model.Span{Start: *s.Start, End: *s.End}.Duration()
		s.Duration = &d
	}
	if l, ok := p.Lead(text); ok {
		s.Lead = &l
	}
	s.Title, _ = p.Title(text)
	if z, ok := p.Zone(text); ok {
		s.Zone = z
	}
	s.Weekdays = p.Weekdays(text)
	s.Interval = p.Interval(text)
	s.Count, s.CountWeeks = p.Count(text)
	if u, ok := p.Until(text); ok {
		s.Until = &u
	}
	return s
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

const numberPattern = `(\d{1,3}|a|an|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)`

func parseNumber(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

var spaces = regexp.MustCompile(`\s+`)

func normalize(text string) string {
	t := strings.ToLower(text)
	t = strings.NewReplacer("–", "-", "—", "-", "’", "'", "“", `"`, "”", `"`, "a.m.", "am", "p.m.", "pm").Replace(t)
	return spaces.ReplaceAllString(strings.TrimSpace(t), " ")
}
