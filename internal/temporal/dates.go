package temporal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/schedd/internal/model"
)

const monthPattern = `(january|february|march|april|june|july|august|september|october|november|december|jan|feb|mar|apr|may|jun|jul|aug|sept|sep|oct|nov|dec)`

const weekdayPattern = `(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tues|thurs|thur|mon|tue|wed|thu|fri|sat|sun)`

var monthByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayByName = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func monthOf(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthByName[name[:3]]
	return m, ok
}

func weekdayOf(name string) (time.Weekday, bool) {
	if len(name) < 3 {
		return 0, false
	}
	d, ok := weekdayByName[name[:3]]
	return d, ok
}

var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dayMonthRe     = regexp.MustCompile(`\b(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b(?:,?\s+(\d{4})\b)?`)
	monthDayRe     = regexp.MustCompile(`\b` + monthPattern + `\.?\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	relativeDayRe  = regexp.MustCompile(`\b(day after tomorrow|tomorrow|today|tonight|yesterday)\b`)
	weekdayRe      = regexp.MustCompile(`\b(next\s+|this\s+|on\s+)?` + weekdayPattern + `s?\b`)
	rangeLeadRe    = regexp.MustCompile(`\b(?:between|from)\s*$`)
	rangeJoinRe    = regexp.MustCompile(`^\s*(?:and|to|through|thru|until|till|-)\s*$`)
	untilRe        = regexp.MustCompile(`\b(?:until|till|through|thru|ending(?:\s+on)?)\s+`)
	nextDaysRe     = regexp.MustCompile(`\bnext\s+` + numberPattern + `\s+days?\b`)
	periodRe       = regexp.MustCompile(`\b(this|next)\s+(week|month)\b`)
	explicitYearRe = regexp.MustCompile(`^\d{4}$`)
)

// MaxNextDays caps "next N days".
const MaxNextDays = 365

type mention struct {
	start, end int
	date       model.Date
	explicit   bool
}

// explicitMentions finds calendar dates written out in text, in position order.
func (p *Parser) explicitMentions(t string) []mention {
	today := p.Today()
	var out []mention
	taken := func(s, e int) bool {
		for _, m := range out {
			if s < m.end && m.start < e {
				return true
			}
		}
		return false
	}

	for _, loc := range isoDateRe.FindAllStringSubmatchIndex(t, -1) {
		d, err := model.ParseDate(t[loc[0]:loc[1]])
		if err == nil {
			out = append(out, mention{start: loc[0], end: loc[1], date: d, explicit: true})
		}
	}
	for _, loc := range dayMonthRe.FindAllStringSubmatchIndex(t, -1) {
		if taken(loc[0], loc[1]) {
			continue
		}
		day, _ := strconv.Atoi(t[loc[2]:loc[3]])
		month, _ := monthOf(t[loc[4]:loc[5]])
		year := yearOr(t, loc[6], loc[7], today.Year)
		if d, ok := validDate(year, month, day); ok {
			out = append(out, mention{start: loc[0], end: loc[1], date: d, explicit: true})
		}
	}
	for _, loc := range monthDayRe.FindAllStringSubmatchIndex(t, -1) {
		if taken(loc[0], loc[1]) {
			continue
		}
		month, _ := monthOf(t[loc[2]:loc[3]])
		day, _ := strconv.Atoi(t[loc[4]:loc[5]])
		year := yearOr(t, loc[6], loc[7], today.Year)
		if d, ok := validDate(year, month, day); ok {
			out = append(out, mention{start: loc[0], end: loc[1], date: d, explicit: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// relativeMentions finds today/tomorrow and weekday references.
func (p *Parser) relativeMentions(t string) []mention {
	today := p.Today()
	var out []mention
	for _, loc := range relativeDayRe.FindAllStringSubmatchIndex(t, -1) {
		var d model.Date
		switch t[loc[2]:loc[3]] {
		case "today", "tonight":
			d = today
		case "tomorrow":
			d = today.AddDays(1)
		case "day after tomorrow":
			d = today.AddDays(2)
		case "yesterday":
			d = today.AddDays(-1)
		}
		out = append(out, mention{start: loc[0], end: loc[1], date: d})
	}
	for _, loc := range weekdayRe.FindAllStringSubmatchIndex(t, -1) {
		if strings.HasSuffix(strings.TrimSpace(t[:loc[0]]), "every") {
			continue
		}
		wd, ok := weekdayOf(t[loc[4]:loc[5]])
		if !ok {
			continue
		}
		strict := loc[2] >= 0 && strings.TrimSpace(t[loc[2]:loc[3]]) == "next"
		out = append(out, mention{start: loc[0], end: loc[1], date: nextWeekday(today, wd, strict)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// Mentions lists every date in text in the order written. Explicit dates
// come first when two mentions start at the same position.
func (p *Parser) Mentions(text string) []model.Date {
	t := normalize(text)
	all := append(p.explicitMentions(t), p.relativeMentions(t)...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })
	out := make([]model.Date, 0, len(all))
	for _, m := range all {
		out = append(out, m.date)
	}
	return out
}

// Date returns the highest priority date in text: explicit calendar dates
// first, then relative keywords and weekday names.
func (p *Parser) Date(text string) (model.Date, bool) {
	t := normalize(text)
	if ms := p.explicitMentions(t); len(ms) > 0 {
		return ms[0].date, true
	}
	if ms := p.relativeMentions(t); len(ms) > 0 {
		return ms[0].date, true
	}
	return model.Date{}, false
}

// DateRange resolves "between D1 and D2", "from D1 to D2", this/next week and
// this/next month. Ranges are inclusive; reversed bounds are swapped.
func (p *Parser) DateRange(text string) (model.DateRange, bool) {
	t := normalize(text)
	ms := append(p.explicitMentions(t), p.relativeMentions(t)...)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].start < ms[j].start })
	for i := 0; i+1 < len(ms); i++ {
		a, b := ms[i], ms[i+1]
		if !rangeLeadRe.MatchString(t[:a.start]) || !rangeJoinRe.MatchString(t[a.end:b.start]) {
			continue
		}
		if b.date.Before(a.date) {
			a, b = b, a
		}
		return model.DateRange{From: a.date, To: b.date}, true
	}

	if n := p.NextDays(text); n > 0 {
		today := p.Today()
		return model.DateRange{From: today, To: today.AddDays(n - 1)}, true
	}

	if m := periodRe.FindStringSubmatch(t); m != nil {
		return p.period(m[1] == "next", m[2]), true
	}
	return model.DateRange{}, false
}

// NextDays returns N from "next N days", capped at MaxNextDays.
func (p *Parser) NextDays(text string) int {
	m := nextDaysRe.FindStringSubmatch(normalize(text))
	if m == nil {
		return 0
	}
	n, ok := parseNumber(m[1])
	if !ok || n <= 0 {
		return 0
	}
	return min(n, MaxNextDays)
}

// Until returns the date following an until/through keyword.
func (p *Parser) Until(text string) (model.Date, bool) {
	t := normalize(text)
	loc := untilRe.FindStringIndex(t)
	if loc == nil {
		return model.Date{}, false
	}
	ms := append(p.explicitMentions(t), p.relativeMentions(t)...)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].start < ms[j].start })
	for _, m := range ms {
		if m.start >= loc[1] {
			return m.date, true
		}
	}
	return model.Date{}, false
}

func (p *Parser) period(next bool, unit string) model.DateRange {
	today := p.Today()
	if unit == "week" {
		monday := today.AddDays(-((int(today.Weekday()) + 6) % 7))
		if next {
			monday = monday.AddDays(7)
		}
		return model.DateRange{From: monday, To: monday.AddDays(6)}
	}
	first := model.NewDate(today.Year, today.Month, 1)
	if next {
		first = model.NewDate(today.Year, today.Month+1, 1)
	}
	last := model.NewDate(first.Year, first.Month+1, 1).AddDays(-1)
	return model.DateRange{From: first, To: last}
}

// nextWeekday returns the next date with weekday wd on or after from; strict
// skips from itself.
func nextWeekday(from model.Date, wd time.Weekday, strict bool) model.Date {
	delta := (int(wd) - int(from.Weekday()) + 7) % 7
	if delta == 0 && strict {
		delta = 7
	}
	return from.AddDays(delta)
}

func yearOr(t string, s, e, def int) int {
	if s < 0 {
		return def
	}
	raw := t[s:e]
	if !explicitYearRe.MatchString(raw) {
		return def
	}
	y, _ := strconv.Atoi(raw)
	return y
}

func validDate(year int, month time.Month, day int) (model.Date, bool) {
	if month < time.January || day < 1 || day > 31 {
		return model.Date{}, false
	}
	d := model.NewDate(year, month, day)
	if d.Month != month || d.Day != day {
		return model.Date{}, false
	}
	return d, true
}
