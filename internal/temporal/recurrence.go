package temporal

import (
	"regexp"
	"strings"
	"time"
)

var (
	recurKeywordRe = regexp.MustCompile(`\b(every|each|recurring|weekly|biweekly|fortnightly|daily)\b`)
	everyDayRe     = regexp.MustCompile(`\b(?:every\s*day|daily|each\s+day)\b`)
	weekdaysRe     = regexp.MustCompile(`\b(?:every\s+)?(?:weekday|workday)s?\b`)
	weekendsRe     = regexp.MustCompile(`\bweekends?\b`)
	weekdayListRe  = regexp.MustCompile(`\b` + weekdayPattern + `s?\b`)
	everyOtherRe   = regexp.MustCompile(`\b(?:every\s+other|biweekly|fortnightly|every\s+two\s+weeks)\b`)
	everyNWeeksRe  = regexp.MustCompile(`\bevery\s+` + numberPattern + `\s+weeks?\b`)
	countTimesRe   = regexp.MustCompile(`(?:^|[^\w-])(-\s*)?` + numberPattern + `\s+(?:times|occurrences|sessions|instances)\b`)
	countWeeksRe   = regexp.MustCompile(`\bfor\s+(?:the\s+next\s+)?(-\s*)?` + numberPattern + `\s+weeks?\b`)
)

// Recurring reports whether text describes a weekly series: a repetition
// keyword together with a weekday set or an interval phrase.
func (p *Parser) Recurring(text string) bool {
	t := normalize(text)
	if !recurKeywordRe.MatchString(t) {
		return false
	}
	return len(p.Weekdays(text)) > 0 || everyOtherRe.MatchString(t) || everyNWeeksRe.MatchString(t)
}

// Weekdays returns the weekday set named after the first repetition keyword,
// Sunday first.
func (p *Parser) Weekdays(text string) []time.Weekday {
	t := normalize(text)
	loc := recurKeywordRe.FindStringIndex(t)
	if loc == nil {
		return nil
	}
	seg := t[loc[0]:]
	set := map[time.Weekday]bool{}
	if everyDayRe.MatchString(seg) {
		for d := time.Sunday; d <= time.Saturday; d++ {
			set[d] = true
		}
	}
	if weekdaysRe.MatchString(seg) {
		for d := time.Monday; d <= time.Friday; d++ {
			set[d] = true
		}
	}
	if weekendsRe.MatchString(seg) {
		set[time.Saturday], set[time.Sunday] = true, true
	}
	for _, m := range weekdayListRe.FindAllStringSubmatch(seg, -1) {
		if d, ok := weekdayOf(m[1]); ok {
			set[d] = true
		}
	}
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if set[d] {
			out = append(out, d)
		}
	}
	return out
}

// Interval returns the week multiplier, 1 when none is stated.
func (p *Parser) Interval(text string) int {
	t := normalize(text)
	if everyOtherRe.MatchString(t) {
		return 2
	}
	if m := everyNWeeksRe.FindStringSubmatch(t); m != nil {
		if n, ok := parseNumber(m[1]); ok && n > 0 {
			return n
		}
	}
	return 1
}

// Count returns an explicit occurrence count and a "for N weeks" span, nil
// when the phrase is absent. A leading minus is kept so callers can reject it.
func (p *Parser) Count(text string) (count, weeks *int) {
	t := normalize(text)
	if m := countTimesRe.FindStringSubmatch(t); m != nil {
		count = signed(m[1], m[2])
	}
	if m := countWeeksRe.FindStringSubmatch(t); m != nil {
		weeks = signed(m[1], m[2])
	}
	return count, weeks
}

func signed(sign, num string) *int {
	n, ok := parseNumber(num)
	if !ok {
		return nil
	}
	if sign != "" {
		n = -n
	}
	return &n
}

// HasAny reports whether any of words occurs in text as a whole word or phrase.
func HasAny(text string, words ...string) bool {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return re.MatchString(normalize(text))
}
