package temporal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
)

const clockPattern = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`

var (
	rangeFromRe    = regexp.MustCompile(`\bfrom\s+` + clockPattern + `\s*(?:-|to|until|till)\s*` + clockPattern + `(?:\b|$)`)
	rangeBetweenRe = regexp.MustCompile(`\bbetween\s+` + clockPattern + `\s*(?:and|to|-)\s*` + clockPattern + `(?:\b|$)`)
	rangeBareRe    = regexp.MustCompile(`\b` + clockPattern + `\s*(?:-|to)\s*` + clockPattern + `(?:\b|$)`)
	afterRe        = regexp.MustCompile(`\b(?:after|later than|from)\s+` + clockPattern + `(?:\b|$)`)
	atRe           = regexp.MustCompile(`(?:\bat|@)\s*` + clockPattern + `(?:\b|$)`)
	clockRe        = regexp.MustCompile(`\b` + clockPattern + `(?:\b|$)`)
	noonRe         = regexp.MustCompile(`\b(noon|midday|midnight)\b`)
	windowRe       = regexp.MustCompile(`\b(morning|afternoon|evening|tonight|workday)\b`)
)

type clock struct {
	hour, minute int
	meridiem     string
	colon        bool
}

func (c clock) explicit() bool { return c.meridiem != "" || c.colon }

func (c clock) minutes(meridiem string) (int, bool) {
	h := c.hour
	switch meridiem {
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h != 12 {
			h += 12
		}
	case "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			h = 0
		}
	default:
		if h > 23 {
			return 0, false
		}
	}
	if c.minute > 59 {
		return 0, false
	}
	return h*60 + c.minute, true
}

func clockAt(t string, loc []int, base int) clock {
	c := clock{}
	c.hour, _ = strconv.Atoi(t[loc[base]:loc[base+1]])
	if loc[base+2] >= 0 {
		c.minute, _ = strconv.Atoi(t[loc[base+2]:loc[base+3]])
		c.colon = true
	}
	if loc[base+4] >= 0 {
		c.meridiem = t[loc[base+4]:loc[base+5]]
	}
	return c
}

// stripDates blanks out ISO dates so their digits are not read as times.
func stripDates(t string) string {
	return isoDateRe.ReplaceAllStringFunc(t, func(s string) string { return strings.Repeat(" ", len(s)) })
}

// TimeRange resolves from/between/bare ranges. A meridiem on the end carries
// to a bare start ("1-5pm" is 13:00-17:00) unless that would put the start
// after the end. End <= start means the range crosses midnight.
func (p *Parser) TimeRange(text string) (int, int, bool) {
	t := stripDates(normalize(text))
	for i, re := range []*regexp.Regexp{rangeFromRe, rangeBetweenRe, rangeBareRe} {
		for _, loc := range re.FindAllStringSubmatchIndex(t, -1) {
			a, b := clockAt(t, loc, 2), clockAt(t, loc, 8)
			if i == 2 && !a.explicit() && !b.explicit() {
				continue
			}
			if start, end, ok := resolveRange(a, b); ok {
				return start, end, true
			}
		}
	}
	return 0, 0, false
}

func resolveRange(a, b clock) (int, int, bool) {
	end, ok := b.minutes(b.meridiem)
	if !ok {
		return 0, 0, false
	}
	if a.meridiem != "" || b.meridiem == "" {
		start, ok := a.minutes(a.meridiem)
		return start, end, ok
	}
	start, ok := a.minutes(b.meridiem)
	if ok && start < end {
		return start, end, true
	}
	// "11-1pm" reads as 11am to 1pm.
	other := "am"
	if b.meridiem == "am" {
		other = "pm"
	}
	start, ok = a.minutes(other)
	return start, end, ok
}

// After resolves "after 6pm" to its start minute; the range runs to end of day.
func (p *Parser) After(text string) (int, bool) {
	t := stripDates(normalize(text))
	if m := afterRe.FindStringSubmatchIndex(t); m != nil {
		return clockAt(t, m, 2).minutes(clockAt(t, m, 2).meridiem)
	}
	return 0, false
}

// Time returns a single clock time. "at 7" is read as 07:00; bare numbers
// without at, a colon or a meridiem are ignored.
func (p *Parser) Time(text string) (int, bool) {
	t := stripDates(normalize(text))
	if m := atRe.FindStringSubmatchIndex(t); m != nil {
		c := clockAt(t, m, 2)
		if v, ok := c.minutes(c.meridiem); ok {
			return v, true
		}
	}
	for _, m := range clockRe.FindAllStringSubmatchIndex(t, -1) {
		c := clockAt(t, m, 2)
		if !c.explicit() {
			continue
		}
		if v, ok := c.minutes(c.meridiem); ok {
			return v, true
		}
	}
	if m := noonRe.FindStringSubmatch(t); m != nil {
		if m[1] == "midnight" {
			return 0, true
		}
		return 12 * 60, true
	}
	return 0, false
}

// Window maps part-of-day words to their freeslot window.
func (p *Parser) Window(text string) (freeslot.Window, bool) {
	m := windowRe.FindStringSubmatch(normalize(text))
	if m == nil {
		return freeslot.Window{}, false
	}
	name := m[1]
	if name == "tonight" {
		name = "evening"
	}
	w, ok := freeslot.Named[name]
	return w, ok
}

// FormatClock is a convenience around model.FormatClock for callers that
// only import temporal.
func FormatClock(minute int) string { return model.FormatClock(minute) }
