package temporal

import (
	"math"
	"regexp"
	"strconv"
)

var (
	mixedDurationRe = regexp.MustCompile(`(\d+)\s*h(?:ours?|rs?)?\s*(?:and\s+)?(\d+)\s*m(?:in(?:ute)?s?)?\b`)
	decimalHoursRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-?\s*(?:h|hours?|hrs?)\b`)
	minutesRe       = regexp.MustCompile(`(\d+)\s*[-\s]?(?:minutes?|mins?|m)\b`)
	hourAndHalfRe   = regexp.MustCompile(`\b(?:an?|one|1)\s+hour\s+and\s+a\s+half\b|\b(?:one|1)\s+and\s+a\s+half\s+hours?\b`)
	halfHourRe      = regexp.MustCompile(`\bhalf[-\s]+an?\s+hour\b|\ban?\s+half[-\s]+hour\b`)
	oneHourRe       = regexp.MustCompile(`\b(?:an|one)\s+hour\b`)
	wordHoursRe     = regexp.MustCompile(`\b(two|three|four|five|six|seven|eight)\s+hours?\b`)
	leadHoursRe     = regexp.MustCompile(`(\d+(?:\.\d+)?|an?|one|two|three)\s*(?:hours?|hrs?|h)\s*(?:before|prior|early|ahead)`)
	leadMinutesRe   = regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?|m)\s*(?:before|prior|early|ahead)`)
	leadDayRe       = regexp.MustCompile(`\b(?:a|one|the)?\s*day\s+(?:before|prior|ahead)`)
	leadWeekRe      = regexp.MustCompile(`\b(?:a|one|the)?\s*week\s+(?:before|prior|ahead)`)
)

// Duration returns an explicit length in minutes.
func (p *Parser) Duration(text string) (int, bool) {
	t := stripLeads(normalize(text))
	if m := mixedDurationRe.FindStringSubmatch(t); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h*60 + mm, true
	}
	if hourAndHalfRe.MatchString(t) {
		return 90, true
	}
	if halfHourRe.MatchString(t) {
		return 30, true
	}
	if m := decimalHoursRe.FindStringSubmatch(t); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil && f > 0 {
			return max(1, int(math.Round(f*60))), true
		}
	}
	if m := minutesRe.FindStringSubmatch(t); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return v, true
		}
	}
	if m := wordHoursRe.FindStringSubmatch(t); m != nil {
		n, _ := parseNumber(m[1])
		return n * 60, true
	}
	if oneHourRe.MatchString(t) {
		return 60, true
	}
	return 0, false
}

// Lead returns the reminder offset from phrases like "15 minutes before".
func (p *Parser) Lead(text string) (int, bool) {
	t := normalize(text)
	if m := leadHoursRe.FindStringSubmatch(t); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return n * 60, true
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return max(1, int(math.Round(f*60))), true
		}
	}
	if m := leadMinutesRe.FindStringSubmatch(t); m != nil {
		v, _ := strconv.Atoi(m[1])
		return v, true
	}
	if leadDayRe.MatchString(t) {
		return 24 * 60, true
	}
	if leadWeekRe.MatchString(t) {
		return 7 * 24 * 60, true
	}
	return 0, false
}

// stripLeads removes lead phrases so "remind me 10 minutes before" does not
// also read as a ten minute duration.
func stripLeads(t string) string {
	for _, re := range []*regexp.Regexp{leadHoursRe, leadMinutesRe} {
		t = re.ReplaceAllString(t, " ")
	}
	return t
}
