package temporal

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	quotedRe = regexp.MustCompile(`["“”]([^"“”]+)["“”]`)
	namedRe  = regexp.MustCompile(`(?i)\b(?:with\s+the\s+title|titled|called|named|title)\s+(.+?)(?:\s+(?:on|at|from|between|every|each|for|until|till|through|tomorrow|today|tonight|next|this|starting|in|to)\b|[,.;!?]|$)`)

	// Capitalized words that never start a title on their own.
	titleStopwords = map[string]bool{
		"i": true, "am": true, "pm": true, "a": true,
	}
)

// Title returns a quoted phrase, the phrase after titled/called/named, or as
// a last resort the first run of capitalized words after the first word.
func (p *Parser) Title(text string) (string, bool) {
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t, true
		}
	}
	if m := namedRe.FindStringSubmatch(text); m != nil {
		if t := strings.Trim(strings.TrimSpace(m[1]), `"'“”`); t != "" {
			return t, true
		}
	}
	return capitalizedRun(text)
}

// Quoted returns every quoted phrase in text in order.
func Quoted(text string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		if t := strings.TrimSpace(m[1]); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func capitalizedRun(text string) (string, bool) {
	words := strings.Fields(text)
	var run []string
	for i, w := range words {
		clean := strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if i > 0 && isTitleWord(clean) {
			run = append(run, clean)
			if strings.ContainsAny(w[len(w)-1:], ",.;:!?") {
				break
			}
			continue
		}
		if len(run) > 0 {
			break
		}
	}
	if len(run) == 0 {
		return "", false
	}
	return strings.Join(run, " "), true
}

func isTitleWord(w string) bool {
	if w == "" {
		return false
	}
	r := []rune(w)
	if !unicode.IsUpper(r[0]) {
		return false
	}
	lw := strings.ToLower(w)
	if titleStopwords[lw] {
		return false
	}
	if monthRe.MatchString(lw) || weekdayOnlyRe.MatchString(lw) {
		return false
	}
	if _, ok := zoneAbbrev[strings.ToUpper(w)]; ok {
		return false
	}
	return true
}

var (
	monthRe       = regexp.MustCompile(`^` + monthPattern + `$`)
	weekdayOnlyRe = regexp.MustCompile(`^` + weekdayPattern + `s?$`)
)
