package commands

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/temporal"
)

var (
	idRe        = regexp.MustCompile(`\b[0-9A-HJKMNP-TV-Za-hjkmnp-tv-z]{26}\b`)
	verbRe      = regexp.MustCompile(`(?i)\b(?:rename|retitle|reschedule|move|push(?:\s+back)?|shift|postpone|delay|bring\s+forward|cancel|delete|remove|drop|clear|call\s+off|snooze|pause|resume|enable|disable|toggle|turn\s+(?:on|off)|mute|unmute|activate|deactivate)\s+(.+)$`)
	renameToRe  = regexp.MustCompile(`(?i)\b(?:rename|retitle)\s+(.+?)\s+(?:to|as|into)\s+(.+?)\s*$`)
	changeToRe  = regexp.MustCompile(`(?i)\bchange\s+(?:the\s+)?(?:title|name)\s+(?:of\s+)?(.+?)\s+to\s+(.+?)\s*$`)
	targetRe    = regexp.MustCompile(`(?i)\s+(?:to|for|until)\s+`)
	shiftByRe   = regexp.MustCompile(`(?i)\bby\s+(.+)$`)
	earlierRe   = regexp.MustCompile(`(?i)\b(?:earlier|forward|sooner|up)\b`)
	inMinutesRe = regexp.MustCompile(`(?i)\bin\s+(\d{1,4}|an?|one|two|three|four|five|ten|fifteen|twenty|thirty)\s*(minutes?|mins?|hours?|hrs?)\b`)
	remindToRe  = regexp.MustCompile(`(?i)\b(?:remind|notify|alert|ping|nudge)\s+me\s+(?:to|about|of|that)\s+(.+?)(?:\s+(?:at|on|tomorrow|today|tonight|in|by|next|this|every|before|from)\b|\s+\d|[,.;!?]|$)`)
	beforeRe    = regexp.MustCompile(`(?i)\bbefore\s+(?:my\s+|the\s+|our\s+)?(.+?)(?:\s+(?:on|at|tomorrow|today|tonight|next|this)\b|[,.;!?]|$)`)
	limitRe     = regexp.MustCompile(`(?i)\b(?:next|upcoming|first)\s+(\d{1,3})\s+(?:appointments|meetings|events|items)\b`)
	upcomingRe  = regexp.MustCompile(`(?i)\b(?:upcoming|coming\s+up)\b`)
	allRe       = regexp.MustCompile(`(?i)\b(?:all|every|everything)\b`)
	activeRe    = regexp.MustCompile(`(?i)\b(?:active|enabled)\b`)
	inactiveRe  = regexp.MustCompile(`(?i)\b(?:paused|inactive|disabled|muted)\b`)
	offRe       = regexp.MustCompile(`(?i)\b(?:pause|disable|turn\s+off|mute|deactivate)\b`)
	onRe        = regexp.MustCompile(`(?i)\b(?:resume|enable|turn\s+on|unmute|activate)\b`)
	startingRe  = regexp.MustCompile(`(?i)\b(?:starting|beginning|from|effective|as\s+of)\b`)
	aboutRe     = regexp.MustCompile(`(?i)\breminders?\s+(?:for|about|of)\s+(.+)$`)
	nounRe      = regexp.MustCompile(`(?i)\b(appointment|meeting|event|call|session|sync|lunch|dinner|breakfast|coffee|interview|review|standup|class|lesson)s?\b`)
)

var stopWords = map[string]bool{
	"on": true, "at": true, "from": true, "to": true, "for": true, "by": true,
	"until": true, "till": true, "tomorrow": true, "today": true, "tonight": true,
	"next": true, "this": true, "between": true, "in": true, "and": true, "with": true,
	"back": true, "later": true, "earlier": true, "after": true, "before": true,
	"reminder": true, "reminders": true,
}

var leadWords = map[string]bool{"my": true, "the": true, "a": true, "an": true, "our": true, "all": true, "every": true, "everything": true}

var trailingNouns = map[string]bool{
	"appointment": true, "appointments": true, "meeting": true, "meetings": true,
	"event": true, "events": true,
}

var titleCase = cases.Title(language.English)

func (r *Router) slots(text string) temporal.Slots {
	s := r.parser.Extract(text)
	if s.Zone != nil && s.Start != nil {
		d := r.parser.Today()
		if s.Date != nil {
			d = *s.Date
		}
		nd, start := r.parser.Shift(d, *s.Start, s.Zone)
		if s.End != nil && !s.OpenEnded {
			_, end := r.parser.Shift(d, *s.End, s.Zone)
			s.End = &end
		}
		s.Start, s.Date = &start, &nd
	}
	return s
}

// cleanPhrase keeps the leading words of phrase that name a record, stopping
// at the first temporal or connective word.
func cleanPhrase(phrase string) string {
	if q := temporal.Quoted(phrase); len(q) > 0 {
		return q[0]
	}
	var keep []string
	for i, w := range strings.Fields(phrase) {
		lw := strings.ToLower(strings.Trim(w, `,.;:!?"'`))
		if lw == "" {
			continue
		}
		if len(keep) == 0 && leadWords[lw] && i < 3 {
			continue
		}
		if stopWords[lw] || isTemporalWord(lw) {
			break
		}
		keep = append(keep, strings.Trim(w, `,.;:!?"'`))
		if strings.ContainsAny(w, ",.;!?") {
			break
		}
	}
	for len(keep) > 1 && trailingNouns[strings.ToLower(keep[len(keep)-1])] {
		keep = keep[:len(keep)-1]
	}
	if len(keep) == 1 && trailingNouns[strings.ToLower(keep[0])] {
		return ""
	}
	return strings.Join(keep, " ")
}

var temporalWordRe = regexp.MustCompile(`^(?:\d.*|noon|midnight|(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(?:day)?s?|wednesday|thursday|saturday|tuesday|jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t|tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)$`)

func isTemporalWord(w string) bool { return temporalWordRe.MatchString(w) }

// selectorTitle names the record a modify verb acts on.
func selectorTitle(text string) string {
	if q := temporal.Quoted(text); len(q) > 0 {
		return q[0]
	}
	m := verbRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return cleanPhrase(m[1])
}

func (r *Router) selector(text string, s temporal.Slots) Selector {
	sel := Selector{Title: selectorTitle(text), Date: s.Date, Start: s.Start}
	if id := idRe.FindString(text); id != "" {
		sel.ID = strings.ToUpper(id)
		sel.Title = ""
	}
	return sel
}

// defaultTitle falls back to the first scheduling noun in text.
func defaultTitle(text, s string, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	if obj := createObject(text); obj != "" {
		return titleCase.String(strings.ToLower(obj))
	}
	if m := nounRe.FindStringSubmatch(text); m != nil {
		return titleCase.String(strings.ToLower(m[1]))
	}
	return fallback
}

var (
	createObjectRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:schedule|book|create|add|set\s+up|make|arrange|reserve)\s+(?:(?:a|an|my|our|some)\s+)?(.+)$`)
	calendarWordRe = regexp.MustCompile(`^(?:(?:mon|tues|wednes|thurs|fri|satur|sun)days?|mon|tue|wed|thu|fri|sat|sun|january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)$`)
)

var objectStops = map[string]bool{
	"the": true, "noon": true, "midnight": true, "morning": true, "afternoon": true,
	"evening": true, "night": true, "week": true, "month": true, "weekend": true,
	"titled": true, "called": true, "named": true, "via": true, "about": true,
	"every": true, "each": true, "around": true, "starting": true, "lasting": true,
}

// createObject returns the words after a leading create verb up to the first
// date, time or connective, so "schedule dentist the 28th" yields "dentist".
func createObject(text string) string {
	m := createObjectRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}
	var words []string
	for _, w := range strings.Fields(m[1]) {
		clean := strings.Trim(w, ",.;:!?\"'")
		lw := strings.ToLower(clean)
		if lw == "" || stopWords[lw] || objectStops[lw] || calendarWordRe.MatchString(lw) || unicode.IsDigit(rune(lw[0])) {
			break
		}
		words = append(words, clean)
		if len(words) == 4 || strings.ContainsAny(w[len(w)-1:], ",.;:!?") {
			break
		}
	}
	return strings.Join(words, " ")
}

func modalityOf(text string) model.Modality {
	t := normalizeText(text)
	switch {
	case temporal.HasAny(t, "zoom"):
		return model.ModalityZoom
	case temporal.HasAny(t, "video call", "video", "google meet", "teams"):
		return model.ModalityVideo
	case temporal.HasAny(t, "phone", "phone call", "by phone"):
		return model.ModalityPhone
	case temporal.HasAny(t, "in person", "in-person", "face to face"):
		return model.ModalityInPerson
	default:
		return model.ModalityNone
	}
}

func dayScope(r *Router, s temporal.Slots) *model.DateRange {
	switch {
	case s.Range != nil:
		rg := *s.Range
		return &rg
	case s.Date != nil:
		return &model.DateRange{From: *s.Date, To: *s.Date}
	default:
		today := r.parser.Today()
		return &model.DateRange{From: today, To: today}
	}
}

func timeWindow(r *Router, text string, s temporal.Slots) *freeslot.Window {
	if s.Start != nil && s.End != nil {
		w := freeslot.Window{Start: *s.Start, End: *s.End}
		return &w
	}
	if w, ok := r.parser.Window(text); ok {
		return &w
	}
	return nil
}

func buildNothing(*Router, string) (Command, error) { return Command{}, nil }

func buildDue(*Router, string) (Command, error) {
	return Command{DueOnly: true}, nil
}

func buildCreate(r *Router, text string) (Command, error) {
	s := r.slots(text)
	cmd := Command{
		Title:    defaultTitle(text, s.Title, "Appointment"),
		Modality: modalityOf(text),
		Lead:     s.Lead,
	}
	if s.Zone != nil {
		cmd.Timezone = s.Zone.String()
	}
	date := r.parser.Today()
	if s.Date != nil {
		date = *s.Date
	}

	dur := r.opts.DefaultDuration
	if s.Duration != nil {
		dur = *s.Duration
	}
	constrained := s.Start == nil || s.OpenEnded
	if !constrained && s.End != nil {
		span := model.Span{Start: *s.Start, End: *s.End}
		constrained = s.Duration != nil && *s.Duration < span.Duration()
	}
	if constrained {
		if s.Start == nil && s.Duration == nil {
			if _, ok := r.parser.Window(text); !ok {
				return Command{}, Errorf(ErrCodeInvalidArgument, "create needs a start time, a duration or a part of day")
			}
		}
		cmd.Intent = IntentCreateConstraint
		cmd.Date = &date
		cmd.Duration = dur
		cmd.Window = timeWindow(r, text, s)
		if s.Range != nil {
			rg := *s.Range
			cmd.Range = &rg
		}
		return cmd, nil
	}

	span := model.SpanFor(date, *s.Start, dur)
	if s.End != nil {
		span = model.Span{Date: date, Start: *s.Start, End: *s.End}
	}
	if span.Start == span.End {
		return Command{}, Errorf(ErrCodeInvalidArgument, "appointment has zero length")
	}
	cmd.Span = &span
	cmd.Duration = span.Duration()
	return cmd, nil
}

func buildRename(r *Router, text string) (Command, error) {
	var oldPart, newPart string
	if q := temporal.Quoted(text); len(q) >= 2 {
		oldPart, newPart = `"`+q[0]+`"`, q[1]
	} else if m := renameToRe.FindStringSubmatch(text); m != nil {
		oldPart, newPart = m[1], m[2]
	} else if m := changeToRe.FindStringSubmatch(text); m != nil {
		oldPart, newPart = m[1], m[2]
	} else {
		return Command{}, Errorf(ErrCodeInvalidArgument, "rename needs an old and a new title")
	}
	newTitle := strings.Trim(strings.TrimSpace(newPart), `"'.!?`)
	if newTitle == "" {
		return Command{}, Errorf(ErrCodeInvalidArgument, "new title is empty")
	}
	s := r.slots(oldPart)
	sel := Selector{Title: cleanPhrase(oldPart), Date: s.Date, Start: s.Start}
	if id := idRe.FindString(oldPart); id != "" {
		sel = Selector{ID: strings.ToUpper(id)}
	}
	return Command{Selector: sel, NewTitle: newTitle}, nil
}

func buildReschedule(r *Router, text string) (Command, error) {
	if loc := shiftByRe.FindStringSubmatchIndex(text); loc != nil {
		if d, ok := r.parser.Duration(text[loc[2]:loc[3]]); ok {
			head := text[:loc[0]]
			s := r.slots(head)
			delta := d
			if earlierRe.MatchString(text) {
				delta = -d
			}
			return Command{Selector: r.selector(head, s), ShiftBy: delta}, nil
		}
	}

	head, tail := text, ""
	locs := targetRe.FindAllStringIndex(text, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		candidate := text[locs[i][1]:]
		ts := r.slots(candidate)
		if ts.Date != nil || ts.Start != nil {
			head, tail = text[:locs[i][0]], candidate
			break
		}
	}
	if tail == "" {
		return Command{}, Errorf(ErrCodeInvalidArgument, "reschedule needs a new date or time")
	}
	hs := r.slots(head)
	ts := r.slots(tail)
	cmd := Command{Selector: r.selector(head, hs), Date: ts.Date, Start: ts.Start}
	if ts.End != nil && !ts.OpenEnded {
		cmd.End = ts.End
	}
	if ts.Duration != nil {
		cmd.Duration = *ts.Duration
	}
	return cmd, nil
}

func buildDelete(r *Router, text string) (Command, error) {
	s := r.slots(text)
	sel := r.selector(text, s)
	if verb := verbRe.FindStringSubmatch(text); verb != nil {
		if f := strings.Fields(verb[1]); len(f) > 0 {
			sel.All = allRe.MatchString(f[0])
		}
	}
	cmd := Command{Selector: sel}
	if s.Range != nil {
		rg := *s.Range
		cmd.Range = &rg
		cmd.Selector.Date = nil
	}
	if sel.Empty() && cmd.Range == nil {
		return Command{}, Errorf(ErrCodeInvalidArgument, "delete needs a title, a date or an id")
	}
	return cmd, nil
}

func buildCount(r *Router, text string) (Command, error) {
	s := r.slots(text)
	cmd := Command{Range: s.Range}
	if s.Range == nil && s.Date != nil {
		cmd.Range = &model.DateRange{From: *s.Date, To: *s.Date}
	}
	if q := temporal.Quoted(text); len(q) > 0 {
		cmd.Title = q[0]
	}
	return cmd, nil
}

func buildRetrieve(r *Router, text string) (Command, error) {
	s := r.slots(text)
	cmd := Command{Window: timeWindow(r, text, s)}
	today := r.parser.Today()
	switch {
	case s.Range != nil:
		rg := *s.Range
		cmd.Range = &rg
	case s.Date != nil:
		cmd.Range = &model.DateRange{From: *s.Date, To: *s.Date}
	case upcomingRe.MatchString(text) || limitRe.MatchString(text):
		cmd.Range = &model.DateRange{From: today, To: today.AddDays(30)}
	default:
		cmd.Range = &model.DateRange{From: today, To: today}
	}
	if m := limitRe.FindStringSubmatch(text); m != nil {
		fmt.Sscanf(m[1], "%d", &cmd.Limit)
	}
	if q := temporal.Quoted(text); len(q) > 0 {
		cmd.Title = q[0]
	}
	return cmd, nil
}

func buildFreeSlots(r *Router, text string) (Command, error) {
	s := r.slots(text)
	cmd := Command{Range: dayScope(r, s), Window: timeWindow(r, text, s), Duration: r.opts.MinFreeDuration}
	if d, ok := r.parser.Duration(text); ok {
		cmd.Duration = d
	}
	return cmd, nil
}

func buildDayScope(r *Router, text string) (Command, error) {
	return Command{Range: dayScope(r, r.slots(text))}, nil
}

func buildRecurrence(r *Router, text string) (Command, error) {
	s := r.slots(text)
	if s.Start == nil {
		return Command{}, Errorf(ErrCodeInvalidRecurrence, "recurring series needs a start time")
	}
	today := r.parser.Today()
	spec := model.RecurrenceSpec{
		Weekdays: s.Weekdays,
		Start:    *s.Start,
		Duration: r.opts.DefaultDuration,
		Interval: s.Interval,
		From:     today,
		Title:    defaultTitle(text, s.Title, "Recurring event"),
	}
	if s.Duration != nil {
		spec.Duration = *s.Duration
	}
	if s.Date != nil && startingRe.MatchString(text) && (s.Until == nil || *s.Date != *s.Until) && s.Date.After(today) {
		spec.From = *s.Date
	}
	if len(spec.Weekdays) == 0 {
		spec.Weekdays = []time.Weekday{spec.From.Weekday()}
	}
	switch {
	case s.Count != nil:
		if *s.Count <= 0 {
			return Command{}, Errorf(ErrCodeInvalidRecurrence, "occurrence count must be positive, got %d", *s.Count)
		}
		spec.Count = *s.Count
	case s.CountWeeks != nil:
		if *s.CountWeeks <= 0 {
			return Command{}, Errorf(ErrCodeInvalidRecurrence, "week count must be positive, got %d", *s.CountWeeks)
		}
		cycles := (*s.CountWeeks + spec.Interval - 1) / spec.Interval
		spec.Count = min(cycles*len(spec.Weekdays), model.MaxOccurrences)
	case s.Until != nil:
		u := *s.Until
		spec.Until = &u
	case s.Range != nil:
		rg := *s.Range
		spec.Range = &rg
	default:
		cycles := (r.opts.HorizonWeeks + spec.Interval - 1) / spec.Interval
		spec.Count = min(cycles*len(spec.Weekdays), model.MaxOccurrences)
	}
	if err := spec.Validate(); err != nil {
		return Command{}, InvalidRecurrence(err)
	}
	return Command{Recurrence: &spec, Title: spec.Title}, nil
}

func buildFromTemplate(r *Router, text string) (Command, error) {
	t := normalizeText(text)
	for _, name := range r.opts.Templates {
		re := regexp.MustCompile(`\b` + templatePattern(name) + `\b`)
		if !re.MatchString(t) {
			continue
		}
		s := r.slots(text)
		date := r.parser.Today()
		if s.Date != nil {
			date = *s.Date
		}
		return Command{Template: name, Date: &date}, nil
	}
	return Command{}, Errorf(ErrCodeInvalidArgument, "no known template named in %q", text)
}

func buildReminderCreate(r *Router, text string) (Command, error) {
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, "remind"); idx > 0 && createVerbRe.MatchString(normalizeText(text[:idx])) {
		cmd, err := buildCreate(r, text[:idx])
		if err != nil {
			return Command{}, err
		}
		if cmd.Lead == nil {
			if l, ok := r.parser.Lead(text[idx:]); ok {
				cmd.Lead = &l
			}
		}
		if cmd.Intent == "" {
			cmd.Intent = IntentCreate
		}
		return cmd, nil
	}

	s := r.slots(text)
	title := ""
	if m := remindToRe.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
	}
	cmd := Command{Channel: model.ChannelInApp}

	if s.Lead != nil {
		if m := beforeRe.FindStringSubmatch(text); m != nil {
			target := cleanPhrase(m[1])
			if q := temporal.Quoted(m[1]); len(q) > 0 {
				target = q[0]
			}
			if target != "" {
				cmd.Lead = s.Lead
				cmd.AppointmentTitle = target
				cmd.Title = title
				return cmd, nil
			}
		}
	}
	if title == "" {
		title = defaultTitle(text, s.Title, "Reminder")
	}
	cmd.Title = title

	if m := inMinutesRe.FindStringSubmatch(text); m != nil {
		n, unit := countOf(m[1]), strings.ToLower(m[2])
		d := time.Duration(n) * time.Minute
		if strings.HasPrefix(unit, "h") {
			d = time.Duration(n) * time.Hour
		}
		at := r.parser.Now().Add(d)
		cmd.TriggerAt = &at
		return cmd, nil
	}

	if s.Start == nil && s.Date == nil {
		return Command{}, Errorf(ErrCodeInvalidArgument, "reminder needs a time, a delay or an appointment to precede")
	}
	date := r.parser.Today()
	if s.Date != nil {
		date = *s.Date
	}
	start := 9 * 60
	if s.Start != nil {
		start = *s.Start
	}
	at := date.At(start, r.parser.Location())
	cmd.TriggerAt = &at
	return cmd, nil
}

func countOf(s string) int {
	switch strings.ToLower(s) {
	case "a", "an", "one":
		return 1
	case "two":
		return 2
	case "three":
		return 3
	case "four":
		return 4
	case "five":
		return 5
	case "ten":
		return 10
	case "fifteen":
		return 15
	case "twenty":
		return 20
	case "thirty":
		return 30
	}
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

func reminderSelector(text string) Selector {
	if id := idRe.FindString(text); id != "" {
		return Selector{ID: strings.ToUpper(id)}
	}
	title := selectorTitle(text)
	if title == "" {
		if m := aboutRe.FindStringSubmatch(text); m != nil {
			title = cleanPhrase(m[1])
		}
	}
	return Selector{Title: title}
}

func buildSnooze(r *Router, text string) (Command, error) {
	cmd := Command{Selector: reminderSelector(text), Minutes: r.opts.SnoozeMinutes}
	if d, ok := r.parser.Duration(text); ok {
		cmd.Minutes = d
	}
	return cmd, nil
}

func buildToggle(_ *Router, text string) (Command, error) {
	cmd := Command{Selector: reminderSelector(text)}
	switch {
	case offRe.MatchString(text):
		v := false
		cmd.Active = &v
	case onRe.MatchString(text):
		v := true
		cmd.Active = &v
	}
	return cmd, nil
}

func buildReminderDelete(_ *Router, text string) (Command, error) {
	sel := reminderSelector(text)
	if sel.Empty() {
		return Command{}, Errorf(ErrCodeInvalidArgument, "reminder delete needs an id or a title")
	}
	return Command{Selector: sel}, nil
}

func buildReminderList(_ *Router, text string) (Command, error) {
	cmd := Command{}
	switch {
	case inactiveRe.MatchString(text):
		v := false
		cmd.Active = &v
	case activeRe.MatchString(text):
		v := true
		cmd.Active = &v
	}
	return cmd, nil
}
