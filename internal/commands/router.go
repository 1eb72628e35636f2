package commands

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandeepkv93/schedd/internal/temporal"
)

// Rule is one entry of the routing table. Rules are tried in order and the
// first whose Match returns true builds the command.
type Rule struct {
	Name   string
	Intent Intent
	Match  func(text string) bool
	Build  func(r *Router, text string) (Command, error)
}

type Options struct {
	DefaultDuration int
	MinFreeDuration int
	HorizonWeeks    int
	SnoozeMinutes   int
	Templates       []string
}

func (o Options) withDefaults() Options {
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 60
	}
	if o.MinFreeDuration <= 0 {
		o.MinFreeDuration = 30
	}
	if o.HorizonWeeks <= 0 {
		o.HorizonWeeks = 4
	}
	if o.SnoozeMinutes <= 0 {
		o.SnoozeMinutes = 10
	}
	return o
}

// Router turns free text into a Command with an ordered rule table.
type Router struct {
	parser *temporal.Parser
	opts   Options
	rules  []Rule
}

func NewRouter(parser *temporal.Parser, opts Options) *Router {
	r := &Router{parser: parser, opts: opts.withDefaults()}
	r.rules = defaultRules(r.opts)
	return r
}

func (r *Router) Parser() *temporal.Parser { return r.parser }

// Rules returns the routing table in precedence order.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Classify returns the first rule matching text.
func (r *Router) Classify(text string) (Rule, bool) {
	t := normalizeText(text)
	for _, rule := range r.rules {
		if rule.Match(t) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Route classifies text and builds its command. Text no rule claims yields
// an unresolved_intent error for the caller to hand to a fallback.
func (r *Router) Route(ctx context.Context, text string) (Command, error) {
	if err := ctx.Err(); err != nil {
		return Command{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "input is empty"}
	}
	rule, ok := r.Classify(text)
	if !ok {
		return Command{}, Unresolved(text)
	}
	cmd, err := rule.Build(r, text)
	if err != nil {
		return Command{}, err
	}
	if cmd.Intent == "" {
		cmd.Intent = rule.Intent
	}
	cmd.Raw = text
	return cmd, nil
}

var (
	dueRemindersRe  = regexp.MustCompile(`\b(?:due|pending|overdue)\s+reminders?\b|\breminders?\s+(?:that\s+are\s+|are\s+)?(?:due|pending)\b`)
	snoozeRe        = regexp.MustCompile(`\bsnooze\b`)
	toggleRe        = regexp.MustCompile(`\b(?:pause|resume|enable|disable|toggle|turn\s+(?:on|off)|mute|unmute|activate|deactivate)\b.*\breminders?\b`)
	reminderDropRe  = regexp.MustCompile(`\b(?:delete|remove|cancel|clear|drop)\b.*\breminders?\b`)
	reminderAddRe   = regexp.MustCompile(`\b(?:remind|notify|alert|ping|nudge)\s+me\b|\b(?:set|add|create)\s+(?:a\s+|an\s+)?reminder\b`)
	reminderListRe  = regexp.MustCompile(`\b(?:show|list|what|which|view)\b.*\breminders\b|^reminders$`)
	previewRe       = regexp.MustCompile(`\b(?:preview|simulate|what\s+would|dry\s*run)\b`)
	freeRe          = regexp.MustCompile(`\b(?:free|available|availability|open\s+slots?|openings?|gaps?)\b`)
	conflictsRe     = regexp.MustCompile(`\b(?:conflicts?|conflicting|overlap(?:s|ping)?|double[\s-]?booked|clash(?:es)?)\b`)
	renameRe        = regexp.MustCompile(`\b(?:rename|retitle)\b|\bchange\s+(?:the\s+)?(?:title|name)\b`)
	rescheduleRe    = regexp.MustCompile(`\b(?:reschedule|move|push|shift|postpone|delay|bring\s+forward)\b`)
	deleteRe        = regexp.MustCompile(`\b(?:cancel|delete|remove|drop|clear|call\s+off)\b`)
	countRe         = regexp.MustCompile(`\bhow\s+many\b|\bcount\b|\bnumber\s+of\b`)
	templateRe      = regexp.MustCompile(`\btemplates?\b`)
	templateListRe  = regexp.MustCompile(`\b(?:list|show|which|what)\b.*\btemplates\b`)
	createVerbRe    = regexp.MustCompile(`\b(?:schedule|book|create|add|set\s+up|make|plan|arrange|put|block|reserve|find\s+time)\b`)
	createNounRe    = regexp.MustCompile(`\b(?:appointment|meeting|event|call|session|sync|lunch|dinner|breakfast|coffee|interview|review|standup|class|lesson|block|slot|time)s?\b`)
	leadingCreateRe = regexp.MustCompile(`^(?:please\s+|can\s+you\s+|could\s+you\s+)?(?:schedule|book|create|add|set\s+up|make|arrange|put|block|reserve)\b`)
	retrieveWordsRe = regexp.MustCompile(`\b(?:show|list|what|when|agenda|upcoming|display|view|see|do\s+i\s+have|anything|find|get|my\s+schedule|calendar)\b`)
)

func normalizeText(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.NewReplacer("–", "-", "—", "-", "’", "'").Replace(t)
	return strings.Join(strings.Fields(t), " ")
}

var repeatRe = regexp.MustCompile(`\b(?:every|each|weekly|biweekly|fortnightly|daily|recurring)\b`)

// recurringText yields to free_slots when an availability word is present.
func recurringText(t string) bool {
	return repeatRe.MatchString(t) && !freeRe.MatchString(t)
}

// editVerb matches a rename, move or delete verb unless the sentence opens
// with a create verb, where the word belongs to the new title.
func editVerb(re *regexp.Regexp) func(string) bool {
	return func(t string) bool {
		return re.MatchString(t) && !leadingCreateRe.MatchString(t)
	}
}

func defaultRules(opts Options) []Rule {
	templateNames := make([]string, 0, len(opts.Templates))
	for _, name := range opts.Templates {
		templateNames = append(templateNames, templatePattern(name))
	}
	var namedTemplateRe *regexp.Regexp
	if len(templateNames) > 0 {
		namedTemplateRe = regexp.MustCompile(`\b(?:` + strings.Join(templateNames, "|") + `)\b`)
	}

	return []Rule{
		{Name: "reminders_due", Intent: IntentRemindersDue, Match: dueRemindersRe.MatchString, Build: buildDue},
		{Name: "reminder_snooze", Intent: IntentReminderSnooze, Match: snoozeRe.MatchString, Build: buildSnooze},
		{Name: "reminder_toggle", Intent: IntentReminderToggle, Match: toggleRe.MatchString, Build: buildToggle},
		{Name: "reminder_delete", Intent: IntentReminderDelete, Match: reminderDropRe.MatchString, Build: buildReminderDelete},
		{Name: "reminder_create", Intent: IntentReminderCreate, Match: reminderAddRe.MatchString, Build: buildReminderCreate},
		{Name: "reminder_list", Intent: IntentReminderList, Match: reminderListRe.MatchString, Build: buildReminderList},
		{Name: "template_list", Intent: IntentTemplateList, Match: templateListRe.MatchString, Build: buildNothing},
		{
			Name:   "create_from_template",
			Intent: IntentCreateFromPlan,
			Match: func(t string) bool {
				return namedTemplateRe != nil && namedTemplateRe.MatchString(t) &&
					(templateRe.MatchString(t) || createVerbRe.MatchString(t))
			},
			Build: buildFromTemplate,
		},
		{
			Name:   "recurrence_preview",
			Intent: IntentRecurrencePreview,
			Match:  func(t string) bool { return previewRe.MatchString(t) && recurringText(t) },
			Build:  buildRecurrence,
		},
		{Name: "recurrence_create", Intent: IntentRecurrenceCreate, Match: recurringText, Build: buildRecurrence},
		{Name: "free_slots", Intent: IntentFreeSlots, Match: freeRe.MatchString, Build: buildFreeSlots},
		{Name: "conflicts", Intent: IntentConflicts, Match: conflictsRe.MatchString, Build: buildDayScope},
		{Name: "rename", Intent: IntentRename, Match: editVerb(renameRe), Build: buildRename},
		{Name: "reschedule", Intent: IntentReschedule, Match: editVerb(rescheduleRe), Build: buildReschedule},
		{Name: "delete", Intent: IntentDelete, Match: editVerb(deleteRe), Build: buildDelete},
		{Name: "count", Intent: IntentCount, Match: countRe.MatchString, Build: buildCount},
		{
			Name:   "create",
			Intent: IntentCreate,
			Match: func(t string) bool {
				return createVerbRe.MatchString(t) && (createNounRe.MatchString(t) || hasClock(t) || durationHintRe.MatchString(t))
			},
			Build: buildCreate,
		},
		{
			Name:   "retrieve",
			Intent: IntentRetrieve,
			Match: func(t string) bool {
				return retrieveWordsRe.MatchString(t) || hasDateWord(t) || limitRe.MatchString(t) || upcomingRe.MatchString(t)
			},
			Build: buildRetrieve,
		},
	}
}

var (
	clockHintRe    = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b|\b\d{1,2}:\d{2}\b|\bnoon\b|\bmidnight\b|\bat\s+\d{1,2}\b`)
	durationHintRe = regexp.MustCompile(`\b\d+\s*(?:minutes?|mins?|hours?|hrs?)\b|\b(?:an?|one|half\s+an?)\s+hour\b`)
	dateHintRe     = regexp.MustCompile(`\b(?:today|tomorrow|tonight|yesterday|this\s+week|next\s+week|this\s+month|next\s+month|next\s+\d+\s+days)\b|\b\d{4}-\d{2}-\d{2}\b`)
)

// templatePattern lets pitch_prep match "pitch prep" and "pitch-prep".
func templatePattern(name string) string {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, `[_\s-]`)
}

func hasClock(t string) bool    { return clockHintRe.MatchString(t) }
func hasDateWord(t string) bool { return dateHintRe.MatchString(t) }
