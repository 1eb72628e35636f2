package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/recurrence"
)

// Request is either free text in Query or a structured Action with its
// fields. Dates are YYYY-MM-DD, times HH:MM, trigger_at RFC 3339 or
// "YYYY-MM-DD HH:MM" in the engine's location.
type Request struct {
	Query  string `json:"query,omitempty"`
	Action string `json:"action,omitempty"`

	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	NewTitle    string `json:"new_title,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Modality    string `json:"modality,omitempty"`
	Label       string `json:"label,omitempty"`
	Timezone    string `json:"timezone,omitempty"`

	Date     string `json:"date,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Duration int    `json:"duration,omitempty"`
	ShiftBy  int    `json:"shift_by,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Window   string `json:"window,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	All      bool   `json:"all,omitempty"`

	Weekdays []string `json:"weekdays,omitempty"`
	Interval int      `json:"interval,omitempty"`
	Count    *int     `json:"count,omitempty"`
	Until    string   `json:"until,omitempty"`
	RRule    string   `json:"rrule,omitempty"`
	Template string   `json:"template,omitempty"`

	TriggerAt     string   `json:"trigger_at,omitempty"`
	Lead          *int     `json:"lead_minutes,omitempty"`
	Minutes       int      `json:"minutes,omitempty"`
	Active        *bool    `json:"active,omitempty"`
	Channel       string   `json:"channel,omitempty"`
	AppointmentID string   `json:"appointment_id,omitempty"`
	DueOnly       bool     `json:"due_only,omitempty"`
	IDs           []string `json:"ids,omitempty"`
}

// Actions lists every structured action the engine accepts.
var Actions = []commands.Intent{
	commands.IntentCreate,
	commands.IntentCreateConstraint,
	commands.IntentCreateFromPlan,
	commands.IntentRename,
	commands.IntentReschedule,
	commands.IntentDelete,
	commands.IntentRetrieve,
	commands.IntentCount,
	commands.IntentFreeSlots,
	commands.IntentConflicts,
	commands.IntentRecurrencePreview,
	commands.IntentRecurrenceCreate,
	commands.IntentTemplateList,
	commands.IntentReminderCreate,
	commands.IntentReminderForAppointment,
	commands.IntentReminderList,
	commands.IntentReminderUpdate,
	commands.IntentReminderSnooze,
	commands.IntentReminderToggle,
	commands.IntentReminderDelete,
	commands.IntentReminderMarkDelivered,
	commands.IntentRemindersDue,
}

func knownAction(a string) bool {
	for _, in := range Actions {
		if string(in) == a {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return commands.Errorf(commands.ErrCodeInvalidArgument, format, args...)
}

// fromRequest maps a structured request onto a command.
func (e *Engine) fromRequest(req Request) (commands.Command, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if !knownAction(action) {
		return commands.Command{}, commands.Errorf(commands.ErrCodeUnknownAction, "unknown action %q", req.Action)
	}
	cmd := commands.Command{
		Intent:        commands.Intent(action),
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Location:      req.Location,
		Modality:      model.Modality(strings.ToLower(req.Modality)),
		Label:         req.Label,
		Timezone:      req.Timezone,
		Duration:      req.Duration,
		ShiftBy:       req.ShiftBy,
		NewTitle:      strings.TrimSpace(req.NewTitle),
		Limit:         req.Limit,
		Template:      req.Template,
		Lead:          req.Lead,
		Minutes:       req.Minutes,
		Active:        req.Active,
		Channel:       model.Channel(strings.ToLower(req.Channel)),
		AppointmentID: req.AppointmentID,
		DueOnly:       req.DueOnly,
		IDs:           req.IDs,
	}
	if !cmd.Modality.IsValid() {
		return commands.Command{}, invalid("unknown modality %q", req.Modality)
	}
	if cmd.Channel != "" && !cmd.Channel.IsValid() {
		return commands.Command{}, invalid("unknown channel %q", req.Channel)
	}

	date, err := optDate(req.Date, "date")
	if err != nil {
		return commands.Command{}, err
	}
	start, err := optClock(req.Start, "start")
	if err != nil {
		return commands.Command{}, err
	}
	end, err := optClock(req.End, "end")
	if err != nil {
		return commands.Command{}, err
	}
	rg, err := optRange(req.From, req.To)
	if err != nil {
		return commands.Command{}, err
	}
	if req.Window != "" {
		w, err := freeslot.ParseWindow(req.Window)
		if err != nil {
			return commands.Command{}, invalid("%v", err)
		}
		cmd.Window = &w
	}
	if req.TriggerAt != "" {
		at, err := e.parseInstant(req.TriggerAt)
		if err != nil {
			return commands.Command{}, err
		}
		cmd.TriggerAt = &at
	}

	switch cmd.Intent {
	case commands.IntentCreate:
		if date == nil || start == nil {
			return commands.Command{}, invalid("create needs date and start")
		}
		span := model.SpanFor(*date, *start, e.orDefault(req.Duration))
		if end != nil {
			span.End = *end
		}
		cmd.Span = &span

	case commands.IntentCreateConstraint:
		if date == nil {
			return commands.Command{}, invalid("create_constraint needs a date")
		}
		cmd.Date = date
		cmd.Duration = e.orDefault(req.Duration)

	case commands.IntentCreateFromPlan:
		cmd.Date = date

	case commands.IntentRename, commands.IntentDelete:
		cmd.Selector = commands.Selector{ID: req.ID, Title: cmd.Title, Date: date, Start: start, All: req.All}
		cmd.Title = ""
		cmd.Range = rg

	case commands.IntentReschedule:
		cmd.Selector = commands.Selector{ID: req.ID, Title: cmd.Title}
		cmd.Title = ""
		cmd.Date, cmd.Start, cmd.End = date, start, end

	case commands.IntentRetrieve, commands.IntentCount, commands.IntentFreeSlots, commands.IntentConflicts:
		switch {
		case rg != nil:
			cmd.Range = rg
		case date != nil:
			cmd.Range = &model.DateRange{From: *date, To: *date}
		case cmd.Intent != commands.IntentCount:
			today := e.today()
			cmd.Range = &model.DateRange{From: today, To: today}
		}
		if cmd.Intent == commands.IntentFreeSlots && cmd.Duration <= 0 {
			cmd.Duration = e.opts.MinFreeDuration
		}

	case commands.IntentRecurrencePreview, commands.IntentRecurrenceCreate:
		spec, err := e.recurrenceSpec(req, date, start, rg)
		if err != nil {
			return commands.Command{}, err
		}
		cmd.Recurrence = &spec

	case commands.IntentReminderCreate:
		if cmd.TriggerAt == nil && cmd.AppointmentID == "" {
			return commands.Command{}, invalid("reminder_create needs trigger_at or appointment_id")
		}

	case commands.IntentReminderForAppointment:
		cmd.Selector = commands.Selector{ID: req.AppointmentID, Title: cmd.Title, Date: date, Start: start}
		if req.AppointmentID != "" {
			cmd.Selector.Title = ""
		}

	case commands.IntentReminderUpdate, commands.IntentReminderSnooze,
		commands.IntentReminderToggle, commands.IntentReminderDelete:
		if req.ID == "" && cmd.Title == "" {
			return commands.Command{}, invalid("%s needs an id or a title", action)
		}
		cmd.Selector = commands.Selector{ID: req.ID}
		if req.ID == "" {
			cmd.Selector.Title = cmd.Title
			cmd.Title = ""
		}

	case commands.IntentReminderMarkDelivered:
		if req.ID != "" {
			cmd.IDs = append(cmd.IDs, req.ID)
		}
		if len(cmd.IDs) == 0 {
			return commands.Command{}, invalid("reminder_mark_delivered needs ids")
		}
	}
	return cmd, nil
}

func (e *Engine) orDefault(duration int) int {
	if duration > 0 {
		return duration
	}
	return e.opts.DefaultDuration
}

func (e *Engine) recurrenceSpec(req Request, date *model.Date, start *int, rg *model.DateRange) (model.RecurrenceSpec, error) {
	if start == nil {
		return model.RecurrenceSpec{}, commands.InvalidRecurrence(fmt.Errorf("%w: start is required", model.ErrInvalidRecurrence))
	}
	from := e.today()
	if date != nil {
		from = *date
	}
	duration := e.orDefault(req.Duration)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Appointment"
	}

	var spec model.RecurrenceSpec
	if req.RRule != "" {
		parsed, err := recurrence.FromRRule(req.RRule, from, *start, duration, title)
		if err != nil {
			return model.RecurrenceSpec{}, commands.InvalidRecurrence(err)
		}
		spec = parsed
	} else {
		spec = model.RecurrenceSpec{
			Start:    *start,
			Duration: duration,
			Interval: max(req.Interval, 1),
			From:     from,
			Title:    title,
		}
		if req.Count != nil {
			if *req.Count <= 0 {
				return model.RecurrenceSpec{}, commands.InvalidRecurrence(fmt.Errorf("%w: count must be positive, got %d", model.ErrInvalidRecurrence, *req.Count))
			}
			spec.Count = *req.Count
		}
		for _, name := range req.Weekdays {
			d, ok := parseWeekday(name)
			if !ok {
				return model.RecurrenceSpec{}, commands.InvalidRecurrence(fmt.Errorf("%w: unknown weekday %q", model.ErrInvalidRecurrence, name))
			}
			spec.Weekdays = append(spec.Weekdays, d)
		}
		if len(spec.Weekdays) == 0 {
			spec.Weekdays = []time.Weekday{from.Weekday()}
		}
		until, err := optDate(req.Until, "until")
		if err != nil {
			return model.RecurrenceSpec{}, err
		}
		spec.Until = until
		spec.Range = rg
		if spec.Count == 0 && spec.Until == nil && spec.Range == nil {
			spec.Count = min(e.opts.HorizonWeeks*len(spec.Weekdays), model.MaxOccurrences)
		}
	}
	if err := spec.Validate(); err != nil {
		return model.RecurrenceSpec{}, commands.InvalidRecurrence(err)
	}
	return spec, nil
}

var weekdayNames = map[string]time.Weekday{
	"su": time.Sunday, "sun": time.Sunday, "sunday": time.Sunday,
	"mo": time.Monday, "mon": time.Monday, "monday": time.Monday,
	"tu": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"we": time.Wednesday, "wed": time.Wednesday, "wednesday": time.Wednesday,
	"th": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fr": time.Friday, "fri": time.Friday, "friday": time.Friday,
	"sa": time.Saturday, "sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

func optDate(s, field string) (*model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return nil, invalid("%s: %v", field, err)
	}
	return &d, nil
}

func optClock(s, field string) (*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	m, err := model.ParseClock(strings.TrimSpace(s))
	if err != nil {
		return nil, invalid("%s: %v", field, err)
	}
	return &m, nil
}

func optRange(from, to string) (*model.DateRange, error) {
	f, err := optDate(from, "from")
	if err != nil {
		return nil, err
	}
	t, err := optDate(to, "to")
	if err != nil {
		return nil, err
	}
	switch {
	case f == nil && t == nil:
		return nil, nil
	case f == nil:
		f = t
	case t == nil:
		t = f
	}
	if t.Before(*f) {
		return nil, invalid("range ends before it starts")
	}
	return &model.DateRange{From: *f, To: *t}, nil
}

func (e *Engine) parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, e.opts.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("trigger_at %q is not a timestamp", s)
}
