package commands

import (
	"time"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
)

type Intent string

const (
	IntentCreate            Intent = "create"
	IntentCreateConstraint  Intent = "create_constraint"
	IntentCreateFromPlan    Intent = "create_from_template"
	IntentRename            Intent = "rename"
	IntentReschedule        Intent = "reschedule"
	IntentDelete            Intent = "delete"
	IntentRetrieve          Intent = "retrieve"
	IntentCount             Intent = "count"
	IntentFreeSlots         Intent = "free_slots"
	IntentConflicts         Intent = "conflicts"
	IntentRecurrencePreview Intent = "recurrence_preview"
	IntentRecurrenceCreate  Intent = "recurrence_create"
	IntentTemplateList      Intent = "template_list"

	IntentReminderCreate         Intent = "reminder_create"
	IntentReminderForAppointment Intent = "reminder_for_appointment"
	IntentReminderList           Intent = "reminder_list"
	IntentReminderUpdate         Intent = "reminder_update"
	IntentReminderSnooze         Intent = "reminder_snooze"
	IntentReminderToggle         Intent = "reminder_toggle"
	IntentReminderDelete         Intent = "reminder_delete"
	IntentReminderMarkDelivered  Intent = "reminder_mark_delivered"
	IntentRemindersDue           Intent = "reminders_due"
)

// Selector picks existing records for modify and delete intents. An ID wins
// over every other field; otherwise title, date and start narrow a search.
type Selector struct {
	ID    string      `json:"id,omitempty"`
	Title string      `json:"title,omitempty"`
	Date  *model.Date `json:"date,omitempty"`
	Start *int        `json:"start,omitempty"`
	All   bool        `json:"all,omitempty"`
}

func (s Selector) Empty() bool {
	return s.ID == "" && s.Title == "" && s.Date == nil && s.Start == nil
}

// Command is a fully structured request. Which fields matter depends on Intent.
type Command struct {
	Intent   Intent   `json:"intent"`
	Raw      string   `json:"raw,omitempty"`
	Selector Selector `json:"selector"`

	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Modality    model.Modality `json:"modality,omitempty"`
	Label       string         `json:"label,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`

	// Span is the requested block for create.
	Span *model.Span `json:"span,omitempty"`

	// Target fields for reschedule and create_constraint.
	Date     *model.Date `json:"date,omitempty"`
	Start    *int        `json:"start,omitempty"`
	End      *int        `json:"end,omitempty"`
	Duration int         `json:"duration,omitempty"`
	ShiftBy  int         `json:"shift_by,omitempty"`
	NewTitle string      `json:"new_title,omitempty"`

	Range  *model.DateRange `json:"range,omitempty"`
	Window *freeslot.Window `json:"window,omitempty"`
	Limit  int              `json:"limit,omitempty"`

	Recurrence *model.RecurrenceSpec `json:"recurrence,omitempty"`
	Template   string                `json:"template,omitempty"`

	TriggerAt        *time.Time    `json:"trigger_at,omitempty"`
	Lead             *int          `json:"lead,omitempty"`
	Minutes          int           `json:"minutes,omitempty"`
	Active           *bool         `json:"active,omitempty"`
	Channel          model.Channel `json:"channel,omitempty"`
	AppointmentID    string        `json:"appointment_id,omitempty"`
	AppointmentTitle string        `json:"appointment_title,omitempty"`
	DueOnly          bool          `json:"due_only,omitempty"`
	IDs              []string      `json:"ids,omitempty"`
}
