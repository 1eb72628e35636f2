package engine

import (
	"errors"
	"time"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/conflict"
	"github.com/sandeepkv93/schedd/internal/model"
	"github.com/sandeepkv93/schedd/internal/reminder"
	"github.com/sandeepkv93/schedd/internal/storage"
	"github.com/sandeepkv93/schedd/internal/templates"
)

// Result carries one response shape; bulk creates add Skipped.
type Result struct {
	Intent    commands.Intent `json:"intent,omitempty"`
	RequestID string          `json:"request_id,omitempty"`

	Appointments []model.Appointment `json:"appointments,omitempty"`
	Appointment  *model.Appointment  `json:"appointment,omitempty"`
	FreeSlots    []model.FreeSlot    `json:"free_slots,omitempty"`
	Proposals    []model.Span        `json:"proposals,omitempty"`
	Created      []model.Appointment `json:"created,omitempty"`
	Updated      []model.Appointment `json:"updated,omitempty"`
	Deleted      []string            `json:"deleted,omitempty"`
	Count        *int                `json:"count,omitempty"`
	Conflicts    []conflict.Overlap  `json:"conflicts,omitempty"`
	Preview      []model.Occurrence  `json:"preview,omitempty"`
	Reminder     *model.Reminder     `json:"reminder,omitempty"`
	Reminders    []ReminderView      `json:"reminders,omitempty"`
	Templates    []string            `json:"templates,omitempty"`
	Skipped      []conflict.Skipped  `json:"skipped,omitempty"`
	Unplaced     []templates.Step    `json:"unplaced,omitempty"`
	Message      string              `json:"message,omitempty"`
	Error        *ErrorInfo          `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Error == nil }

type ErrorInfo struct {
	Kind      string               `json:"kind"`
	Message   string               `json:"message"`
	Hint      string               `json:"hint,omitempty"`
	Proposals []model.Span         `json:"proposals,omitempty"`
	Conflicts []model.ConflictPair `json:"conflicts,omitempty"`
}

// ReminderView is a reminder with its state at the time of the request.
type ReminderView struct {
	model.Reminder
	State   reminder.State `json:"state"`
	FiresAt *time.Time     `json:"fires_at,omitempty"`
}

var invalidArgument = []error{
	model.ErrInvalidInterval,
	model.ErrInvalidDate,
	model.ErrInvalidModality,
	model.ErrInvalidChannel,
	model.ErrReminderBasis,
	reminder.ErrInvalidSnooze,
	templates.ErrUnknownTemplate,
}

func errorInfo(err error) *ErrorInfo {
	var ce *commands.CommandError
	if errors.As(err, &ce) {
		return &ErrorInfo{
			Kind:      string(ce.Code),
			Message:   ce.Message,
			Hint:      ce.Hint,
			Proposals: ce.Proposals,
			Conflicts: ce.Conflicts,
		}
	}
	kind := commands.ErrCodeInternal
	switch {
	case errors.Is(err, storage.ErrNotFound):
		kind = commands.ErrCodeNotFound
	case errors.Is(err, model.ErrInvalidRecurrence):
		kind = commands.ErrCodeInvalidRecurrence
	default:
		for _, target := range invalidArgument {
			if errors.Is(err, target) {
				kind = commands.ErrCodeInvalidArgument
				break
			}
		}
	}
	return &ErrorInfo{Kind: string(kind), Message: err.Error()}
}
