package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidChannel = errors.New("model: invalid reminder channel")
	ErrReminderBasis  = errors.New("model: reminder needs a trigger time or an appointment with a lead")
)

type Channel string

const (
	ChannelInApp   Channel = "inapp"
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS, ChannelWebhook:
		return true
	default:
		return false
	}
}

// Reminder fires either at TriggerAt or LeadMinutes before its appointment
// starts. TriggerAt wins when both are set, which is how snooze works on a
// lead-based reminder.
type Reminder struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointment_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	TriggerAt     *time.Time `json:"trigger_at,omitempty"`
	LeadMinutes   int        `json:"lead_minutes,omitempty"`
	Channel       Channel    `json:"channel"`
	Active        bool       `json:"active"`
	Delivered     bool       `json:"delivered"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("model: reminder title is required")
	}
	if !r.Channel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, r.Channel)
	}
	if r.LeadMinutes < 0 {
		return fmt.Errorf("model: reminder lead must not be negative: %d", r.LeadMinutes)
	}
	if r.TriggerAt == nil && strings.TrimSpace(r.AppointmentID) == "" {
		return ErrReminderBasis
	}
	return nil
}

// Relative reports whether the trigger is derived from the appointment.
func (r Reminder) Relative() bool {
	return r.TriggerAt == nil && r.AppointmentID != ""
}
