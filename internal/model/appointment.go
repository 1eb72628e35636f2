package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidModality = errors.New("model: invalid modality")

type Modality string

const (
	ModalityNone     Modality = ""
	ModalityInPerson Modality = "in-person"
	ModalityZoom     Modality = "zoom"
	ModalityPhone    Modality = "phone"
	ModalityVideo    Modality = "video"
)

func (m Modality) IsValid() bool {
	switch m {
	case ModalityNone, ModalityInPerson, ModalityZoom, ModalityPhone, ModalityVideo:
		return true
	default:
		return false
	}
}

// Appointment is one single-day block. A cross-midnight booking is stored as
// two appointments; the second carries LinkedID pointing at the first.
type Appointment struct {
	ID             string    `json:"id"`
	Date           Date      `json:"date"`
	Start          int       `json:"start"`
	End            int       `json:"end"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	Modality       Modality  `json:"modality,omitempty"`
	Label          string    `json:"label,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`
	RecurrenceRule string    `json:"recurrence_rule,omitempty"`
	SeriesID       string    `json:"series_id,omitempty"`
	LinkedID       string    `json:"linked_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (a Appointment) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("model: appointment id is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("model: appointment title is required")
	}
	if err := a.Interval().Validate(); err != nil {
		return err
	}
	if !a.Modality.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidModality, a.Modality)
	}
	return nil
}

func (a Appointment) Interval() TimeInterval {
	return TimeInterval{Date: a.Date, Start: a.Start, End: a.End}
}

func (a Appointment) Span() Span {
	end := a.End
	if end == MinutesPerDay {
		end = 0
	}
	return Span{Date: a.Date, Start: a.Start, End: end}
}

func (a Appointment) Duration() int { return a.End - a.Start }

// Occurrence is one concrete instance of a recurrence or plan before it is persisted.
type Occurrence struct {
	Anchor Date   `json:"date"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Title  string `json:"title"`

	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Modality    Modality `json:"modality,omitempty"`
	Label       string   `json:"label,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Rule        string   `json:"rule,omitempty"`
	SeriesID    string   `json:"series_id,omitempty"`
}

func (o Occurrence) Span() Span {
	return Span{Date: o.Anchor, Start: o.Start, End: o.End}
}

// Appointments splits the occurrence into its single-day pieces. IDs and
// link are left for the persistence layer to fill.
func (o Occurrence) Appointments() []Appointment {
	segs := o.Span().Segments()
	out := make([]Appointment, 0, len(segs))
	for _, seg := range segs {
		out = append(out, Appointment{
			Date:           seg.Date,
			Start:          seg.Start,
			End:            seg.End,
			Title:          o.Title,
			Description:    o.Description,
			Location:       o.Location,
			Modality:       o.Modality,
			Label:          o.Label,
			Timezone:       o.Timezone,
			RecurrenceRule: o.Rule,
			SeriesID:       o.SeriesID,
		})
	}
	return out
}
