package model

import (
	"errors"
	"testing"
	"time"
)

func TestAppointmentValidate(t *testing.T) {
	a := Appointment{ID: "a1", Title: "Dentist", Date: NewDate(2025, time.May, 2), Start: 540, End: 600, Modality: ModalityInPerson}
	if err := a.Validate(); err != nil {
		t.Fatalf("expected valid appointment, got %v", err)
	}
	a.End = 540
	if err := a.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	a.End = 600
	a.Modality = "carrier pigeon"
	if err := a.Validate(); !errors.Is(err, ErrInvalidModality) {
		t.Fatalf("expected ErrInvalidModality, got %v", err)
	}
}

func TestOccurrenceAppointmentsSplitAcrossMidnight(t *testing.T) {
	o := Occurrence{Anchor: NewDate(2025, time.May, 2), Start: 22 * 60, End: 60, Title: "Night shift"}
	parts := o.Appointments()
	if len(parts) != 2 {
		t.Fatalf("expected two parts, got %d", len(parts))
	}
	if parts[0].End != MinutesPerDay || parts[1].Date != NewDate(2025, time.May, 3) || parts[1].End != 60 {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	if parts[0].Span().End != 0 {
		t.Fatal("expected end of day to map back to a midnight span end")
	}
}
