package storage

import (
	"context"
	"errors"

	"github.com/sandeepkv93/schedd/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateAppointment(ctx context.Context, in model.Appointment) (model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, in model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	ListAppointments(ctx context.Context, from, to model.Date) ([]model.Appointment, error)
	QueryAppointments(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, error)
	CountAppointments(ctx context.Context, from, to model.Date) (int, error)
	FindByTitle(ctx context.Context, text string, from, to model.Date) ([]model.Appointment, error)
	LinkedAppointments(ctx context.Context, id string) ([]model.Appointment, error)
	AppointmentsByID(ctx context.Context, ids []string) (map[string]model.Appointment, error)
	InsertOccurrence(ctx context.Context, occ model.Occurrence) ([]model.Appointment, error)

	CreateReminder(ctx context.Context, in model.Reminder) (model.Reminder, error)
	GetReminder(ctx context.Context, id string) (model.Reminder, error)
	UpdateReminder(ctx context.Context, in model.Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context) ([]model.Reminder, error)
	QueryReminders(ctx context.Context, filter ReminderFilter) ([]model.Reminder, error)

	// Atomic runs fn inside one transaction; an error from fn rolls it back.
	Atomic(ctx context.Context, fn func(Repository) error) error
}
