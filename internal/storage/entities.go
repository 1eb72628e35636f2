package storage

import "github.com/sandeepkv93/schedd/internal/model"

// AppointmentFilter narrows QueryAppointments. Zero fields are ignored.
type AppointmentFilter struct {
	From     *model.Date
	To       *model.Date
	SeriesID string
	Title    string
	Limit    int
	Offset   int
}

type ReminderFilter struct {
	AppointmentID string
	Active        *bool
	Delivered     *bool
	Limit         int
	Offset        int
}
