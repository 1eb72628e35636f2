package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/sandeepkv93/schedd/internal/match"
	"github.com/sandeepkv93/schedd/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

// Registered driver names: mattn/go-sqlite3 (cgo) and modernc.org/sqlite.
const (
	DriverCgo  = "sqlite3"
	DriverPure = "sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db   *sql.DB
	q    dbtx
	inTx bool
	now  func() time.Time
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLiteRepository{db: db, q: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Open opens path with driver, migrates it and returns the repository.
func Open(driver, path string) (*SQLiteRepository, error) {
	switch driver {
	case "":
		driver = DriverCgo
	case DriverCgo, DriverPure:
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := MigrateUp(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Atomic(ctx context.Context, fn func(Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txRepo := &SQLiteRepository{db: r.db, q: tx, inTx: true, now: r.now}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func newID() string {
	return ulid.Make().String()
}

const appointmentColumns = `id, date, start_min, end_min, title, description, location, modality, label,
	timezone, recurrence_rule, series_id, linked_id, created_at, updated_at`

func (r *SQLiteRepository) CreateAppointment(ctx context.Context, in model.Appointment) (model.Appointment, error) {
	if in.ID == "" {
		in.ID = newID()
	}
	now := r.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	if err := in.Validate(); err != nil {
		return model.Appointment{}, err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Date.String(), in.Start, in.End, in.Title, in.Description, in.Location, string(in.Modality), in.Label,
		in.Timezone, in.RecurrenceRule, in.SeriesID, in.LinkedID, mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return in, nil
}

func (r *SQLiteRepository) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *SQLiteRepository) UpdateAppointment(ctx context.Context, in model.Appointment) error {
	in.UpdatedAt = r.now()
	if err := in.Validate(); err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE appointments
		SET date = ?, start_min = ?, end_min = ?, title = ?, description = ?, location = ?, modality = ?, label = ?,
			timezone = ?, recurrence_rule = ?, series_id = ?, linked_id = ?, updated_at = ?
		WHERE id = ?`,
		in.Date.String(), in.Start, in.End, in.Title, in.Description, in.Location, string(in.Modality), in.Label,
		in.Timezone, in.RecurrenceRule, in.SeriesID, in.LinkedID, mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteAppointment(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// ListAppointments returns every single-day row dated from..to, inclusive.
func (r *SQLiteRepository) ListAppointments(ctx context.Context, from, to model.Date) ([]model.Appointment, error) {
	return r.QueryAppointments(ctx, AppointmentFilter{From: &from, To: &to})
}

func (r *SQLiteRepository) QueryAppointments(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if filter.From != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.SeriesID != "" {
		clauses = append(clauses, "series_id = ?")
		args = append(args, filter.SeriesID)
	}
	if filter.Title != "" {
		clauses = append(clauses, "title = ? COLLATE NOCASE")
		args = append(args, filter.Title)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date ASC, start_min ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)
	return r.queryAppointments(ctx, query, args...)
}

// CountAppointments counts bookings, so a cross-midnight pair counts once.
func (r *SQLiteRepository) CountAppointments(ctx context.Context, from, to model.Date) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE date >= ? AND date <= ? AND linked_id = ''`,
		from.String(), to.String(),
	).Scan(&n)
	return n, err
}

// FindByTitle returns bookings in from..to whose title fuzzily matches text.
// Second halves of cross-midnight pairs are left out.
func (r *SQLiteRepository) FindByTitle(ctx context.Context, text string, from, to model.Date) ([]model.Appointment, error) {
	all, err := r.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0)
	for _, a := range all {
		if a.LinkedID != "" {
			continue
		}
		if match.Title(text, a.Title) {
			out = append(out, a)
		}
	}
	return out, nil
}

// LinkedAppointments returns the other halves of a cross-midnight booking.
func (r *SQLiteRepository) LinkedAppointments(ctx context.Context, id string) ([]model.Appointment, error) {
	return r.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE linked_id = ? OR id = (SELECT linked_id FROM appointments WHERE id = ? AND linked_id <> '')
		ORDER BY date ASC, start_min ASC`, id, id)
}

func (r *SQLiteRepository) AppointmentsByID(ctx context.Context, ids []string) (map[string]model.Appointment, error) {
	out := make(map[string]model.Appointment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	list, err := r.queryAppointments(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}

// InsertOccurrence stores occ as one or two rows; the second half of a
// cross-midnight occurrence links to the first.
func (r *SQLiteRepository) InsertOccurrence(ctx context.Context, occ model.Occurrence) ([]model.Appointment, error) {
	var out []model.Appointment
	err := r.Atomic(ctx, func(repo Repository) error {
		for i, a := range occ.Appointments() {
			if i > 0 {
				a.LinkedID = out[0].ID
			}
			created, err := repo.CreateAppointment(ctx, a)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Appointment, 0)
	for rows.Next() {
		appt, scanErr := scanAppointment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

const reminderColumns = `id, appointment_id, title, description, trigger_at, lead_minutes, channel, active, delivered, created_at, updated_at`

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in model.Reminder) (model.Reminder, error) {
	if in.ID == "" {
		in.ID = newID()
	}
	if in.Channel == "" {
		in.Channel = model.ChannelInApp
	}
	now := r.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	if err := in.Validate(); err != nil {
		return model.Reminder{}, err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.AppointmentID, in.Title, in.Description, nullTime(in.TriggerAt), in.LeadMinutes, string(in.Channel),
		boolInt(in.Active), boolInt(in.Delivered), mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	if err != nil {
		return model.Reminder{}, err
	}
	return in, nil
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (model.Reminder, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	item, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reminder{}, ErrNotFound
		}
		return model.Reminder{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, in model.Reminder) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = r.now()
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE reminders
		SET appointment_id = ?, title = ?, description = ?, trigger_at = ?, lead_minutes = ?, channel = ?,
			active = ?, delivered = ?, updated_at = ?
		WHERE id = ?`,
		in.AppointmentID, in.Title, in.Description, nullTime(in.TriggerAt), in.LeadMinutes, string(in.Channel),
		boolInt(in.Active), boolInt(in.Delivered), mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListReminders(ctx context.Context) ([]model.Reminder, error) {
	return r.QueryReminders(ctx, ReminderFilter{})
}

func (r *SQLiteRepository) QueryReminders(ctx context.Context, filter ReminderFilter) ([]model.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.AppointmentID != "" {
		clauses = append(clauses, "appointment_id = ?")
		args = append(args, filter.AppointmentID)
	}
	if filter.Active != nil {
		clauses = append(clauses, "active = ?")
		args = append(args, boolInt(*filter.Active))
	}
	if filter.Delivered != nil {
		clauses = append(clauses, "delivered = ?")
		args = append(args, boolInt(*filter.Delivered))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY trigger_at IS NULL, trigger_at ASC, created_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	if limit <= 0 {
		limit = -1
	}
	*args = append(*args, limit)
	if offset > 0 {
		*args = append(*args, offset)
		return ` LIMIT ? OFFSET ?`
	}
	return ` LIMIT ?`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(s scanner) (model.Appointment, error) {
	var out model.Appointment
	var date, modality, created, updated string
	if err := s.Scan(&out.ID, &date, &out.Start, &out.End, &out.Title, &out.Description, &out.Location, &modality, &out.Label,
		&out.Timezone, &out.RecurrenceRule, &out.SeriesID, &out.LinkedID, &created, &updated); err != nil {
		return model.Appointment{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Appointment{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Appointment{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Appointment{}, err
	}
	out.Date = d
	out.Modality = model.Modality(modality)
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanReminder(s scanner) (model.Reminder, error) {
	var out model.Reminder
	var trigger sql.NullString
	var channel, created, updated string
	var active, delivered int
	if err := s.Scan(&out.ID, &out.AppointmentID, &out.Title, &out.Description, &trigger, &out.LeadMinutes, &channel,
		&active, &delivered, &created, &updated); err != nil {
		return model.Reminder{}, err
	}
	triggerAt, err := parseNullableTime(trigger)
	if err != nil {
		return model.Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Reminder{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Reminder{}, err
	}
	out.TriggerAt = triggerAt
	out.Channel = model.Channel(channel)
	out.Active = active == 1
	out.Delivered = delivered == 1
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
