package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-booking-api/internal/models"
)

const appointmentSelect = `SELECT a.id, a.student_id, a.teacher_id, a.date, a.time, a.purpose, a.message, a.status, a.created_at, a.updated_at,
 s.id AS student_ref, s.name AS student_name, s.email AS student_email,
 t.id AS teacher_ref, t.name AS teacher_name, t.email AS teacher_email, t.department AS teacher_department, t.subject AS teacher_subject
FROM appointments a
LEFT JOIN users s ON s.id = a.student_id
LEFT JOIN users t ON t.id = a.teacher_id`

// AppointmentFilter narrows appointment listings and chooses how parties are projected.
type AppointmentFilter struct {
	StudentID         string
	TeacherID         string
	StudentProjection models.Projection
	TeacherProjection models.Projection
}

type appointmentRow struct {
	models.Appointment
	StudentRef        sql.NullString `db:"student_ref"`
	StudentName       sql.NullString `db:"student_name"`
	StudentEmail      sql.NullString `db:"student_email"`
	TeacherRef        sql.NullString `db:"teacher_ref"`
	TeacherName       sql.NullString `db:"teacher_name"`
	TeacherEmail      sql.NullString `db:"teacher_email"`
	TeacherDepartment sql.NullString `db:"teacher_department"`
	TeacherSubject    sql.NullString `db:"teacher_subject"`
}

func (r appointmentRow) view(studentProj, teacherProj models.Projection) models.AppointmentView {
	v := models.AppointmentView{Appointment: r.Appointment}
	if r.StudentRef.Valid {
		u := &models.User{ID: r.StudentRef.String, Name: r.StudentName.String, Email: r.StudentEmail.String}
		v.Student = u.Summary(studentProj)
	}
	if r.TeacherRef.Valid {
		u := &models.User{
			ID:         r.TeacherRef.String,
			Name:       r.TeacherName.String,
			Email:      r.TeacherEmail.String,
			Department: nullableString(r.TeacherDepartment),
			Subject:    nullableString(r.TeacherSubject),
		}
		v.Teacher = u.Summary(teacherProj)
	}
	return v
}

// AppointmentRepository persists appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment. Status defaults to pending.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = models.AppointmentPending
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const query = `INSERT INTO appointments (id, student_id, teacher_id, date, time, purpose, message, status, created_at, updated_at) VALUES (:id, :student_id, :teacher_id, :date, :time, :purpose, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID returns the bare appointment row.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sql.ErrNoRows
	}
	const query = `SELECT id, student_id, teacher_id, date, time, purpose, message, status, created_at, updated_at FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

// List returns appointments matching the filter in booking order.
func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentView, error) {
	for _, id := range []string{filter.StudentID, filter.TeacherID} {
		if id != "" && !validIDs(id) {
			return []models.AppointmentView{}, nil
		}
	}

	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("a.teacher_id = $%d", len(args)))
	}

	query := appointmentSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.created_at ASC, a.id ASC"

	var rows []appointmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	views := make([]models.AppointmentView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view(filter.StudentProjection, filter.TeacherProjection))
	}
	return views, nil
}

// UpdateStatusIfPending moves a pending appointment to next.
// It reports false when the row was no longer pending.
func (r *AppointmentRepository) UpdateStatusIfPending(ctx context.Context, id string, next models.AppointmentStatus) (bool, error) {
	const query = `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, next, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Delete removes the appointment. Messages tied to it are kept.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return expectOne(res)
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
