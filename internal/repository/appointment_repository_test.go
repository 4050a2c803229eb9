package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-booking-api/internal/models"
)

const (
	testAppointmentID = "5d7c3a2b-1e0f-4a9b-8c7d-6e5f4a3b2c1d"
	testTeacherID     = "9a8b7c6d-5e4f-4a3b-9c1d-0e9f8a7b6c5d"
)

func appointmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "teacher_id", "date", "time", "purpose", "message", "status", "created_at", "updated_at",
		"student_ref", "student_name", "student_email",
		"teacher_ref", "teacher_name", "teacher_email", "teacher_department", "teacher_subject",
	})
}

func TestListAppointmentsForStudentProjectsTeacherProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Now()
	rows := appointmentRows().
		AddRow(testAppointmentID, testUserID, testTeacherID, "2024-06-01", "10:00", "Konsultasi", nil, "pending", now, now,
			testUserID, "Siti", "siti@example.com",
			testTeacherID, "Budi", "budi@example.com", "Science", "Physics")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.student_id = $1 ORDER BY a.created_at ASC")).
		WithArgs(testUserID).
		WillReturnRows(rows)

	views, err := repo.List(context.Background(), AppointmentFilter{
		StudentID:         testUserID,
		StudentProjection: models.ProjectName,
		TeacherProjection: models.ProjectTeacherProfile,
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.AppointmentPending, views[0].Status)
	assert.Equal(t, "Budi", views[0].Teacher.Name)
	assert.Equal(t, "Physics", *views[0].Teacher.Subject)
	assert.Empty(t, views[0].Teacher.Email)
	assert.Equal(t, "Siti", views[0].Student.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppointmentsOrphanedTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Now()
	rows := appointmentRows().
		AddRow(testAppointmentID, testUserID, testTeacherID, "2024-06-01", "10:00", "Konsultasi", "Halo", "approved", now, now,
			testUserID, "Siti", "siti@example.com",
			nil, nil, nil, nil, nil)
	mock.ExpectQuery("FROM appointments a").WillReturnRows(rows)

	views, err := repo.List(context.Background(), AppointmentFilter{StudentProjection: models.ProjectNameEmail})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].Teacher)
	assert.Equal(t, testTeacherID, views[0].TeacherID)
	assert.Equal(t, "siti@example.com", views[0].Student.Email)
	assert.Equal(t, "Halo", *views[0].Message)
}

func TestUpdateStatusIfPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'")).
		WithArgs(testAppointmentID, models.AppointmentApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE appointments SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateStatusIfPending(context.Background(), testAppointmentID, models.AppointmentApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatusIfPending(context.Background(), testAppointmentID, models.AppointmentCancelled)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(1, 1))

	appt := &models.Appointment{StudentID: testUserID, TeacherID: testTeacherID, Date: "2024-06-01", Time: "10:00", Purpose: "Konsultasi"}
	require.NoError(t, repo.Create(context.Background(), appt))
	assert.Equal(t, models.AppointmentPending, appt.Status)
	assert.NotEmpty(t, appt.ID)
}

func TestDeleteAppointmentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("DELETE FROM appointments").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), testAppointmentID)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppointmentsMalformedIDSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	views, err := repo.List(context.Background(), AppointmentFilter{TeacherID: "not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NoError(t, mock.ExpectationsWereMet())
}
