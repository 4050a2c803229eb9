package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

func TestApproveStudent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pending := h.users.seed("Rina", "rina@school.id", models.RoleStudent, false)

	_, err := h.userSvc.ApproveStudent(ctx, claimsFor(h.teacher), pending.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	approved, err := h.userSvc.ApproveStudent(ctx, claimsFor(h.admin), pending.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	again, err := h.userSvc.ApproveStudent(ctx, claimsFor(h.admin), pending.ID)
	require.NoError(t, err)
	assert.True(t, again.Approved)

	_, err = h.userSvc.ApproveStudent(ctx, claimsFor(h.admin), h.teacher.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = h.userSvc.ApproveStudent(ctx, claimsFor(h.admin), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.Equal(t, []string{models.AuditActionStudentApprove}, h.audit.actions())
}

func TestListPendingStudents(t *testing.T) {
	h := newHarness(t)
	h.users.seed("Rina", "rina@school.id", models.RoleStudent, false)

	pending, err := h.userSvc.ListPendingStudents(context.Background(), claimsFor(h.admin))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Rina", pending[0].Name)

	_, err = h.userSvc.ListPendingStudents(context.Background(), claimsFor(h.student))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestTeacherDirectoryIsCachedAndInvalidated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.userSvc.ListTeachers(ctx, claimsFor(h.student))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Physics", *first[0].Subject)

	_, err = h.userSvc.ListTeachers(ctx, claimsFor(h.student))
	require.NoError(t, err)
	assert.Equal(t, 1, h.cache.hits)

	added, err := h.userSvc.AddTeacher(ctx, claimsFor(h.admin), dto.CreateTeacherRequest{
		Name: "Ani", Email: "ani@school.id", Password: "secret1", Department: "Languages", Subject: "English",
	})
	require.NoError(t, err)
	assert.True(t, added.Approved)
	assert.Equal(t, models.RoleTeacher, added.Role)
	assert.Equal(t, 1, h.cache.invalidations)

	after, err := h.userSvc.ListTeachers(ctx, claimsFor(h.student))
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestAddTeacherRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	_, err := h.userSvc.AddTeacher(context.Background(), claimsFor(h.teacher), dto.CreateTeacherRequest{Name: "X", Email: "x@school.id", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestUpdateTeacher(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	name, subject := "Budi Santoso", ""

	updated, err := h.userSvc.UpdateTeacher(ctx, claimsFor(h.admin), h.teacher.ID, dto.UpdateTeacherRequest{Name: &name, Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", updated.Name)
	assert.Nil(t, updated.Subject)
	assert.Equal(t, "Science", *updated.Department)

	_, err = h.userSvc.UpdateTeacher(ctx, claimsFor(h.admin), h.student.ID, dto.UpdateTeacherRequest{Name: &name})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteTeacherLeavesAppointmentsOrphaned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	appt, err := h.appointments.Book(ctx, claimsFor(h.student), dto.BookAppointmentRequest{
		TeacherID: h.teacher.ID, Date: "2024-06-01", Time: "10:00", Purpose: "Konsultasi",
	})
	require.NoError(t, err)

	require.NoError(t, h.userSvc.DeleteTeacher(ctx, claimsFor(h.admin), h.teacher.ID))

	views, err := h.appointments.ListForStudent(ctx, claimsFor(h.student), h.student.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, appt.ID, views[0].ID)
	assert.Equal(t, h.teacher.ID, views[0].TeacherID)
	assert.Nil(t, views[0].Teacher)

	err = h.userSvc.DeleteTeacher(ctx, claimsFor(h.admin), h.teacher.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
