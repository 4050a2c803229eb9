package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/internal/repository"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
	"github.com/noah-isme/sma-booking-api/pkg/export"
)

type appointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter repository.AppointmentFilter) ([]models.AppointmentView, error)
	UpdateStatusIfPending(ctx context.Context, id string, next models.AppointmentStatus) (bool, error)
	Delete(ctx context.Context, id string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Exporter renders a dataset into a downloadable document.
type Exporter interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered export ready to be sent as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AppointmentService implements the booking lifecycle.
type AppointmentService struct {
	repo      appointmentRepository
	users     userLookup
	exporters map[string]Exporter
	metrics   *MetricsService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAppointmentService constructs the service with CSV and PDF exporters registered.
func NewAppointmentService(repo appointmentRepository, users userLookup, metrics *MetricsService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &AppointmentService{
		repo:  repo,
		users: users,
		exporters: map[string]Exporter{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Book creates a pending appointment for the calling student. A status in the
// payload is ignored.
func (s *AppointmentService) Book(ctx context.Context, actor *models.JWTClaims, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	studentID := req.StudentID
	if studentID == "" && actor != nil {
		studentID = actor.UserID
	}
	if err := Authorize(actor, ActionBookAppointment, studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid appointment payload")
	}
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "purpose is required")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Store(err, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	appt := &models.Appointment{
		StudentID: studentID,
		TeacherID: teacher.ID,
		Date:      req.Date,
		Time:      req.Time,
		Purpose:   purpose,
		Message:   optionalString(req.Message),
		Status:    models.AppointmentPending,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, appErrors.Store(err, "failed to create appointment")
	}

	s.metrics.RecordAppointmentBooked()
	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionAppointmentBook, "appointments", appt.ID, map[string]string{"teacher_id": appt.TeacherID}))
	return appt, nil
}

// SetStatus moves a pending appointment to approved or cancelled. Only the
// appointment's teacher may do so.
func (s *AppointmentService) SetStatus(ctx context.Context, actor *models.JWTClaims, id, rawStatus string) (*models.Appointment, error) {
	if err := Authorize(actor, ActionSetAppointmentStatus, actorID(actor)); err != nil {
		return nil, err
	}
	next, ok := models.ParseAppointmentStatus(rawStatus)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown status %q", rawStatus))
	}

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionSetAppointmentStatus, appt.TeacherID); err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move appointment from %s to %s", appt.Status, next))
	}

	updated, err := s.repo.UpdateStatusIfPending(ctx, appt.ID, next)
	if err != nil {
		return nil, appErrors.Store(err, "failed to update appointment status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "appointment is no longer pending")
	}

	previous := appt.Status
	appt.Status = next
	appt.UpdatedAt = time.Now().UTC()

	s.metrics.RecordAppointmentTransition(next)
	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionAppointmentStatus, "appointments", appt.ID, map[string]models.AppointmentStatus{"from": previous, "to": next}))
	return appt, nil
}

// Delete removes an appointment. Messages tied to it are left in place.
func (s *AppointmentService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := Authorize(actor, ActionDeleteAppointment); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Store(err, "failed to delete appointment")
	}
	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionAppointmentDelete, "appointments", id, nil))
	return nil
}

// ListForStudent returns every appointment of a student with teacher profiles attached.
func (s *AppointmentService) ListForStudent(ctx context.Context, actor *models.JWTClaims, studentID string) ([]models.AppointmentView, error) {
	if err := Authorize(actor, ActionListStudentAppointments, studentID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.AppointmentFilter{
		StudentID:         studentID,
		StudentProjection: models.ProjectName,
		TeacherProjection: models.ProjectTeacherProfile,
	})
}

// ListForTeacher returns every appointment of a teacher with student contacts attached.
func (s *AppointmentService) ListForTeacher(ctx context.Context, actor *models.JWTClaims, teacherID string) ([]models.AppointmentView, error) {
	if err := Authorize(actor, ActionListTeacherAppointments, teacherID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.AppointmentFilter{
		TeacherID:         teacherID,
		StudentProjection: models.ProjectNameEmail,
		TeacherProjection: models.ProjectName,
	})
}

// ListAll returns every appointment for the admin overview.
func (s *AppointmentService) ListAll(ctx context.Context, actor *models.JWTClaims) ([]models.AppointmentView, error) {
	if err := Authorize(actor, ActionListAllAppointments); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.AppointmentFilter{
		StudentProjection: models.ProjectNameEmail,
		TeacherProjection: models.ProjectTeacherProfile,
	})
}

// Export renders all appointments in the requested format (csv or pdf).
func (s *AppointmentService) Export(ctx context.Context, actor *models.JWTClaims, format string) (*ExportResult, error) {
	if err := Authorize(actor, ActionExportAppointments); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	views, err := s.list(ctx, repository.AppointmentFilter{
		StudentProjection: models.ProjectNameEmail,
		TeacherProjection: models.ProjectTeacherProfile,
	})
	if err != nil {
		return nil, err
	}

	body, err := exporter.Render(appointmentDataset(views))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("appointments-%s.%s", time.Now().UTC().Format("20060102-150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

func (s *AppointmentService) list(ctx context.Context, filter repository.AppointmentFilter) ([]models.AppointmentView, error) {
	views, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list appointments")
	}
	return views, nil
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Store(err, "failed to load appointment")
	}
	return appt, nil
}

func appointmentDataset(views []models.AppointmentView) export.Dataset {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		message := ""
		if v.Message != nil {
			message = *v.Message
		}
		rows = append(rows, []string{
			v.Date,
			v.Time,
			summaryName(v.Student),
			summaryName(v.Teacher),
			v.Purpose,
			string(v.Status),
			message,
		})
	}
	return export.Dataset{
		Title:   "Appointments",
		Headers: []string{"Date", "Time", "Student", "Teacher", "Purpose", "Status", "Message"},
		Rows:    rows,
	}
}

func summaryName(s *models.UserSummary) string {
	if s == nil {
		return "(deleted)"
	}
	return s.Name
}
