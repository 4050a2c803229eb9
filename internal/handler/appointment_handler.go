package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/internal/service"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
	"github.com/noah-isme/sma-booking-api/pkg/response"
)

type appointmentService interface {
	Book(ctx context.Context, actor *models.JWTClaims, req dto.BookAppointmentRequest) (*models.Appointment, error)
	SetStatus(ctx context.Context, actor *models.JWTClaims, id, status string) (*models.Appointment, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	ListForStudent(ctx context.Context, actor *models.JWTClaims, studentID string) ([]models.AppointmentView, error)
	ListForTeacher(ctx context.Context, actor *models.JWTClaims, teacherID string) ([]models.AppointmentView, error)
	ListAll(ctx context.Context, actor *models.JWTClaims) ([]models.AppointmentView, error)
	Export(ctx context.Context, actor *models.JWTClaims, format string) (*service.ExportResult, error)
}

// AppointmentHandler exposes the booking lifecycle over HTTP.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs an AppointmentHandler.
func NewAppointmentHandler(svc appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// Book godoc
// @Summary Book an appointment
// @Description Creates a pending appointment for the calling student
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req dto.BookAppointmentRequest
	if !bindJSON(c, &req, "invalid appointment payload") {
		return
	}
	appt, err := h.service.Book(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// UpdateStatus godoc
// @Summary Approve or cancel an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appointments/{id}/status [put]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAppointmentStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	appt, err := h.service.SetStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt)
}

// Delete godoc
// @Summary Delete an appointment
// @Tags Admin
// @Param id path string true "Appointment ID"
// @Success 204
// @Router /admin/appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForStudent godoc
// @Summary Appointments of a student
// @Tags Appointments
// @Produce json
// @Param id path string true "Student ID"
// @Param view query string false "current or history"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/appointments [get]
func (h *AppointmentHandler) ListForStudent(c *gin.Context) {
	views, err := h.service.ListForStudent(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	h.respondList(c, views, err)
}

// ListForTeacher godoc
// @Summary Appointments of a teacher
// @Tags Appointments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param view query string false "current or history"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/appointments [get]
func (h *AppointmentHandler) ListForTeacher(c *gin.Context) {
	views, err := h.service.ListForTeacher(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	h.respondList(c, views, err)
}

// ListAll godoc
// @Summary All appointments
// @Tags Admin
// @Produce json
// @Param view query string false "current or history"
// @Success 200 {object} response.Envelope
// @Router /admin/appointments [get]
func (h *AppointmentHandler) ListAll(c *gin.Context) {
	views, err := h.service.ListAll(c.Request.Context(), claimsFromContext(c))
	h.respondList(c, views, err)
}

// Export godoc
// @Summary Export all appointments
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /admin/appointments/export [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	_ = c.ShouldBindQuery(&query)
	result, err := h.service.Export(c.Request.Context(), claimsFromContext(c), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

func (h *AppointmentHandler) respondList(c *gin.Context, views []models.AppointmentView, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.AppointmentQuery
	_ = c.ShouldBindQuery(&query)

	switch strings.ToLower(strings.TrimSpace(query.View)) {
	case "":
		response.List(c, views, len(views))
	case "current":
		p := models.PartitionAppointments(views)
		response.List(c, p.Current, len(p.Current), map[string]interface{}{"view": "current"})
	case "history":
		p := models.PartitionAppointments(views)
		response.List(c, p.History, len(p.History), map[string]interface{}{"view": "history"})
	case "split":
		p := models.PartitionAppointments(views)
		response.JSON(c, http.StatusOK, p, map[string]interface{}{"current": len(p.Current), "history": len(p.History)})
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "view must be current, history or split"))
	}
}
