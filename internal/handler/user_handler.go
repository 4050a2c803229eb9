package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/pkg/response"
)

type userService interface {
	ApproveStudent(ctx context.Context, actor *models.JWTClaims, id string) (*models.User, error)
	ListPendingStudents(ctx context.Context, actor *models.JWTClaims) ([]models.User, error)
	AddTeacher(ctx context.Context, actor *models.JWTClaims, req dto.CreateTeacherRequest) (*models.User, error)
	UpdateTeacher(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateTeacherRequest) (*models.User, error)
	DeleteTeacher(ctx context.Context, actor *models.JWTClaims, id string) error
	ListTeachers(ctx context.Context, actor *models.JWTClaims) ([]models.UserInfo, error)
}

// UserHandler exposes student approval and teacher management endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// ListPendingStudents godoc
// @Summary List students awaiting approval
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/students/pending [get]
func (h *UserHandler) ListPendingStudents(c *gin.Context) {
	users, err := h.service.ListPendingStudents(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]models.UserInfo, 0, len(users))
	for i := range users {
		out = append(out, users[i].Info())
	}
	response.List(c, out, len(out))
}

// ApproveStudent godoc
// @Summary Approve a student account
// @Tags Admin
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/students/{id}/approve [put]
func (h *UserHandler) ApproveStudent(c *gin.Context) {
	user, err := h.service.ApproveStudent(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user.Info())
}

// ListTeachers godoc
// @Summary Teacher directory
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *UserHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, teachers, len(teachers))
}

// AddTeacher godoc
// @Summary Add a teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/teachers [post]
func (h *UserHandler) AddTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	user, err := h.service.AddTeacher(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user.Info())
}

// UpdateTeacher godoc
// @Summary Update a teacher profile
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.UpdateTeacherRequest true "Teacher fields"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers/{id} [put]
func (h *UserHandler) UpdateTeacher(c *gin.Context) {
	var req dto.UpdateTeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	user, err := h.service.UpdateTeacher(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user.Info())
}

// DeleteTeacher godoc
// @Summary Delete a teacher
// @Description Appointments and messages of the teacher are kept
// @Tags Admin
// @Param id path string true "Teacher ID"
// @Success 204
// @Router /admin/teachers/{id} [delete]
func (h *UserHandler) DeleteTeacher(c *gin.Context) {
	if err := h.service.DeleteTeacher(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
