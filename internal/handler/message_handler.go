package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/pkg/response"
)

type messageService interface {
	Send(ctx context.Context, actor *models.JWTClaims, req dto.SendMessageRequest) (*models.MessageView, error)
	AppointmentThread(ctx context.Context, actor *models.JWTClaims, appointmentID string) ([]models.MessageView, error)
	PairThread(ctx context.Context, actor *models.JWTClaims, userA, userB string) ([]models.MessageView, error)
	Inbox(ctx context.Context, actor *models.JWTClaims, userID string) ([]models.MessageView, error)
	Conversations(ctx context.Context, actor *models.JWTClaims, userID string) ([]models.Conversation, error)
}

// MessageHandler exposes messaging endpoints.
type MessageHandler struct {
	service messageService
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(svc messageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// Send godoc
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body dto.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	msg, err := h.service.Send(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// AppointmentThread godoc
// @Summary Messages of an appointment, oldest first
// @Tags Messages
// @Produce json
// @Param appointmentId path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /messages/thread/{appointmentId} [get]
func (h *MessageHandler) AppointmentThread(c *gin.Context) {
	thread, err := h.service.AppointmentThread(c.Request.Context(), claimsFromContext(c), c.Param("appointmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, thread, len(thread))
}

// PairThread godoc
// @Summary Messages between two users, oldest first
// @Tags Messages
// @Produce json
// @Param u1 path string true "First user ID"
// @Param u2 path string true "Second user ID"
// @Success 200 {object} response.Envelope
// @Router /messages/thread/users/{u1}/{u2} [get]
func (h *MessageHandler) PairThread(c *gin.Context) {
	thread, err := h.service.PairThread(c.Request.Context(), claimsFromContext(c), c.Param("u1"), c.Param("u2"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, thread, len(thread))
}

// Inbox godoc
// @Summary Every message a user sent or received, newest first
// @Tags Messages
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/messages [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	inbox, err := h.service.Inbox(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, inbox, len(inbox))
}

// Conversations godoc
// @Summary Inbox grouped by thread
// @Tags Messages
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/conversations [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	convs, err := h.service.Conversations(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, convs, len(convs))
}
