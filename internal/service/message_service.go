package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.MessageView, error)
	ListBetween(ctx context.Context, userA, userB string) ([]models.MessageView, error)
	ListForUser(ctx context.Context, userID string) ([]models.MessageView, error)
}

type appointmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

// MessageService stores messages and resolves threads.
type MessageService struct {
	repo         messageRepository
	appointments appointmentLookup
	users        userLookup
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(repo messageRepository, appointments appointmentLookup, users userLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{
		repo:         repo,
		appointments: appointments,
		users:        users,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Send stores a message from the caller. Content is kept as sent apart from
// surrounding whitespace and must not be blank. When tied to an appointment the
// sender must be one of its parties.
func (s *MessageService) Send(ctx context.Context, actor *models.JWTClaims, req dto.SendMessageRequest) (*models.MessageView, error) {
	senderID := req.SenderID
	if senderID == "" {
		senderID = actorID(actor)
	}
	if err := Authorize(actor, ActionSendMessage, senderID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid message payload")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyContent, "message content must not be empty")
	}

	sender, err := s.party(ctx, senderID, "sender")
	if err != nil {
		return nil, err
	}
	receiver, err := s.party(ctx, req.ReceiverID, "receiver")
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	if req.AppointmentID != "" {
		appt, err := s.appointments.FindByID(ctx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
			}
			return nil, appErrors.Store(err, "failed to load appointment")
		}
		if !appt.HasParty(sender.ID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "sender is not a party of the appointment")
		}
		msg.AppointmentID = &appt.ID
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Store(err, "failed to store message")
	}
	s.metrics.RecordMessageSent()

	return &models.MessageView{
		Message:  *msg,
		Sender:   sender.Summary(models.ProjectNameEmail),
		Receiver: receiver.Summary(models.ProjectNameEmail),
	}, nil
}

func (s *MessageService) party(ctx context.Context, id, role string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, role+" not found")
		}
		return nil, appErrors.Store(err, "failed to load "+role)
	}
	return user, nil
}

// AppointmentThread returns the messages of an appointment oldest first.
// Parties of the appointment and admins may read it. Once the appointment is
// deleted the thread stays readable by admins and by its participants.
func (s *MessageService) AppointmentThread(ctx context.Context, actor *models.JWTClaims, appointmentID string) ([]models.MessageView, error) {
	if err := Authorize(actor, ActionReadAppointmentThread, actorID(actor)); err != nil {
		return nil, err
	}

	var owners []string
	appt, err := s.appointments.FindByID(ctx, appointmentID)
	switch {
	case err == nil:
		owners = []string{appt.StudentID, appt.TeacherID}
	case errors.Is(err, sql.ErrNoRows):
		appt = nil
	default:
		return nil, appErrors.Store(err, "failed to load appointment")
	}

	if appt != nil {
		if err := Authorize(actor, ActionReadAppointmentThread, owners...); err != nil {
			return nil, err
		}
	}

	thread, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load appointment thread")
	}

	if appt == nil {
		if len(thread) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		for i := range thread {
			owners = append(owners, thread[i].SenderID, thread[i].ReceiverID)
		}
		if err := Authorize(actor, ActionReadAppointmentThread, owners...); err != nil {
			return nil, err
		}
	}
	return thread, nil
}

// PairThread returns every message between two users oldest first. The result
// does not depend on argument order.
func (s *MessageService) PairThread(ctx context.Context, actor *models.JWTClaims, userA, userB string) ([]models.MessageView, error) {
	if err := Authorize(actor, ActionReadPairThread, userA, userB); err != nil {
		return nil, err
	}
	thread, err := s.repo.ListBetween(ctx, userA, userB)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load conversation")
	}
	return thread, nil
}

// Inbox returns every message the user sent or received, newest first.
func (s *MessageService) Inbox(ctx context.Context, actor *models.JWTClaims, userID string) ([]models.MessageView, error) {
	if err := Authorize(actor, ActionReadInbox, userID); err != nil {
		return nil, err
	}
	inbox, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load inbox")
	}
	return inbox, nil
}

// Conversations groups the inbox into threads, newest activity first. Messages
// tied to an appointment group by appointment; the rest group by counterpart.
func (s *MessageService) Conversations(ctx context.Context, actor *models.JWTClaims, userID string) ([]models.Conversation, error) {
	inbox, err := s.Inbox(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	return GroupConversations(userID, inbox), nil
}

// GroupConversations folds a newest-first inbox into conversations for userID.
func GroupConversations(userID string, inbox []models.MessageView) []models.Conversation {
	conversations := make([]models.Conversation, 0)
	index := make(map[string]int)
	for _, m := range inbox {
		counterpartID, counterpart := m.ReceiverID, m.Receiver
		if m.ReceiverID == userID {
			counterpartID, counterpart = m.SenderID, m.Sender
		}

		key := "user:" + counterpartID
		if m.AppointmentID != nil {
			key = "appointment:" + *m.AppointmentID
		}

		if i, ok := index[key]; ok {
			conversations[i].MessageCount++
			continue
		}
		index[key] = len(conversations)
		conversations = append(conversations, models.Conversation{
			AppointmentID: m.AppointmentID,
			Counterpart:   counterpart,
			CounterpartID: counterpartID,
			LastMessage:   m,
			MessageCount:  1,
		})
	}
	return conversations
}
