package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-booking-api/internal/models"
)

const messageSelect = `SELECT m.id, m.seq, m.sender_id, m.receiver_id, m.appointment_id, m.content, m.created_at,
 s.id AS sender_ref, s.name AS sender_name, s.email AS sender_email,
 r.id AS receiver_ref, r.name AS receiver_name, r.email AS receiver_email
FROM messages m
LEFT JOIN users s ON s.id = m.sender_id
LEFT JOIN users r ON r.id = m.receiver_id`

type messageRow struct {
	models.Message
	SenderRef     sql.NullString `db:"sender_ref"`
	SenderName    sql.NullString `db:"sender_name"`
	SenderEmail   sql.NullString `db:"sender_email"`
	ReceiverRef   sql.NullString `db:"receiver_ref"`
	ReceiverName  sql.NullString `db:"receiver_name"`
	ReceiverEmail sql.NullString `db:"receiver_email"`
}

func (r messageRow) view() models.MessageView {
	v := models.MessageView{Message: r.Message}
	if r.SenderRef.Valid {
		v.Sender = &models.UserSummary{ID: r.SenderRef.String, Name: r.SenderName.String, Email: r.SenderEmail.String}
	}
	if r.ReceiverRef.Valid {
		v.Receiver = &models.UserSummary{ID: r.ReceiverRef.String, Name: r.ReceiverName.String, Email: r.ReceiverEmail.String}
	}
	return v
}

// MessageRepository persists messages and reads threads.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message and fills in the store-assigned sequence.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, receiver_id, appointment_id, content, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING seq`
	if err := r.db.QueryRowxContext(ctx, query, msg.ID, msg.SenderID, msg.ReceiverID, msg.AppointmentID, msg.Content, msg.CreatedAt).Scan(&msg.Seq); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByAppointment returns the appointment thread oldest first.
func (r *MessageRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.MessageView, error) {
	if !validIDs(appointmentID) {
		return []models.MessageView{}, nil
	}
	query := messageSelect + ` WHERE m.appointment_id = $1 ORDER BY m.created_at ASC, m.seq ASC`
	return r.list(ctx, "list appointment thread", query, appointmentID)
}

// ListBetween returns every message exchanged between two users oldest first,
// regardless of direction.
func (r *MessageRepository) ListBetween(ctx context.Context, userA, userB string) ([]models.MessageView, error) {
	if !validIDs(userA, userB) {
		return []models.MessageView{}, nil
	}
	query := messageSelect + ` WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1) ORDER BY m.created_at ASC, m.seq ASC`
	return r.list(ctx, "list pair thread", query, userA, userB)
}

// ListForUser returns every message the user sent or received, newest first.
func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]models.MessageView, error) {
	if !validIDs(userID) {
		return []models.MessageView{}, nil
	}
	query := messageSelect + ` WHERE m.sender_id = $1 OR m.receiver_id = $1 ORDER BY m.created_at DESC, m.seq DESC`
	return r.list(ctx, "list inbox", query, userID)
}

func (r *MessageRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.MessageView, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	views := make([]models.MessageView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view())
	}
	return views, nil
}

// validIDs reports whether every id parses as a UUID. Malformed ids cannot match
// any row and would otherwise surface as a driver error.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
