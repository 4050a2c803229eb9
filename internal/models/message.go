package models

import "time"

// Message is one entry in a thread. Seq is assigned by the store and breaks
// ties between messages written within the same timestamp.
type Message struct {
	ID            string    `db:"id" json:"id"`
	Seq           int64     `db:"seq" json:"seq"`
	SenderID      string    `db:"sender_id" json:"sender_id"`
	ReceiverID    string    `db:"receiver_id" json:"receiver_id"`
	AppointmentID *string   `db:"appointment_id" json:"appointment_id,omitempty"`
	Content       string    `db:"content" json:"content"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Before orders messages by (CreatedAt, Seq).
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Seq < other.Seq
}

// Involves reports whether userID sent or received the message.
func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// MessageView is a message with sender and receiver name/email populated.
type MessageView struct {
	Message
	Sender   *UserSummary `json:"sender"`
	Receiver *UserSummary `json:"receiver"`
}

// Conversation summarises one thread in a user's inbox.
type Conversation struct {
	AppointmentID *string      `json:"appointment_id,omitempty"`
	Counterpart   *UserSummary `json:"counterpart"`
	CounterpartID string       `json:"counterpart_id"`
	LastMessage   MessageView  `json:"last_message"`
	MessageCount  int          `json:"message_count"`
}
