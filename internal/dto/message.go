package dto

// SendMessageRequest creates a message. SenderID may be omitted and defaults to the caller.
type SendMessageRequest struct {
	SenderID      string `json:"senderId" validate:"omitempty,uuid"`
	ReceiverID    string `json:"receiverId" validate:"required,uuid"`
	AppointmentID string `json:"appointmentId" validate:"omitempty,uuid"`
	Content       string `json:"content" validate:"max=4000"`
}
