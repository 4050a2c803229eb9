package dto

// BookAppointmentRequest is the student booking payload. Any status sent by the
// client is ignored; new appointments always start pending.
type BookAppointmentRequest struct {
	StudentID string `json:"studentId" validate:"omitempty,uuid"`
	TeacherID string `json:"teacherId" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
	Purpose   string `json:"purpose" validate:"required,max=500"`
	Message   string `json:"message" validate:"max=2000"`
	Status    string `json:"status,omitempty"`
}

// UpdateAppointmentStatusRequest carries the requested target status.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AppointmentQuery mirrors the listing filters accepted by the appointment endpoints.
type AppointmentQuery struct {
	View string `form:"view"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format"`
}
