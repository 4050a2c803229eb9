package models

import "time"

// AppointmentStatus is the closed set of lifecycle states.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentApproved  AppointmentStatus = "approved"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// ParseAppointmentStatus accepts only the three known states, spelled exactly.
func ParseAppointmentStatus(raw string) (AppointmentStatus, bool) {
	switch s := AppointmentStatus(raw); s {
	case AppointmentPending, AppointmentApproved, AppointmentCancelled:
		return s, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentApproved || s == AppointmentCancelled
}

// CanTransitionTo encodes pending -> approved | cancelled. Nothing else moves.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return s == AppointmentPending && next.Terminal()
}

// Appointment is a student's request for a slot with a teacher.
// Date and Time are stored verbatim (YYYY-MM-DD, HH:mm) without a timezone.
type Appointment struct {
	ID        string            `db:"id" json:"id"`
	StudentID string            `db:"student_id" json:"student_id"`
	TeacherID string            `db:"teacher_id" json:"teacher_id"`
	Date      string            `db:"date" json:"date"`
	Time      string            `db:"time" json:"time"`
	Purpose   string            `db:"purpose" json:"purpose"`
	Message   *string           `db:"message" json:"message,omitempty"`
	Status    AppointmentStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// HasParty reports whether userID is the student or teacher of the appointment.
func (a *Appointment) HasParty(userID string) bool {
	return userID != "" && (a.StudentID == userID || a.TeacherID == userID)
}

// AppointmentView is an appointment with its parties populated.
// A nil Student or Teacher next to a non-empty id marks an orphaned reference.
type AppointmentView struct {
	Appointment
	Student *UserSummary `json:"student"`
	Teacher *UserSummary `json:"teacher"`
}

// AppointmentPartition splits appointments the way the dashboards show them.
type AppointmentPartition struct {
	Current []AppointmentView `json:"current"`
	History []AppointmentView `json:"history"`
}

// PartitionAppointments puts pending appointments in Current and terminal ones in History,
// preserving input order.
func PartitionAppointments(views []AppointmentView) AppointmentPartition {
	p := AppointmentPartition{Current: []AppointmentView{}, History: []AppointmentView{}}
	for _, v := range views {
		if v.Status == AppointmentPending {
			p.Current = append(p.Current, v)
			continue
		}
		p.History = append(p.History, v)
	}
	return p
}
