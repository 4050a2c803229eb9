package service

import (
	"github.com/noah-isme/sma-booking-api/internal/models"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

// Action names an operation subject to role checks.
type Action string

const (
	ActionRegisterAdmin           Action = "admin.register"
	ActionApproveStudent          Action = "student.approve"
	ActionListPendingStudents     Action = "student.list_pending"
	ActionManageTeachers          Action = "teacher.manage"
	ActionListTeachers            Action = "teacher.list"
	ActionBookAppointment         Action = "appointment.book"
	ActionSetAppointmentStatus    Action = "appointment.set_status"
	ActionDeleteAppointment       Action = "appointment.delete"
	ActionListStudentAppointments Action = "appointment.list_student"
	ActionListTeacherAppointments Action = "appointment.list_teacher"
	ActionListAllAppointments     Action = "appointment.list_all"
	ActionExportAppointments      Action = "appointment.export"
	ActionSendMessage             Action = "message.send"
	ActionReadAppointmentThread   Action = "message.thread_appointment"
	ActionReadPairThread          Action = "message.thread_pair"
	ActionReadInbox               Action = "message.inbox"
)

// Scope says how much of an action a role may perform.
type Scope int

const (
	// ScopeOwner allows the action only on records the actor owns.
	ScopeOwner Scope = iota + 1
	// ScopeAny allows the action on any record.
	ScopeAny
)

var accessPolicy = map[Action]map[models.UserRole]Scope{
	ActionRegisterAdmin:       {models.RoleAdmin: ScopeAny},
	ActionApproveStudent:      {models.RoleAdmin: ScopeAny},
	ActionListPendingStudents: {models.RoleAdmin: ScopeAny},
	ActionManageTeachers:      {models.RoleAdmin: ScopeAny},
	ActionListTeachers: {
		models.RoleAdmin:   ScopeAny,
		models.RoleTeacher: ScopeAny,
		models.RoleStudent: ScopeAny,
	},
	ActionBookAppointment:      {models.RoleStudent: ScopeOwner},
	ActionSetAppointmentStatus: {models.RoleTeacher: ScopeOwner},
	ActionDeleteAppointment:    {models.RoleAdmin: ScopeAny},
	ActionListStudentAppointments: {
		models.RoleAdmin:   ScopeAny,
		models.RoleStudent: ScopeOwner,
	},
	ActionListTeacherAppointments: {
		models.RoleAdmin:   ScopeAny,
		models.RoleTeacher: ScopeOwner,
	},
	ActionListAllAppointments: {models.RoleAdmin: ScopeAny},
	ActionExportAppointments:  {models.RoleAdmin: ScopeAny},
	ActionSendMessage: {
		models.RoleTeacher: ScopeOwner,
		models.RoleStudent: ScopeOwner,
	},
	ActionReadAppointmentThread: {
		models.RoleAdmin:   ScopeAny,
		models.RoleTeacher: ScopeOwner,
		models.RoleStudent: ScopeOwner,
	},
	ActionReadPairThread: {
		models.RoleAdmin:   ScopeAny,
		models.RoleTeacher: ScopeOwner,
		models.RoleStudent: ScopeOwner,
	},
	ActionReadInbox: {
		models.RoleAdmin:   ScopeAny,
		models.RoleTeacher: ScopeOwner,
		models.RoleStudent: ScopeOwner,
	},
}

// Authorize checks actor against the access policy. For owner-scoped grants the
// actor must be one of owners.
func Authorize(actor *models.JWTClaims, action Action, owners ...string) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	scope, ok := accessPolicy[action][actor.Role]
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "role not permitted")
	}
	if scope == ScopeAny {
		return nil
	}
	for _, owner := range owners {
		if owner != "" && owner == actor.UserID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not the owner of this resource")
}

func actorID(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}
