package service

import (
	"testing"
	"time"

	"github.com/noah-isme/sma-booking-api/internal/models"
)

type harness struct {
	users *memUsers
	appts *memAppointments
	msgs  *memMessages
	audit *memAudit
	cache *memCache

	auth         *AuthService
	userSvc      *UserService
	appointments *AppointmentService
	messages     *MessageService
	metrics      *MetricsService

	admin   *models.User
	teacher *models.User
	student *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{audit: &memAudit{}, cache: newMemCache()}
	h.users = newMemUsers()
	h.appts = newMemAppointments(h.users)
	h.msgs = newMemMessages(h.users)
	h.metrics = NewMetricsService()

	h.auth = NewAuthService(h.users, h.audit, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "sma-booking-test",
	})
	cache := NewCacheService(h.cache, h.metrics, time.Minute, nil, true)
	h.userSvc = NewUserService(h.users, cache, h.audit, nil, nil)
	h.appointments = NewAppointmentService(h.appts, h.users, h.metrics, h.audit, nil, nil)
	h.messages = NewMessageService(h.msgs, h.appts, h.users, h.metrics, nil, nil)

	h.admin = h.users.seed("Admin", "admin@school.id", models.RoleAdmin, true)
	dept, subj := "Science", "Physics"
	h.teacher = h.users.seed("Budi", "budi@school.id", models.RoleTeacher, true)
	h.teacher.Department, h.teacher.Subject = &dept, &subj
	h.student = h.users.seed("Siti", "siti@school.id", models.RoleStudent, true)
	return h
}
