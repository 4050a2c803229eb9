package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/internal/repository"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

type memUsers struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	refresh   map[string]*models.RefreshToken
	failWith  error
	lastLogin map[string]time.Time
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:      make(map[string]*models.User),
		refresh:   make(map[string]*models.RefreshToken),
		lastLogin: make(map[string]time.Time),
	}
}

func (m *memUsers) seed(name, email string, role models.UserRole, approved bool) *models.User {
	u := &models.User{ID: uuid.NewString(), Name: name, Email: email, Role: role, Approved: approved}
	m.byID[u.ID] = u
	return u
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (m *memUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.User, 0)
	for _, u := range m.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Approved != nil && u.Approved != *filter.Approved {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memUsers) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	n := 0
	for _, u := range m.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	m.byID[user.ID] = &clone
	return nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Name = user.Name
	existing.Department = user.Department
	existing.Subject = user.Subject
	return nil
}

func (m *memUsers) SetApproved(ctx context.Context, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Approved = approved
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLogin[id] = ts
	return nil
}

func (m *memUsers) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.refresh {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *memUsers) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *token
	m.refresh[token.Token] = &clone
	return nil
}

func (m *memUsers) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.refresh[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (m *memUsers) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.refresh {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *memUsers) lookup(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type memAppointments struct {
	mu        sync.Mutex
	users     *memUsers
	byID      map[string]*models.Appointment
	order     []string
	staleNext bool
}

func newMemAppointments(users *memUsers) *memAppointments {
	return &memAppointments{users: users, byID: make(map[string]*models.Appointment)}
}

func (m *memAppointments) Create(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now
	clone := *appt
	m.byID[appt.ID] = &clone
	m.order = append(m.order, appt.ID)
	return nil
}

func (m *memAppointments) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (m *memAppointments) List(ctx context.Context, filter repository.AppointmentFilter) ([]models.AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AppointmentView, 0)
	for _, id := range m.order {
		a, ok := m.byID[id]
		if !ok {
			continue
		}
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, models.AppointmentView{
			Appointment: *a,
			Student:     m.users.lookup(a.StudentID).Summary(filter.StudentProjection),
			Teacher:     m.users.lookup(a.TeacherID).Summary(filter.TeacherProjection),
		})
	}
	return out, nil
}

func (m *memAppointments) UpdateStatusIfPending(ctx context.Context, id string, next models.AppointmentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleNext {
		m.staleNext = false
		return false, nil
	}
	a, ok := m.byID[id]
	if !ok || a.Status != models.AppointmentPending {
		return false, nil
	}
	a.Status = next
	return true, nil
}

func (m *memAppointments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

type memMessages struct {
	mu    sync.Mutex
	users *memUsers
	rows  []models.Message
	seq   int64
}

func newMemMessages(users *memUsers) *memMessages {
	return &memMessages{users: users}
}

func (m *memMessages) Create(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	m.seq++
	msg.Seq = m.seq
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListByAppointment(ctx context.Context, appointmentID string) ([]models.MessageView, error) {
	return m.filter(func(msg models.Message) bool {
		return msg.AppointmentID != nil && *msg.AppointmentID == appointmentID
	}, false), nil
}

func (m *memMessages) ListBetween(ctx context.Context, a, b string) ([]models.MessageView, error) {
	return m.filter(func(msg models.Message) bool {
		return (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a)
	}, false), nil
}

func (m *memMessages) ListForUser(ctx context.Context, userID string) ([]models.MessageView, error) {
	return m.filter(func(msg models.Message) bool { return msg.Involves(userID) }, true), nil
}

func (m *memMessages) filter(keep func(models.Message) bool, desc bool) []models.MessageView {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MessageView, 0)
	for _, msg := range m.rows {
		if !keep(msg) {
			continue
		}
		out = append(out, models.MessageView{
			Message:  msg,
			Sender:   m.users.lookup(msg.SenderID).Summary(models.ProjectNameEmail),
			Receiver: m.users.lookup(msg.ReceiverID).Summary(models.ProjectNameEmail),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[j].Before(&out[i].Message)
		}
		return out[i].Before(&out[j].Message)
	})
	return out
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (m *memAudit) Record(ctx context.Context, entry models.AuditLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type memCache struct {
	mu            sync.Mutex
	data          map[string][]byte
	hits          int
	invalidations int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations++
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func claimsFor(u *models.User) *models.JWTClaims {
	return &models.JWTClaims{UserID: u.ID, Role: u.Role, Email: u.Email, Name: u.Name}
}
