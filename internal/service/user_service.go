package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-booking-api/internal/dto"
	"github.com/noah-isme/sma-booking-api/internal/models"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

const (
	teacherDirectoryKey     = "teachers:directory"
	teacherDirectoryPattern = "teachers:*"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	SetApproved(ctx context.Context, id string, approved bool) error
	Delete(ctx context.Context, id string) error
}

// UserService handles student approval and the teacher directory.
type UserService struct {
	repo      userRepository
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &UserService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// ApproveStudent marks a student as approved. Approving twice is a no-op.
func (s *UserService) ApproveStudent(ctx context.Context, actor *models.JWTClaims, id string) (*models.User, error) {
	if err := Authorize(actor, ActionApproveStudent); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only students require approval")
	}
	if user.Approved {
		return user, nil
	}

	if err := s.repo.SetApproved(ctx, user.ID, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Store(err, "failed to approve student")
	}
	user.Approved = true

	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionStudentApprove, "users", user.ID, map[string]bool{"approved": true}))
	return user, nil
}

// ListPendingStudents returns students still waiting for approval.
func (s *UserService) ListPendingStudents(ctx context.Context, actor *models.JWTClaims) ([]models.User, error) {
	if err := Authorize(actor, ActionListPendingStudents); err != nil {
		return nil, err
	}
	role := models.RoleStudent
	approved := false
	users, err := s.repo.List(ctx, models.UserFilter{Role: &role, Approved: &approved})
	if err != nil {
		return nil, appErrors.Store(err, "failed to list pending students")
	}
	return users, nil
}

// AddTeacher creates an approved teacher account.
func (s *UserService) AddTeacher(ctx context.Context, actor *models.JWTClaims, req dto.CreateTeacherRequest) (*models.User, error) {
	if err := Authorize(actor, ActionManageTeachers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}

	user := &models.User{
		Name:       req.Name,
		Email:      req.Email,
		Role:       models.RoleTeacher,
		Approved:   true,
		Department: optionalString(req.Department),
		Subject:    optionalString(req.Subject),
	}
	if err := createAccount(ctx, s.repo, user, req.Password); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, teacherDirectoryPattern)
	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionTeacherCreate, "users", user.ID, user.Info()))
	return user, nil
}

// UpdateTeacher patches name, department and subject.
func (s *UserService) UpdateTeacher(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateTeacherRequest) (*models.User, error) {
	if err := Authorize(actor, ActionManageTeachers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}

	user, err := s.loadTeacher(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must not be empty")
		}
		user.Name = name
	}
	if req.Department != nil {
		user.Department = optionalString(*req.Department)
	}
	if req.Subject != nil {
		user.Subject = optionalString(*req.Subject)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Store(err, "failed to update teacher")
	}

	s.cache.Invalidate(ctx, teacherDirectoryPattern)
	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionTeacherUpdate, "users", user.ID, user.Info()))
	return user, nil
}

// DeleteTeacher removes the teacher account. Their appointments and messages stay
// and show up with an empty teacher summary afterwards.
func (s *UserService) DeleteTeacher(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := Authorize(actor, ActionManageTeachers); err != nil {
		return err
	}
	user, err := s.loadTeacher(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Store(err, "failed to delete teacher")
	}

	s.cache.Invalidate(ctx, teacherDirectoryPattern)
	s.audit.Record(ctx, auditEntry(actor.UserID, models.AuditActionTeacherDelete, "users", user.ID, nil))
	return nil
}

// ListTeachers returns the teacher directory, served from cache when possible.
func (s *UserService) ListTeachers(ctx context.Context, actor *models.JWTClaims) ([]models.UserInfo, error) {
	if err := Authorize(actor, ActionListTeachers); err != nil {
		return nil, err
	}

	var cached []models.UserInfo
	if s.cache.Get(ctx, teacherDirectoryKey, &cached) {
		return cached, nil
	}

	role := models.RoleTeacher
	users, err := s.repo.List(ctx, models.UserFilter{Role: &role})
	if err != nil {
		return nil, appErrors.Store(err, "failed to list teachers")
	}
	directory := make([]models.UserInfo, 0, len(users))
	for i := range users {
		directory = append(directory, users[i].Info())
	}

	s.cache.Set(ctx, teacherDirectoryKey, directory, 0)
	return directory, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Store(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) loadTeacher(ctx context.Context, id string) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return user, nil
}
