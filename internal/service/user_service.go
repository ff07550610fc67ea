package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Result is the uniform envelope returned by every user operation.
type Result[T any] struct {
	Status  int
	Message string
	Data    T
}

// CreateUserInput describes user creation payload.
type CreateUserInput struct {
	FullName string
	Email    string
	Password string
}

// UpdateUserInput carries the fields supplied on update; nil means unchanged.
type UpdateUserInput struct {
	FullName *string
	Email    *string
	Password *string
}

// ListUsersInput describes list parameters as received from the caller.
type ListUsersInput struct {
	Page        int
	Limit       int
	SortOrder   string
	FilterField string
	FilterValue string
	SearchKey   string
}

// UserService coordinates user CRUD workflows.
type UserService struct {
	users      repository.UserRepository
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     auth.PasswordHasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create normalizes the email, rejects duplicates, hashes the password and stores the user.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (Result[struct{}], error) {
	email := domain.NormalizeEmail(in.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Result[struct{}]{}, apperrors.NewAlreadyExists("Email already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Result[struct{}]{}, s.internal("create user: lookup email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Result[struct{}]{}, s.internal("create user: hash password", err)
	}

	user := &domain.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Result[struct{}]{}, s.translate("create user", err)
	}

	s.emit(ctx, events.NewEvent(events.EventUserCreated, user.ID, events.UserCreatedPayload{
		FullName: user.FullName,
		Email:    user.Email,
	}))
	return Result[struct{}]{Status: http.StatusCreated, Message: "User created successfully"}, nil
}

// List returns one page of users matching the filter. An empty page is not an error.
func (s *UserService) List(ctx context.Context, in ListUsersInput) (Result[[]domain.Profile], error) {
	filter := BuildUserFilter(in)

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return Result[[]domain.Profile]{}, s.internal("list users", err)
	}

	profiles := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return Result[[]domain.Profile]{
		Status:  http.StatusOK,
		Message: "List of users successfully retrieved",
		Data:    profiles,
	}, nil
}

// GetByID returns the user profile or a NotFound failure.
func (s *UserService) GetByID(ctx context.Context, id string) (Result[domain.Profile], error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Result[domain.Profile]{}, s.translate("get user", err)
	}
	return Result[domain.Profile]{Status: http.StatusOK, Message: "User found", Data: user.Profile()}, nil
}

// Update changes only the supplied fields, re-hashing the password when one is given.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (Result[struct{}], error) {
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Result[struct{}]{}, s.translate("update user", err)
	}

	var patch domain.UserPatch
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		patch.FullName = &name
	}
	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if email != current.Email {
			if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != current.ID {
				return Result[struct{}]{}, apperrors.NewAlreadyExists("Email already exists", nil)
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return Result[struct{}]{}, s.internal("update user: lookup email", err)
			}
		}
		patch.Email = &email
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return Result[struct{}]{}, s.internal("update user: hash password", err)
		}
		patch.PasswordHash = &hash
	}

	ok := Result[struct{}]{Status: http.StatusOK, Message: "User updated successfully"}
	if patch.Empty() {
		return ok, nil
	}
	if err := s.users.Update(ctx, current.ID, patch); err != nil {
		return Result[struct{}]{}, s.translate("update user", err)
	}

	s.emit(ctx, events.NewEvent(events.EventUserUpdated, current.ID, events.UserUpdatedPayload{Fields: patch.Fields()}))
	return ok, nil
}

// Delete permanently removes the user.
func (s *UserService) Delete(ctx context.Context, id string) (Result[struct{}], error) {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return Result[struct{}]{}, s.translate("delete user", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return Result[struct{}]{}, s.translate("delete user", err)
	}

	s.emit(ctx, events.NewEvent(events.EventUserDeleted, id, nil))
	return Result[struct{}]{Status: http.StatusOK, Message: "User deleted successfully"}, nil
}

// BuildUserFilter clamps paging and resolves the exact-match field. The exact
// match and the free-text search are ANDed; the search itself ORs name and email.
func BuildUserFilter(in ListUsersInput) repository.UserFilter {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter := repository.UserFilter{
		Search: strings.TrimSpace(in.SearchKey),
		Sort:   domain.ParseSortOrder(in.SortOrder),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if in.FilterField != "" && in.FilterValue != "" {
		if field, ok := domain.ParseFilterField(in.FilterField); ok {
			value := in.FilterValue
			switch field {
			case domain.FilterEmail:
				value = domain.NormalizeEmail(value)
			case domain.FilterID:
				value = strings.ToLower(strings.TrimSpace(value))
			}
			filter.ExactField = &field
			filter.ExactValue = value
		}
	}
	return filter
}

func (s *UserService) translate(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("User", err)
	case errors.Is(err, repository.ErrEmailTaken):
		return apperrors.NewAlreadyExists("Email already exists", err)
	default:
		return s.internal(op, err)
	}
}

func (s *UserService) internal(op string, err error) error {
	s.logger.Error(op, zap.Error(err))
	return apperrors.NewInternalError(err)
}

func (s *UserService) emit(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event dispatch failed",
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
}
