package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return d.err
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

// failingRepo fails every call with err.
type failingRepo struct{ err error }

func (f failingRepo) Create(context.Context, *domain.User) error { return f.err }
func (f failingRepo) GetByID(context.Context, string) (*domain.User, error) {
	return nil, f.err
}
func (f failingRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, f.err
}
func (f failingRepo) Update(context.Context, string, domain.UserPatch) error { return f.err }
func (f failingRepo) Delete(context.Context, string) error                   { return f.err }
func (f failingRepo) List(context.Context, repository.UserFilter) ([]domain.User, error) {
	return nil, f.err
}

// racingRepo hides existing emails from GetByEmail so the store's own uniqueness check decides.
type racingRepo struct {
	*repository.MemoryUserRepository
}

func (r racingRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

type fixture struct {
	svc        *UserService
	repo       *repository.MemoryUserRepository
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo := repository.NewMemoryUserRepository().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	d := &recordingDispatcher{}
	svc := NewUserService(UserDependencies{
		UserRepo:   repo,
		Hasher:     auth.NewBcryptHasher(bcrypt.MinCost),
		Dispatcher: d,
		Logger:     zap.NewNop(),
	})
	return fixture{svc: svc, repo: repo, dispatcher: d}
}

func (f fixture) mustCreate(t *testing.T, name, email, password string) *domain.User {
	t.Helper()
	_, err := f.svc.Create(context.Background(), CreateUserInput{FullName: name, Email: email, Password: password})
	require.NoError(t, err)
	u, err := f.repo.GetByEmail(context.Background(), domain.NormalizeEmail(email))
	require.NoError(t, err)
	return u
}

func TestCreate_NormalizesEmailAndHashesPassword(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), CreateUserInput{FullName: "A", Email: " A@X.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "User created successfully", res.Message)

	stored, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	assert.Equal(t, []events.EventType{events.EventUserCreated}, f.dispatcher.types())
}

func TestCreate_DuplicateEmailCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "A", "A@X.com", "secret1")

	_, err := f.svc.Create(context.Background(), CreateUserInput{FullName: "B", Email: "a@x.com", Password: "secret2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExistsKind)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "Email already exists", de.Message)
}

func TestCreate_StoreUniquenessIsFinalAuthority(t *testing.T) {
	mem := repository.NewMemoryUserRepository()
	svc := NewUserService(UserDependencies{
		UserRepo: racingRepo{mem},
		Hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
	})

	_, err := svc.Create(context.Background(), CreateUserInput{FullName: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{FullName: "B", Email: "A@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExistsKind)
}

func TestCreate_ConcurrentSameEmail(t *testing.T) {
	f := newFixture(t)
	const workers = 8

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), CreateUserInput{FullName: "Same", Email: "same@x.com", Password: "secret1"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExistsKind)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCreate_StoreFailureIsInternal(t *testing.T) {
	svc := NewUserService(UserDependencies{
		UserRepo: failingRepo{err: errors.New("dial tcp: connection refused")},
		Hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
	})

	_, err := svc.Create(context.Background(), CreateUserInput{FullName: "A", Email: "a@x.com", Password: "secret1"})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Equal(t, apperrors.InternalMessage, de.Message)
}

func TestCreate_EventFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("broker down")

	_, err := f.svc.Create(context.Background(), CreateUserInput{FullName: "A", Email: "a@x.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	u := f.mustCreate(t, "A", "a@x.com", "secret1")

	res, err := f.svc.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "User found", res.Message)
	assert.Equal(t, u.ID, res.Data.ID)
	assert.Equal(t, "a@x.com", res.Data.Email)

	_, err = f.svc.GetByID(context.Background(), "7d5e1c6a-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFoundKind)
	assert.Equal(t, "User not found", apperrors.ToDomainError(err).Message)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	u := f.mustCreate(t, "A", "a@x.com", "secret1")

	res, err := f.svc.Delete(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "User deleted successfully", res.Message)

	_, err = f.svc.GetByID(context.Background(), u.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFoundKind)

	_, err = f.svc.Delete(context.Background(), u.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFoundKind)

	assert.Equal(t, []events.EventType{events.EventUserCreated, events.EventUserDeleted}, f.dispatcher.types())
}

func TestUpdate_PartialFieldsOnly(t *testing.T) {
	f := newFixture(t)
	u := f.mustCreate(t, "A", "a@x.com", "secret1")

	name := "Alice"
	res, err := f.svc.Update(context.Background(), u.ID, UpdateUserInput{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "User updated successfully", res.Message)

	got, err := f.repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FullName)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, u.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(u.UpdatedAt))
}

func TestUpdate_RehashesPassword(t *testing.T) {
	f := newFixture(t)
	u := f.mustCreate(t, "A", "a@x.com", "secret1")

	pw := "newsecret"
	_, err := f.svc.Update(context.Background(), u.ID, UpdateUserInput{Password: &pw})
	require.NoError(t, err)

	got, err := f.repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "newsecret", got.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("newsecret")))
	assert.Equal(t, "A", got.FullName)

	f.dispatcher.mu.Lock()
	last := f.dispatcher.events[len(f.dispatcher.events)-1]
	f.dispatcher.mu.Unlock()
	assert.Equal(t, events.EventUserUpdated, last.Type)
	assert.Equal(t, events.UserUpdatedPayload{Fields: []string{"password"}}, last.Payload)
}

func TestUpdate_Email(t *testing.T) {
	f := newFixture(t)
	a := f.mustCreate(t, "A", "a@x.com", "secret1")
	f.mustCreate(t, "B", "b@x.com", "secret1")

	taken := " B@X.COM"
	_, err := f.svc.Update(context.Background(), a.ID, UpdateUserInput{Email: &taken})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExistsKind)

	same := "A@x.com"
	_, err = f.svc.Update(context.Background(), a.ID, UpdateUserInput{Email: &same})
	assert.NoError(t, err)

	fresh := "C@X.com"
	_, err = f.svc.Update(context.Background(), a.ID, UpdateUserInput{Email: &fresh})
	require.NoError(t, err)
	got, err := f.repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@x.com", got.Email)
}

func TestUpdate_NotFoundAndEmptyPatch(t *testing.T) {
	f := newFixture(t)
	name := "x"
	_, err := f.svc.Update(context.Background(), "missing", UpdateUserInput{FullName: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFoundKind)

	u := f.mustCreate(t, "A", "a@x.com", "secret1")
	res, err := f.svc.Update(context.Background(), u.ID, UpdateUserInput{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)

	got, err := f.repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Version)
}

func TestList_PaginationSecondPage(t *testing.T) {
	f := newFixture(t)
	var created []*domain.User
	for i := 1; i <= 12; i++ {
		created = append(created, f.mustCreate(t, fmt.Sprintf("User %d", i), fmt.Sprintf("u%d@x.com", i), "secret1"))
	}

	res, err := f.svc.List(context.Background(), ListUsersInput{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	require.Len(t, res.Data, 5)
	for i, p := range res.Data {
		assert.Equal(t, created[5+i].ID, p.ID)
	}

	desc, err := f.svc.List(context.Background(), ListUsersInput{Page: 1, Limit: 3, SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, desc.Data, 3)
	assert.Equal(t, created[11].ID, desc.Data[0].ID)
}

func TestList_EmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.List(context.Background(), ListUsersInput{SearchKey: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestList_FilterAndSearch(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "Alice Smith", "alice@x.com", "secret1")
	f.mustCreate(t, "Bob", "bob@smith.io", "secret1")

	res, err := f.svc.List(context.Background(), ListUsersInput{FilterField: "email", FilterValue: "ALICE@x.com"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Alice Smith", res.Data[0].FullName)

	res, err = f.svc.List(context.Background(), ListUsersInput{SearchKey: "smith"})
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)

	res, err = f.svc.List(context.Background(), ListUsersInput{FilterField: "password", FilterValue: "x"})
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
}

func TestList_StoreFailure(t *testing.T) {
	svc := NewUserService(UserDependencies{UserRepo: failingRepo{err: errors.New("timeout")}})
	_, err := svc.List(context.Background(), ListUsersInput{})
	assert.ErrorIs(t, err, apperrors.ErrInternalKind)
}

func TestBuildUserFilter(t *testing.T) {
	tests := []struct {
		name       string
		in         ListUsersInput
		wantLimit  int
		wantOffset int
		wantSort   domain.SortOrder
	}{
		{"defaults", ListUsersInput{}, DefaultPageSize, 0, domain.SortAscending},
		{"page two of five", ListUsersInput{Page: 2, Limit: 5}, 5, 5, domain.SortAscending},
		{"limit capped", ListUsersInput{Page: 3, Limit: 1000, SortOrder: "desc"}, MaxPageSize, 2 * MaxPageSize, domain.SortDescending},
		{"negative page", ListUsersInput{Page: -4, Limit: 7}, 7, 0, domain.SortAscending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := BuildUserFilter(tt.in)
			assert.Equal(t, tt.wantLimit, f.Limit)
			assert.Equal(t, tt.wantOffset, f.Offset)
			assert.Equal(t, tt.wantSort, f.Sort)
		})
	}

	onlyField := BuildUserFilter(ListUsersInput{FilterField: "email"})
	assert.Nil(t, onlyField.ExactField)

	id := BuildUserFilter(ListUsersInput{FilterField: "id", FilterValue: " ABC "})
	require.NotNil(t, id.ExactField)
	assert.Equal(t, "abc", id.ExactValue)
}
