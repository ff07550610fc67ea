package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
)

// steppingClock returns a strictly increasing time on every call.
func steppingClock() func() time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func seedUsers(t *testing.T, repo *MemoryUserRepository, count int) []domain.User {
	t.Helper()
	users := make([]domain.User, 0, count)
	for i := 1; i <= count; i++ {
		u := &domain.User{
			FullName:     fmt.Sprintf("User %02d", i),
			Email:        fmt.Sprintf("user%02d@example.com", i),
			PasswordHash: "hash",
		}
		require.NoError(t, repo.Create(context.Background(), u))
		users = append(users, *u)
	}
	return users
}

func TestMemoryRepo_CreateAssignsIdentity(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := &domain.User{FullName: "A", Email: "a@x.com", PasswordHash: "h"}

	require.NoError(t, repo.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestMemoryRepo_EmailUniqueness(t *testing.T) {
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.Create(context.Background(), &domain.User{FullName: "A", Email: "a@x.com"}))

	err := repo.Create(context.Background(), &domain.User{FullName: "B", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestMemoryRepo_ConcurrentDuplicateCreate(t *testing.T) {
	repo := NewMemoryUserRepository()
	const workers = 16
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			errs <- repo.Create(context.Background(), &domain.User{FullName: "Same", Email: "same@x.com"})
		}()
	}

	var ok, taken int
	for i := 0; i < workers; i++ {
		switch err := <-errs; err {
		case nil:
			ok++
		case ErrEmailTaken:
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, taken)
}

func TestMemoryRepo_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := &domain.User{FullName: "A", Email: "a@x.com"}
	require.NoError(t, repo.Create(context.Background(), u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	got.FullName = "mutated"

	again, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.FullName)
}

func TestMemoryRepo_UpdatePartial(t *testing.T) {
	repo := NewMemoryUserRepository().WithClock(steppingClock())
	u := &domain.User{FullName: "A", Email: "a@x.com", PasswordHash: "h1"}
	require.NoError(t, repo.Create(context.Background(), u))

	name := "Alice"
	require.NoError(t, repo.Update(context.Background(), u.ID, domain.UserPatch{FullName: &name}))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FullName)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "h1", got.PasswordHash)
	assert.Equal(t, 1, got.Version)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, u.CreatedAt, got.CreatedAt)
}

func TestMemoryRepo_UpdateEmailReindexes(t *testing.T) {
	repo := NewMemoryUserRepository()
	a := &domain.User{FullName: "A", Email: "a@x.com"}
	b := &domain.User{FullName: "B", Email: "b@x.com"}
	require.NoError(t, repo.Create(context.Background(), a))
	require.NoError(t, repo.Create(context.Background(), b))

	taken := "b@x.com"
	assert.ErrorIs(t, repo.Update(context.Background(), a.ID, domain.UserPatch{Email: &taken}), ErrEmailTaken)

	fresh := "c@x.com"
	require.NoError(t, repo.Update(context.Background(), a.ID, domain.UserPatch{Email: &fresh}))

	_, err := repo.GetByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := repo.GetByEmail(context.Background(), "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	same := "c@x.com"
	assert.NoError(t, repo.Update(context.Background(), a.ID, domain.UserPatch{Email: &same}))
}

func TestMemoryRepo_MissingIDs(t *testing.T) {
	repo := NewMemoryUserRepository()
	name := "x"

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), "nope", domain.UserPatch{FullName: &name}), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), ErrNotFound)
}

func TestMemoryRepo_DeleteFreesEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := &domain.User{FullName: "A", Email: "a@x.com"}
	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, repo.Delete(context.Background(), u.ID))

	_, err := repo.GetByID(context.Background(), u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, repo.Create(context.Background(), &domain.User{FullName: "A2", Email: "a@x.com"}))
}

func TestMemoryRepo_ListPagination(t *testing.T) {
	repo := NewMemoryUserRepository().WithClock(steppingClock())
	seeded := seedUsers(t, repo, 12)

	page, err := repo.List(context.Background(), UserFilter{Limit: 5, Offset: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	for i, u := range page {
		assert.Equal(t, seeded[5+i].ID, u.ID)
	}

	last, err := repo.List(context.Background(), UserFilter{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, last, 2)

	beyond, err := repo.List(context.Background(), UserFilter{Limit: 5, Offset: 50})
	require.NoError(t, err)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)
}

func TestMemoryRepo_ListSortDescending(t *testing.T) {
	repo := NewMemoryUserRepository().WithClock(steppingClock())
	seeded := seedUsers(t, repo, 3)

	got, err := repo.List(context.Background(), UserFilter{Sort: domain.SortDescending})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, seeded[2].ID, got[0].ID)
	assert.Equal(t, seeded[0].ID, got[2].ID)
}

func TestMemoryRepo_ListTiesKeepInsertionOrder(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryUserRepository().WithClock(func() time.Time { return fixed })
	seeded := seedUsers(t, repo, 4)

	got, err := repo.List(context.Background(), UserFilter{})
	require.NoError(t, err)
	for i := range seeded {
		assert.Equal(t, seeded[i].ID, got[i].ID)
	}
}

func TestMemoryRepo_ListFilterAndSearch(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{FullName: "Alice Smith", Email: "alice@x.com"}))
	require.NoError(t, repo.Create(ctx, &domain.User{FullName: "Bob Stone", Email: "bob@smith.io"}))
	require.NoError(t, repo.Create(ctx, &domain.User{FullName: "Carol", Email: "carol@x.com"}))

	search, err := repo.List(ctx, UserFilter{Search: "SMITH"})
	require.NoError(t, err)
	assert.Len(t, search, 2)

	field := domain.FilterFullName
	combined, err := repo.List(ctx, UserFilter{ExactField: &field, ExactValue: "Bob Stone", Search: "smith"})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "bob@smith.io", combined[0].Email)

	none, err := repo.List(ctx, UserFilter{ExactField: &field, ExactValue: "Carol", Search: "smith"})
	require.NoError(t, err)
	assert.Empty(t, none)

	unknown := domain.FilterField("password")
	ignored, err := repo.List(ctx, UserFilter{ExactField: &unknown, ExactValue: "x", Search: "carol"})
	require.NoError(t, err)
	assert.Len(t, ignored, 1)
}
