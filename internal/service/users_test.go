package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*UsersService, *memory.UsersRepo) {
	t.Helper()
	repo := memory.NewUsersRepo()
	svc := NewUsersService(memory.NewUnitOfWorkFactory(), repo, security.NewHasher(bcrypt.MinCost), discardLogger())
	return svc, repo
}

func registerJohn(t *testing.T, svc *UsersService) user.Public {
	t.Helper()
	out, err := svc.RegisterUser(context.Background(), user.CreateUserRequest{
		Username:  "John",
		Password:  "hashed_pwd##",
		Interests: "Programming, gaming",
	})
	require.NoError(t, err)
	return out
}

func TestRegisterUser_ReturnsPublicProjection(t *testing.T) {
	svc, repo := newTestService(t)

	out := registerJohn(t, svc)

	assert.Equal(t, int64(1), out.ID)
	assert.Equal(t, "John", out.Username)
	assert.Equal(t, "Programming, gaming", out.Interests)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hashed_pwd")
	assert.NotContains(t, string(raw), "$2a$")

	stored, err := repo.FindOneBy(context.Background(), nil, user.IDEquals(out.ID))
	require.NoError(t, err)
	assert.NotEqual(t, "hashed_pwd##", stored.HashedPassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("hashed_pwd##")))
}

func TestRegisterUser_StampsRegistrationTime(t *testing.T) {
	svc, repo := newTestService(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	svc.now = func() time.Time { return fixed }

	out := registerJohn(t, svc)

	stored, err := repo.FindOneBy(context.Background(), nil, user.IDEquals(out.ID))
	require.NoError(t, err)
	assert.True(t, stored.RegistrationDate.Equal(fixed))
	assert.Equal(t, time.UTC, stored.RegistrationDate.Location())
}

func TestRegisterUser_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	registerJohn(t, svc)

	_, err := svc.RegisterUser(context.Background(), user.CreateUserRequest{Username: "John", Password: "other"})

	assert.ErrorIs(t, err, user.ErrUsernameTaken)
}

func TestFindByUsername(t *testing.T) {
	svc, _ := newTestService(t)
	registerJohn(t, svc)

	got, err := svc.FindByUsername(context.Background(), "John")
	require.NoError(t, err)
	assert.Equal(t, "John", got.Username)
	assert.Equal(t, "Programming, gaming", got.Interests)

	again, err := svc.FindByUsername(context.Background(), "John")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = svc.FindByUsername(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestFindByID(t *testing.T) {
	svc, _ := newTestService(t)
	john := registerJohn(t, svc)

	got, err := svc.FindByID(context.Background(), john.ID)
	require.NoError(t, err)
	assert.Equal(t, john, got)

	_, err = svc.FindByID(context.Background(), 999)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	john := registerJohn(t, svc)

	got, err := svc.Authenticate(context.Background(), "John", "hashed_pwd##")
	require.NoError(t, err)
	assert.Equal(t, john, got)

	_, wrongErr := svc.Authenticate(context.Background(), "John", "wrong")
	_, ghostErr := svc.Authenticate(context.Background(), "ghost", "anything")

	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.ErrorIs(t, ghostErr, ErrInvalidCredentials)
	assert.Equal(t, wrongErr, ghostErr)
}

type countingHasher struct {
	PasswordHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(hash, plain string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.PasswordHasher.Verify(hash, plain)
}

func TestAuthenticate_UnknownUserStillVerifies(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: security.NewHasher(bcrypt.MinCost)}
	svc := NewUsersService(memory.NewUnitOfWorkFactory(), memory.NewUsersRepo(), hasher, discardLogger())

	_, err := svc.Authenticate(context.Background(), "ghost", "anything")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.verifies)
}

type flakyHasher struct {
	PasswordHasher
	mu       sync.Mutex
	failures int
	verified []string
}

func (h *flakyHasher) Hash(plain string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failures > 0 {
		h.failures--
		return "", errors.New("entropy unavailable")
	}

	return h.PasswordHasher.Hash(plain)
}

func (h *flakyHasher) Verify(hash, plain string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, hash)
	h.mu.Unlock()
	return h.PasswordHasher.Verify(hash, plain)
}

func TestAuthenticate_DummyHashRebuiltAfterFailure(t *testing.T) {
	hasher := &flakyHasher{PasswordHasher: security.NewHasher(bcrypt.MinCost), failures: 1}
	svc := NewUsersService(memory.NewUnitOfWorkFactory(), memory.NewUsersRepo(), hasher, discardLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(ctx, "ghost", "anything")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	require.Len(t, hasher.verified, 3)
	assert.Empty(t, hasher.verified[0])
	assert.NotEmpty(t, hasher.verified[1])
	assert.Equal(t, hasher.verified[1], hasher.verified[2])
}

type failingFactory struct{ err error }

func (f failingFactory) New(ctx context.Context) (db.UnitOfWork, error) { return nil, f.err }

func TestStoreUnavailableIsNotAbsence(t *testing.T) {
	unavailable := fmt.Errorf("acquire connection: %w", db.ErrUnavailable)
	svc := NewUsersService(failingFactory{err: unavailable}, memory.NewUsersRepo(), security.NewHasher(bcrypt.MinCost), discardLogger())
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "John", "hashed_pwd##")
	assert.ErrorIs(t, err, db.ErrUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.FindByUsername(ctx, "John")
	assert.ErrorIs(t, err, db.ErrUnavailable)

	_, err = svc.RegisterUser(ctx, user.CreateUserRequest{Username: "John", Password: "pw"})
	assert.ErrorIs(t, err, db.ErrUnavailable)
}

type failingRepo struct {
	UserRepository
	err error
}

func (r failingRepo) Create(ctx context.Context, uow db.UnitOfWork, nu user.NewUser) (user.User, error) {
	return user.User{}, r.err
}

type recordingUnit struct {
	db.UnitOfWork
	began, committed, rolledBack, released bool
}

func (u *recordingUnit) Begin(ctx context.Context) error {
	u.began = true
	return nil
}

func (u *recordingUnit) Commit(ctx context.Context) error {
	u.committed = true
	return nil
}

func (u *recordingUnit) Rollback(ctx context.Context) error {
	u.rolledBack = true
	return nil
}

func (u *recordingUnit) Release() {
	u.released = true
}

type recordingFactory struct{ unit *recordingUnit }

func (f recordingFactory) New(ctx context.Context) (db.UnitOfWork, error) { return f.unit, nil }

func TestRegisterUser_RollsBackOnRepositoryError(t *testing.T) {
	unit := &recordingUnit{}
	boom := errors.New("insert failed")
	svc := NewUsersService(recordingFactory{unit: unit}, failingRepo{err: boom}, security.NewHasher(bcrypt.MinCost), discardLogger())

	_, err := svc.RegisterUser(context.Background(), user.CreateUserRequest{Username: "John", Password: "pw"})

	assert.ErrorIs(t, err, boom)
	assert.True(t, unit.began)
	assert.True(t, unit.rolledBack)
	assert.False(t, unit.committed)
	assert.True(t, unit.released)
}

func TestRegisterUser_ConcurrentDistinctUsernames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RegisterUser(ctx, user.CreateUserRequest{
				Username: fmt.Sprintf("user-%d", i),
				Password: "pw",
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < n; i++ {
		got, err := svc.FindByUsername(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("user-%d", i), got.Username)
	}
}
