package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/domain/user"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UnitOfWorkFactory interface {
	New(ctx context.Context) (db.UnitOfWork, error)
}

type UserRepository interface {
	Create(ctx context.Context, uow db.UnitOfWork, nu user.NewUser) (user.User, error)
	FindOneBy(ctx context.Context, uow db.UnitOfWork, spec user.Spec) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type UsersService struct {
	uows   UnitOfWorkFactory
	users  UserRepository
	hasher PasswordHasher
	log    *slog.Logger
	now    func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

func NewUsersService(uows UnitOfWorkFactory, users UserRepository, hasher PasswordHasher, log *slog.Logger) *UsersService {
	if log == nil {
		log = slog.Default()
	}

	return &UsersService{
		uows:   uows,
		users:  users,
		hasher: hasher,
		log:    log,
		now:    time.Now,
	}
}

// RegisterUser hashes the password, stamps the registration time and stores
// the user in one transaction. Duplicate usernames fail with user.ErrUsernameTaken.
func (s *UsersService) RegisterUser(ctx context.Context, req user.CreateUserRequest) (user.Public, error) {
	hash, err := s.hasher.Hash(req.Password)

	if err != nil {
		return user.Public{}, fmt.Errorf("hash password: %w", err)
	}

	nu := user.NewUser{
		Username:         req.Username,
		HashedPassword:   hash,
		RegistrationDate: s.now().UTC(),
		Interests:        req.Interests,
	}

	uow, err := s.uows.New(ctx)

	if err != nil {
		return user.Public{}, err
	}

	defer uow.Release()

	var created user.User

	err = db.RunInTx(ctx, uow, func(ctx context.Context) error {
		var cerr error
		created, cerr = s.users.Create(ctx, uow, nu)
		return cerr
	})

	if err != nil {
		return user.Public{}, err
	}

	s.log.InfoContext(ctx, "user_registered", "user_id", created.ID, "username", created.Username)

	return created.Public(), nil
}

func (s *UsersService) FindByUsername(ctx context.Context, username string) (user.Public, error) {
	u, err := s.findOne(ctx, user.UsernameEquals(username))

	if err != nil {
		return user.Public{}, err
	}

	return u.Public(), nil
}

func (s *UsersService) FindByID(ctx context.Context, id int64) (user.Public, error) {
	u, err := s.findOne(ctx, user.IDEquals(id))

	if err != nil {
		return user.Public{}, err
	}

	return u.Public(), nil
}

// Authenticate returns the user only when the password matches the stored
// hash. Unknown users still pay for one bcrypt comparison.
func (s *UsersService) Authenticate(ctx context.Context, username, password string) (user.Public, error) {
	u, err := s.findOne(ctx, user.UsernameEquals(username))

	if errors.Is(err, user.ErrNotFound) {
		s.hasher.Verify(s.dummy(), password)
		return user.Public{}, ErrInvalidCredentials
	}

	if err != nil {
		return user.Public{}, err
	}

	if !s.hasher.Verify(u.HashedPassword, password) {
		return user.Public{}, ErrInvalidCredentials
	}

	s.log.InfoContext(ctx, "user_authenticated", "user_id", u.ID, "username", u.Username)

	return u.Public(), nil
}

func (s *UsersService) findOne(ctx context.Context, spec user.Spec) (user.User, error) {
	uow, err := s.uows.New(ctx)

	if err != nil {
		return user.User{}, err
	}

	defer uow.Release()

	return s.users.FindOneBy(ctx, uow, spec)
}

// dummy returns the hash compared against when the username is unknown. A
// failed build is retried on the next call instead of being cached.
func (s *UsersService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash != "" {
		return s.dummyHash
	}

	hash, err := s.hasher.Hash("authhub-timing-equaliser")

	if err != nil {
		s.log.Warn("dummy hash unavailable", "err", err)
		return ""
	}

	s.dummyHash = hash

	return hash
}
