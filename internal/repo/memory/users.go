package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/domain/user"
)

// UsersRepo keeps users in process memory. Writes are visible immediately
// and are not undone by a rollback.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]user.User
	byName map[string]int64
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:   make(map[int64]user.User),
		byName: make(map[string]int64),
	}
}

func (r *UsersRepo) Create(ctx context.Context, uow db.UnitOfWork, nu user.NewUser) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[nu.Username]; taken {
		return user.User{}, user.ErrUsernameTaken
	}

	r.nextID++

	u := user.User{
		ID:               r.nextID,
		Username:         nu.Username,
		HashedPassword:   nu.HashedPassword,
		RegistrationDate: nu.RegistrationDate,
		Interests:        nu.Interests,
	}

	r.byID[u.ID] = u
	r.byName[u.Username] = u.ID

	return u, nil
}

func (r *UsersRepo) FindOneBy(ctx context.Context, uow db.UnitOfWork, spec user.Spec) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		u  user.User
		ok bool
	)

	switch {
	case spec.Field() == user.FieldID && spec.IsEquality():
		u, ok = r.byID[spec.ID()]
	case spec.Field() == user.FieldUsername && spec.IsEquality():
		var id int64
		id, ok = r.byName[spec.Username()]
		if ok {
			u = r.byID[id]
		}
	default:
		return user.User{}, fmt.Errorf("%w: %s", user.ErrUnsupportedSpec, spec)
	}

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

type UnitOfWorkFactory struct{}

func NewUnitOfWorkFactory() *UnitOfWorkFactory {
	return &UnitOfWorkFactory{}
}

func (f *UnitOfWorkFactory) New(ctx context.Context) (db.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire unit of work: %w", err)
	}

	return &unitOfWork{}, nil
}

// unitOfWork tracks transaction state so misuse fails the same way the
// pooled one does.
type unitOfWork struct {
	inTx     bool
	released bool
}

func (u *unitOfWork) Querier() db.Querier { return nil }

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.released {
		return db.ErrReleased
	}

	if u.inTx {
		return db.ErrTxActive
	}

	u.inTx = true

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if !u.inTx {
		return db.ErrNoTx
	}

	u.inTx = false

	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if !u.inTx {
		return db.ErrNoTx
	}

	u.inTx = false

	return nil
}

func (u *unitOfWork) Release() {
	u.inTx = false
	u.released = true
}
