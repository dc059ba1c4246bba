package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	usernameUniqueIndex = "users_username_key"
)

const userColumns = `id, username, hashed_pwd, registration_date, interests`

type UsersRepo struct {
	prom *observability.Prom
}

func NewUsersRepo(prom *observability.Prom) *UsersRepo {
	return &UsersRepo{prom: prom}
}

// Create inserts nu and returns the stored row with its assigned id.
func (r *UsersRepo) Create(ctx context.Context, uow db.UnitOfWork, nu user.NewUser) (u user.User, err error) {
	err = r.prom.ObserveDB("users.create", func() error {
		return scanUser(uow.Querier().QueryRow(ctx,
			`INSERT INTO users (username, hashed_pwd, registration_date, interests)
			VALUES ($1,$2,$3,$4)
			RETURNING `+userColumns,
			nu.Username, nu.HashedPassword, nu.RegistrationDate, nu.Interests,
		), &u)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == usernameUniqueIndex {
			return user.User{}, user.ErrUsernameTaken
		}

		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

// FindOneBy supports equality on id or username only. Any other spec fails
// with ErrUnsupportedSpec before the store is touched.
func (r *UsersRepo) FindOneBy(ctx context.Context, uow db.UnitOfWork, spec user.Spec) (user.User, error) {
	var (
		where string
		arg   any
		op    string
	)

	switch {
	case spec.Field() == user.FieldID && spec.IsEquality():
		where, arg, op = "id = $1", spec.ID(), "users.find_by_id"
	case spec.Field() == user.FieldUsername && spec.IsEquality():
		where, arg, op = "username = $1", spec.Username(), "users.find_by_username"
	default:
		return user.User{}, fmt.Errorf("%w: %s", user.ErrUnsupportedSpec, spec)
	}

	var u user.User

	err := r.prom.ObserveDB(op, func() error {
		return scanUser(uow.Querier().QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE `+where,
			arg,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("find user by %s: %w", spec.Field(), err)
	}

	return u, nil
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.HashedPassword,
		&u.RegistrationDate,
		&u.Interests,
	)
}
