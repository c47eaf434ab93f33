package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core/user"
)

const userColumns = `id, email, role, password_hash, is_active, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, id, email string, excludedIDs ...string) error {
	var taken []struct {
		ID    string `db:"id"`
		Email string `db:"email"`
	}
	q := `SELECT id, email FROM account WHERE (id = $1 OR email = $2) AND NOT (id = ANY($3))`
	if err := repo.db.SelectContext(ctx, &taken, q, id, email, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "selecting accounts")
	}
	for _, usr := range taken {
		if usr.ID == id {
			return user.ErrIDExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO account (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + userColumns
	var created user.User
	err := repo.db.GetContext(ctx, &created, q,
		usr.ID, usr.Email, usr.Role, usr.PasswordHash, usr.IsActive, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrIDExists
		}
		return user.User{}, errors.Wrap(err, "inserting account")
	}
	return created, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	if filter.IsEmpty() {
		return user.User{}, user.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM account WHERE ($1 <> '' AND id = $1) OR ($2 <> '' AND email = $2) LIMIT 1`
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, q, filter.ID, filter.Email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE account
		SET email = $2, role = $3, password_hash = $4, is_active = $5, updated_at = $6, last_login = $7
		WHERE id = $1
		RETURNING ` + userColumns
	var updated user.User
	err := repo.db.GetContext(ctx, &updated, q,
		usr.ID, usr.Email, usr.Role, usr.PasswordHash, usr.IsActive, usr.UpdatedAt, usr.LastLogin)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return updated, nil
}
