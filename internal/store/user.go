package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/tienda-api/authserver/types"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, address, phone, password_hash, salt,
		reset_token, reset_token_expires, created_at, updated_at`

// UserRepository handles persistence for users. The database enforces the
// one-user-per-email and one-active-reset-token invariants through unique
// constraints; callers see them as ErrDuplicateEmail / ErrNotFound.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.queryUser(ctx, query, email)
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_token = $1`
	return r.queryUser(ctx, query, token)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, email, address, phone, password_hash, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Address,
		user.Phone,
		user.PasswordHash,
		user.Salt,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

// SetResetToken stores a fresh reset token and its expiration on the user,
// overwriting any outstanding token.
func (r *UserRepository) SetResetToken(ctx context.Context, email, token string, expires time.Time) error {
	const query = `
		UPDATE users
		SET reset_token = $1,
			reset_token_expires = $2,
			updated_at = $3
		WHERE email = $4`
	result, err := r.db.ExecContext(ctx, query, token, expires, time.Now(), email)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ResetPassword consumes the reset token and installs the new credentials in
// a single conditional write. A token that was already consumed (or never
// existed) matches no row and yields ErrNotFound, so concurrent calls with
// the same token cannot both succeed.
func (r *UserRepository) ResetPassword(ctx context.Context, token, passwordHash, salt string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			salt = $2,
			reset_token = NULL,
			reset_token_expires = NULL,
			updated_at = $3
		WHERE reset_token = $4`
	result, err := r.db.ExecContext(ctx, query, passwordHash, salt, time.Now(), token)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *UserRepository) queryUser(ctx context.Context, query string, arg any) (types.User, error) {
	var (
		user    types.User
		token   sql.NullString
		expires sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Address,
		&user.Phone,
		&user.PasswordHash,
		&user.Salt,
		&token,
		&expires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if token.Valid {
		user.ResetToken = &token.String
	}
	if expires.Valid {
		user.ResetTokenExpires = &expires.Time
	}
	return user, nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
