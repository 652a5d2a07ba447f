package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tienda-api/authserver/types"
)

func newMockRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db), mock
}

func userRows(user types.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "email", "address", "phone", "password_hash", "salt",
		"reset_token", "reset_token_expires", "created_at", "updated_at",
	})
	var token any
	var expires any
	if user.ResetToken != nil {
		token = *user.ResetToken
	}
	if user.ResetTokenExpires != nil {
		expires = *user.ResetTokenExpires
	}
	return rows.AddRow(
		user.ID, user.Name, user.Email, user.Address, user.Phone,
		user.PasswordHash, user.Salt, token, expires, user.CreatedAt, user.UpdatedAt,
	)
}

func TestGetByEmailFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	want := types.User{ID: 1, Name: "A", Email: "a@x.com", PasswordHash: "hash", Salt: "salt"}
	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(userRows(want))

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Email, got.Email)
	assert.Nil(t, got.ResetToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("nobody@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByResetTokenScansTokenPair(t *testing.T) {
	repo, mock := newMockRepo(t)

	token := "tok"
	expires := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	want := types.User{ID: 2, Email: "a@x.com", ResetToken: &token, ResetTokenExpires: &expires}
	mock.ExpectQuery(`WHERE reset_token = \$1`).
		WithArgs("tok").
		WillReturnRows(userRows(want))

	got, err := repo.GetByResetToken(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, got.ResetToken)
	assert.Equal(t, "tok", *got.ResetToken)
	require.NotNil(t, got.ResetTokenExpires)
	assert.Equal(t, expires, got.ResetTokenExpires.Truncate(time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignsID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("A", "a@x.com", "", "", "hash", "salt", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	created, err := repo.Create(context.Background(), types.User{
		Name: "A", Email: "a@x.com", PasswordHash: "hash", Salt: "salt",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "users_email_key"})

	_, err := repo.Create(context.Background(), types.User{Name: "A", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetResetTokenUnknownEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetResetToken(context.Background(), "nobody@x.com", "tok", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordConsumesToken(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE users`).
		WithArgs("newhash", "newsalt", sqlmock.AnyArg(), "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ResetPassword(context.Background(), "tok", "newhash", "newsalt")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordAlreadyConsumed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ResetPassword(context.Background(), "tok", "newhash", "newsalt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
