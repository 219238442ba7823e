package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	emailConstraint = "users_email_key"
)

// userColumns deliberately omits password_hash.
const userColumns = `id, email, COALESCE(name, ''), COALESCE(google_id, ''), created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, name, google_id, password_hash)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.GoogleID,
		user.PasswordHash,
	)

	created, err := scanUser(row)
	if err != nil {
		return nil, mapCreateErr(err)
	}
	return created, nil
}

// mapCreateErr reports a taken email as domain.ErrUserExists. Other
// unique violations are passed through so callers do not mistake them
// for a lost find-or-create race.
func mapCreateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailConstraint {
		return domain.ErrUserExists
	}
	return err
}

// AttachGoogleID sets google_id only if it is still empty, so a
// concurrent login that already linked an account is left untouched.
func (r *UserRepository) AttachGoogleID(ctx context.Context, userID, googleID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET google_id = $2, updated_at = now() WHERE id = $1 AND google_id IS NULL`,
		userID, googleID,
	)
	if err != nil {
		return fmt.Errorf("attach google id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return domain.ErrUserNotFound
		}
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.GoogleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
