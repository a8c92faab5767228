package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zidesign/catalog/internal/db"
	"github.com/zidesign/catalog/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db     *sql.DB
	driver db.Driver
}

func NewUserRepository(conn *sql.DB, driver db.Driver) *UserRepository {
	return &UserRepository{db: conn, driver: driver}
}

const userColumns = `id, email, name, role, avatar, bio, password_hash, created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	query := r.driver.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = $1`)
	return r.getOne(ctx, query, id)
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := r.driver.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = $1`)
	return r.getOne(ctx, query, normalizeEmail(email))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Avatar,
		&user.Bio,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// Create inserts a new user. A duplicate email yields types.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	query := r.driver.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Name,
		user.Role,
		user.Avatar,
		user.Bio,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, fmt.Errorf("%w: email %s already registered", types.ErrConflict, user.Email)
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update. The role column is
// never written.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update types.ProfileUpdate) (types.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	user.UpdatedAt = time.Now().UTC()

	query := r.driver.Rebind(`
		UPDATE users
		SET name = $1,
			bio = $2,
			avatar = $3,
			updated_at = $4
		WHERE id = $5`)
	result, err := r.db.ExecContext(ctx, query, user.Name, user.Bio, user.Avatar, user.UpdatedAt, user.ID)
	if err != nil {
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
