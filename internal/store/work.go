package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zidesign/catalog/internal/db"
	"github.com/zidesign/catalog/types"
)

// WorkRepository handles persistence for works.
type WorkRepository struct {
	db     *sql.DB
	driver db.Driver
}

func NewWorkRepository(conn *sql.DB, driver db.Driver) *WorkRepository {
	return &WorkRepository{db: conn, driver: driver}
}

const workColumns = `id, title, description, category, license, tags, image_url, image_key,
	author_id, author_name, author_avatar, likes, downloads, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWork(row rowScanner) (types.Work, error) {
	var work types.Work
	var tagsJSON []byte
	if err := row.Scan(
		&work.ID,
		&work.Title,
		&work.Description,
		&work.Category,
		&work.License,
		&tagsJSON,
		&work.ImageURL,
		&work.ImageKey,
		&work.AuthorID,
		&work.AuthorName,
		&work.AuthorAvatar,
		&work.Likes,
		&work.Downloads,
		&work.Status,
		&work.CreatedAt,
		&work.UpdatedAt,
	); err != nil {
		return types.Work{}, err
	}

	_ = json.Unmarshal(tagsJSON, &work.Tags)
	if work.Tags == nil {
		work.Tags = []string{}
	}
	return work, nil
}

// List returns the works matching filter, newest first with ties broken
// by id.
func (r *WorkRepository) List(ctx context.Context, filter types.WorkFilter) ([]types.Work, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != types.StatusUnknown {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != types.CategoryUnknown {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}

	query := `SELECT ` + workColumns + ` FROM works`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, r.driver.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	works := make([]types.Work, 0)
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return works, nil
}

func (r *WorkRepository) Get(ctx context.Context, id string) (types.Work, error) {
	query := r.driver.Rebind(`SELECT ` + workColumns + ` FROM works WHERE id = $1`)
	work, err := scanWork(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Work{}, ErrNotFound
		}
		return types.Work{}, err
	}
	return work, nil
}

// Create inserts a work. ID and timestamps are assigned when empty.
func (r *WorkRepository) Create(ctx context.Context, work types.Work) (types.Work, error) {
	if work.ID == "" {
		work.ID = uuid.NewString()
	}
	if work.CreatedAt.IsZero() {
		work.CreatedAt = time.Now().UTC()
	}
	work.UpdatedAt = work.CreatedAt
	if work.Tags == nil {
		work.Tags = []string{}
	}

	tagsJSON, err := json.Marshal(work.Tags)
	if err != nil {
		return types.Work{}, err
	}

	query := r.driver.Rebind(`
		INSERT INTO works (` + workColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`)
	if _, err := r.db.ExecContext(
		ctx,
		query,
		work.ID,
		work.Title,
		work.Description,
		work.Category,
		work.License,
		string(tagsJSON),
		work.ImageURL,
		work.ImageKey,
		work.AuthorID,
		work.AuthorName,
		work.AuthorAvatar,
		work.Likes,
		work.Downloads,
		work.Status,
		work.CreatedAt,
		work.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Work{}, fmt.Errorf("%w: work %s already exists", types.ErrConflict, work.ID)
		}
		return types.Work{}, err
	}
	return work, nil
}

// UpdateStatusIfPending moves a pending work to status. Only one caller
// can win the race for a given work; the losers get
// types.ErrInvalidTransition, or ErrNotFound if the work is gone.
func (r *WorkRepository) UpdateStatusIfPending(ctx context.Context, id string, status types.Status) (types.Work, error) {
	query := r.driver.Rebind(`
		UPDATE works
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4`)
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id, types.StatusPending)
	if err != nil {
		return types.Work{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Work{}, err
	}

	work, err := r.Get(ctx, id)
	if err != nil {
		return types.Work{}, err
	}
	if affected == 0 {
		return types.Work{}, fmt.Errorf("%w: work %s is %s", types.ErrInvalidTransition, id, work.Status)
	}
	return work, nil
}

func (r *WorkRepository) Delete(ctx context.Context, id string) error {
	query := r.driver.Rebind(`DELETE FROM works WHERE id = $1`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
