package goals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/shared"
)

// Repository provides PostgreSQL backed persistence for goals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const goalColumns = `id, owner_id, title, description, target_amount, current_amount, is_completed, deadline, created_at, updated_at`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Description, &g.TargetAmount, &g.CurrentAmount,
		&g.IsCompleted, &g.Deadline, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, fmt.Errorf("goal: %w", shared.ErrNotFound)
	}
	return g, err
}

// InsertGoal stores a new goal.
func (r *Repository) InsertGoal(ctx context.Context, g Goal) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO goals (`+goalColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		g.ID, g.OwnerID, g.Title, g.Description, g.TargetAmount, g.CurrentAmount, g.IsCompleted, g.Deadline, g.CreatedAt, g.UpdatedAt)
	return err
}

// GetGoal loads a goal.
func (r *Repository) GetGoal(ctx context.Context, id uuid.UUID) (Goal, error) {
	return scanGoal(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=$1`, id))
}

// LockGoal loads a goal under a row lock.
func (r *Repository) LockGoal(ctx context.Context, id uuid.UUID) (Goal, error) {
	return scanGoal(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=$1 FOR UPDATE`, id))
}

// UpdateGoal overwrites the mutable columns.
func (r *Repository) UpdateGoal(ctx context.Context, g Goal) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE goals SET title=$2, description=$3, target_amount=$4,
current_amount=$5, is_completed=$6, deadline=$7, updated_at=$8 WHERE id=$1`,
		g.ID, g.Title, g.Description, g.TargetAmount, g.CurrentAmount, g.IsCompleted, g.Deadline, g.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("goal: %w", shared.ErrNotFound)
	}
	return nil
}

// DeleteGoal removes a goal.
func (r *Repository) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM goals WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("goal: %w", shared.ErrNotFound)
	}
	return nil
}

// ListGoals returns the owner's goals, newest first.
func (r *Repository) ListGoals(ctx context.Context, ownerID uuid.UUID) ([]Goal, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CountGoals counts the owner's active and completed goals.
func (r *Repository) CountGoals(ctx context.Context, ownerID uuid.UUID) (Counts, error) {
	var c Counts
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT
    COUNT(*) FILTER (WHERE NOT is_completed),
    COUNT(*) FILTER (WHERE is_completed)
FROM goals WHERE owner_id=$1`, ownerID).Scan(&c.Active, &c.Completed)
	return c, err
}
