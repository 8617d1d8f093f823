package activities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coincraft/coincraft/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for module progress.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertProgress stores a completion. A second completion reports ErrAlreadyCompleted.
func (r *Repository) InsertProgress(ctx context.Context, p Progress) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO module_progress (actor_id, module_id, score, coins_earned, completed_at)
VALUES ($1, $2, $3, $4, $5)`, p.ActorID, p.ModuleID, p.Score, p.CoinsEarned, p.CompletedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyCompleted
	}
	return err
}

// GetProgress returns the actor's completion of a module, if any.
func (r *Repository) GetProgress(ctx context.Context, actorID, moduleID uuid.UUID) (Progress, bool, error) {
	var p Progress
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT actor_id, module_id, score, coins_earned, completed_at
FROM module_progress WHERE actor_id=$1 AND module_id=$2`, actorID, moduleID).
		Scan(&p.ActorID, &p.ModuleID, &p.Score, &p.CoinsEarned, &p.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, err
	}
	return p, true, nil
}

// ListProgress returns the actor's completions, newest first.
func (r *Repository) ListProgress(ctx context.Context, actorID uuid.UUID) ([]Progress, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT actor_id, module_id, score, coins_earned, completed_at
FROM module_progress WHERE actor_id=$1 ORDER BY completed_at DESC`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Progress
	for rows.Next() {
		var p Progress
		if err := rows.Scan(&p.ActorID, &p.ModuleID, &p.Score, &p.CoinsEarned, &p.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
