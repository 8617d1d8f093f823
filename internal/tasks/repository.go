package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tasks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `id, title, description, assigned_by, assigned_to, coins_reward, due_date, status,
requires_approval, completed_at, approved_at, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	var status string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.AssignedBy, &t.AssignedTo, &t.CoinsReward, &t.DueDate,
		&status, &t.RequiresApproval, &t.CompletedAt, &t.ApprovedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, fmt.Errorf("task: %w", shared.ErrNotFound)
	}
	t.Status = Status(status)
	return t, err
}

// InsertTask stores a new task.
func (r *Repository) InsertTask(ctx context.Context, t Task) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO tasks (`+taskColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Title, t.Description, t.AssignedBy, t.AssignedTo, t.CoinsReward, t.DueDate, string(t.Status),
		t.RequiresApproval, t.CompletedAt, t.ApprovedAt, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTask loads a task.
func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	return scanTask(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
}

// LockTask loads a task under a row lock. A concurrent transition waits here
// and then sees the committed status.
func (r *Repository) LockTask(ctx context.Context, id uuid.UUID) (Task, error) {
	return scanTask(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, id))
}

// UpdateTask writes the workflow columns.
func (r *Repository) UpdateTask(ctx context.Context, t Task) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE tasks SET status=$2, completed_at=$3, approved_at=$4, updated_at=$5 WHERE id=$1`,
		t.ID, string(t.Status), t.CompletedAt, t.ApprovedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task: %w", shared.ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task: %w", shared.ErrNotFound)
	}
	return nil
}

func taskWhere(f Filter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	if f.AssignedTo != uuid.Nil {
		args = append(args, f.AssignedTo)
		conds = append(conds, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if f.AssignedBy != uuid.Nil {
		args = append(args, f.AssignedBy)
		conds = append(conds, fmt.Sprintf("assigned_by = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// ListTasks returns matching tasks, newest first.
func (r *Repository) ListTasks(ctx context.Context, f Filter) ([]Task, error) {
	where, args := taskWhere(f)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTasks counts matching tasks.
func (r *Repository) CountTasks(ctx context.Context, f Filter) (int, error) {
	where, args := taskWhere(f)
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&n)
	return n, err
}
