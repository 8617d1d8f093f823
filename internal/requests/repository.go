package requests

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

// Repository provides PostgreSQL backed persistence for coin requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, kind, requester_id, shop_item_id, price, cash_amount, description, status,
reviewed_by, reviewed_at, payout_status, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var kind, status, payout string
	err := row.Scan(&req.ID, &kind, &req.RequesterID, &req.ShopItemID, &req.Price, &req.CashAmount, &req.Description,
		&status, &req.ReviewedBy, &req.ReviewedAt, &payout, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, fmt.Errorf("request: %w", shared.ErrNotFound)
	}
	if err != nil {
		return Request{}, err
	}
	req.Kind = Kind(kind)
	req.Status = Status(status)
	req.PayoutStatus = PayoutStatus(payout)
	return req, nil
}

// InsertRequest stores a new request.
func (r *Repository) InsertRequest(ctx context.Context, req Request) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO coin_requests (`+requestColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, string(req.Kind), req.RequesterID, req.ShopItemID, req.Price, req.CashAmount, req.Description,
		string(req.Status), req.ReviewedBy, req.ReviewedAt, string(req.PayoutStatus), req.CreatedAt)
	return err
}

// GetRequest loads a request.
func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	return scanRequest(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+requestColumns+` FROM coin_requests WHERE id=$1`, id))
}

// LockRequest loads a request under a row lock.
func (r *Repository) LockRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	return scanRequest(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+requestColumns+` FROM coin_requests WHERE id=$1 FOR UPDATE`, id))
}

// UpdateRequest writes the decision and payout columns.
func (r *Repository) UpdateRequest(ctx context.Context, req Request) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE coin_requests SET status=$2, reviewed_by=$3, reviewed_at=$4, payout_status=$5 WHERE id=$1`,
		req.ID, string(req.Status), req.ReviewedBy, req.ReviewedAt, string(req.PayoutStatus))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request: %w", shared.ErrNotFound)
	}
	return nil
}

func requestWhere(f Filter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if len(f.RequesterIDs) > 0 {
		add("requester_id = ANY($%d::uuid[])", f.RequesterIDs)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.PayoutStatus != "" {
		add("payout_status = $%d", string(f.PayoutStatus))
	}
	return strings.Join(conds, " AND "), args
}

// ListRequests returns matching requests, newest first.
func (r *Repository) ListRequests(ctx context.Context, f Filter) ([]Request, error) {
	where, args := requestWhere(f)
	query := `SELECT ` + requestColumns + ` FROM coin_requests WHERE ` + where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CountRequests counts matching requests.
func (r *Repository) CountRequests(ctx context.Context, f Filter) (int, error) {
	where, args := requestWhere(f)
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM coin_requests WHERE `+where, args...).Scan(&n)
	return n, err
}
