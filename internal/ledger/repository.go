package ledger

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

// Repository provides PostgreSQL backed persistence for ledger entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, actor_id, kind, amount, category, description, source, cause_kind, cause_id, idempotency_key, created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var kind, causeKind string
	var causeID *uuid.UUID
	var key *string
	if err := row.Scan(&e.ID, &e.ActorID, &kind, &e.Amount, &e.Category, &e.Description, &e.Source, &causeKind, &causeID, &key, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Kind = Kind(kind)
	e.Cause.Kind = CauseKind(causeKind)
	if causeID != nil {
		e.Cause.ID = *causeID
	}
	if key != nil {
		e.IdempotencyKey = *key
	}
	return e, nil
}

// InsertEntry appends an entry. A duplicate idempotency key reports ErrConflict.
func (r *Repository) InsertEntry(ctx context.Context, e Entry) error {
	var causeID *uuid.UUID
	if e.Cause.ID != uuid.Nil {
		causeID = &e.Cause.ID
	}
	var key *string
	if e.IdempotencyKey != "" {
		key = &e.IdempotencyKey
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.ActorID, string(e.Kind), e.Amount, e.Category, e.Description, e.Source,
		string(e.Cause.Kind), causeID, key, e.CreatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: idempotency key %q already used", shared.ErrConflict, e.IdempotencyKey)
	}
	return err
}

// GetEntry loads one entry.
func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	e, err := scanEntry(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("ledger entry: %w", shared.ErrNotFound)
	}
	return e, err
}

// FindByIdempotencyKey returns the actor's entry recorded under key.
func (r *Repository) FindByIdempotencyKey(ctx context.Context, actorID uuid.UUID, key string) (Entry, bool, error) {
	e, err := scanEntry(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE actor_id=$1 AND idempotency_key=$2`, actorID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func filterClause(actorIDs []uuid.UUID, f Filter) (string, []any) {
	conds := []string{"actor_id = ANY($1::uuid[])"}
	args := []any{actorIDs}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if len(f.ExcludeCategories) > 0 {
		add("category <> ALL($%d::text[])", f.ExcludeCategories)
	}
	if !f.Range.From.IsZero() {
		add("created_at >= $%d", f.Range.From)
	}
	if !f.Range.To.IsZero() {
		add("created_at < $%d", f.Range.To)
	}
	return strings.Join(conds, " AND "), args
}

// ListEntries returns one page of matching entries, newest first, and the total count.
func (r *Repository) ListEntries(ctx context.Context, actorIDs []uuid.UUID, f Filter) ([]Entry, int, error) {
	where, args := filterClause(actorIDs, f)
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		entryColumns, where, f.Limit, f.Offset)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// SumEntries totals the entries matching f.
func (r *Repository) SumEntries(ctx context.Context, actorID uuid.UUID, f Filter) (int64, error) {
	where, args := filterClause([]uuid.UUID{actorID}, f)
	var sum int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ledger_entries WHERE `+where, args...).Scan(&sum)
	return sum, err
}

// Totals sums all entries of an actor per kind.
func (r *Repository) Totals(ctx context.Context, actorID uuid.UUID) (Totals, error) {
	var t Totals
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT
    COALESCE(SUM(amount) FILTER (WHERE kind = 'earn'), 0)::BIGINT,
    COALESCE(SUM(amount) FILTER (WHERE kind = 'spend'), 0)::BIGINT,
    COALESCE(SUM(amount) FILTER (WHERE kind = 'save'), 0)::BIGINT
FROM ledger_entries WHERE actor_id=$1`, actorID).Scan(&t.Earn, &t.Spend, &t.Save)
	return t, err
}
