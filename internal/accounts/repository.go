package accounts

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

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `actor_id, role, balance, parent_id, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var role string
	if err := row.Scan(&a.ActorID, &role, &a.Balance, &a.ParentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("account: %w", shared.ErrNotFound)
		}
		return Account{}, err
	}
	a.Role = shared.Role(role)
	return a, nil
}

// CreateAccount inserts a new account.
func (r *Repository) CreateAccount(ctx context.Context, a Account) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO accounts (actor_id, role, balance, parent_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`, a.ActorID, string(a.Role), a.Balance, a.ParentID, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("account %s: %w", a.ActorID, shared.ErrConflict)
	}
	return err
}

// GetAccount loads an account without locking.
func (r *Repository) GetAccount(ctx context.Context, actorID uuid.UUID) (Account, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE actor_id=$1`, actorID)
	return scanAccount(row)
}

// LockAccount loads an account and holds its row lock until the surrounding
// transaction ends.
func (r *Repository) LockAccount(ctx context.Context, actorID uuid.UUID) (Account, error) {
	if !db.InTx(ctx) {
		return Account{}, errors.New("accounts: lock outside transaction")
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE actor_id=$1 FOR UPDATE`, actorID)
	return scanAccount(row)
}

// SetBalance overwrites the stored balance.
func (r *Repository) SetBalance(ctx context.Context, actorID uuid.UUID, balance int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE accounts SET balance=$2, updated_at=NOW() WHERE actor_id=$1`, actorID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account: %w", shared.ErrNotFound)
	}
	return nil
}

// LinkParent sets parent_id when the child is unlinked or already linked to guardianID.
func (r *Repository) LinkParent(ctx context.Context, childID, guardianID uuid.UUID) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE accounts SET parent_id=$2, updated_at=NOW()
WHERE actor_id=$1 AND (parent_id IS NULL OR parent_id=$2)`, childID, guardianID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListChildren returns accounts whose guardian is guardianID.
func (r *Repository) ListChildren(ctx context.Context, guardianID uuid.UUID) ([]Account, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE parent_id=$1 ORDER BY created_at, actor_id`, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetSettings returns the guardian's settings; ok is false when none are stored.
func (r *Repository) GetSettings(ctx context.Context, guardianID uuid.UUID) (GuardianSettings, bool, error) {
	var s GuardianSettings
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT guardian_id, exchange_rate, updated_at FROM guardian_settings WHERE guardian_id=$1`, guardianID).
		Scan(&s.GuardianID, &s.ExchangeRate, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return GuardianSettings{}, false, nil
	}
	if err != nil {
		return GuardianSettings{}, false, err
	}
	return s, true, nil
}

// UpsertSettings stores the guardian's settings.
func (r *Repository) UpsertSettings(ctx context.Context, s GuardianSettings) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO guardian_settings (guardian_id, exchange_rate, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (guardian_id) DO UPDATE SET exchange_rate=EXCLUDED.exchange_rate, updated_at=EXCLUDED.updated_at`,
		s.GuardianID, s.ExchangeRate, s.UpdatedAt)
	return err
}
