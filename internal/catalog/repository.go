package catalog

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

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, name, description, price, category, emoji, available, created_at`

func scanItem(row pgx.Row) (ShopItem, error) {
	var it ShopItem
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Category, &it.Emoji, &it.Available, &it.CreatedAt)
	return it, err
}

// ListItems returns shop items ordered by price.
func (r *Repository) ListItems(ctx context.Context, availableOnly bool) ([]ShopItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+itemColumns+` FROM shop_items
WHERE ($1 = FALSE OR available) ORDER BY price, name`, availableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShopItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetItem loads a shop item.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (ShopItem, error) {
	it, err := scanItem(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+itemColumns+` FROM shop_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ShopItem{}, fmt.Errorf("shop item: %w", shared.ErrNotFound)
	}
	return it, err
}

// InsertItem adds an item unless one with the same name exists. It reports
// whether a row was inserted.
func (r *Repository) InsertItem(ctx context.Context, it ShopItem) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO shop_items (`+itemColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (name) DO NOTHING`,
		it.ID, it.Name, it.Description, it.Price, it.Category, it.Emoji, it.Available, it.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const moduleColumns = `id, title, points_reward, is_published, created_at`

func scanModule(row pgx.Row) (Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.Title, &m.PointsReward, &m.IsPublished, &m.CreatedAt)
	return m, err
}

// GetModule loads a learning module.
func (r *Repository) GetModule(ctx context.Context, id uuid.UUID) (Module, error) {
	m, err := scanModule(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+moduleColumns+` FROM learning_modules WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Module{}, fmt.Errorf("module: %w", shared.ErrNotFound)
	}
	return m, err
}

// ListModules returns modules, newest first.
func (r *Repository) ListModules(ctx context.Context, publishedOnly bool) ([]Module, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+moduleColumns+` FROM learning_modules
WHERE ($1 = FALSE OR is_published) ORDER BY created_at DESC`, publishedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertModule adds a module.
func (r *Repository) InsertModule(ctx context.Context, m Module) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO learning_modules (`+moduleColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Title, m.PointsReward, m.IsPublished, m.CreatedAt)
	return err
}

// InsertOwned records an owned item.
func (r *Repository) InsertOwned(ctx context.Context, o OwnedItem) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO owned_items (id, owner_id, shop_item_id, acquired_at) VALUES ($1, $2, $3, $4)`,
		o.ID, o.OwnerID, o.ShopItemID, o.AcquiredAt)
	return err
}

// ListOwned returns the owner's items, newest first.
func (r *Repository) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]OwnedItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, owner_id, shop_item_id, acquired_at FROM owned_items
WHERE owner_id=$1 ORDER BY acquired_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OwnedItem
	for rows.Next() {
		var o OwnedItem
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.ShopItemID, &o.AcquiredAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
