package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/shared"
)

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	ListItems(ctx context.Context, availableOnly bool) ([]ShopItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (ShopItem, error)
	InsertItem(ctx context.Context, it ShopItem) (bool, error)
	GetModule(ctx context.Context, id uuid.UUID) (Module, error)
	ListModules(ctx context.Context, publishedOnly bool) ([]Module, error)
	InsertModule(ctx context.Context, m Module) error
	InsertOwned(ctx context.Context, o OwnedItem) error
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]OwnedItem, error)
}

// Service serves catalog lookups and grants.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ListItems returns the shop. Children only see available items.
func (s *Service) ListItems(ctx context.Context, availableOnly bool) ([]ShopItem, error) {
	return s.repo.ListItems(ctx, availableOnly)
}

// GetItem returns one shop item.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (ShopItem, error) {
	return s.repo.GetItem(ctx, id)
}

// CreateItem adds a shop item. Guardians only.
func (s *Service) CreateItem(ctx context.Context, actor shared.Actor, input ItemInput) (ShopItem, error) {
	if !actor.Role.IsGuardian() {
		return ShopItem{}, fmt.Errorf("%w: guardian role required", shared.ErrForbidden)
	}
	if err := shared.Validate(input); err != nil {
		return ShopItem{}, err
	}
	item := newItem(input, s.now())
	inserted, err := s.repo.InsertItem(ctx, item)
	if err != nil {
		return ShopItem{}, fmt.Errorf("catalog: insert item: %w", err)
	}
	if !inserted {
		return ShopItem{}, fmt.Errorf("%w: item %q exists", shared.ErrConflict, input.Name)
	}
	return item, nil
}

func newItem(input ItemInput, now time.Time) ShopItem {
	return ShopItem{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Emoji:       input.Emoji,
		Available:   true,
		CreatedAt:   now.UTC(),
	}
}

// GetModule returns one learning module.
func (s *Service) GetModule(ctx context.Context, id uuid.UUID) (Module, error) {
	return s.repo.GetModule(ctx, id)
}

// ListModules returns modules; children only see published ones.
func (s *Service) ListModules(ctx context.Context, publishedOnly bool) ([]Module, error) {
	return s.repo.ListModules(ctx, publishedOnly)
}

// CreateModule adds a learning module. Teachers only.
func (s *Service) CreateModule(ctx context.Context, actor shared.Actor, input ModuleInput) (Module, error) {
	if actor.Role != shared.RoleTeacher {
		return Module{}, fmt.Errorf("%w: teacher role required", shared.ErrForbidden)
	}
	if err := shared.Validate(input); err != nil {
		return Module{}, err
	}
	m := Module{
		ID:           uuid.New(),
		Title:        input.Title,
		PointsReward: input.PointsReward,
		IsPublished:  input.IsPublished,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.InsertModule(ctx, m); err != nil {
		return Module{}, fmt.Errorf("catalog: insert module: %w", err)
	}
	return m, nil
}

// Owned returns the items granted to ownerID.
func (s *Service) Owned(ctx context.Context, ownerID uuid.UUID) ([]OwnedItem, error) {
	return s.repo.ListOwned(ctx, ownerID)
}

// Grant records ownership of an item. It joins the caller's atomic unit.
func (s *Service) Grant(ctx context.Context, ownerID, itemID uuid.UUID) (OwnedItem, error) {
	owned := OwnedItem{ID: uuid.New(), OwnerID: ownerID, ShopItemID: itemID, AcquiredAt: s.now().UTC()}
	if err := s.repo.InsertOwned(ctx, owned); err != nil {
		return OwnedItem{}, fmt.Errorf("catalog: grant: %w", err)
	}
	return owned, nil
}

// SeedDefaults inserts the starter shop items that are missing and returns how
// many were added.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, input := range DefaultItems {
		inserted, err := s.repo.InsertItem(ctx, newItem(input, s.now()))
		if err != nil {
			return added, fmt.Errorf("catalog: seed %q: %w", input.Name, err)
		}
		if inserted {
			added++
		}
	}
	s.logger.Info("catalog seeded", slog.Int("added", added))
	return added, nil
}
