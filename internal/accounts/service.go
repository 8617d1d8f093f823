package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coincraft/coincraft/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, actorID uuid.UUID) (Account, error)
	LockAccount(ctx context.Context, actorID uuid.UUID) (Account, error)
	SetBalance(ctx context.Context, actorID uuid.UUID, balance int64) error
	ListChildren(ctx context.Context, guardianID uuid.UUID) ([]Account, error)
	// LinkParent sets the child's guardian unless another guardian holds it.
	// linked is false when the child already belongs to someone else.
	LinkParent(ctx context.Context, childID, guardianID uuid.UUID) (linked bool, err error)
	GetSettings(ctx context.Context, guardianID uuid.UUID) (GuardianSettings, bool, error)
	UpsertSettings(ctx context.Context, s GuardianSettings) error
}

// Service handles account registration and lookups. Balances are read here but
// only the ledger writes them.
type Service struct {
	repo        RepositoryPort
	logger      *slog.Logger
	defaultRate decimal.Decimal
	now         func() time.Time
}

// NewService builds Service instance. defaultRate applies to guardians without settings.
func NewService(repo RepositoryPort, logger *slog.Logger, defaultRate decimal.Decimal) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, defaultRate: defaultRate, now: time.Now}
}

// Register creates the account for an actor with a zero balance.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	if input.ActorID == uuid.Nil {
		return Account{}, fmt.Errorf("%w: actor_id required", shared.ErrValidation)
	}
	if err := shared.Validate(input); err != nil {
		return Account{}, err
	}
	now := s.now().UTC()
	acct := Account{
		ActorID:   input.ActorID,
		Role:      input.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateAccount(ctx, acct); err != nil {
		return Account{}, fmt.Errorf("accounts: create: %w", err)
	}
	s.logger.Info("account registered", slog.String("actor_id", acct.ActorID.String()), slog.String("role", string(acct.Role)))
	return acct, nil
}

// LinkChild makes guardian the guardian of childID. Linking a child already
// linked to the same guardian is a no-op; a child held by another guardian is
// a conflict.
func (s *Service) LinkChild(ctx context.Context, guardian shared.Actor, childID uuid.UUID) (Account, error) {
	if !guardian.Role.IsGuardian() {
		return Account{}, fmt.Errorf("%w: guardian role required", shared.ErrForbidden)
	}
	if _, err := s.repo.GetAccount(ctx, guardian.ID); err != nil {
		return Account{}, fmt.Errorf("accounts: load guardian: %w", err)
	}
	child, err := s.repo.GetAccount(ctx, childID)
	if err != nil {
		return Account{}, err
	}
	if !child.Role.IsChild() {
		return Account{}, fmt.Errorf("%w: %s is not a child account", shared.ErrValidation, childID)
	}
	if child.IsChildOf(guardian.ID) {
		return child, nil
	}
	linked, err := s.repo.LinkParent(ctx, childID, guardian.ID)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: link child: %w", err)
	}
	if !linked {
		return Account{}, fmt.Errorf("%w: child already has a guardian", shared.ErrConflict)
	}
	parent := guardian.ID
	child.ParentID = &parent
	s.logger.Info("child linked", slog.String("guardian_id", guardian.ID.String()), slog.String("child_id", childID.String()))
	return child, nil
}

// Get returns an account.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID) (Account, error) {
	return s.repo.GetAccount(ctx, actorID)
}

// GetBalance returns the actor's current balance.
func (s *Service) GetBalance(ctx context.Context, actorID uuid.UUID) (int64, error) {
	acct, err := s.repo.GetAccount(ctx, actorID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// GuardianOf returns the actor's guardian, or nil when the actor has none.
func (s *Service) GuardianOf(ctx context.Context, actorID uuid.UUID) (*uuid.UUID, error) {
	acct, err := s.repo.GetAccount(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return acct.ParentID, nil
}

// RequireGuardian returns the child's account when guardianID is its guardian,
// and ErrForbidden otherwise.
func (s *Service) RequireGuardian(ctx context.Context, guardianID, childID uuid.UUID) (Account, error) {
	child, err := s.repo.GetAccount(ctx, childID)
	if err != nil {
		return Account{}, err
	}
	if !child.IsChildOf(guardianID) {
		return Account{}, fmt.Errorf("%w: not the guardian of %s", shared.ErrForbidden, childID)
	}
	return child, nil
}

// Children lists the guardian's children.
func (s *Service) Children(ctx context.Context, guardianID uuid.UUID) ([]Account, error) {
	return s.repo.ListChildren(ctx, guardianID)
}

// Settings returns the guardian's settings, falling back to the default rate.
func (s *Service) Settings(ctx context.Context, guardianID uuid.UUID) (GuardianSettings, error) {
	settings, ok, err := s.repo.GetSettings(ctx, guardianID)
	if err != nil {
		return GuardianSettings{}, err
	}
	if !ok {
		return GuardianSettings{GuardianID: guardianID, ExchangeRate: s.defaultRate}, nil
	}
	return settings, nil
}

// UpdateSettings stores the guardian's exchange rate.
func (s *Service) UpdateSettings(ctx context.Context, actor shared.Actor, input SettingsInput) (GuardianSettings, error) {
	if !actor.Role.IsGuardian() {
		return GuardianSettings{}, fmt.Errorf("%w: guardian role required", shared.ErrForbidden)
	}
	if !input.ExchangeRate.IsPositive() {
		return GuardianSettings{}, fmt.Errorf("%w: exchange_rate must be positive", shared.ErrValidation)
	}
	settings := GuardianSettings{
		GuardianID:   actor.ID,
		ExchangeRate: input.ExchangeRate,
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return GuardianSettings{}, fmt.Errorf("accounts: save settings: %w", err)
	}
	return settings, nil
}
