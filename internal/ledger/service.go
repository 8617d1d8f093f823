package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/shared"
)

// AccountStore is the balance storage the ledger drives.
type AccountStore interface {
	GetAccount(ctx context.Context, actorID uuid.UUID) (accounts.Account, error)
	LockAccount(ctx context.Context, actorID uuid.UUID) (accounts.Account, error)
	SetBalance(ctx context.Context, actorID uuid.UUID, balance int64) error
}

// RepositoryPort defines data access methods for ledger entries.
type RepositoryPort interface {
	InsertEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (Entry, error)
	FindByIdempotencyKey(ctx context.Context, actorID uuid.UUID, key string) (Entry, bool, error)
	ListEntries(ctx context.Context, actorIDs []uuid.UUID, f Filter) ([]Entry, int, error)
	SumEntries(ctx context.Context, actorID uuid.UUID, f Filter) (int64, error)
	Totals(ctx context.Context, actorID uuid.UUID) (Totals, error)
}

// Observer receives committed entries.
type Observer interface {
	ObserveLedgerEntry(kind string, amount int64)
}

// Service records coin movements.
type Service struct {
	repo     RepositoryPort
	accounts AccountStore
	tx       db.Transactor
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, accts AccountStore, tx db.Transactor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: accts, tx: tx, logger: logger, now: time.Now}
}

// SetObserver attaches a metrics observer.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Record applies one movement to the actor's balance and appends its entry in
// the same atomic unit. Spend and save fail with ErrInsufficientFunds when the
// balance would go negative; nothing is written in that case. A reused
// idempotency key returns the stored entry without applying it again.
func (s *Service) Record(ctx context.Context, actorID uuid.UUID, kind Kind, amount int64, reason Reason) (Entry, error) {
	if amount <= 0 {
		return Entry{}, fmt.Errorf("%w: amount must be positive, got %d", shared.ErrInvalidAmount, amount)
	}
	if !kind.IsValid() {
		return Entry{}, fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, kind)
	}

	var entry Entry
	replayed := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.LockAccount(ctx, actorID)
		if err != nil {
			return fmt.Errorf("ledger: lock account: %w", err)
		}
		if reason.IdempotencyKey != "" {
			existing, found, err := s.repo.FindByIdempotencyKey(ctx, actorID, reason.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("ledger: idempotency lookup: %w", err)
			}
			if found {
				if existing.Kind != kind || existing.Amount != amount {
					return fmt.Errorf("%w: idempotency key %q reused with a different movement", shared.ErrConflict, reason.IdempotencyKey)
				}
				entry = existing
				replayed = true
				return nil
			}
		}

		balance, err := apply(acct.Balance, kind, amount)
		if err != nil {
			return err
		}
		entry = Entry{
			ID:             uuid.New(),
			ActorID:        actorID,
			Kind:           kind,
			Amount:         amount,
			Category:       reason.Category,
			Description:    reason.Description,
			Source:         reason.Source,
			Cause:          reason.Cause,
			IdempotencyKey: reason.IdempotencyKey,
			CreatedAt:      s.now().UTC(),
		}
		if err := s.accounts.SetBalance(ctx, actorID, balance); err != nil {
			return fmt.Errorf("ledger: set balance: %w", err)
		}
		if err := s.repo.InsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("ledger: insert entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if !replayed && s.observer != nil {
		s.observer.ObserveLedgerEntry(string(kind), amount)
	}
	return entry, nil
}

func apply(balance int64, kind Kind, amount int64) (int64, error) {
	if kind.Debits() {
		if amount > balance {
			return 0, fmt.Errorf("%w: balance %d, requested %d", shared.ErrInsufficientFunds, balance, amount)
		}
		return balance - amount, nil
	}
	if amount > math.MaxInt64-balance {
		return 0, fmt.Errorf("%w: balance overflow", shared.ErrInvalidAmount)
	}
	return balance + amount, nil
}

// Credit records an earn entry.
func (s *Service) Credit(ctx context.Context, actorID uuid.UUID, amount int64, reason Reason) (Entry, error) {
	return s.Record(ctx, actorID, KindEarn, amount, reason)
}

// Debit records a spend entry.
func (s *Service) Debit(ctx context.Context, actorID uuid.UUID, amount int64, reason Reason) (Entry, error) {
	return s.Record(ctx, actorID, KindSpend, amount, reason)
}

// GetBalance returns the actor's stored balance.
func (s *Service) GetBalance(ctx context.Context, actorID uuid.UUID) (int64, error) {
	acct, err := s.accounts.GetAccount(ctx, actorID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// EntriesFor lists the actor's entries, newest first.
func (s *Service) EntriesFor(ctx context.Context, actorID uuid.UUID, f Filter) (Page, error) {
	return s.EntriesForMany(ctx, []uuid.UUID{actorID}, f)
}

// EntriesForMany lists entries of several actors merged, newest first.
func (s *Service) EntriesForMany(ctx context.Context, actorIDs []uuid.UUID, f Filter) (Page, error) {
	if f.Kind != "" && !f.Kind.IsValid() {
		return Page{}, fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, f.Kind)
	}
	page := shared.Page{Limit: f.Limit, Offset: f.Offset}.Normalize()
	f.Limit, f.Offset = page.Limit, page.Offset
	if len(actorIDs) == 0 {
		return Page{Entries: []Entry{}}, nil
	}
	entries, total, err := s.repo.ListEntries(ctx, actorIDs, f)
	if err != nil {
		return Page{}, fmt.Errorf("ledger: list entries: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Entries: entries, Total: total}, nil
}

// Sum totals the actor's entries of one kind inside r.
func (s *Service) Sum(ctx context.Context, actorID uuid.UUID, kind Kind, r TimeRange) (int64, error) {
	if !kind.IsValid() {
		return 0, fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, kind)
	}
	return s.repo.SumEntries(ctx, actorID, Filter{Kind: kind, Range: r})
}

// Rollups sums earnings for today, the last 7 days and the last 30 days.
// Reversals and goal refunds return coins already counted, so they are left out.
func (s *Service) Rollups(ctx context.Context, actorID uuid.UUID) (Rollups, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out Rollups
	windows := []struct {
		from time.Time
		dst  *int64
	}{
		{startOfDay, &out.Today},
		{now.AddDate(0, 0, -7), &out.Last7Days},
		{now.AddDate(0, 0, -30), &out.Last30},
	}
	for _, w := range windows {
		sum, err := s.repo.SumEntries(ctx, actorID, Filter{Kind: KindEarn, ExcludeCategories: RollupExcluded, Range: TimeRange{From: w.from}})
		if err != nil {
			return Rollups{}, fmt.Errorf("ledger: rollups: %w", err)
		}
		*w.dst = sum
	}
	return out, nil
}

// Reverse appends the inverse of an entry. The reversal is keyed on the
// original so a second call returns the first reversal.
func (s *Service) Reverse(ctx context.Context, entryID uuid.UUID, note string) (Entry, error) {
	original, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if !original.Cause.Kind.Reversible() {
		return Entry{}, fmt.Errorf("%w: entries caused by a %s cannot be reversed directly", shared.ErrInvalidStateTransition, original.Cause.Kind)
	}
	return s.Record(ctx, original.ActorID, original.Kind.Inverse(), original.Amount, Reason{
		Category:       CategoryReversal,
		Description:    note,
		Source:         string(original.Cause.Kind),
		Cause:          Cause{Kind: CauseEntry, ID: original.ID},
		IdempotencyKey: "reverse:" + original.ID.String(),
	})
}

// ReverseAs reverses an entry on behalf of the owner's guardian.
func (s *Service) ReverseAs(ctx context.Context, actor shared.Actor, entryID uuid.UUID, note string) (Entry, error) {
	original, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	owner, err := s.accounts.GetAccount(ctx, original.ActorID)
	if err != nil {
		return Entry{}, err
	}
	if !owner.IsChildOf(actor.ID) {
		return Entry{}, fmt.Errorf("%w: only the guardian may reverse entries", shared.ErrForbidden)
	}
	entry, err := s.Reverse(ctx, entryID, note)
	if err != nil {
		return Entry{}, err
	}
	s.logger.Info("ledger entry reversed",
		slog.String("entry_id", entryID.String()),
		slog.String("reversal_id", entry.ID.String()),
		slog.String("actor_id", actor.ID.String()))
	return entry, nil
}

// Reconcile recomputes the balance from the ledger and compares it with the
// stored one.
func (s *Service) Reconcile(ctx context.Context, actorID uuid.UUID) (Reconciliation, error) {
	var rec Reconciliation
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.LockAccount(ctx, actorID)
		if err != nil {
			return err
		}
		totals, err := s.repo.Totals(ctx, actorID)
		if err != nil {
			return fmt.Errorf("ledger: totals: %w", err)
		}
		rec = Reconciliation{ActorID: actorID, Stored: acct.Balance, Computed: totals.Net(), Totals: totals}
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}
	if rec.Drift() != 0 {
		s.logger.Warn("ledger drift detected",
			slog.String("actor_id", actorID.String()),
			slog.Int64("stored", rec.Stored),
			slog.Int64("computed", rec.Computed))
	}
	return rec, nil
}

// RecordManual records an entry outside any workflow. Guardians may record
// earn or spend for their children; anyone may record a spend for themself.
func (s *Service) RecordManual(ctx context.Context, actor shared.Actor, input ManualEntryInput) (Entry, error) {
	if err := shared.Validate(input); err != nil {
		return Entry{}, err
	}
	if input.ActorID == uuid.Nil {
		input.ActorID = actor.ID
	}
	if input.ActorID == actor.ID {
		if input.Kind == KindEarn {
			return Entry{}, fmt.Errorf("%w: coins are earned through tasks, activities or a guardian", shared.ErrForbidden)
		}
	} else {
		target, err := s.accounts.GetAccount(ctx, input.ActorID)
		if err != nil {
			return Entry{}, err
		}
		if !target.IsChildOf(actor.ID) {
			return Entry{}, fmt.Errorf("%w: not the guardian of %s", shared.ErrForbidden, input.ActorID)
		}
	}
	category := input.Category
	if category == "" {
		category = "manual"
	}
	return s.Record(ctx, input.ActorID, input.Kind, input.Amount, Reason{
		Category:       category,
		Description:    input.Description,
		Source:         "manual",
		Cause:          Cause{Kind: CauseManual, ID: actor.ID},
		IdempotencyKey: input.IdempotencyKey,
	})
}

// Authorize checks that actor may read subject's ledger: the subject itself or
// its guardian.
func (s *Service) Authorize(ctx context.Context, actor shared.Actor, subject uuid.UUID) error {
	if subject == actor.ID {
		return nil
	}
	acct, err := s.accounts.GetAccount(ctx, subject)
	if err != nil {
		return err
	}
	if !acct.IsChildOf(actor.ID) {
		return fmt.Errorf("%w: not the guardian of %s", shared.ErrForbidden, subject)
	}
	return nil
}
