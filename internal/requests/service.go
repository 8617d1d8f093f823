package requests

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/shared"
)

// RepositoryPort defines data access methods for requests.
type RepositoryPort interface {
	InsertRequest(ctx context.Context, req Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	LockRequest(ctx context.Context, id uuid.UUID) (Request, error)
	UpdateRequest(ctx context.Context, req Request) error
	ListRequests(ctx context.Context, f Filter) ([]Request, error)
	CountRequests(ctx context.Context, f Filter) (int, error)
}

// Accounts resolves requesters, guardians and exchange rates.
type Accounts interface {
	Get(ctx context.Context, actorID uuid.UUID) (accounts.Account, error)
	Children(ctx context.Context, guardianID uuid.UUID) ([]accounts.Account, error)
	Settings(ctx context.Context, guardianID uuid.UUID) (accounts.GuardianSettings, error)
}

// Catalog supplies shop items and grants them.
type Catalog interface {
	GetItem(ctx context.Context, id uuid.UUID) (catalog.ShopItem, error)
	Grant(ctx context.Context, ownerID, itemID uuid.UUID) (catalog.OwnedItem, error)
}

// Ledger records coin movements.
type Ledger interface {
	Record(ctx context.Context, actorID uuid.UUID, kind ledger.Kind, amount int64, reason ledger.Reason) (ledger.Entry, error)
}

// ApprovalLog appends workflow history.
type ApprovalLog interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// PayoutQueue schedules the cash payout of an approved redemption.
type PayoutQueue interface {
	EnqueuePayout(ctx context.Context, requestID uuid.UUID) error
}

// DecisionObserver counts workflow decisions.
type DecisionObserver interface {
	ObserveDecision(workflow, decision string)
}

// Service runs the purchase and redemption workflows.
type Service struct {
	repo      RepositoryPort
	accounts  Accounts
	catalog   Catalog
	ledger    Ledger
	approvals ApprovalLog
	tx        db.Transactor
	logger    *slog.Logger
	payouts   PayoutQueue
	observer  DecisionObserver
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, accts Accounts, cat Catalog, l Ledger, approvals ApprovalLog, tx db.Transactor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		accounts:  accts,
		catalog:   cat,
		ledger:    l,
		approvals: approvals,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
}

// SetPayoutQueue attaches the queue used after a redemption is approved.
func (s *Service) SetPayoutQueue(q PayoutQueue) {
	s.payouts = q
}

// SetObserver attaches a metrics observer.
func (s *Service) SetObserver(o DecisionObserver) {
	s.observer = o
}

// requester checks the caller is a child with a guardian and enough coins for price.
func (s *Service) requester(ctx context.Context, actor shared.Actor, price int64) (accounts.Account, error) {
	if !actor.Role.IsChild() {
		return accounts.Account{}, fmt.Errorf("%w: only children submit requests", shared.ErrForbidden)
	}
	acct, err := s.accounts.Get(ctx, actor.ID)
	if err != nil {
		return accounts.Account{}, err
	}
	if acct.ParentID == nil {
		return accounts.Account{}, fmt.Errorf("%w: no guardian linked to approve the request", shared.ErrValidation)
	}
	if acct.Balance < price {
		return accounts.Account{}, fmt.Errorf("%w: balance %d, price %d", shared.ErrInsufficientFunds, acct.Balance, price)
	}
	return acct, nil
}

// RequestPurchase asks the guardian to approve buying a shop item. No coins move yet.
func (s *Service) RequestPurchase(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (Request, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return Request{}, err
	}
	if !item.Available {
		return Request{}, fmt.Errorf("%w: item %q is not available", shared.ErrValidation, item.Name)
	}
	if _, err := s.requester(ctx, actor, item.Price); err != nil {
		return Request{}, err
	}
	req := Request{
		ID:           uuid.New(),
		Kind:         KindPurchase,
		RequesterID:  actor.ID,
		ShopItemID:   &item.ID,
		Price:        item.Price,
		Description:  item.Name,
		Status:       StatusPending,
		PayoutStatus: PayoutNone,
		CreatedAt:    s.now().UTC(),
	}
	return s.submit(ctx, req)
}

// RequestRedemption asks the guardian to convert coins to cash at the
// guardian's exchange rate. No coins move yet.
func (s *Service) RequestRedemption(ctx context.Context, actor shared.Actor, input RedemptionInput) (Request, error) {
	if input.Coins <= 0 {
		return Request{}, fmt.Errorf("%w: coins must be positive", shared.ErrInvalidAmount)
	}
	if err := shared.Validate(input); err != nil {
		return Request{}, err
	}
	acct, err := s.requester(ctx, actor, input.Coins)
	if err != nil {
		return Request{}, err
	}
	settings, err := s.accounts.Settings(ctx, *acct.ParentID)
	if err != nil {
		return Request{}, fmt.Errorf("requests: guardian settings: %w", err)
	}
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Redeem %d coins", input.Coins)
	}
	req := Request{
		ID:           uuid.New(),
		Kind:         KindRedemption,
		RequesterID:  actor.ID,
		Price:        input.Coins,
		CashAmount:   decimal.NewNullDecimal(CashValue(input.Coins, settings.ExchangeRate)),
		Description:  description,
		Status:       StatusPending,
		PayoutStatus: PayoutNone,
		CreatedAt:    s.now().UTC(),
	}
	return s.submit(ctx, req)
}

// CashValue converts coins at rate, rounded to cents.
func CashValue(coins int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(coins).Mul(rate).Round(2)
}

func (s *Service) submit(ctx context.Context, req Request) (Request, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("requests: insert: %w", err)
		}
		return s.log(ctx, req, req.RequesterID, shared.ApprovalSubmit, "")
	})
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("coin request submitted",
		slog.String("request_id", req.ID.String()),
		slog.String("kind", string(req.Kind)),
		slog.Int64("price", req.Price))
	return req, nil
}

// decide locks the request and verifies, inside the atomic unit, that the
// approver is the requester's guardian and the request is still pending.
func (s *Service) decide(ctx context.Context, approver shared.Actor, id uuid.UUID, fn func(ctx context.Context, req *Request) error) (Request, error) {
	var out Request
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.repo.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		requester, err := s.accounts.Get(ctx, req.RequesterID)
		if err != nil {
			return err
		}
		if !requester.IsChildOf(approver.ID) {
			return fmt.Errorf("%w: only the requester's guardian may decide", shared.ErrForbidden)
		}
		if req.Status != StatusPending {
			return shared.ErrAlreadyDecided
		}
		if err := fn(ctx, &req); err != nil {
			return err
		}
		now := s.now().UTC()
		req.ReviewedBy = &approver.ID
		req.ReviewedAt = &now
		if err := s.repo.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("requests: update: %w", err)
		}
		out = req
		return nil
	})
	return out, err
}

// Approve charges the price and grants the item, or marks the cash payout
// pending. It fails with ErrInsufficientFunds, leaving the request pending,
// when the balance no longer covers the price.
func (s *Service) Approve(ctx context.Context, approver shared.Actor, id uuid.UUID) (Request, error) {
	req, err := s.decide(ctx, approver, id, func(ctx context.Context, req *Request) error {
		reason := ledger.Reason{
			Description:    req.Description,
			IdempotencyKey: "request:" + req.ID.String(),
		}
		switch req.Kind {
		case KindPurchase:
			reason.Category, reason.Source = "shop", "shop"
			reason.Cause = ledger.Cause{Kind: ledger.CauseShop, ID: derefID(req.ShopItemID)}
		case KindRedemption:
			reason.Category, reason.Source = "redemption", "redemption"
			reason.Cause = ledger.Cause{Kind: ledger.CauseRedemption, ID: req.ID}
		default:
			return fmt.Errorf("requests: unknown kind %q", req.Kind)
		}
		if _, err := s.ledger.Record(ctx, req.RequesterID, ledger.KindSpend, req.Price, reason); err != nil {
			return err
		}
		if req.Kind == KindPurchase {
			if _, err := s.catalog.Grant(ctx, req.RequesterID, derefID(req.ShopItemID)); err != nil {
				return err
			}
		} else {
			req.PayoutStatus = PayoutPending
		}
		req.Status = StatusApproved
		return s.log(ctx, *req, approver.ID, shared.ApprovalApprove, "")
	})
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("coin request approved",
		slog.String("request_id", id.String()),
		slog.String("kind", string(req.Kind)),
		slog.Int64("price", req.Price))
	s.observe(req.Kind, shared.ApprovalApprove)
	if req.Kind == KindRedemption && s.payouts != nil {
		if err := s.payouts.EnqueuePayout(ctx, req.ID); err != nil {
			s.logger.Warn("payout enqueue failed; sweep will retry",
				slog.String("request_id", req.ID.String()), slog.Any("error", err))
		}
	}
	return req, nil
}

// Reject closes a pending request without any ledger effect.
func (s *Service) Reject(ctx context.Context, approver shared.Actor, id uuid.UUID, note string) (Request, error) {
	req, err := s.decide(ctx, approver, id, func(ctx context.Context, req *Request) error {
		req.Status = StatusRejected
		return s.log(ctx, *req, approver.ID, shared.ApprovalReject, note)
	})
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("coin request rejected", slog.String("request_id", id.String()), slog.String("kind", string(req.Kind)))
	s.observe(req.Kind, shared.ApprovalReject)
	return req, nil
}

// Get returns a request visible to its requester or the requester's guardian.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.RequesterID == actor.ID {
		return req, nil
	}
	requester, err := s.accounts.Get(ctx, req.RequesterID)
	if err != nil {
		return Request{}, err
	}
	if !requester.IsChildOf(actor.ID) {
		return Request{}, fmt.Errorf("%w: request belongs to another family", shared.ErrForbidden)
	}
	return req, nil
}

// List returns the caller's own requests.
func (s *Service) List(ctx context.Context, actor shared.Actor, kind Kind, status Status) ([]Request, error) {
	return s.repo.ListRequests(ctx, Filter{RequesterIDs: []uuid.UUID{actor.ID}, Kind: kind, Status: status})
}

// ListForGuardian returns requests from all of the guardian's children.
func (s *Service) ListForGuardian(ctx context.Context, guardian shared.Actor, kind Kind, status Status) ([]Request, error) {
	ids, err := s.childIDs(ctx, guardian.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.ListRequests(ctx, Filter{RequesterIDs: ids, Kind: kind, Status: status})
}

// PendingFor counts pending requests from the given requesters.
func (s *Service) PendingFor(ctx context.Context, requesterIDs []uuid.UUID) (PendingCounts, error) {
	var out PendingCounts
	if len(requesterIDs) == 0 {
		return out, nil
	}
	var err error
	out.Purchases, err = s.repo.CountRequests(ctx, Filter{RequesterIDs: requesterIDs, Kind: KindPurchase, Status: StatusPending})
	if err != nil {
		return PendingCounts{}, err
	}
	out.Redemptions, err = s.repo.CountRequests(ctx, Filter{RequesterIDs: requesterIDs, Kind: KindRedemption, Status: StatusPending})
	if err != nil {
		return PendingCounts{}, err
	}
	return out, nil
}

func (s *Service) childIDs(ctx context.Context, guardianID uuid.UUID) ([]uuid.UUID, error) {
	kids, err := s.accounts.Children(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(kids))
	for _, k := range kids {
		ids = append(ids, k.ActorID)
	}
	return ids, nil
}

func (s *Service) log(ctx context.Context, req Request, actorID uuid.UUID, action shared.ApprovalAction, note string) error {
	if s.approvals == nil {
		return nil
	}
	workflow := shared.WorkflowPurchase
	if req.Kind == KindRedemption {
		workflow = shared.WorkflowRedemption
	}
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		Workflow: workflow,
		RefID:    req.ID,
		ActorID:  actorID,
		Action:   action,
		Note:     note,
		At:       s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("requests: approval log: %w", err)
	}
	return nil
}

func (s *Service) observe(kind Kind, action shared.ApprovalAction) {
	if s.observer != nil {
		s.observer.ObserveDecision(string(kind), string(action))
	}
}

func derefID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
