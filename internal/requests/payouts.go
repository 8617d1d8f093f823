package requests

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/shared"
)

// PendingPayouts lists approved redemptions whose guardian was not yet notified.
func (s *Service) PendingPayouts(ctx context.Context, limit int) ([]Request, error) {
	return s.repo.ListRequests(ctx, Filter{
		Kind:         KindRedemption,
		Status:       StatusApproved,
		PayoutStatus: PayoutPending,
		Limit:        limit,
	})
}

// PayoutNotice is what the guardian is told about a pending cash payout.
type PayoutNotice struct {
	Request    Request
	GuardianID uuid.UUID
}

// MarkPayoutNotified flips a pending payout to notified and returns the notice.
// notified is false when the payout had already been handled.
func (s *Service) MarkPayoutNotified(ctx context.Context, id uuid.UUID) (notice PayoutNotice, notified bool, err error) {
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.repo.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Kind != KindRedemption || req.Status != StatusApproved {
			return fmt.Errorf("%w: request %s has no payout", shared.ErrInvalidStateTransition, id)
		}
		requester, err := s.accounts.Get(ctx, req.RequesterID)
		if err != nil {
			return err
		}
		notice = PayoutNotice{Request: req}
		if requester.ParentID != nil {
			notice.GuardianID = *requester.ParentID
		}
		if req.PayoutStatus == PayoutNotified {
			return nil
		}
		req.PayoutStatus = PayoutNotified
		if err := s.repo.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("requests: mark payout: %w", err)
		}
		notice.Request = req
		notified = true
		return nil
	})
	return notice, notified, err
}
