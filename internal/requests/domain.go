// Package requests implements purchase and redemption requests: a child asks
// to spend coins and a guardian approves (charging the coins) or rejects.
package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes the two request workflows.
type Kind string

const (
	KindPurchase   Kind = "purchase"
	KindRedemption Kind = "redemption"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindPurchase || k == KindRedemption
}

// Status is a request workflow state. Approved and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// PayoutStatus tracks the cash side of an approved redemption.
type PayoutStatus string

const (
	PayoutNone     PayoutStatus = "none"
	PayoutPending  PayoutStatus = "pending"
	PayoutNotified PayoutStatus = "notified"
)

// Request is a purchase or redemption awaiting, or past, a guardian decision.
type Request struct {
	ID           uuid.UUID           `json:"id"`
	Kind         Kind                `json:"kind"`
	RequesterID  uuid.UUID           `json:"requester_id"`
	ShopItemID   *uuid.UUID          `json:"shop_item_id,omitempty"`
	Price        int64               `json:"price"`
	CashAmount   decimal.NullDecimal `json:"cash_amount"`
	Description  string              `json:"description,omitempty"`
	Status       Status              `json:"status"`
	ReviewedBy   *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time          `json:"reviewed_at,omitempty"`
	PayoutStatus PayoutStatus        `json:"payout_status"`
	CreatedAt    time.Time           `json:"created_at"`
}

// RedemptionInput asks to convert coins to cash.
type RedemptionInput struct {
	Coins       int64  `json:"coins"`
	Description string `json:"description" validate:"max=500"`
}

// Filter narrows listings. Zero fields match everything.
type Filter struct {
	RequesterIDs []uuid.UUID
	Kind         Kind
	Status       Status
	PayoutStatus PayoutStatus
	Limit        int
}

// Matches reports whether req satisfies the filter's predicates.
func (f Filter) Matches(req Request) bool {
	if len(f.RequesterIDs) > 0 {
		found := false
		for _, id := range f.RequesterIDs {
			if id == req.RequesterID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Kind != "" && req.Kind != f.Kind {
		return false
	}
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	if f.PayoutStatus != "" && req.PayoutStatus != f.PayoutStatus {
		return false
	}
	return true
}

// PendingCounts are the requests waiting on a guardian.
type PendingCounts struct {
	Purchases   int `json:"purchases"`
	Redemptions int `json:"redemptions"`
}
