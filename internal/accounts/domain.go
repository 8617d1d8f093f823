// Package accounts holds each actor's coin account and guardian settings.
package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coincraft/coincraft/internal/shared"
)

// Account is an actor's coin account. Balance is mutated only through the ledger.
type Account struct {
	ActorID   uuid.UUID   `json:"actor_id"`
	Role      shared.Role `json:"role"`
	Balance   int64       `json:"balance"`
	ParentID  *uuid.UUID  `json:"parent_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsChildOf reports whether guardianID is the account's guardian.
func (a Account) IsChildOf(guardianID uuid.UUID) bool {
	return a.ParentID != nil && *a.ParentID == guardianID
}

// GuardianSettings holds per-guardian economy settings.
type GuardianSettings struct {
	GuardianID   uuid.UUID       `json:"guardian_id"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RegisterInput creates an account for an identified actor. Children start
// without a guardian; the guardian links them with LinkChild.
type RegisterInput struct {
	ActorID uuid.UUID   `json:"actor_id"`
	Role    shared.Role `json:"role" validate:"required,oneof=parent teacher younger_child older_child"`
}

// SettingsInput updates guardian settings.
type SettingsInput struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}
