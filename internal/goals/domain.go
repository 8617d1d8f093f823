// Package goals tracks savings goals funded from the owner's balance.
package goals

import (
	"time"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/ledger"
)

// Goal is a savings target. CurrentAmount never exceeds TargetAmount and
// IsCompleted never reverts once set.
type Goal struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	TargetAmount  int64      `json:"target_amount"`
	CurrentAmount int64      `json:"current_amount"`
	IsCompleted   bool       `json:"is_completed"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Remaining is the amount still needed to reach the target.
func (g Goal) Remaining() int64 {
	return g.TargetAmount - g.CurrentAmount
}

// CreateInput creates a goal.
type CreateInput struct {
	Title        string     `json:"title" validate:"required,min=1,max=200"`
	Description  string     `json:"description" validate:"max=1000"`
	TargetAmount int64      `json:"target_amount"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// UpdateInput changes a goal's descriptive fields. Nil fields are left as is.
type UpdateInput struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	TargetAmount *int64     `json:"target_amount,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// Contribution is the outcome of Contribute. Entry is nil when nothing was applied.
type Contribution struct {
	Goal    Goal          `json:"goal"`
	Applied int64         `json:"applied"`
	Entry   *ledger.Entry `json:"entry,omitempty"`
}

// Counts summarises an owner's goals.
type Counts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
}
