// Package ledger is the append-only record of coin movements and the only
// writer of account balances.
package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind is the direction of a coin movement.
type Kind string

const (
	KindEarn  Kind = "earn"
	KindSpend Kind = "spend"
	KindSave  Kind = "save"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindEarn || k == KindSpend || k == KindSave
}

// Debits reports whether the kind removes coins from the balance.
func (k Kind) Debits() bool {
	return k == KindSpend || k == KindSave
}

// Inverse returns the kind that undoes k.
func (k Kind) Inverse() Kind {
	if k == KindEarn {
		return KindSpend
	}
	return KindEarn
}

// CauseKind names the entity that caused an entry.
type CauseKind string

const (
	CauseGoal       CauseKind = "goal"
	CauseTask       CauseKind = "task"
	CauseActivity   CauseKind = "activity"
	CauseShop       CauseKind = "shop"
	CauseRedemption CauseKind = "redemption"
	CauseManual     CauseKind = "manual"
	// CauseEntry marks a reversal; the cause ID is the reversed entry.
	CauseEntry CauseKind = "entry"
)

// Reversible reports whether entries with this cause may be reversed directly.
// Workflow-caused entries are undone through their workflow, which keeps the
// goal, task or request state in step with the ledger.
func (k CauseKind) Reversible() bool {
	return k == CauseManual || k == CauseEntry
}

// Categories the ledger writes itself.
const (
	CategoryReversal   = "reversal"
	CategoryGoalRefund = "goal_refund"
)

// RollupExcluded lists earn categories that return coins rather than earn them.
var RollupExcluded = []string{CategoryReversal, CategoryGoalRefund}

// Cause references the entity behind an entry.
type Cause struct {
	Kind CauseKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// Reason describes why coins moved.
type Reason struct {
	Category    string
	Description string
	Source      string
	Cause       Cause
	// IdempotencyKey makes a Record call replay-safe per actor.
	IdempotencyKey string
}

// Entry is an immutable ledger row.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	ActorID        uuid.UUID `json:"actor_id"`
	Kind           Kind      `json:"kind"`
	Amount         int64     `json:"amount"`
	Category       string    `json:"category"`
	Description    string    `json:"description,omitempty"`
	Source         string    `json:"source,omitempty"`
	Cause          Cause     `json:"caused_by"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Signed returns the entry's effect on the balance.
func (e Entry) Signed() int64 {
	if e.Kind.Debits() {
		return -e.Amount
	}
	return e.Amount
}

// TimeRange bounds a query; zero values are open ends. From is inclusive, To exclusive.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Filter narrows EntriesFor.
type Filter struct {
	Kind     Kind
	Category string
	// ExcludeCategories drops entries in any of these categories.
	ExcludeCategories []string
	Range             TimeRange
	Limit             int
	Offset            int
}

// Matches reports whether e satisfies the filter's predicates.
func (f Filter) Matches(e Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if slices.Contains(f.ExcludeCategories, e.Category) {
		return false
	}
	return f.Range.Contains(e.CreatedAt)
}

// Totals sums an actor's entries per kind.
type Totals struct {
	Earn  int64 `json:"earn"`
	Spend int64 `json:"spend"`
	Save  int64 `json:"save"`
}

// Net is the balance implied by the totals.
func (t Totals) Net() int64 {
	return t.Earn - t.Spend - t.Save
}

// Rollups are earn totals over the usual reporting windows.
type Rollups struct {
	Today     int64 `json:"today"`
	Last7Days int64 `json:"last_7_days"`
	Last30    int64 `json:"last_30_days"`
}

// Add sums two rollups.
func (r Rollups) Add(o Rollups) Rollups {
	return Rollups{Today: r.Today + o.Today, Last7Days: r.Last7Days + o.Last7Days, Last30: r.Last30 + o.Last30}
}

// Reconciliation compares the stored balance with the ledger.
type Reconciliation struct {
	ActorID  uuid.UUID `json:"actor_id"`
	Stored   int64     `json:"stored_balance"`
	Computed int64     `json:"computed_balance"`
	Totals   Totals    `json:"totals"`
}

// Drift is stored minus computed; zero when the ledger is complete.
func (r Reconciliation) Drift() int64 {
	return r.Stored - r.Computed
}

// ManualEntryInput records an entry outside any workflow.
type ManualEntryInput struct {
	ActorID        uuid.UUID `json:"actor_id"`
	Kind           Kind      `json:"kind" validate:"required,oneof=earn spend"`
	Amount         int64     `json:"amount"`
	Category       string    `json:"category" validate:"max=50"`
	Description    string    `json:"description" validate:"max=500"`
	IdempotencyKey string    `json:"-" validate:"max=128"`
}

// Page is a slice of entries with the total matching count.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}
