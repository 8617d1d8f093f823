// Package dashboard assembles per-role read models from the ledger and the
// workflows. Every read is fresh.
package dashboard

import (
	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
)

// ChildSummary is a child's dashboard.
type ChildSummary struct {
	Account      accounts.Account `json:"account"`
	Goals        goals.Counts     `json:"goals"`
	PendingTasks int              `json:"pending_tasks"`
	Recent       []ledger.Entry   `json:"recent_entries"`
	Rollups      ledger.Rollups   `json:"earnings"`
}

// PendingApprovals menampung jumlah item workflow yang menunggu persetujuan guardian.
type PendingApprovals struct {
	Tasks       int `json:"tasks"`
	Purchases   int `json:"purchases"`
	Redemptions int `json:"redemptions"`
}

// Total menjumlahkan semua item yang tertunda.
func (p PendingApprovals) Total() int {
	return p.Tasks + p.Purchases + p.Redemptions
}

// GuardianSummary is a guardian's dashboard across their children.
type GuardianSummary struct {
	GuardianID   uuid.UUID        `json:"guardian_id"`
	Children     []ChildSummary   `json:"children"`
	TotalBalance int64            `json:"total_balance"`
	Rollups      ledger.Rollups   `json:"earnings"`
	Recent       []ledger.Entry   `json:"recent_entries"`
	Pending      PendingApprovals `json:"pending_approvals"`
}
