// Package tasks implements the task workflow: a guardian assigns a task, the
// child completes it, the guardian approves (crediting the reward) or rejects.
package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Status is a task workflow state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Open reports whether the assignee can still work on the task.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusInProgress
}

// Task is a unit of work with a coin reward.
type Task struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	AssignedBy       uuid.UUID  `json:"assigned_by"`
	AssignedTo       uuid.UUID  `json:"assigned_to"`
	CoinsReward      int64      `json:"coins_reward"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Status           Status     `json:"status"`
	RequiresApproval bool       `json:"requires_approval"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateInput assigns a task. RequiresApproval defaults to true.
type CreateInput struct {
	Title            string     `json:"title" validate:"required,min=1,max=200"`
	Description      string     `json:"description" validate:"max=1000"`
	AssignedTo       uuid.UUID  `json:"assigned_to"`
	CoinsReward      int64      `json:"coins_reward"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	RequiresApproval *bool      `json:"requires_approval,omitempty"`
}

// Filter narrows task listings. Zero fields match everything.
type Filter struct {
	AssignedTo uuid.UUID
	AssignedBy uuid.UUID
	Statuses   []Status
}

// Matches reports whether t satisfies the filter.
func (f Filter) Matches(t Task) bool {
	if f.AssignedTo != uuid.Nil && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.AssignedBy != uuid.Nil && t.AssignedBy != f.AssignedBy {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}
