package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced goal, task, request or account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller is not the owner, assignee or guardian required.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates the caller could not be identified.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientFunds indicates a debit larger than the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount indicates a non-positive or otherwise unusable coin amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidStateTransition indicates a workflow transition not allowed from the current status.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness conflict such as a reused idempotency key.
	ErrConflict = errors.New("conflict")
)

var (
	// ErrAlreadyApproved is returned when approving an approved task.
	ErrAlreadyApproved = fmt.Errorf("%w: already approved", ErrInvalidStateTransition)
	// ErrNotYetCompleted is returned when approving a task that was never completed.
	ErrNotYetCompleted = fmt.Errorf("%w: not yet completed", ErrInvalidStateTransition)
	// ErrAlreadyDecided is returned when approving or rejecting a request that left pending.
	ErrAlreadyDecided = fmt.Errorf("%w: request already decided", ErrInvalidStateTransition)
)
