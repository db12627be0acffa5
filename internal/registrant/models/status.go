package models

import (
	dErrors "canonreg/pkg/domain-errors"
)

// Status is the registration lifecycle state shared by persons and
// organizations.
//
// Transitions: pending → approved, pending → rejected. Nothing leaves a
// terminal state; a rejected registrant re-registers instead.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to target.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && (target == StatusApproved || target == StatusRejected)
}

func transitionErr(from, to Status) error {
	return dErrors.New(dErrors.CodeInvariantViolation,
		"cannot transition registration from "+string(from)+" to "+string(to))
}
