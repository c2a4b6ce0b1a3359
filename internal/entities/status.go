package entities

import (
	"fmt"
	"strings"

	apperrors "tax-portal/pkg/errors"
)

type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusApproved   RequestStatus = "APPROVED"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusDeclined   RequestStatus = "DECLINED"
)

var AllStatuses = []RequestStatus{StatusPending, StatusInProgress, StatusApproved, StatusCompleted, StatusDeclined}

// transitionMap lists the allowed moves. Terminal states have no entry.
var transitionMap = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusInProgress, StatusDeclined},
	StatusInProgress: {StatusApproved, StatusDeclined},
	StatusApproved:   {StatusCompleted, StatusDeclined},
}

// ParseStatus accepts "IN_PROGRESS", "InProgress", "in progress" and similar spellings.
func ParseStatus(s string) (RequestStatus, error) {
	norm := strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range AllStatuses {
		if strings.ReplaceAll(string(st), "_", "") == norm {
			return st, nil
		}
	}
	return "", apperrors.NewValidationError("status", "unknown status %q", s)
}

func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDeclined
}

func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	for _, allowed := range transitionMap[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *apperrors.TransitionError for anything outside transitionMap, same-state moves included.
func ValidateTransition(from, to RequestStatus) error {
	if !from.CanTransitionTo(to) {
		return &apperrors.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// Label is the human form used in emails and exports.
func (s RequestStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusApproved:
		return "Approved"
	case StatusCompleted:
		return "Completed"
	case StatusDeclined:
		return "Declined"
	default:
		return fmt.Sprintf("Unknown(%s)", string(s))
	}
}
