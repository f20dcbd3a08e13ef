package workflow

import "fmt"

// Operation identifies a guarded transition on one internal request
type Operation string

const (
	OpStartReview     Operation = "START_REVIEW"
	OpSupplyFill      Operation = "SUPPLY_FILL"
	OpDirectorApprove Operation = "DIRECTOR_APPROVE"
	OpDirectorReject  Operation = "DIRECTOR_REJECT"
	OpAccountantFund  Operation = "ACCOUNTANT_FUND"
	OpMarkPurchased   Operation = "MARK_PURCHASED"
	OpConfirmReceive  Operation = "CONFIRM_RECEIVE"
)

// rule binds an operation to its required actor role, the statuses it may be
// fired from, and the status it produces.
type rule struct {
	role Role
	from []Status
	to   Status
}

// The whole lifecycle in one table. Director approval goes straight to
// WAITING_ACCOUNTANT: APPROVED is a display label, never a persisted status.
var transitions = map[Operation]rule{
	OpStartReview: {
		role: RoleSupplier,
		from: []Status{StatusNew},
		to:   StatusUnderReview,
	},
	OpSupplyFill: {
		role: RoleSupplier,
		from: []Status{StatusNew, StatusUnderReview},
		to:   StatusWaitingDirector,
	},
	OpDirectorApprove: {
		role: RoleDirector,
		from: []Status{StatusWaitingDirector},
		to:   StatusWaitingAccountant,
	},
	OpDirectorReject: {
		role: RoleDirector,
		from: []Status{StatusWaitingDirector},
		to:   StatusRejected,
	},
	OpAccountantFund: {
		role: RoleAccountant,
		from: []Status{StatusWaitingAccountant},
		to:   StatusFunded,
	},
	OpMarkPurchased: {
		role: RoleSupplier,
		from: []Status{StatusFunded},
		to:   StatusPurchased,
	},
	OpConfirmReceive: {
		role: RoleEmployee,
		from: []Status{StatusPurchased},
		to:   StatusDelivered,
	},
}

// RequiredRole returns the actor role an operation is restricted to
func RequiredRole(op Operation) (Role, bool) {
	r, ok := transitions[op]
	return r.role, ok
}

// Apply validates the transition for op from the current status by an actor
// with the given role, returning the target status. The role check runs
// before the status guard, so a mismatched role always fails with
// ErrForbidden regardless of the entity's current state.
func Apply(op Operation, current Status, actor Role) (Status, error) {
	r, ok := transitions[op]
	if !ok {
		return "", fmt.Errorf("%w: unknown operation %s", ErrValidation, op)
	}

	if actor != r.role {
		return "", fmt.Errorf("%w: %s requires role %s, got %s", ErrForbidden, op, r.role, actor)
	}

	for _, from := range r.from {
		if current == from {
			return r.to, nil
		}
	}

	return "", fmt.Errorf("%w: cannot apply %s from status %s", ErrStateConflict, op, current)
}

// CanApply reports whether op is permitted from the current status, ignoring roles
func CanApply(op Operation, current Status) bool {
	r, ok := transitions[op]
	if !ok {
		return false
	}
	for _, from := range r.from {
		if current == from {
			return true
		}
	}
	return false
}

// HistoryStep returns the audit-trail step label appended when op succeeds
func HistoryStep(op Operation) string {
	switch op {
	case OpStartReview:
		return "Взята на рассмотрение"
	case OpSupplyFill:
		return "Указан поставщик"
	case OpDirectorApprove:
		return "Одобрена директором"
	case OpDirectorReject:
		return "Отклонена директором"
	case OpAccountantFund:
		return "Деньги выданы"
	case OpMarkPurchased:
		return "Куплено"
	case OpConfirmReceive:
		return "Получение подтверждено"
	default:
		return string(op)
	}
}
