package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyHappyPath(t *testing.T) {
	steps := []struct {
		op   Operation
		role Role
		from Status
		to   Status
	}{
		{OpStartReview, RoleSupplier, StatusNew, StatusUnderReview},
		{OpSupplyFill, RoleSupplier, StatusUnderReview, StatusWaitingDirector},
		{OpDirectorApprove, RoleDirector, StatusWaitingDirector, StatusWaitingAccountant},
		{OpAccountantFund, RoleAccountant, StatusWaitingAccountant, StatusFunded},
		{OpMarkPurchased, RoleSupplier, StatusFunded, StatusPurchased},
		{OpConfirmReceive, RoleEmployee, StatusPurchased, StatusDelivered},
	}

	current := StatusNew
	for _, step := range steps {
		require.Equal(t, step.from, current, "lifecycle chain broken before %s", step.op)
		next, err := Apply(step.op, current, step.role)
		require.NoError(t, err, "applying %s from %s", step.op, current)
		assert.Equal(t, step.to, next)
		current = next
	}
	assert.True(t, current.IsTerminal())
}

func TestApplySupplyFillSkipsReview(t *testing.T) {
	// A supplier may fill details directly on a fresh request without
	// taking it for review first.
	next, err := Apply(OpSupplyFill, StatusNew, RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingDirector, next)
}

func TestApplyDirectorReject(t *testing.T) {
	next, err := Apply(OpDirectorReject, StatusWaitingDirector, RoleDirector)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, next)
	assert.True(t, next.IsTerminal())
}

func TestApplyRejectsWrongStatus(t *testing.T) {
	allStatuses := []Status{
		StatusNew, StatusUnderReview, StatusWaitingDirector, StatusApproved,
		StatusRejected, StatusWaitingAccountant, StatusFunded, StatusPurchased,
		StatusDelivered,
	}

	allowed := map[Operation]map[Status]bool{
		OpStartReview:     {StatusNew: true},
		OpSupplyFill:      {StatusNew: true, StatusUnderReview: true},
		OpDirectorApprove: {StatusWaitingDirector: true},
		OpDirectorReject:  {StatusWaitingDirector: true},
		OpAccountantFund:  {StatusWaitingAccountant: true},
		OpMarkPurchased:   {StatusFunded: true},
		OpConfirmReceive:  {StatusPurchased: true},
	}

	for op, okFrom := range allowed {
		role, found := RequiredRole(op)
		require.True(t, found)
		for _, status := range allStatuses {
			next, err := Apply(op, status, role)
			if okFrom[status] {
				assert.NoError(t, err, "%s from %s", op, status)
				continue
			}
			assert.ErrorIs(t, err, ErrStateConflict, "%s from %s", op, status)
			assert.Empty(t, next)
		}
	}
}

func TestApplyRoleCheckedBeforeStatus(t *testing.T) {
	// A wrong role must fail with ErrForbidden even when the status guard
	// would also fail, so callers can trust the error taxonomy.
	cases := []struct {
		name   string
		op     Operation
		status Status
		actor  Role
	}{
		{"employee cannot fund", OpAccountantFund, StatusWaitingAccountant, RoleEmployee},
		{"accountant cannot decide", OpDirectorApprove, StatusWaitingDirector, RoleAccountant},
		{"director cannot fill supply", OpSupplyFill, StatusNew, RoleDirector},
		{"supplier cannot confirm receive", OpConfirmReceive, StatusPurchased, RoleSupplier},
		{"admin has no transition rights", OpDirectorApprove, StatusWaitingDirector, RoleAdmin},
		{"wrong role from wrong status is still forbidden", OpAccountantFund, StatusNew, RoleEmployee},
		{"wrong role from terminal status is still forbidden", OpMarkPurchased, StatusDelivered, RoleDirector},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(tc.op, tc.status, tc.actor)
			assert.ErrorIs(t, err, ErrForbidden)
			assert.NotErrorIs(t, err, ErrStateConflict)
		})
	}
}

func TestApplyUnknownOperation(t *testing.T) {
	_, err := Apply(Operation("TELEPORT"), StatusNew, RoleAdmin)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	ops := []Operation{
		OpStartReview, OpSupplyFill, OpDirectorApprove, OpDirectorReject,
		OpAccountantFund, OpMarkPurchased, OpConfirmReceive,
	}
	for _, terminal := range []Status{StatusRejected, StatusDelivered} {
		for _, op := range ops {
			assert.False(t, CanApply(op, terminal), "%s from %s", op, terminal)
		}
	}
}

func TestRequiredRole(t *testing.T) {
	role, ok := RequiredRole(OpDirectorReject)
	require.True(t, ok)
	assert.Equal(t, RoleDirector, role)

	_, ok = RequiredRole(Operation("TELEPORT"))
	assert.False(t, ok)
}

func TestHistoryStepLabels(t *testing.T) {
	assert.Equal(t, "Взята на рассмотрение", HistoryStep(OpStartReview))
	assert.Equal(t, "Указан поставщик", HistoryStep(OpSupplyFill))
	assert.Equal(t, "Одобрена директором", HistoryStep(OpDirectorApprove))
	assert.Equal(t, "Отклонена директором", HistoryStep(OpDirectorReject))
	assert.Equal(t, "Деньги выданы", HistoryStep(OpAccountantFund))
	assert.Equal(t, "Куплено", HistoryStep(OpMarkPurchased))
	assert.Equal(t, "Получение подтверждено", HistoryStep(OpConfirmReceive))
}
