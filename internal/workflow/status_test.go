package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{
		StatusNew, StatusUnderReview, StatusWaitingDirector, StatusApproved,
		StatusRejected, StatusWaitingAccountant, StatusFunded, StatusPurchased,
		StatusDelivered,
	} {
		assert.True(t, s.IsValid(), s)
	}

	assert.False(t, Status("PENDING").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusDelivered.IsTerminal())

	for _, s := range []Status{
		StatusNew, StatusUnderReview, StatusWaitingDirector, StatusApproved,
		StatusWaitingAccountant, StatusFunded, StatusPurchased,
	} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[Status]string{
		StatusNew:               "Создана",
		StatusUnderReview:       "На рассмотрении",
		StatusWaitingDirector:   "У директора",
		StatusApproved:          "Одобрена",
		StatusRejected:          "Отклонена",
		StatusWaitingAccountant: "У бухгалтера",
		StatusFunded:            "Деньги выданы",
		StatusPurchased:         "Куплено",
		StatusDelivered:         "Доставлена",
	}
	for status, want := range cases {
		assert.Equal(t, want, status.Label())
	}

	// Unknown statuses fall back to the raw value
	assert.Equal(t, "LIMBO", Status("LIMBO").Label())
}

func TestRoleIsValid(t *testing.T) {
	for _, r := range []Role{RoleEmployee, RoleSupplier, RoleDirector, RoleAccountant, RoleAdmin} {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, Role("manager").IsValid())
	assert.False(t, Role("").IsValid())
}

func TestAllRoleNames(t *testing.T) {
	names := AllRoleNames()
	assert.Len(t, names, 5)
	for _, name := range names {
		assert.True(t, Role(name).IsValid())
	}
}
