package service

import (
	"context"
	"encoding/json"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRequestService wires a RequestService against an in-memory SQLite
// database, returning the service, the raw DB for assertions and the employee
// actor that owns requests created by the helpers below.
func setupRequestService(t *testing.T) (RequestService, *gorm.DB, Actor) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(
		&model.User{},
		&model.InternalRequest{},
		&model.RequestHistory{},
		&model.AuditLog{},
	)
	require.NoError(t, err, "failed to migrate test database")

	employee := &model.User{
		Username: "ivanov",
		Email:    "ivanov@plant.local",
		Phone:    "70000000001",
		Password: "hashed",
		Role:     "employee",
	}
	require.NoError(t, db.Create(employee).Error)

	svc := NewRequestService(
		repository.NewRequestRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		nil,
	)

	return svc, db, Actor{ID: employee.ID, Role: workflow.RoleEmployee}
}

func actorWithRole(role workflow.Role) Actor {
	return Actor{ID: uuid.New(), Role: role}
}

func createTestRequest(t *testing.T, svc RequestService, employee Actor) RequestResponse {
	t.Helper()
	created, err := svc.CreateRequest(context.Background(), employee, CreateRequestDTO{
		ItemName: "Цемент М500",
		Quantity: decimal.NewFromInt(100),
		Unit:     "мешок",
		Reason:   "Заканчивается на складе",
	})
	require.NoError(t, err)
	return created
}

func fillSupply(t *testing.T, svc RequestService, id string) RequestResponse {
	t.Helper()
	res, err := svc.SupplyFill(context.Background(), id, actorWithRole(workflow.RoleSupplier), SupplyFillDTO{
		Supplier: "ООО СтройПоставка",
		Price:    decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	return res
}

func TestCreateRequest(t *testing.T) {
	svc, db, employee := setupRequestService(t)

	created := createTestRequest(t, svc, employee)

	assert.Equal(t, "NEW", created.Status)
	assert.Equal(t, "Создана", created.CurrentStep)
	assert.Equal(t, "100", created.Quantity)
	assert.Equal(t, employee.ID.String(), created.EmployeeID)
	assert.Regexp(t, `^REQ-\d{8}-\d{5}$`, created.RequestNumber)
	require.Len(t, created.History, 1)
	assert.Equal(t, "Создана", created.History[0].Step)

	var auditCount int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("action = ?", model.ActionCreateRequest).Count(&auditCount).Error)
	assert.EqualValues(t, 1, auditCount)
}

func TestCreateRequestSequentialNumbers(t *testing.T) {
	svc, _, employee := setupRequestService(t)

	first := createTestRequest(t, svc, employee)
	second := createTestRequest(t, svc, employee)

	assert.NotEqual(t, first.RequestNumber, second.RequestNumber)
	assert.Equal(t, first.RequestNumber[:len(first.RequestNumber)-5], second.RequestNumber[:len(second.RequestNumber)-5])
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, employee, CreateRequestDTO{
		Quantity: decimal.NewFromInt(1),
		Unit:     "шт",
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = svc.CreateRequest(ctx, employee, CreateRequestDTO{
		ItemName: "Арматура",
		Quantity: decimal.Zero,
		Unit:     "т",
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = svc.CreateRequest(ctx, actorWithRole(workflow.RoleDirector), CreateRequestDTO{
		ItemName: "Арматура",
		Quantity: decimal.NewFromInt(1),
		Unit:     "т",
	})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestSupplyFillComputesTotal(t *testing.T) {
	svc, _, employee := setupRequestService(t)

	created := createTestRequest(t, svc, employee)
	filled := fillSupply(t, svc, created.ID)

	assert.Equal(t, "WAITING_DIRECTOR", filled.Status)
	assert.Equal(t, "У директора", filled.CurrentStep)
	assert.Equal(t, "ООО СтройПоставка", filled.Supplier)
	require.NotNil(t, filled.Price)
	assert.Equal(t, "50", *filled.Price)
	require.NotNil(t, filled.TotalAmount)
	assert.Equal(t, "5000", *filled.TotalAmount)
	require.Len(t, filled.History, 2)
	assert.Equal(t, "Указан поставщик", filled.History[1].Step)
}

func TestStartReviewThenSupplyFill(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()
	supplier := actorWithRole(workflow.RoleSupplier)

	created := createTestRequest(t, svc, employee)

	reviewed, err := svc.StartReview(ctx, created.ID, supplier)
	require.NoError(t, err)
	assert.Equal(t, "UNDER_REVIEW", reviewed.Status)
	assert.Equal(t, "На рассмотрении", reviewed.CurrentStep)

	filled := fillSupply(t, svc, created.ID)
	assert.Equal(t, "WAITING_DIRECTOR", filled.Status)
	require.Len(t, filled.History, 3)
}

func TestSupplyFillValidation(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()
	created := createTestRequest(t, svc, employee)

	_, err := svc.SupplyFill(ctx, created.ID, actorWithRole(workflow.RoleSupplier), SupplyFillDTO{
		Price: decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = svc.SupplyFill(ctx, created.ID, actorWithRole(workflow.RoleSupplier), SupplyFillDTO{
		Supplier: "ООО СтройПоставка",
		Price:    decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestDirectorApprove(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)
	fillSupply(t, svc, created.ID)

	decided, err := svc.DirectorDecision(ctx, created.ID, actorWithRole(workflow.RoleDirector), DirectorDecisionDTO{
		Approved: true,
		Decision: "Закупить в этом месяце",
	})
	require.NoError(t, err)

	// Approval lands directly in the accountant's queue, never in a
	// persisted APPROVED state.
	assert.Equal(t, "WAITING_ACCOUNTANT", decided.Status)
	assert.Equal(t, "У бухгалтера", decided.CurrentStep)
	assert.Equal(t, "Закупить в этом месяце", decided.DirectorDecision)
	require.Len(t, decided.History, 3)
	assert.Equal(t, "Одобрена директором: Закупить в этом месяце", decided.History[2].Step)
}

func TestDirectorReject(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)
	fillSupply(t, svc, created.ID)

	decided, err := svc.DirectorDecision(ctx, created.ID, actorWithRole(workflow.RoleDirector), DirectorDecisionDTO{
		Approved: false,
		Decision: "Слишком дорого",
	})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", decided.Status)
	assert.Equal(t, "Отклонена", decided.CurrentStep)

	// REJECTED is terminal: nothing moves the request anymore
	_, err = svc.AccountantFund(ctx, created.ID, actorWithRole(workflow.RoleAccountant))
	assert.ErrorIs(t, err, workflow.ErrStateConflict)
}

func TestFullLifecycle(t *testing.T) {
	svc, db, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)
	fillSupply(t, svc, created.ID)

	_, err := svc.DirectorDecision(ctx, created.ID, actorWithRole(workflow.RoleDirector), DirectorDecisionDTO{Approved: true})
	require.NoError(t, err)

	funded, err := svc.AccountantFund(ctx, created.ID, actorWithRole(workflow.RoleAccountant))
	require.NoError(t, err)
	assert.Equal(t, "FUNDED", funded.Status)
	assert.True(t, funded.AccountantApproved)

	purchased, err := svc.MarkPurchased(ctx, created.ID, actorWithRole(workflow.RoleSupplier))
	require.NoError(t, err)
	assert.Equal(t, "PURCHASED", purchased.Status)

	delivered, err := svc.ConfirmReceive(ctx, created.ID, employee)
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", delivered.Status)
	assert.Equal(t, "Доставлена", delivered.CurrentStep)
	assert.True(t, delivered.ReceiverConfirmed)
	assert.Len(t, delivered.History, 6)

	var auditCount int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&auditCount).Error)
	assert.EqualValues(t, 6, auditCount)
}

func TestConfirmReceiveOnlyByOwner(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)
	fillSupply(t, svc, created.ID)
	_, err := svc.DirectorDecision(ctx, created.ID, actorWithRole(workflow.RoleDirector), DirectorDecisionDTO{Approved: true})
	require.NoError(t, err)
	_, err = svc.AccountantFund(ctx, created.ID, actorWithRole(workflow.RoleAccountant))
	require.NoError(t, err)
	_, err = svc.MarkPurchased(ctx, created.ID, actorWithRole(workflow.RoleSupplier))
	require.NoError(t, err)

	// Another employee cannot confirm someone else's request
	_, err = svc.ConfirmReceive(ctx, created.ID, actorWithRole(workflow.RoleEmployee))
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = svc.ConfirmReceive(ctx, created.ID, employee)
	require.NoError(t, err)

	// Second confirmation conflicts instead of silently re-applying
	_, err = svc.ConfirmReceive(ctx, created.ID, employee)
	assert.ErrorIs(t, err, workflow.ErrStateConflict)
}

func TestWrongRoleLeavesRequestUntouched(t *testing.T) {
	svc, db, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)
	fillSupply(t, svc, created.ID)
	_, err := svc.DirectorDecision(ctx, created.ID, actorWithRole(workflow.RoleDirector), DirectorDecisionDTO{Approved: true})
	require.NoError(t, err)

	_, err = svc.AccountantFund(ctx, created.ID, actorWithRole(workflow.RoleEmployee))
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	after, err := svc.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "WAITING_ACCOUNTANT", after.Status)
	assert.False(t, after.AccountantApproved)
	assert.Len(t, after.History, 3)

	var auditCount int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("action = ?", model.ActionFundRequest).Count(&auditCount).Error)
	assert.Zero(t, auditCount)
}

func TestTransitionFromWrongStatus(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)

	// Directly funding a fresh request must conflict
	_, err := svc.AccountantFund(ctx, created.ID, actorWithRole(workflow.RoleAccountant))
	assert.ErrorIs(t, err, workflow.ErrStateConflict)

	// Confirming receipt before purchase as the owner must also conflict
	_, err = svc.ConfirmReceive(ctx, created.ID, employee)
	assert.ErrorIs(t, err, workflow.ErrStateConflict)
}

func TestGetRequestErrors(t *testing.T) {
	svc, _, _ := setupRequestService(t)
	ctx := context.Background()

	_, err := svc.GetRequest(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = svc.GetRequest(ctx, uuid.NewString())
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestListRequestsFilters(t *testing.T) {
	svc, db, employee := setupRequestService(t)
	ctx := context.Background()

	other := &model.User{
		Username: "petrov",
		Email:    "petrov@plant.local",
		Phone:    "70000000002",
		Password: "hashed",
		Role:     "employee",
	}
	require.NoError(t, db.Create(other).Error)
	otherActor := Actor{ID: other.ID, Role: workflow.RoleEmployee}

	first := createTestRequest(t, svc, employee)
	createTestRequest(t, svc, otherActor)
	fillSupply(t, svc, first.ID)

	all, total, err := svc.ListRequests(ctx, RequestListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	newOnly, total, err := svc.ListRequests(ctx, RequestListFilter{Status: "NEW"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, newOnly, 1)
	assert.Equal(t, other.ID.String(), newOnly[0].EmployeeID)

	mine, total, err := svc.ListRequests(ctx, RequestListFilter{EmployeeID: employee.ID.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	_, _, err = svc.ListRequests(ctx, RequestListFilter{EmployeeID: "garbage"})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestDirectorDecisionAppliedOnce(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()
	director := actorWithRole(workflow.RoleDirector)

	created := createTestRequest(t, svc, employee)
	fillSupply(t, svc, created.ID)

	decided, err := svc.DirectorDecision(ctx, created.ID, director, DirectorDecisionDTO{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, "WAITING_ACCOUNTANT", decided.Status)

	// A second decision on the same request conflicts, whichever way it goes
	_, err = svc.DirectorDecision(ctx, created.ID, director, DirectorDecisionDTO{Approved: false})
	assert.ErrorIs(t, err, workflow.ErrStateConflict)

	after, err := svc.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "WAITING_ACCOUNTANT", after.Status)
	assert.Len(t, after.History, 3)
}

func TestWrongRoleFromWrongStatusStillForbidden(t *testing.T) {
	svc, _, employee := setupRequestService(t)
	ctx := context.Background()

	created := createTestRequest(t, svc, employee)

	// MarkPurchased is a supplier operation and the request is still NEW;
	// the role mismatch must win over the status guard
	_, err := svc.MarkPurchased(ctx, created.ID, actorWithRole(workflow.RoleDirector))
	assert.ErrorIs(t, err, workflow.ErrForbidden)
	assert.NotErrorIs(t, err, workflow.ErrStateConflict)
}

func TestStatusChangeBroadcast(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.InternalRequest{},
		&model.RequestHistory{},
		&model.AuditLog{},
	))

	employee := &model.User{
		Username: "ivanov",
		Email:    "ivanov@plant.local",
		Phone:    "70000000001",
		Password: "hashed",
		Role:     "employee",
	}
	require.NoError(t, db.Create(employee).Error)

	// No Run loop: the buffered Broadcast channel must still accept events
	hub := ws.NewHub()
	svc := NewRequestService(
		repository.NewRequestRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		hub,
	)

	created, err := svc.CreateRequest(context.Background(), Actor{ID: employee.ID, Role: workflow.RoleEmployee}, CreateRequestDTO{
		ItemName: "Цемент М500",
		Quantity: decimal.NewFromInt(100),
		Unit:     "мешок",
	})
	require.NoError(t, err)

	filled, err := svc.SupplyFill(context.Background(), created.ID, actorWithRole(workflow.RoleSupplier), SupplyFillDTO{
		Supplier: "ООО СтройПоставка",
		Price:    decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	require.Len(t, hub.Broadcast, 2)
	<-hub.Broadcast

	var event ws.Event
	require.NoError(t, json.Unmarshal(<-hub.Broadcast, &event))
	assert.Equal(t, ws.EventRequestStatusChanged, event.Type)
	assert.Equal(t, filled.ID, event.RequestID)
	assert.Equal(t, filled.RequestNumber, event.RequestNumber)
	assert.Equal(t, filled.Status, event.Status)
	assert.Equal(t, filled.CurrentStep, event.CurrentStep)
}
