package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCounterpartyService(t *testing.T) (CounterpartyService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(&model.Counterparty{}, &model.AuditLog{})
	require.NoError(t, err, "failed to migrate test database")

	svc := NewCounterpartyService(
		repository.NewCounterpartyRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
	return svc, db
}

func TestCreateCounterparty(t *testing.T) {
	svc, db := setupCounterpartyService(t)
	adminID := uuid.NewString()

	created, err := svc.CreateCounterparty(context.Background(), adminID, CreateCounterpartyRequest{
		Name:          "ООО СтройПоставка",
		Type:          model.CounterpartyTypeSupplier,
		INN:           "7712345678",
		KPP:           "771201001",
		ContactPerson: "Сидоров А.В.",
		Phone:         "+7 495 000-00-00",
		Email:         "sales@stroypostavka.ru",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, created.IsActive)

	var auditCount int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("action = ?", model.ActionCreateCounterparty).Count(&auditCount).Error)
	assert.EqualValues(t, 1, auditCount)
}

func TestCreateCounterpartyValidation(t *testing.T) {
	svc, _ := setupCounterpartyService(t)
	ctx := context.Background()
	adminID := uuid.NewString()

	_, err := svc.CreateCounterparty(ctx, adminID, CreateCounterpartyRequest{
		Name: "ООО Ромашка",
		Type: "VENDOR",
	})
	assert.Error(t, err)

	_, err = svc.CreateCounterparty(ctx, adminID, CreateCounterpartyRequest{
		Name: "ООО Ромашка",
		Type: model.CounterpartyTypeSupplier,
		INN:  "12345",
	})
	assert.Error(t, err)

	_, err = svc.CreateCounterparty(ctx, adminID, CreateCounterpartyRequest{
		Name:  "ООО Ромашка",
		Type:  model.CounterpartyTypeSupplier,
		Email: "not-an-email",
	})
	assert.Error(t, err)
}

func TestUpdateCounterparty(t *testing.T) {
	svc, _ := setupCounterpartyService(t)
	ctx := context.Background()
	adminID := uuid.NewString()

	created, err := svc.CreateCounterparty(ctx, adminID, CreateCounterpartyRequest{
		Name: "ООО СтройПоставка",
		Type: model.CounterpartyTypeSupplier,
	})
	require.NoError(t, err)

	newName := "ООО СтройПоставка Плюс"
	inactive := false
	updated, err := svc.UpdateCounterparty(ctx, created.ID.String(), adminID, UpdateCounterpartyRequest{
		Name:     &newName,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.False(t, updated.IsActive)

	_, err = svc.UpdateCounterparty(ctx, uuid.NewString(), adminID, UpdateCounterpartyRequest{Name: &newName})
	assert.Error(t, err)
}

func TestDeleteCounterparty(t *testing.T) {
	svc, db := setupCounterpartyService(t)
	ctx := context.Background()
	adminID := uuid.NewString()

	created, err := svc.CreateCounterparty(ctx, adminID, CreateCounterpartyRequest{
		Name: "ООО Ромашка",
		Type: model.CounterpartyTypeCustomer,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCounterparty(ctx, created.ID.String(), adminID))

	// Soft delete hides the row from listings
	list, total, err := svc.GetCounterparties(ctx, "", "", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	var raw int64
	require.NoError(t, db.Unscoped().Model(&model.Counterparty{}).Count(&raw).Error)
	assert.EqualValues(t, 1, raw)
}

func TestGetCounterpartiesTypeFilter(t *testing.T) {
	svc, _ := setupCounterpartyService(t)
	ctx := context.Background()
	adminID := uuid.NewString()

	for _, c := range []CreateCounterpartyRequest{
		{Name: "ООО СтройПоставка", Type: model.CounterpartyTypeSupplier},
		{Name: "ООО Заказчик", Type: model.CounterpartyTypeCustomer},
		{Name: "ООО Универсал", Type: model.CounterpartyTypeBoth},
	} {
		_, err := svc.CreateCounterparty(ctx, adminID, c)
		require.NoError(t, err)
	}

	suppliers, total, err := svc.GetCounterparties(ctx, model.CounterpartyTypeSupplier, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "ООО СтройПоставка", suppliers[0].Name)

	all, total, err := svc.GetCounterparties(ctx, "", "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)
}
