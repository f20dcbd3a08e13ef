package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CounterpartyRepository interface {
	Create(ctx context.Context, cp *model.Counterparty) error
	Update(ctx context.Context, cp *model.Counterparty) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Counterparty, error)
	List(ctx context.Context, cpType, search string, page, limit int) ([]model.Counterparty, int64, error)
}

type counterpartyRepository struct {
	db *gorm.DB
}

func NewCounterpartyRepository(db *gorm.DB) CounterpartyRepository {
	return &counterpartyRepository{db: db}
}

func (r *counterpartyRepository) Create(ctx context.Context, cp *model.Counterparty) error {
	return GetDB(ctx, r.db).Create(cp).Error
}

func (r *counterpartyRepository) Update(ctx context.Context, cp *model.Counterparty) error {
	return GetDB(ctx, r.db).Save(cp).Error
}

func (r *counterpartyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Counterparty{}).Error
}

func (r *counterpartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Counterparty, error) {
	var cp model.Counterparty
	if err := GetDB(ctx, r.db).First(&cp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *counterpartyRepository) List(ctx context.Context, cpType, search string, page, limit int) ([]model.Counterparty, int64, error) {
	var counterparties []model.Counterparty
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Counterparty{})

	if cpType != "" {
		query = query.Where("type = ?", cpType)
	}
	if search != "" {
		query = query.Where("name ILIKE ? OR inn ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Model(&model.Counterparty{})
	if cpType != "" {
		fetchQuery = fetchQuery.Where("type = ?", cpType)
	}
	if search != "" {
		fetchQuery = fetchQuery.Where("name ILIKE ? OR inn ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&counterparties).Error; err != nil {
		return nil, 0, err
	}

	return counterparties, total, nil
}
