package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository is the persistence collaborator for internal requests.
// Mutations run inside a TransactionManager transaction; FindByIDForUpdate
// takes a row lock so transitions on the same request are linearized.
type RequestRepository interface {
	Create(ctx context.Context, req *model.InternalRequest, firstEntry *model.RequestHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InternalRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InternalRequest, error)
	Save(ctx context.Context, req *model.InternalRequest) error
	AppendHistory(ctx context.Context, entry *model.RequestHistory) error
	List(ctx context.Context, filter RequestFilter) ([]model.InternalRequest, int64, error)
	NextRequestNumber(ctx context.Context) (string, error)
}

// RequestFilter narrows List results
type RequestFilter struct {
	Status     string
	EmployeeID *uuid.UUID
	Page       int
	Limit      int
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// wrapDBError maps driver-level failures onto the workflow error taxonomy
func wrapDBError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workflow.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", workflow.ErrStorageUnavailable, op, err)
}

func (r *requestRepository) Create(ctx context.Context, req *model.InternalRequest, firstEntry *model.RequestHistory) error {
	db := GetDB(ctx, r.db)
	if err := db.Create(req).Error; err != nil {
		return wrapDBError("create request", err)
	}
	firstEntry.RequestID = req.ID
	if err := db.Create(firstEntry).Error; err != nil {
		return wrapDBError("append history", err)
	}
	return nil
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InternalRequest, error) {
	var req model.InternalRequest
	err := GetDB(ctx, r.db).
		Preload("Employee").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("request_histories.created_at ASC")
		}).
		Preload("History.User").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, wrapDBError("find request", err)
	}
	return &req, nil
}

// FindByIDForUpdate loads the request under SELECT ... FOR UPDATE. Must be
// called inside RunInTx; a concurrent transition on the same id blocks here
// until the first transaction commits, then fails its status guard.
func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InternalRequest, error) {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var req model.InternalRequest
	if err := db.First(&req, "id = ?", id).Error; err != nil {
		return nil, wrapDBError("lock request", err)
	}
	return &req, nil
}

func (r *requestRepository) Save(ctx context.Context, req *model.InternalRequest) error {
	if err := GetDB(ctx, r.db).Save(req).Error; err != nil {
		return wrapDBError("save request", err)
	}
	return nil
}

func (r *requestRepository) AppendHistory(ctx context.Context, entry *model.RequestHistory) error {
	if err := GetDB(ctx, r.db).Create(entry).Error; err != nil {
		return wrapDBError("append history", err)
	}
	return nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.InternalRequest, int64, error) {
	var requests []model.InternalRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.InternalRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDBError("count requests", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	fetchQuery := db.Preload("Employee")
	if filter.Status != "" {
		fetchQuery = fetchQuery.Where("status = ?", filter.Status)
	}
	if filter.EmployeeID != nil {
		fetchQuery = fetchQuery.Where("employee_id = ?", *filter.EmployeeID)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&requests).Error; err != nil {
		return nil, 0, wrapDBError("fetch requests", err)
	}

	return requests, total, nil
}

// NextRequestNumber produces the sequential human-readable number, e.g.
// REQ-20250115-00042. The advisory lock prevents concurrent duplicates on
// Postgres; other dialects fall through to the plain count.
func (r *requestRepository) NextRequestNumber(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "REQ-" + time.Now().Format("20060102") + "-"

	if db.Dialector.Name() == "postgres" {
		db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)
	}

	var count int64
	if err := db.Model(&model.InternalRequest{}).
		Where("request_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", wrapDBError("count request numbers", err)
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
