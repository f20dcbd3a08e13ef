package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateCounterpartyRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required"`
	INN           string `json:"inn"`
	KPP           string `json:"kpp"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

type UpdateCounterpartyRequest struct {
	Name          *string `json:"name"`
	Type          *string `json:"type"`
	INN           *string `json:"inn"`
	KPP           *string `json:"kpp"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	IsActive      *bool   `json:"is_active"`
}

type CounterpartyResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	INN           string    `json:"inn"`
	KPP           string    `json:"kpp"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Interface ---

type CounterpartyService interface {
	CreateCounterparty(ctx context.Context, userID string, req CreateCounterpartyRequest) (CounterpartyResponse, error)
	UpdateCounterparty(ctx context.Context, id, userID string, req UpdateCounterpartyRequest) (CounterpartyResponse, error)
	DeleteCounterparty(ctx context.Context, id, userID string) error
	GetCounterparties(ctx context.Context, cpType, search string, page, limit int) ([]CounterpartyResponse, int64, error)
}

// --- Implementation ---

type counterpartyService struct {
	counterpartyRepo repository.CounterpartyRepository
	auditRepo        repository.AuditRepository
	txManager        repository.TransactionManager
}

func NewCounterpartyService(
	counterpartyRepo repository.CounterpartyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CounterpartyService {
	return &counterpartyService{
		counterpartyRepo: counterpartyRepo,
		auditRepo:        auditRepo,
		txManager:        txManager,
	}
}

// --- Validation helpers ---

var validCounterpartyTypes = map[string]bool{
	model.CounterpartyTypeSupplier: true,
	model.CounterpartyTypeCustomer: true,
	model.CounterpartyTypeBoth:     true,
}

func validateINN(inn string) error {
	if inn == "" {
		return nil
	}
	if len(inn) != 10 && len(inn) != 12 {
		return errors.New("inn must be 10 or 12 digits")
	}
	for _, c := range inn {
		if c < '0' || c > '9' {
			return errors.New("inn must contain only digits")
		}
	}
	return nil
}

func validateCounterpartyEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email format")
	}
	return nil
}

func toCounterpartyResponse(cp *model.Counterparty) CounterpartyResponse {
	return CounterpartyResponse{
		ID:            cp.ID,
		Name:          cp.Name,
		Type:          cp.Type,
		INN:           cp.INN,
		KPP:           cp.KPP,
		ContactPerson: cp.ContactPerson,
		Phone:         cp.Phone,
		Email:         cp.Email,
		Address:       cp.Address,
		IsActive:      cp.IsActive,
		CreatedAt:     cp.CreatedAt,
		UpdatedAt:     cp.UpdatedAt,
	}
}

func (s *counterpartyService) logCounterpartyAction(ctx context.Context, userID, action string, cp *model.Counterparty) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(map[string]interface{}{
		"name": cp.Name,
		"type": cp.Type,
	})
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   cp.ID.String(),
		EntityName: cp.Name,
		Details:    string(details),
	})
}

func (s *counterpartyService) CreateCounterparty(ctx context.Context, userID string, req CreateCounterpartyRequest) (CounterpartyResponse, error) {
	if !validCounterpartyTypes[req.Type] {
		return CounterpartyResponse{}, errors.New("type must be one of: SUPPLIER, CUSTOMER, BOTH")
	}
	if err := validateINN(req.INN); err != nil {
		return CounterpartyResponse{}, err
	}
	if err := validateCounterpartyEmail(req.Email); err != nil {
		return CounterpartyResponse{}, err
	}

	cp := &model.Counterparty{
		Name:          req.Name,
		Type:          req.Type,
		INN:           req.INN,
		KPP:           req.KPP,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.counterpartyRepo.Create(txCtx, cp); createErr != nil {
			return fmt.Errorf("failed to create counterparty: %w", createErr)
		}
		return s.logCounterpartyAction(txCtx, userID, model.ActionCreateCounterparty, cp)
	})
	if err != nil {
		return CounterpartyResponse{}, err
	}

	return toCounterpartyResponse(cp), nil
}

func (s *counterpartyService) UpdateCounterparty(ctx context.Context, id, userID string, req UpdateCounterpartyRequest) (CounterpartyResponse, error) {
	cpID, err := uuid.Parse(id)
	if err != nil {
		return CounterpartyResponse{}, errors.New("invalid counterparty id")
	}

	cp, err := s.counterpartyRepo.FindByID(ctx, cpID)
	if err != nil {
		return CounterpartyResponse{}, errors.New("counterparty not found")
	}

	if req.Type != nil {
		if !validCounterpartyTypes[*req.Type] {
			return CounterpartyResponse{}, errors.New("type must be one of: SUPPLIER, CUSTOMER, BOTH")
		}
		cp.Type = *req.Type
	}
	if req.INN != nil {
		if innErr := validateINN(*req.INN); innErr != nil {
			return CounterpartyResponse{}, innErr
		}
		cp.INN = *req.INN
	}
	if req.Email != nil {
		if emailErr := validateCounterpartyEmail(*req.Email); emailErr != nil {
			return CounterpartyResponse{}, emailErr
		}
		cp.Email = *req.Email
	}
	if req.Name != nil {
		cp.Name = *req.Name
	}
	if req.KPP != nil {
		cp.KPP = *req.KPP
	}
	if req.ContactPerson != nil {
		cp.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		cp.Phone = *req.Phone
	}
	if req.Address != nil {
		cp.Address = *req.Address
	}
	if req.IsActive != nil {
		cp.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.counterpartyRepo.Update(txCtx, cp); updateErr != nil {
			return fmt.Errorf("failed to update counterparty: %w", updateErr)
		}
		return s.logCounterpartyAction(txCtx, userID, model.ActionUpdateCounterparty, cp)
	})
	if err != nil {
		return CounterpartyResponse{}, err
	}

	return toCounterpartyResponse(cp), nil
}

func (s *counterpartyService) DeleteCounterparty(ctx context.Context, id, userID string) error {
	cpID, err := uuid.Parse(id)
	if err != nil {
		return errors.New("invalid counterparty id")
	}

	cp, err := s.counterpartyRepo.FindByID(ctx, cpID)
	if err != nil {
		return errors.New("counterparty not found")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.counterpartyRepo.Delete(txCtx, cpID); deleteErr != nil {
			return fmt.Errorf("failed to delete counterparty: %w", deleteErr)
		}
		return s.logCounterpartyAction(txCtx, userID, model.ActionDeleteCounterparty, cp)
	})
}

func (s *counterpartyService) GetCounterparties(ctx context.Context, cpType, search string, page, limit int) ([]CounterpartyResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	counterparties, total, err := s.counterpartyRepo.List(ctx, cpType, search, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]CounterpartyResponse, 0, len(counterparties))
	for i := range counterparties {
		result = append(result, toCounterpartyResponse(&counterparties[i]))
	}

	return result, total, nil
}
