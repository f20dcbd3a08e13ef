package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// Actor is the already-authenticated caller identity for every operation
type Actor struct {
	ID   uuid.UUID
	Role workflow.Role
}

type CreateRequestDTO struct {
	ItemName string          `json:"item_name" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Unit     string          `json:"unit" binding:"required"`
	Reason   string          `json:"reason"`
}

type SupplyFillDTO struct {
	Supplier   string          `json:"supplier" binding:"required"`
	SupplierID string          `json:"supplier_id"`
	Price      decimal.Decimal `json:"price" binding:"required"`
}

type DirectorDecisionDTO struct {
	Approved bool   `json:"approved"`
	Decision string `json:"decision"`
}

type RequestListFilter struct {
	Status     string
	EmployeeID string
	Page       int
	Limit      int
}

type HistoryEntryResponse struct {
	Step string `json:"step"`
	User string `json:"user"`
	Date string `json:"date"`
}

type RequestResponse struct {
	ID                 string                 `json:"id"`
	RequestNumber      string                 `json:"request_number"`
	EmployeeID         string                 `json:"employee_id"`
	EmployeeName       string                 `json:"employee_name,omitempty"`
	ItemName           string                 `json:"item_name"`
	Quantity           string                 `json:"quantity"`
	Unit               string                 `json:"unit"`
	Reason             string                 `json:"reason,omitempty"`
	Supplier           string                 `json:"supplier,omitempty"`
	SupplierID         *string                `json:"supplier_id,omitempty"`
	Price              *string                `json:"price,omitempty"`
	TotalAmount        *string                `json:"total_amount,omitempty"`
	Status             string                 `json:"status"`
	CurrentStep        string                 `json:"current_step"`
	DirectorDecision   string                 `json:"director_decision,omitempty"`
	AccountantApproved bool                   `json:"accountant_approved"`
	ReceiverConfirmed  bool                   `json:"receiver_confirmed"`
	History            []HistoryEntryResponse `json:"history,omitempty"`
	CreatedAt          string                 `json:"created_at"`
	UpdatedAt          string                 `json:"updated_at"`
}

// --- Interface ---

// RequestService owns the internal-request lifecycle: it validates role-gated
// transitions, computes derived fields and persists every state change
// atomically with its history entry.
type RequestService interface {
	CreateRequest(ctx context.Context, actor Actor, req CreateRequestDTO) (RequestResponse, error)
	GetRequest(ctx context.Context, id string) (RequestResponse, error)
	ListRequests(ctx context.Context, filter RequestListFilter) ([]RequestResponse, int64, error)

	StartReview(ctx context.Context, id string, actor Actor) (RequestResponse, error)
	SupplyFill(ctx context.Context, id string, actor Actor, req SupplyFillDTO) (RequestResponse, error)
	DirectorDecision(ctx context.Context, id string, actor Actor, req DirectorDecisionDTO) (RequestResponse, error)
	AccountantFund(ctx context.Context, id string, actor Actor) (RequestResponse, error)
	MarkPurchased(ctx context.Context, id string, actor Actor) (RequestResponse, error)
	ConfirmReceive(ctx context.Context, id string, actor Actor) (RequestResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, actor Actor, req CreateRequestDTO) (RequestResponse, error) {
	if actor.Role != workflow.RoleEmployee {
		return RequestResponse{}, fmt.Errorf("%w: only employees create requests", workflow.ErrForbidden)
	}
	if req.ItemName == "" || req.Unit == "" {
		return RequestResponse{}, fmt.Errorf("%w: item_name and unit are required", workflow.ErrValidation)
	}
	if !req.Quantity.IsPositive() {
		return RequestResponse{}, fmt.Errorf("%w: quantity must be positive", workflow.ErrValidation)
	}

	request := &model.InternalRequest{
		EmployeeID: actor.ID,
		ItemName:   req.ItemName,
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		Reason:     req.Reason,
		Status:     workflow.StatusNew.String(),
	}

	var created *model.InternalRequest
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.requestRepo.NextRequestNumber(txCtx)
		if numErr != nil {
			return numErr
		}
		request.RequestNumber = number

		entry := &model.RequestHistory{
			Step:   workflow.StatusNew.Label(),
			UserID: &actor.ID,
		}
		if createErr := s.requestRepo.Create(txCtx, request, entry); createErr != nil {
			return createErr
		}

		if auditErr := s.writeAudit(txCtx, actor.ID, model.ActionCreateRequest, request, map[string]interface{}{
			"item_name": req.ItemName,
			"quantity":  req.Quantity.String(),
			"unit":      req.Unit,
		}); auditErr != nil {
			return auditErr
		}

		// Reload with associations inside the transaction so the response
		// is the exact state this call produced
		var loadErr error
		created, loadErr = s.requestRepo.FindByID(txCtx, request.ID)
		return loadErr
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcastStatusChange(created)

	return toRequestResponse(created), nil
}

func (s *requestService) GetRequest(ctx context.Context, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("%w: invalid request id", workflow.ErrValidation)
	}

	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return RequestResponse{}, err
	}

	return toRequestResponse(request), nil
}

func (s *requestService) ListRequests(ctx context.Context, filter RequestListFilter) ([]RequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.RequestFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.EmployeeID != "" {
		employeeID, err := uuid.Parse(filter.EmployeeID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid employee id", workflow.ErrValidation)
		}
		repoFilter.EmployeeID = &employeeID
	}

	requests, total, err := s.requestRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toRequestResponse(&requests[i]))
	}

	return result, total, nil
}

func (s *requestService) StartReview(ctx context.Context, id string, actor Actor) (RequestResponse, error) {
	return s.transition(ctx, id, actor, workflow.OpStartReview, model.ActionStartReview, "", nil)
}

func (s *requestService) SupplyFill(ctx context.Context, id string, actor Actor, req SupplyFillDTO) (RequestResponse, error) {
	if req.Supplier == "" {
		return RequestResponse{}, fmt.Errorf("%w: supplier is required", workflow.ErrValidation)
	}
	if !req.Price.IsPositive() {
		return RequestResponse{}, fmt.Errorf("%w: price must be positive", workflow.ErrValidation)
	}

	var supplierID *uuid.UUID
	if req.SupplierID != "" {
		parsed, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return RequestResponse{}, fmt.Errorf("%w: invalid supplier id", workflow.ErrValidation)
		}
		supplierID = &parsed
	}

	return s.transition(ctx, id, actor, workflow.OpSupplyFill, model.ActionFillSupply, "",
		func(request *model.InternalRequest) {
			price := req.Price
			total := price.Mul(request.Quantity)
			request.Supplier = req.Supplier
			request.SupplierID = supplierID
			request.Price = &price
			request.TotalAmount = &total
		})
}

func (s *requestService) DirectorDecision(ctx context.Context, id string, actor Actor, req DirectorDecisionDTO) (RequestResponse, error) {
	op := workflow.OpDirectorReject
	action := model.ActionDirectorReject
	if req.Approved {
		op = workflow.OpDirectorApprove
		action = model.ActionDirectorApprove
	}

	stepSuffix := req.Decision
	return s.transition(ctx, id, actor, op, action, stepSuffix,
		func(request *model.InternalRequest) {
			request.DirectorDecision = req.Decision
		})
}

func (s *requestService) AccountantFund(ctx context.Context, id string, actor Actor) (RequestResponse, error) {
	return s.transition(ctx, id, actor, workflow.OpAccountantFund, model.ActionFundRequest, "",
		func(request *model.InternalRequest) {
			request.AccountantApproved = true
		})
}

func (s *requestService) MarkPurchased(ctx context.Context, id string, actor Actor) (RequestResponse, error) {
	return s.transition(ctx, id, actor, workflow.OpMarkPurchased, model.ActionMarkPurchased, "", nil)
}

func (s *requestService) ConfirmReceive(ctx context.Context, id string, actor Actor) (RequestResponse, error) {
	return s.transition(ctx, id, actor, workflow.OpConfirmReceive, model.ActionConfirmReceive, "",
		func(request *model.InternalRequest) {
			request.ReceiverConfirmed = true
		})
}

// transition runs one guarded read-modify-write on a request. The row lock
// linearizes concurrent transitions on the same id; the status update,
// history entry and audit row commit in a single transaction, so a failed
// guard leaves the entity completely untouched.
func (s *requestService) transition(
	ctx context.Context,
	id string,
	actor Actor,
	op workflow.Operation,
	action string,
	stepSuffix string,
	mutate func(*model.InternalRequest),
) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("%w: invalid request id", workflow.ErrValidation)
	}

	// Role mismatch fails before any state is inspected
	if required, ok := workflow.RequiredRole(op); ok && actor.Role != required {
		return RequestResponse{}, fmt.Errorf("%w: %s requires role %s", workflow.ErrForbidden, op, required)
	}

	var result *model.InternalRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, txErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if txErr != nil {
			return txErr
		}

		if op == workflow.OpConfirmReceive {
			if request.EmployeeID != actor.ID {
				return fmt.Errorf("%w: only the owning employee may confirm receipt", workflow.ErrForbidden)
			}
			if request.ReceiverConfirmed {
				return fmt.Errorf("%w: receipt already confirmed", workflow.ErrStateConflict)
			}
		}

		next, applyErr := workflow.Apply(op, workflow.Status(request.Status), actor.Role)
		if applyErr != nil {
			return applyErr
		}

		previous := request.Status
		request.Status = next.String()
		if mutate != nil {
			mutate(request)
		}

		if saveErr := s.requestRepo.Save(txCtx, request); saveErr != nil {
			return saveErr
		}

		step := workflow.HistoryStep(op)
		if stepSuffix != "" {
			step = step + ": " + stepSuffix
		}
		entry := &model.RequestHistory{
			RequestID: request.ID,
			Step:      step,
			UserID:    &actor.ID,
		}
		if histErr := s.requestRepo.AppendHistory(txCtx, entry); histErr != nil {
			return histErr
		}

		if auditErr := s.writeAudit(txCtx, actor.ID, action, request, map[string]interface{}{
			"from": previous,
			"to":   request.Status,
		}); auditErr != nil {
			return auditErr
		}

		// Reload with associations inside the transaction so the response
		// reflects exactly the state this transition produced, not a later one
		var loadErr error
		result, loadErr = s.requestRepo.FindByID(txCtx, requestID)
		return loadErr
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcastStatusChange(result)

	return toRequestResponse(result), nil
}

func (s *requestService) writeAudit(ctx context.Context, userID uuid.UUID, action string, request *model.InternalRequest, payload map[string]interface{}) error {
	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   request.ID.String(),
		EntityName: request.RequestNumber,
		Details:    string(details),
	}
	return s.auditRepo.Log(ctx, audit)
}

// broadcastStatusChange pushes the new status to connected frontends after commit
func (s *requestService) broadcastStatusChange(request *model.InternalRequest) {
	if s.hub == nil {
		return
	}

	payload, err := json.Marshal(ws.Event{
		Type:          ws.EventRequestStatusChanged,
		RequestID:     request.ID.String(),
		RequestNumber: request.RequestNumber,
		Status:        request.Status,
		CurrentStep:   workflow.Status(request.Status).Label(),
	})
	if err != nil {
		return
	}

	select {
	case s.hub.Broadcast <- payload:
	default:
		// No hub reader; drop rather than block the request
	}
}

// --- Helpers ---

func toRequestResponse(request *model.InternalRequest) RequestResponse {
	resp := RequestResponse{
		ID:                 request.ID.String(),
		RequestNumber:      request.RequestNumber,
		EmployeeID:         request.EmployeeID.String(),
		ItemName:           request.ItemName,
		Quantity:           request.Quantity.String(),
		Unit:               request.Unit,
		Reason:             request.Reason,
		Supplier:           request.Supplier,
		Status:             request.Status,
		CurrentStep:        workflow.Status(request.Status).Label(),
		DirectorDecision:   request.DirectorDecision,
		AccountantApproved: request.AccountantApproved,
		ReceiverConfirmed:  request.ReceiverConfirmed,
		CreatedAt:          request.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          request.UpdatedAt.Format(time.RFC3339),
	}

	if request.Employee != nil {
		resp.EmployeeName = request.Employee.Username
	}
	if request.SupplierID != nil {
		s := request.SupplierID.String()
		resp.SupplierID = &s
	}
	if request.Price != nil {
		s := request.Price.String()
		resp.Price = &s
	}
	if request.TotalAmount != nil {
		s := request.TotalAmount.String()
		resp.TotalAmount = &s
	}

	for _, h := range request.History {
		user := ""
		if h.User != nil {
			user = h.User.Username
		} else if h.UserID != nil {
			user = h.UserID.String()
		}
		resp.History = append(resp.History, HistoryEntryResponse{
			Step: h.Step,
			User: user,
			Date: h.CreatedAt.Format(time.RFC3339),
		})
	}

	return resp
}
