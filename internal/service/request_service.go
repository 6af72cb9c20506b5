package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetdesk/internal/model"
	"assetdesk/internal/repository"
	ws "assetdesk/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRequestDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"required"`
}

type DirectAssignDTO struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	ProductID  string `json:"product_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

type RequestResponse struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name,omitempty"`
	Quantity     int     `json:"quantity"`
	Reason       string  `json:"reason"`
	Status       string  `json:"status"`
	ApprovedBy   *string `json:"approved_by"`
	ApproverName string  `json:"approver_name,omitempty"`
	ApprovedAt   *string `json:"approved_at"`
	Returned     bool    `json:"returned"`
	ReturnedAt   *string `json:"returned_at"`
	CreatedAt    string  `json:"created_at"`
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, employeeID string, req CreateRequestDTO) (RequestResponse, error)
	ListMyRequests(ctx context.Context, employeeID string, status string) ([]RequestResponse, error)
	ListPendingApprovals(ctx context.Context) ([]RequestResponse, error)
	ListDecidedBy(ctx context.Context, managerID string) ([]RequestResponse, error)
	ApproveRequest(ctx context.Context, id string, managerID string) (RequestResponse, error)
	RejectRequest(ctx context.Context, id string, managerID string) (RequestResponse, error)
	DirectAssign(ctx context.Context, adminID string, req DirectAssignDTO) (RequestResponse, error)
	ListReturnable(ctx context.Context) ([]RequestResponse, error)
	ReturnRequest(ctx context.Context, id string, adminID string) (RequestResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, employeeID string, req CreateRequestDTO) (RequestResponse, error) {
	empID, err := uuid.Parse(employeeID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid employee id: %w", err)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid product id: %w", err)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return RequestResponse{}, errors.New("reason is required")
	}
	if req.Quantity <= 0 {
		return RequestResponse{}, errors.New("quantity must be positive")
	}

	// The catalog only offers in-stock products, but the row is checked again
	// here so a stale browse view cannot reference a deleted product.
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, errors.New("product not found")
		}
		return RequestResponse{}, fmt.Errorf("database error: %w", err)
	}

	request := model.AssetRequest{
		EmployeeID: empID,
		ProductID:  productID,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Status:     model.RequestPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}
		return s.audit(txCtx, &empID, model.ActionCreateRequest, request.ID.String(), map[string]interface{}{
			"product_id": req.ProductID,
			"quantity":   req.Quantity,
			"reason":     req.Reason,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reload(ctx, request.ID)
}

func (s *requestService) ListMyRequests(ctx context.Context, employeeID string, status string) ([]RequestResponse, error) {
	empID, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, fmt.Errorf("invalid employee id: %w", err)
	}
	if status != "" && status != model.RequestPending && status != model.RequestApproved && status != model.RequestRejected {
		return nil, fmt.Errorf("unknown status filter: %s", status)
	}

	requests, err := s.requestRepo.ListByEmployee(ctx, empID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}
	return toRequestResponses(requests), nil
}

func (s *requestService) ListPendingApprovals(ctx context.Context) ([]RequestResponse, error) {
	requests, err := s.requestRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending requests: %w", err)
	}
	return toRequestResponses(requests), nil
}

func (s *requestService) ListDecidedBy(ctx context.Context, managerID string) ([]RequestResponse, error) {
	mgrID, err := uuid.Parse(managerID)
	if err != nil {
		return nil, fmt.Errorf("invalid manager id: %w", err)
	}
	requests, err := s.requestRepo.ListByApprover(ctx, mgrID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return toRequestResponses(requests), nil
}

// ApproveRequest flips a pending request to approved and decrements the
// product's stock. Both writes share one transaction: a failed decrement
// (insufficient stock included) rolls the status flip back.
func (s *requestService) ApproveRequest(ctx context.Context, id string, managerID string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}
	approverID, err := uuid.Parse(managerID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	var request *model.AssetRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		request, findErr = s.requestRepo.FindByID(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return errors.New("request not found")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		if request.Status != model.RequestPending {
			return fmt.Errorf("request is already %s", request.Status)
		}

		now := time.Now()
		if decideErr := s.requestRepo.Decide(txCtx, requestID, model.RequestApproved, approverID, now); decideErr != nil {
			if errors.Is(decideErr, gorm.ErrRecordNotFound) {
				return errors.New("request was decided concurrently")
			}
			return fmt.Errorf("failed to update request: %w", decideErr)
		}

		if adjErr := s.productRepo.AdjustQuantity(txCtx, request.ProductID, -request.Quantity); adjErr != nil {
			if errors.Is(adjErr, repository.ErrInsufficientStock) {
				return fmt.Errorf("insufficient stock for request (requested %d)", request.Quantity)
			}
			return fmt.Errorf("failed to adjust stock: %w", adjErr)
		}

		return s.audit(txCtx, &approverID, model.ActionApproveRequest, requestID.String(), map[string]interface{}{
			"product_id": request.ProductID.String(),
			"quantity":   request.Quantity,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcastStock(ctx, request.ProductID)
	return s.reload(ctx, requestID)
}

func (s *requestService) RejectRequest(ctx context.Context, id string, managerID string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}
	approverID, err := uuid.Parse(managerID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByID(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return errors.New("request not found")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		if request.Status != model.RequestPending {
			return fmt.Errorf("request is already %s", request.Status)
		}

		if decideErr := s.requestRepo.Decide(txCtx, requestID, model.RequestRejected, approverID, time.Now()); decideErr != nil {
			if errors.Is(decideErr, gorm.ErrRecordNotFound) {
				return errors.New("request was decided concurrently")
			}
			return fmt.Errorf("failed to update request: %w", decideErr)
		}

		return s.audit(txCtx, &approverID, model.ActionRejectRequest, requestID.String(), map[string]interface{}{
			"product_id": request.ProductID.String(),
			"quantity":   request.Quantity,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reload(ctx, requestID)
}

// DirectAssign creates an already-approved request on behalf of an employee
// and decrements stock in the same transaction.
func (s *requestService) DirectAssign(ctx context.Context, adminID string, req DirectAssignDTO) (RequestResponse, error) {
	assignerID, err := uuid.Parse(adminID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid user id: %w", err)
	}
	empID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid employee id: %w", err)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid product id: %w", err)
	}
	if req.Quantity <= 0 {
		return RequestResponse{}, errors.New("quantity must be positive")
	}

	employee, err := s.userRepo.GetByID(ctx, empID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, errors.New("employee not found")
		}
		return RequestResponse{}, fmt.Errorf("database error: %w", err)
	}
	if employee.Role != model.RoleEmployee {
		return RequestResponse{}, errors.New("assignments can only target employees")
	}

	now := time.Now()
	request := model.AssetRequest{
		EmployeeID: empID,
		ProductID:  productID,
		Quantity:   req.Quantity,
		Reason:     model.ReasonDirectAssignment,
		Status:     model.RequestApproved,
		ApprovedBy: &assignerID,
		ApprovedAt: &now,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if adjErr := s.productRepo.AdjustQuantity(txCtx, productID, -req.Quantity); adjErr != nil {
			if errors.Is(adjErr, repository.ErrInsufficientStock) {
				return fmt.Errorf("insufficient stock for assignment (requested %d)", req.Quantity)
			}
			if errors.Is(adjErr, gorm.ErrRecordNotFound) {
				return errors.New("product not found")
			}
			return fmt.Errorf("failed to adjust stock: %w", adjErr)
		}

		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create assignment: %w", createErr)
		}

		return s.audit(txCtx, &assignerID, model.ActionDirectAssign, request.ID.String(), map[string]interface{}{
			"employee_id": req.EmployeeID,
			"product_id":  req.ProductID,
			"quantity":    req.Quantity,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcastStock(ctx, productID)
	return s.reload(ctx, request.ID)
}

func (s *requestService) ListReturnable(ctx context.Context) ([]RequestResponse, error) {
	requests, err := s.requestRepo.ListReturnable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch returnable requests: %w", err)
	}
	return toRequestResponses(requests), nil
}

// ReturnRequest marks an approved request as returned and restores stock.
// The returned flag is one-way: a second attempt fails instead of double
// incrementing the product quantity.
func (s *requestService) ReturnRequest(ctx context.Context, id string, adminID string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}
	returnerID, err := uuid.Parse(adminID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	var request *model.AssetRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		request, findErr = s.requestRepo.FindByID(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return errors.New("request not found")
			}
			return fmt.Errorf("database error: %w", findErr)
		}

		if request.Status != model.RequestApproved {
			return errors.New("only approved requests can be returned")
		}
		if request.Returned {
			return errors.New("request is already returned")
		}

		if markErr := s.requestRepo.MarkReturned(txCtx, requestID, time.Now()); markErr != nil {
			if errors.Is(markErr, gorm.ErrRecordNotFound) {
				return errors.New("request was returned concurrently")
			}
			return fmt.Errorf("failed to mark returned: %w", markErr)
		}

		if adjErr := s.productRepo.AdjustQuantity(txCtx, request.ProductID, request.Quantity); adjErr != nil {
			return fmt.Errorf("failed to restore stock: %w", adjErr)
		}

		return s.audit(txCtx, &returnerID, model.ActionReturnRequest, requestID.String(), map[string]interface{}{
			"product_id": request.ProductID.String(),
			"quantity":   request.Quantity,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcastStock(ctx, request.ProductID)
	return s.reload(ctx, requestID)
}

// --- Helpers ---

func (s *requestService) audit(ctx context.Context, userID *uuid.UUID, action, entityID string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:   userID,
		Action:   action,
		EntityID: entityID,
		Details:  string(payload),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *requestService) reload(ctx context.Context, id uuid.UUID) (RequestResponse, error) {
	request, err := s.requestRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", err)
	}
	return toRequestResponse(*request), nil
}

func (s *requestService) broadcastStock(ctx context.Context, productID uuid.UUID) {
	if s.hub == nil {
		return
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return
	}
	payload, _ := json.Marshal(ws.StockEvent{
		Event: "stock_changed",
		Data: map[string]interface{}{
			"product_id": product.ID.String(),
			"name":       product.Name,
			"quantity":   product.Quantity,
		},
	})
	s.hub.Broadcast <- payload
}

func toRequestResponse(r model.AssetRequest) RequestResponse {
	resp := RequestResponse{
		ID:         r.ID.String(),
		EmployeeID: r.EmployeeID.String(),
		ProductID:  r.ProductID.String(),
		Quantity:   r.Quantity,
		Reason:     r.Reason,
		Status:     r.Status,
		Returned:   r.Returned,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}

	if r.Employee != nil {
		resp.EmployeeName = r.Employee.Name
	}
	if r.Product != nil {
		resp.ProductName = r.Product.Name
	}
	if r.ApprovedBy != nil {
		s := r.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if r.Approver != nil {
		resp.ApproverName = r.Approver.Name
	}
	if r.ApprovedAt != nil {
		s := r.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if r.ReturnedAt != nil {
		s := r.ReturnedAt.Format(time.RFC3339)
		resp.ReturnedAt = &s
	}

	return resp
}

func toRequestResponses(requests []model.AssetRequest) []RequestResponse {
	result := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toRequestResponse(r))
	}
	return result
}
