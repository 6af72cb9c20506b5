package repository

import (
	"context"
	"time"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestRepository interface {
	Create(ctx context.Context, req *model.AssetRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AssetRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.AssetRequest, error)

	// ListPending returns the manager worklist: pending requests oldest first.
	ListPending(ctx context.Context) ([]model.AssetRequest, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID, status string) ([]model.AssetRequest, error)
	ListByApprover(ctx context.Context, approverID uuid.UUID) ([]model.AssetRequest, error)
	// ListReturnable returns approved, not-yet-returned requests.
	ListReturnable(ctx context.Context) ([]model.AssetRequest, error)

	// Decide flips a pending request to the given status. Returns
	// gorm.ErrRecordNotFound when the request is missing or no longer pending,
	// so a decided request can never be decided twice.
	Decide(ctx context.Context, id uuid.UUID, status string, approverID uuid.UUID, decidedAt time.Time) error
	// MarkReturned sets the one-way returned flag. Only approved requests with
	// returned = false match; anything else reports gorm.ErrRecordNotFound.
	MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.AssetRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AssetRequest, error) {
	var req model.AssetRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.AssetRequest, error) {
	var req model.AssetRequest
	if err := GetDB(ctx, r.db).
		Preload("Employee").Preload("Product").Preload("Approver").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) ListPending(ctx context.Context) ([]model.AssetRequest, error) {
	var requests []model.AssetRequest
	if err := GetDB(ctx, r.db).
		Preload("Employee").Preload("Product").
		Where("status = ?", model.RequestPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, status string) ([]model.AssetRequest, error) {
	var requests []model.AssetRequest
	query := GetDB(ctx, r.db).
		Preload("Product").
		Where("employee_id = ?", employeeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByApprover(ctx context.Context, approverID uuid.UUID) ([]model.AssetRequest, error) {
	var requests []model.AssetRequest
	if err := GetDB(ctx, r.db).
		Preload("Employee").Preload("Product").
		Where("approved_by = ?", approverID).
		Order("approved_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListReturnable(ctx context.Context) ([]model.AssetRequest, error) {
	var requests []model.AssetRequest
	if err := GetDB(ctx, r.db).
		Preload("Employee").Preload("Product").
		Where("status = ? AND returned = ?", model.RequestApproved, false).
		Order("approved_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) Decide(ctx context.Context, id uuid.UUID, status string, approverID uuid.UUID, decidedAt time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.AssetRequest{}).
		Where("id = ? AND status = ?", id, model.RequestPending).
		Updates(map[string]interface{}{
			"status":      status,
			"approved_by": approverID,
			"approved_at": decidedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *requestRepository) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.AssetRequest{}).
		Where("id = ? AND status = ? AND returned = ?", id, model.RequestApproved, false).
		Updates(map[string]interface{}{
			"returned":    true,
			"returned_at": returnedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
