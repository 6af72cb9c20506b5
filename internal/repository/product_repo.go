package repository

import (
	"context"
	"errors"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when a decrement would drive a product's
// quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, inStockOnly bool) ([]model.Product, error)
	// AdjustQuantity applies a relative quantity change. A negative delta is
	// rejected with ErrInsufficientStock when the result would be negative;
	// the guard is part of the UPDATE itself so concurrent approvals of the
	// same product cannot race past it.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, inStockOnly bool) ([]model.Product, error) {
	var products []model.Product
	db := GetDB(ctx, r.db)
	if inStockOnly {
		db = db.Where("quantity > 0")
	}
	if err := db.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	res := GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the product vanished or the decrement would go negative.
		var count int64
		if err := GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}
