package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"assetdesk/internal/database"
	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestAdjustQuantityGuard(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &model.Product{Name: "Laptop", Quantity: 3}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.AdjustQuantity(ctx, product.ID, -2); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := repo.AdjustQuantity(ctx, product.ID, -2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stored, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Quantity != 1 {
		t.Errorf("expected quantity 1 after rejected decrement, got %d", stored.Quantity)
	}

	if err := repo.AdjustQuantity(ctx, product.ID, 4); err != nil {
		t.Fatalf("increment: %v", err)
	}
	stored, _ = repo.FindByID(ctx, product.ID)
	if stored.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", stored.Quantity)
	}
}

func TestAdjustQuantityUnknownProduct(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	err := repo.AdjustQuantity(ctx, uuid.New(), -1)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAdjustQuantityConcurrentDecrements(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &model.Product{Name: "Dock", Quantity: 5}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AdjustQuantity(ctx, product.ID, -1)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientStock) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Errorf("expected exactly 5 decrements to succeed, got %d", succeeded)
	}

	stored, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", stored.Quantity)
	}
}
