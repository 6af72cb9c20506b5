package service

import (
	"context"
	"testing"

	"assetdesk/internal/model"
)

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createUser(t, "admin1", model.RoleAdmin)

	created, err := env.inventory.CreateProduct(ctx, admin.ID.String(), CreateProductRequest{
		Name:        "Monitor",
		Description: "27 inch",
		Quantity:    4,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.Quantity != 4 {
		t.Errorf("expected quantity 4, got %d", created.Quantity)
	}

	fetched, err := env.inventory.GetProduct(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if fetched.Name != "Monitor" || fetched.Description != "27 inch" {
		t.Errorf("unexpected product %+v", fetched)
	}
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createUser(t, "admin1", model.RoleAdmin)

	if _, err := env.inventory.CreateProduct(ctx, admin.ID.String(), CreateProductRequest{
		Name: "  ", Quantity: 1,
	}); err == nil {
		t.Error("expected error on blank name")
	}
	if _, err := env.inventory.CreateProduct(ctx, admin.ID.String(), CreateProductRequest{
		Name: "Cable", Quantity: -1,
	}); err == nil {
		t.Error("expected error on negative quantity")
	}
}

func TestGetProductsInStockFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createProduct(t, "Laptop", 5)
	env.createProduct(t, "Dock", 0)

	all, err := env.inventory.GetProducts(ctx, false)
	if err != nil {
		t.Fatalf("GetProducts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}

	inStock, err := env.inventory.GetProducts(ctx, true)
	if err != nil {
		t.Fatalf("GetProducts in-stock: %v", err)
	}
	if len(inStock) != 1 || inStock[0].Name != "Laptop" {
		t.Errorf("expected only Laptop in stock, got %+v", inStock)
	}
}

func TestGetProductNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.inventory.GetProduct(ctx, "b7e9f7a0-0000-0000-0000-000000000000"); err == nil {
		t.Error("expected error for unknown product")
	}
	if _, err := env.inventory.GetProduct(ctx, "not-a-uuid"); err == nil {
		t.Error("expected error for malformed id")
	}
}
