package database

import (
	"testing"
	"time"

	"assetdesk/internal/model"

	"github.com/google/uuid"
)

// Migration must succeed on the test driver, and every entity must get its
// primary key assigned client-side on insert.
func TestMigrateAndInsertAllEntities(t *testing.T) {
	db := NewTestDB(t)

	user := &model.User{Username: "jane", Password: "x", Name: "Jane", Role: model.RoleEmployee}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("expected user ID to be assigned")
	}

	token := &model.RefreshToken{UserID: user.ID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("insert refresh token: %v", err)
	}
	if token.ID == uuid.Nil {
		t.Error("expected token ID to be assigned")
	}

	product := &model.Product{Name: "Laptop", Quantity: 5}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if product.ID == uuid.Nil {
		t.Error("expected product ID to be assigned")
	}

	request := &model.AssetRequest{
		EmployeeID: user.ID,
		ProductID:  product.ID,
		Quantity:   1,
		Reason:     "setup",
		Status:     model.RequestPending,
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("insert request: %v", err)
	}
	if request.ID == uuid.Nil {
		t.Error("expected request ID to be assigned")
	}

	entry := &model.AuditLog{UserID: &user.ID, Action: model.ActionCreateRequest, EntityID: request.ID.String(), Details: "{}"}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("insert audit log: %v", err)
	}
	if entry.ID == uuid.Nil {
		t.Error("expected audit log ID to be assigned")
	}
}
