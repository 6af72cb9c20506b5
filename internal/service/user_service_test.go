package service

import (
	"context"
	"testing"
	"time"

	"assetdesk/internal/middleware"
	"assetdesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, role := range []string{"superadmin", "Employee", "", "root"} {
		_, err := env.users.CreateUser(ctx, CreateUserRequest{
			Username: "u-" + role,
			Password: "secret1",
			Name:     "U",
			Role:     role,
		})
		if err == nil {
			t.Errorf("role %q: expected error", role)
		}
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := CreateUserRequest{Username: "jane", Password: "secret1", Name: "Jane", Role: model.RoleEmployee}
	if _, err := env.users.CreateUser(ctx, req); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, err := env.users.CreateUser(ctx, req); err == nil {
		t.Error("expected error on duplicate username")
	}
}

func TestLoginIssuesSignedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.CreateUser(ctx, CreateUserRequest{
		Username: "manager1", Password: "manager123", Name: "The Manager", Role: model.RoleManager,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tokens, err := env.users.Login(ctx, LoginUserRequest{Username: "manager1", Password: "manager123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tokens.Token == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both access and refresh tokens")
	}

	parsed, err := jwt.Parse(tokens.Token, func(tok *jwt.Token) (interface{}, error) {
		return middleware.GetJWTSecret(), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != created.ID.String() {
		t.Errorf("expected sub %s, got %v", created.ID, claims["sub"])
	}
	if claims["role"] != model.RoleManager {
		t.Errorf("expected role manager, got %v", claims["role"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.CreateUser(ctx, CreateUserRequest{
		Username: "jane", Password: "secret1", Name: "Jane", Role: model.RoleEmployee,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := env.users.Login(ctx, LoginUserRequest{Username: "jane", Password: "wrong"}); err == nil {
		t.Error("expected error on wrong password")
	}
	if _, err := env.users.Login(ctx, LoginUserRequest{Username: "nobody", Password: "secret1"}); err == nil {
		t.Error("expected error on unknown username")
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.CreateUser(ctx, CreateUserRequest{
		Username: "jane", Password: "secret1", Name: "Jane", Role: model.RoleEmployee,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	tokens, err := env.users.Login(ctx, LoginUserRequest{Username: "jane", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := env.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Error("expected refresh token to rotate")
	}

	// Old token is single-use
	if _, err := env.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken}); err == nil {
		t.Error("expected error reusing a rotated refresh token")
	}
}

func TestRefreshTokenExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.CreateUser(ctx, CreateUserRequest{
		Username: "jane", Password: "secret1", Name: "Jane", Role: model.RoleEmployee,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	stale := &model.RefreshToken{
		UserID:    created.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := env.db.Create(stale).Error; err != nil {
		t.Fatalf("seed stale token: %v", err)
	}

	if _, err := env.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: "stale-token"}); err == nil {
		t.Error("expected error on expired refresh token")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.CreateUser(ctx, CreateUserRequest{
		Username: "jane", Password: "secret1", Name: "Jane", Role: model.RoleEmployee,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	tokens, err := env.users.Login(ctx, LoginUserRequest{Username: "jane", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := env.users.Logout(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.users.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken}); err == nil {
		t.Error("expected error refreshing after logout")
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.CreateUser(ctx, CreateUserRequest{
		Username: "jane", Password: "secret1", Name: "Jane", Role: model.RoleEmployee,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := env.users.ChangePassword(ctx, created.ID.String(), ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "newsecret",
	}); err == nil {
		t.Error("expected error with wrong current password")
	}

	if err := env.users.ChangePassword(ctx, created.ID.String(), ChangePasswordRequest{
		CurrentPassword: "secret1", NewPassword: "newsecret",
	}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := env.users.Login(ctx, LoginUserRequest{Username: "jane", Password: "secret1"}); err == nil {
		t.Error("expected old password to stop working")
	}
	if _, err := env.users.Login(ctx, LoginUserRequest{Username: "jane", Password: "newsecret"}); err != nil {
		t.Errorf("expected new password to work: %v", err)
	}
}

func TestListEmployeesExcludesOtherRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "employee1", model.RoleEmployee)
	env.createUser(t, "employee2", model.RoleEmployee)
	env.createUser(t, "manager1", model.RoleManager)
	env.createUser(t, "admin1", model.RoleAdmin)

	employees, err := env.users.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(employees))
	}
	for _, e := range employees {
		if e.Role != model.RoleEmployee {
			t.Errorf("unexpected role %s in employee list", e.Role)
		}
	}
}
