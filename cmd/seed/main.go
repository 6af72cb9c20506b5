package main

import (
	"context"
	"log"
	"os"

	"assetdesk/internal/database"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds the default accounts: one admin, one manager, one employee.
// Existing usernames are left untouched.
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "asset_management")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	users := []struct {
		Username string
		Password string
		Name     string
		Role     string
	}{
		{"admin", envOr("SEED_ADMIN_PASSWORD", "admin123"), "System Administrator", model.RoleAdmin},
		{"manager1", envOr("SEED_MANAGER_PASSWORD", "manager123"), "The Manager", model.RoleManager},
		{"employee1", envOr("SEED_EMPLOYEE_PASSWORD", "employee123"), "Jane Employee", model.RoleEmployee},
	}

	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	for _, u := range users {
		if _, err := repo.GetByUsername(ctx, u.Username); err == nil {
			log.Printf("User %s already exists, skipping", u.Username)
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", u.Username, err)
		}

		user := &model.User{
			Username: u.Username,
			Password: string(hashed),
			Name:     u.Name,
			Role:     u.Role,
		}
		if err := repo.Create(ctx, user); err != nil {
			log.Fatalf("Failed to create %s: %v", u.Username, err)
		}
		log.Printf("Created %s: %s", u.Role, u.Username)
	}

	log.Println("Default users seeded successfully")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
