//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/auth"
	"github.com/mistreatedbee/Communityhub-server/internal/community"
	"github.com/mistreatedbee/Communityhub-server/internal/database"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/pkg/config"
	"github.com/mistreatedbee/Communityhub-server/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if name == "" {
		name = "Platform Admin"
	}

	ctx := context.Background()
	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
	})
	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	// Registration always yields a regular user; elevate it directly.
	if err := db.Model(&models.User{}).
		Where("id = ?", resp.User.ID).
		Update("global_role", models.GlobalRoleSuperAdmin).Error; err != nil {
		log.Fatalf("failed to elevate admin user: %v", err)
	}

	recorder := audit.NewRecorder(nil, db, logger)
	communityService := community.NewService(db, recorder)
	demo, err := communityService.Create(ctx, resp.User.ID, resp.User.ID, community.CreateInput{
		Name:        "Demo Community",
		Slug:        "demo",
		Description: "A seeded community for local development",
	})
	if err != nil {
		log.Fatalf("failed to create demo community: %v", err)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Community: %s (%s)\n", demo.Name, demo.Slug)
	fmt.Printf("Token: %s\n", resp.Token)
}
