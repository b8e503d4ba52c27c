package main

import (
	"context"
	"log"
	"os"

	"github.com/yamdb/yamdb-api/internal/config"
	"github.com/yamdb/yamdb-api/internal/database"
	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/utils"
)

// seed creates the first admin account. Its access token is obtained through
// the regular signup/token flow with the same username and email.
func main() {
	cfg := config.Load()
	database.Connect(cfg)
	database.Migrate()

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")

	if adminUsername == "" || adminEmail == "" {
		log.Fatal("Missing environment variables: ADMIN_USERNAME, ADMIN_EMAIL")
	}
	if err := utils.ValidateUsername(adminUsername); err != nil {
		log.Fatal("Invalid ADMIN_USERNAME: ", err)
	}
	if err := utils.ValidateEmail(adminEmail); err != nil {
		log.Fatal("Invalid ADMIN_EMAIL: ", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(database.DB)

	existing, err := users.GetUserByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatal("Failed to look up admin: ", err)
	}
	if existing != nil {
		log.Println("Admin user already exists:", existing.Username)
		log.Println("   Email:", existing.Email)
		return
	}

	admin := &models.User{
		Username: adminUsername,
		Email:    adminEmail,
		Role:     models.RoleAdmin,
		IsStaff:  true,
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		log.Fatal("Failed to create admin: ", err)
	}

	log.Println("Admin user created successfully!")
	log.Println("   Username:", admin.Username)
	log.Println("   Email:", admin.Email)
	log.Println("Request a confirmation code with POST /api/v1/auth/signup")
}
