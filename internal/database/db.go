package database

import (
	"fmt"
	"log"

	"github.com/yamdb/yamdb-api/internal/config"
	"github.com/yamdb/yamdb-api/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Open returns a gorm handle for the given driver ("postgres" or "sqlite").
// Driver errors are translated into gorm.ErrDuplicatedKey and friends so the
// service layer can recognise constraint violations.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return gorm.Open(dialector, &gorm.Config{TranslateError: true})
}

func Connect(cfg *config.Config) {
	var err error

	DB, err = Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect database:", err)
	}

	log.Println("Database connect successfully")
}

// AutoMigrate creates or updates every table of the domain model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Genre{},
		&models.Title{},
		&models.Review{},
		&models.Comment{},
	)
}

func Migrate() {
	if err := AutoMigrate(DB); err != nil {
		log.Fatal("Migration failed:", err)
	}

	log.Println("Database migration completed")
}
