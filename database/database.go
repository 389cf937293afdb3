package database

import (
	"fmt"
	"log"

	"rewmo/config"
	"rewmo/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the postgres store. The handle is owned by the caller and
// passed to every service explicitly.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Println("✅ Connected to database")

	if cfg.DBAutoMigrate {
		log.Println("🟡 Starting auto-migration...")
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("✅ Auto migration completed")
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Member{},
		&models.Click{},
		&models.Commission{},
		&models.Payout{},
		&models.ImportBatch{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
