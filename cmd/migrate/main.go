package main

import (
	"log"
	"os"

	"courseflow-be/internal/model"
	"courseflow-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models (The Core Task)
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.Course{},
		&model.Order{},
		&model.Enrollment{},
		&model.RefundRequest{},
		&model.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	// 5. Post-Migration: Constraints AutoMigrate cannot express
	log.Println("Step 3: Applying partial unique index...")

	// One non-terminal refund request per order, enforced by the database
	// so racing submissions cannot both land.
	activeIndexSQL := `CREATE UNIQUE INDEX IF NOT EXISTS uidx_refund_requests_active_order
		ON refund_requests (order_id)
		WHERE status IN ('PENDING', 'APPROVED') AND deleted_at IS NULL;`

	if err := db.Exec(activeIndexSQL).Error; err != nil {
		log.Fatal("Error: Failed to create active-request index:", err)
	}

	log.Println("Migration completed successfully.")
}
