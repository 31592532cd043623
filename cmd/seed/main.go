package main

import (
	"log"
	"os"
	"time"

	"courseflow-be/internal/model"
	"courseflow-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Seeds a demo learner, courses, paid orders and enrollments so the
// refund flow can be exercised end to end on a fresh database.
func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding demo data...")

	learner := model.User{
		ID:       uuid.New(),
		Email:    "learner@example.com",
		FullName: "Demo Learner",
		Role:     "learner",
	}
	admin := model.User{
		ID:       uuid.New(),
		Email:    "admin@example.com",
		FullName: "Demo Admin",
		Role:     "admin",
	}

	goCourse := model.Course{ID: uuid.New(), Title: "Backend Development with Go"}
	sqlCourse := model.Course{ID: uuid.New(), Title: "Practical SQL for Analysts"}

	recentPaid := time.Now().Add(-2 * 24 * time.Hour)
	oldPaid := time.Now().Add(-20 * 24 * time.Hour)

	orders := []model.Order{
		{
			ID:            uuid.New(),
			UserID:        learner.ID,
			CourseID:      goCourse.ID,
			FinalPrice:    decimal.NewFromInt(1_000_000),
			PaymentStatus: "PAID",
			PaidAt:        &recentPaid,
		},
		{
			ID:            uuid.New(),
			UserID:        learner.ID,
			CourseID:      sqlCourse.ID,
			FinalPrice:    decimal.NewFromInt(750_000),
			PaymentStatus: "PAID",
			PaidAt:        &oldPaid,
		},
	}

	enrollments := []model.Enrollment{
		{ID: uuid.New(), UserID: learner.ID, CourseID: goCourse.ID, ProgressPercentage: 3},
		{ID: uuid.New(), UserID: learner.ID, CourseID: sqlCourse.ID, ProgressPercentage: 35},
	}

	for _, u := range []model.User{learner, admin} {
		if err := db.FirstOrCreate(&u, model.User{Email: u.Email}).Error; err != nil {
			log.Fatalf("Error: Failed to seed user %s: %v", u.Email, err)
		}
	}
	for _, c := range []model.Course{goCourse, sqlCourse} {
		if err := db.FirstOrCreate(&c, model.Course{Title: c.Title}).Error; err != nil {
			log.Fatalf("Error: Failed to seed course %s: %v", c.Title, err)
		}
	}
	for _, o := range orders {
		if err := db.Create(&o).Error; err != nil {
			log.Printf("Warn: Failed to seed order: %v", err)
		}
	}
	for _, e := range enrollments {
		if err := db.Create(&e).Error; err != nil {
			log.Printf("Warn: Failed to seed enrollment: %v", err)
		}
	}

	log.Println("Seeding completed.")
}
