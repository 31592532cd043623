package main

import (
	"context"
	"log"

	"courseflow-be/internal/bootstrap"
	"courseflow-be/internal/config"
	"courseflow-be/pkg/database"

	"github.com/fatih/color"
)

// Expires overdue refund offers. Meant to run from cron; the same sweep
// is also reachable through POST /api/admin/refunds/sweep.
func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	res, err := container.AdminService.SweepExpiredOffers(context.Background())
	if err != nil {
		color.Red("Sweep failed: %v", err)
		log.Fatal(err)
	}

	if res.ExpiredCount == 0 {
		color.Yellow("No expired offers found at %s", res.SweptAt.Format("15:04:05"))
		return
	}
	color.Green("Expired %d offer(s) at %s", res.ExpiredCount, res.SweptAt.Format("15:04:05"))
}
