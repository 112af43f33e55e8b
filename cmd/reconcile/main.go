package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"case_flow_app_go/config"
	"case_flow_app_go/db"
	"case_flow_app_go/models"
	"case_flow_app_go/services"
)

// Runs a single reconciliation sweep and prints the repair report. Intended
// for operators and cron; the server runs the same sweep on a ticker.
func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "maximum sweep duration")
	caseID := flag.String("case", "", "check a single case instead of sweeping")
	flag.Parse()

	cfg := config.Load()

	if err := db.Initialize(cfg.DBPath, cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.Assignment{},
		&models.AssignmentStatusChange{},
		&models.Hearing{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reconciler := &services.Reconciler{DB: db.DB}

	var report *services.RepairReport
	var err error
	if *caseID != "" {
		report, err = reconciler.CheckCase(*caseID)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		report, err = reconciler.RunOnce(ctx)
	}
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	fmt.Printf("Scanned %d case(s) in %s\n",
		report.CasesScanned, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Empty() {
		fmt.Println("No divergence found.")
		return
	}
	for _, action := range report.Actions {
		fmt.Printf("  [%s] case=%s assignment=%s %s\n",
			action.Action, action.CaseID, action.AssignmentID, action.Detail)
	}
}
