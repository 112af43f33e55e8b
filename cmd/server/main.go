package main

import (
	"context"
	"log"
	"time"

	"case_flow_app_go/config"
	"case_flow_app_go/db"
	"case_flow_app_go/handlers"
	"case_flow_app_go/middleware"
	"case_flow_app_go/models"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Case{},
		&models.Assignment{},
		&models.AssignmentStatusChange{},
		&models.Hearing{},
		&models.CaseDocument{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize file storage (R2 with local fallback)
	services.InitializeStorage(cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.POST("/api/login", handlers.LoginHandler)

	// Protected routes
	protected := e.Group("/api")
	protected.Use(middleware.RequireAuth())
	{
		protected.POST("/logout", handlers.LogoutHandler)
		protected.GET("/me", handlers.GetCurrentUserHandler)

		// Notifications
		protected.GET("/notifications", handlers.GetNotificationsHandler)
		protected.PUT("/notifications/:id/read", handlers.MarkNotificationReadHandler)
		protected.PUT("/notifications/read-all", handlers.MarkAllNotificationsReadHandler)

		// Lawyer directory (any authenticated user can browse)
		protected.GET("/lawyers", handlers.GetAvailableLawyersHandler)

		// Cases: listing and detail are role-scoped inside the handlers
		protected.GET("/cases", handlers.GetCasesHandler)
		protected.GET("/cases/:id", handlers.GetCaseHandler)
		protected.GET("/cases/:id/assignments", handlers.GetCaseAssignmentsHandler)
		protected.POST("/cases/:id/cancel", handlers.CancelCaseHandler)

		// Documents
		protected.POST("/cases/:id/documents", handlers.UploadCaseDocumentHandler)
		protected.GET("/cases/:id/documents/:documentId/download", handlers.DownloadCaseDocumentHandler)
		protected.DELETE("/cases/:id/documents/:documentId", handlers.DeleteCaseDocumentHandler)

		// Client-only routes
		clientRoutes := protected.Group("")
		clientRoutes.Use(middleware.RequireRole(models.RoleClient))
		{
			clientRoutes.POST("/cases", handlers.CreateCaseHandler)
			clientRoutes.DELETE("/cases/:id", handlers.DeleteCaseHandler)
			clientRoutes.POST("/cases/:id/assignments", handlers.RequestAssignmentHandler)
			clientRoutes.POST("/cases/:id/auto-assign", handlers.AutoAssignHandler)
			clientRoutes.POST("/cases/:id/request-filing", handlers.RequestFilingHandler)
		}

		// Lawyer-only routes
		lawyerRoutes := protected.Group("")
		lawyerRoutes.Use(middleware.RequireRole(models.RoleLawyer))
		{
			lawyerRoutes.GET("/assignments", handlers.GetMyAssignmentsHandler)
			lawyerRoutes.POST("/assignments/:id/accept", handlers.AcceptAssignmentHandler)
			lawyerRoutes.POST("/assignments/:id/reject", handlers.RejectAssignmentHandler)
			lawyerRoutes.POST("/assignments/:id/withdraw", handlers.WithdrawAssignmentHandler)
			lawyerRoutes.PUT("/lawyers/availability", handlers.UpdateAvailabilityHandler)
			lawyerRoutes.POST("/cases/:id/submit-filing", handlers.SubmitFilingHandler)
			lawyerRoutes.POST("/cases/:id/request-scheduling", handlers.RequestSchedulingHandler)
		}

		// Scheduler routes (admins may also schedule)
		schedulerRoutes := protected.Group("")
		schedulerRoutes.Use(middleware.RequireRole(models.RoleScheduler, models.RoleAdmin))
		{
			schedulerRoutes.POST("/cases/:id/schedule-hearing", handlers.ScheduleHearingHandler)
			schedulerRoutes.POST("/cases/:id/reschedule-hearing", handlers.RescheduleHearingHandler)
			schedulerRoutes.POST("/cases/:id/complete", handlers.CompleteCaseHandler)
		}

		// Admin-only routes
		adminRoutes := protected.Group("")
		adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRoutes.POST("/cases/:id/verify", handlers.VerifyCaseHandler)
			adminRoutes.PUT("/cases/:id/status", handlers.UpdateCaseStatusHandler)
			adminRoutes.POST("/reconcile", handlers.RunReconciliationHandler)
			adminRoutes.POST("/reconcile/cases/:id", handlers.CheckCaseHandler)
			adminRoutes.GET("/reports/case-register", handlers.ExportCaseRegisterHandler)
			adminRoutes.GET("/reports/repair-report", handlers.ExportRepairReportHandler)
		}
	}

	// Background reconciliation sweep
	go func() {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()

		reconciler := &services.Reconciler{DB: db.DB}
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ReconcileInterval/2)
			report, err := reconciler.RunOnce(ctx)
			cancel()
			if err != nil {
				log.Printf("[WARNING] Reconciliation sweep failed: %v", err)
				continue
			}
			if !report.Empty() {
				log.Printf("[INFO] Reconciliation repaired %d divergence(s) across %d case(s)",
					len(report.Actions), report.CasesScanned)
			}
		}
	}()

	// Background session cleanup (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
