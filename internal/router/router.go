package router

import (
	"database/sql"
	"time"

	"shift_planner_backend/internal/handlers"
	"shift_planner_backend/internal/middleware"
	"shift_planner_backend/internal/notify"
	"shift_planner_backend/internal/repositories"
	"shift_planner_backend/internal/services"
	"shift_planner_backend/internal/solver"
	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application. It wires repositories
// into services, services into handlers, and handlers into route groups.
func Setup(engine *gin.Engine, db *sql.DB) services.SolverService {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	shiftRepo := repositories.NewShiftRepository(db)
	bidRepo := repositories.NewBidRepository(db)
	changeRepo := repositories.NewShiftChangeRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Initialize Services
	var pusher services.Pusher = notify.LogPusher{}
	if webhookURL := utils.Getenv("NOTIFY_WEBHOOK_URL", ""); webhookURL != "" {
		pusher = notify.NewWebhookPusher(webhookURL, 10*time.Second)
	}
	notificationService := services.NewNotificationService(notificationRepo, pusher)

	authService := services.NewAuthService(authRepo)
	registryService := services.NewShiftRegistryService(shiftRepo, memberRepo, notificationService)
	biddingService := services.NewBiddingService(bidRepo, memberRepo, registryService, authService, notificationService)
	changeService := services.NewShiftChangeService(changeRepo, shiftRepo, memberRepo, authRepo, registryService, authService, notificationService)
	directoryService := services.NewDirectoryService(memberRepo)

	solverClient := solver.NewClient(utils.Getenv("SOLVER_BASE_URL", "http://localhost:8081"), 30*time.Second)
	pollInterval := utils.GetenvDuration("SOLVER_POLL_INTERVAL", 5*time.Second)
	maxDuration := utils.GetenvDuration("SOLVER_MAX_DURATION", 10*time.Minute)
	solverService := services.NewSolverService(solverClient, registryService, authService, notificationService, pollInterval, maxDuration)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	scheduleHandler := handlers.NewScheduleHandler(registryService, solverService)
	biddingHandler := handlers.NewBiddingHandler(biddingService, registryService)
	changeHandler := handlers.NewShiftChangeHandler(changeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	memberHandler := handlers.NewMemberHandler(directoryService)

	apiV1 := engine.Group("/api/v1")

	SetupAuthRoutes(apiV1, authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupScheduleRoutes(authenticated, scheduleHandler)
		SetupBiddingRoutes(authenticated, biddingHandler)
		SetupShiftChangeRoutes(authenticated, changeHandler)
		SetupNotificationRoutes(authenticated, notificationHandler)
		SetupDirectoryRoutes(authenticated, memberHandler)
	}

	return solverService
}
