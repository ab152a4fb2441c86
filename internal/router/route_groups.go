package router

import (
	"shift_planner_backend/internal/handlers"
	"shift_planner_backend/internal/middleware"
	"shift_planner_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up the authentication routes.
func SetupAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.RegisterUser)
		authRoutes.POST("/login", authHandler.LoginUser)
		authRoutes.POST("/refresh-token", authHandler.RefreshToken)

		authRequiredRoutes := authRoutes.Group("")
		authRequiredRoutes.Use(middleware.AuthMiddleware())
		{
			authRequiredRoutes.POST("/logout", authHandler.LogoutUser)
			authRequiredRoutes.GET("/me", authHandler.GetCurrentUser)
		}
	}
}

// SetupScheduleRoutes sets up the shift registry and solver routes. Mutations
// and solver control are manager-only; reads are open to every member.
func SetupScheduleRoutes(authenticatedGroup *gin.RouterGroup, scheduleHandler *handlers.ScheduleHandler) {
	scheduleRoutes := authenticatedGroup.Group("/schedule")
	{
		scheduleRoutes.GET("", scheduleHandler.GetSchedule)

		managerRoutes := scheduleRoutes.Group("")
		managerRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleManager))
		{
			managerRoutes.PUT("/:id/assign", scheduleHandler.AssignShift)
			managerRoutes.POST("/solve", scheduleHandler.StartSolve)
			managerRoutes.GET("/solve/status/:problemId", scheduleHandler.GetSolveStatus)
		}

		// The literal /solve segments take priority over :id.
		scheduleRoutes.GET("/:id", scheduleHandler.GetShiftByID)
	}
}

// SetupBiddingRoutes sets up the bidding market routes.
func SetupBiddingRoutes(authenticatedGroup *gin.RouterGroup, biddingHandler *handlers.BiddingHandler) {
	biddingRoutes := authenticatedGroup.Group("/bidding")
	{
		biddingRoutes.GET("/open-shifts", biddingHandler.GetOpenShifts)
		biddingRoutes.GET("/my-bids", biddingHandler.GetMyBids)
		biddingRoutes.POST("/shifts/:id/bids", biddingHandler.PlaceBid)
		biddingRoutes.GET("/shifts/:id/bids", biddingHandler.GetBidsForShift)
		biddingRoutes.PUT("/bids/:id/retract", biddingHandler.RetractBid)

		managerRoutes := biddingRoutes.Group("")
		managerRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleManager))
		{
			managerRoutes.POST("/shifts/:id/open", biddingHandler.OpenShiftForBidding)
			managerRoutes.POST("/shifts/:shiftId/bids/:bidId/award", biddingHandler.AwardBid)
		}
	}
}

// SetupShiftChangeRoutes sets up the shift exchange workflow routes.
func SetupShiftChangeRoutes(authenticatedGroup *gin.RouterGroup, changeHandler *handlers.ShiftChangeHandler) {
	changeRoutes := authenticatedGroup.Group("/shift-changes")
	{
		changeRoutes.POST("", changeHandler.CreateChangeRequest)
		changeRoutes.GET("/my-requests", changeHandler.GetMyChangeRequests)
		changeRoutes.PUT("/:id/respond", changeHandler.RespondToChangeRequest)
		changeRoutes.PUT("/:id/cancel", changeHandler.CancelChangeRequest)

		managerRoutes := changeRoutes.Group("")
		managerRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleManager))
		{
			managerRoutes.GET("", changeHandler.GetPendingChangeRequests)
			managerRoutes.PUT("/:id/resolve", changeHandler.ResolveChangeRequest)
		}
	}
}

// SetupNotificationRoutes sets up the notification inbox routes.
func SetupNotificationRoutes(authenticatedGroup *gin.RouterGroup, notificationHandler *handlers.NotificationHandler) {
	notificationRoutes := authenticatedGroup.Group("/notifications")
	{
		notificationRoutes.GET("", notificationHandler.GetNotifications)
		notificationRoutes.GET("/active", notificationHandler.GetActiveNotifications)
		notificationRoutes.GET("/unread-count", notificationHandler.GetUnreadCount)
		notificationRoutes.PUT("/:id/mark-as-read", notificationHandler.MarkNotificationRead)
		notificationRoutes.PUT("/:id/archive", notificationHandler.ArchiveNotification)
	}
}

// SetupDirectoryRoutes sets up the member directory read routes.
func SetupDirectoryRoutes(authenticatedGroup *gin.RouterGroup, memberHandler *handlers.MemberHandler) {
	authenticatedGroup.GET("/members", memberHandler.GetMembers)
	authenticatedGroup.GET("/members/:id", memberHandler.GetMemberByID)
	authenticatedGroup.GET("/qualifications", memberHandler.GetQualifications)
}
