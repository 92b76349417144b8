package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/middleware"
)

// Services bundles the core services the HTTP layer depends on.
type Services struct {
	Accounts core.AccountService
	Users    core.UserService
	Quota    core.QuotaService
	Sessions core.SessionService
	Listings core.ListingService
	Rentals  core.RentalService
	Chats    core.ChatService
	Payments core.PaymentService
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is applied by the caller.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	verifier middleware.TokenVerifier,
	limiter *middleware.LimiterStore,
	svc Services,
) {
	authMW := middleware.NewAuthMiddleware(verifier, logger)
	requireSession := middleware.RequireSession(svc.Sessions, logger)

	authHandler := NewAuthHandler(svc.Accounts, svc.Users, logger)
	userHandler := NewUserHandler(svc.Users, logger)
	sessionHandler := NewSessionHandler(svc.Sessions, logger)
	planHandler := NewPlanHandler(svc.Quota, logger)
	itemHandler := NewItemHandler(svc.Listings, svc.Rentals, logger)
	rentHandler := NewRentRequestHandler(svc.Rentals, logger)
	chatHandler := NewChatHandler(svc.Chats, logger)
	billingHandler := NewBillingHandler(svc.Payments, logger)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/signup", middleware.RateLimit(limiter, "signup"), authHandler.SignUp)
			authGroup.POST("/password-reset", middleware.RateLimit(limiter, "password_reset"), authHandler.PasswordReset)
		}

		users := apiV1.Group("/users", authMW.VerifyToken())
		{
			users.POST("/initialize", authHandler.InitializeUserProfile)
			users.GET("/me", userHandler.GetCurrentUserProfile)
			users.GET("/me/completion", userHandler.GetCompletion)
			users.PATCH("/me", userHandler.UpdateProfile)
			users.PUT("/me/avatar", userHandler.UploadAvatar)
			users.PUT("/me/id-verification", userHandler.SubmitIDVerification)
			users.PUT("/me/push-token", userHandler.RegisterPushToken)
			users.POST("/me/verification-email", authHandler.ResendVerification)
			users.GET("/me/notifications", userHandler.ListNotifications)
		}

		sessions := apiV1.Group("/sessions", authMW.VerifyToken())
		{
			sessions.POST("/login", middleware.RateLimit(limiter, "login"), sessionHandler.Login)
			sessions.GET("/active", sessionHandler.ActiveSessions)
			sessions.DELETE("/current", sessionHandler.Logout)
			sessions.DELETE("/:sessionId", sessionHandler.ForceTerminate)
		}

		plans := apiV1.Group("/plans", authMW.VerifyToken())
		{
			plans.GET("", planHandler.ListPlans)
			plans.POST("/claim-free", planHandler.ClaimFree)
			plans.POST("/check-limits", planHandler.CheckLimits)
			plans.POST("/reconcile", planHandler.Reconcile)
		}

		// Marketplace routes need an active session on top of the ID token.
		market := apiV1.Group("", authMW.VerifyToken(), requireSession)

		items := market.Group("/items")
		{
			items.POST("", itemHandler.CreateItem)
			items.GET("", itemHandler.SearchItems)
			items.GET("/mine", itemHandler.ListMine)
			items.GET("/:itemId", itemHandler.GetItem)
			items.POST("/:itemId/images", itemHandler.UploadImage)
			items.DELETE("/:itemId", itemHandler.DeleteItem)
			items.GET("/:itemId/my-request", itemHandler.MyRequest)
		}

		rent := market.Group("/rent-requests")
		{
			rent.POST("", rentHandler.Submit)
			rent.GET("/outgoing", rentHandler.ListOutgoing)
			rent.GET("/incoming", rentHandler.ListIncoming)
			rent.GET("/:id", rentHandler.Get)
			rent.PUT("/:id", rentHandler.Edit)
			rent.POST("/:id/accept", rentHandler.Accept)
			rent.POST("/:id/reject", rentHandler.Reject)
			rent.DELETE("/:id", rentHandler.Cancel)
		}

		chats := market.Group("/chats")
		{
			chats.GET("", chatHandler.ListChats)
			chats.GET("/:chatId/messages", chatHandler.ListMessages)
			chats.GET("/:chatId/stream", chatHandler.Stream)
			chats.POST("/:chatId/messages", chatHandler.SendMessage)
			chats.POST("/:chatId/read", chatHandler.MarkRead)
			chats.POST("/:chatId/assessments", chatHandler.RequestAssessment)
			chats.PUT("/:chatId/assessments/:messageId", chatHandler.SubmitAssessment)
			chats.POST("/:chatId/assessments/:messageId/photos", chatHandler.UploadAssessmentPhoto)
		}

		billing := market.Group("/billing", middleware.RateLimit(limiter, "billing"))
		{
			billing.POST("/paypal/orders", billingHandler.CreateOrder)
			billing.POST("/paypal/orders/:orderId/redirect", billingHandler.Redirect)
			billing.GET("/transactions/:transactionId", billingHandler.GetTransaction)
		}

		market.POST("/classify", middleware.RateLimit(limiter, "classify"), itemHandler.Classify)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "RentShare backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
