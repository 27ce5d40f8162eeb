package server

import (
	"log"
	"pharmacist/internal/auth"
	"pharmacist/internal/config"
	"pharmacist/internal/handlers"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter registers every API route. handlers.Init must have been called.
func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.Default()

	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Printf("Warning: invalid trusted proxies %v: %v", cfg.Server.TrustedProxies, err)
	}

	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api")
	api.GET("/health/", handlers.HealthHandler)

	// Auth routes (no auth required)
	public := api.Group("/auth")
	{
		public.POST("/register/", handlers.Register)
		public.POST("/token/", handlers.ObtainToken)
		public.POST("/token/refresh/", handlers.RefreshToken)
		public.GET("/google/login/", handlers.GoogleLogin)
		public.GET("/google/callback/", handlers.GoogleCallback)
	}

	protected := api.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/auth/me/", handlers.GetCurrentUser)
		protected.PATCH("/auth/me/", handlers.UpdateCurrentUser)
		protected.POST("/auth/change-password/", handlers.ChangePassword)
		protected.POST("/auth/logout/", handlers.Logout)

		chat := protected.Group("/chatbot/sessions")
		chat.GET("/", handlers.ListChatSessions)
		chat.POST("/", handlers.CreateChatSession)
		chat.DELETE("/:id/", handlers.DeleteChatSession)
		chat.GET("/:id/messages/", handlers.ListChatMessages)
		chat.POST("/:id/messages/", handlers.SendChatMessage)

		reminder := protected.Group("/reminder")
		reminder.GET("/today/", handlers.TodayDoses)
		reminder.GET("/upcoming/", handlers.UpcomingDoses)

		medications := reminder.Group("/medications")
		medications.GET("/", handlers.ListMedications)
		medications.POST("/", handlers.CreateMedication)
		medications.GET("/:id/", handlers.GetMedication)
		medications.PUT("/:id/", handlers.ReplaceMedication)
		medications.PATCH("/:id/", handlers.PatchMedication)
		medications.DELETE("/:id/", handlers.DeleteMedication)
		medications.POST("/:id/taken/", handlers.MarkDoseTaken)
		medications.POST("/:id/remind-later/", handlers.RemindLater)
		medications.GET("/:id/adherence/", handlers.MedicationAdherence)

		medications.GET("/:id/reminders/", handlers.ListReminders)
		medications.POST("/:id/reminders/", handlers.CreateReminder)
		medications.GET("/:id/reminders/:rid/", handlers.GetReminder)
		medications.PUT("/:id/reminders/:rid/", handlers.ReplaceReminder)
		medications.PATCH("/:id/reminders/:rid/", handlers.PatchReminder)
		medications.DELETE("/:id/reminders/:rid/", handlers.DeleteReminder)
		medications.POST("/:id/reminders/:rid/generate-logs/", handlers.GenerateLogs)
		medications.GET("/:id/reminders/:rid/logs/", handlers.ListReminderLogs)
		medications.GET("/:id/reminders/:rid/logs/:lid/", handlers.GetReminderLog)
		medications.PATCH("/:id/reminders/:rid/logs/:lid/", handlers.UpdateReminderLog)

		push := protected.Group("/notifications/web-push")
		push.GET("/vapid-public-key/", handlers.VAPIDPublicKey)
		push.POST("/subscribe/", handlers.SubscribePush)
		push.POST("/unsubscribe/", handlers.UnsubscribePush)
		push.POST("/test-notification/", handlers.TestNotification)
		push.POST("/force-test-notification/", handlers.ForceTestNotification)

		protected.GET("/notifications/settings/", handlers.GetNotificationSettings)
		protected.PUT("/notifications/settings/", handlers.UpdateNotificationSettings)

		protected.GET("/pharmacies/nearby/", handlers.NearbyPharmacies)
		protected.GET("/pharmacies/place/:place_id/", handlers.PharmacyDetails)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		// credentials cannot be combined with a wildcard origin
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
