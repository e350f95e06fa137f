package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ali-Herrera/tri-tracker/internal/service"
)

// Services bundles what the routes call into.
type Services struct {
	Calendar    service.CalendarService
	Imports     service.ImportService
	Workouts    service.WorkoutService
	Adaptations service.AdaptationService
	Stats       service.StatsService
}

func SetupRoutes(router *gin.Engine, jwtSecret string, jwtLeeway time.Duration, svc Services) {
	calendarHandler := NewCalendarHandler(svc.Calendar)
	importHandler := NewImportHandler(svc.Imports)
	trainingHandler := NewTrainingHandler(svc.Workouts, svc.Adaptations, svc.Stats)

	authMiddleware := AuthMiddleware(jwtSecret, jwtLeeway)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			uid, ok := userID(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": uid})
		})

		// --- Calendar Routes ---
		calendarGroup := protected.Group("/calendar")
		{
			calendarGroup.GET("", calendarHandler.ListPlanned)
			calendarGroup.POST("", calendarHandler.CreatePlanned)
			// POST /api/v1/calendar/moves - one drag-and-drop gesture
			calendarGroup.POST("/moves", calendarHandler.MovePlanned)
			calendarGroup.PATCH("/:id", calendarHandler.UpdatePlanned)
			calendarGroup.DELETE("/:id", calendarHandler.DeletePlanned)
			calendarGroup.POST("/:id/copy", calendarHandler.CopyPlanned)
			calendarGroup.POST("/:id/complete", calendarHandler.CompletePlanned)
		}

		// --- Import Routes ---
		importGroup := protected.Group("/imports")
		{
			importGroup.POST("/preview", importHandler.PreviewImport)
			importGroup.POST("", importHandler.CommitImport)
			importGroup.GET("/:id", importHandler.GetImport)
		}

		// --- Workout, Adaptation and Stats Routes ---
		protected.GET("/workouts", trainingHandler.ListWorkouts)
		protected.POST("/workouts", trainingHandler.LogWorkout)

		adaptationGroup := protected.Group("/adaptations")
		{
			adaptationGroup.GET("", trainingHandler.ListAdaptations)
			adaptationGroup.POST("", trainingHandler.LogAdaptation)
			adaptationGroup.GET("/summary", trainingHandler.AdaptationSummary)
			adaptationGroup.DELETE("/:id", trainingHandler.DeleteAdaptation)
		}

		protected.GET("/stats/summary", trainingHandler.StatsSummary)
	}
}
