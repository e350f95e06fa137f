package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/service"
)

// TrainingHandler serves logged workouts, the adaptation lab and stats.
type TrainingHandler struct {
	workoutService    service.WorkoutService
	adaptationService service.AdaptationService
	statsService      service.StatsService
}

func NewTrainingHandler(workoutService service.WorkoutService, adaptationService service.AdaptationService, statsService service.StatsService) *TrainingHandler {
	return &TrainingHandler{
		workoutService:    workoutService,
		adaptationService: adaptationService,
		statsService:      statsService,
	}
}

// --- DTOs ---

type WorkoutRequest struct {
	Date      string       `json:"date" binding:"required"` // YYYY-MM-DD or RFC 3339
	Sport     domain.Sport `json:"sport" binding:"required,oneof=Swim Bike Run Strength"`
	Duration  int          `json:"duration" binding:"required,min=1"`
	Distance  float64      `json:"distance" binding:"min=0"`
	Intensity int          `json:"intensity" binding:"required,min=1,max=10"`
}

type AdaptationRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD or RFC 3339
	domain.AdaptationInput
}

// parseWhen reads a calendar day (stored as noon UTC) or a full timestamp.
func parseWhen(v string) (time.Time, bool) {
	if t, err := domain.DayInstant(v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// --- Handler Methods ---

// LogWorkout godoc
// @Summary Log a workout
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workout body WorkoutRequest true "Workout"
// @Success 201 {object} domain.Workout
// @Failure 400 {object} gin.H "Invalid input"
// @Router /workouts [post]
func (h *TrainingHandler) LogWorkout(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	date, ok := parseWhen(req.Date)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD or RFC 3339.")
		return
	}
	w, err := h.workoutService.Log(c.Request.Context(), uid, service.WorkoutInput{
		Date: date, Sport: req.Sport, Duration: req.Duration, Distance: req.Distance, Intensity: req.Intensity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// ListWorkouts godoc
// @Summary List workouts, newest first
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Workout
// @Router /workouts [get]
func (h *TrainingHandler) ListWorkouts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	ws, err := h.workoutService.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

// LogAdaptation godoc
// @Summary Log an adaptation session
// @Description Stores the efficiency factor derived from the raw numbers.
// @Tags Adaptations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body AdaptationRequest true "Session"
// @Success 201 {object} domain.AdaptationSession
// @Router /adaptations [post]
func (h *TrainingHandler) LogAdaptation(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req AdaptationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	date, ok := parseWhen(req.Date)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD or RFC 3339.")
		return
	}
	a, err := h.adaptationService.Log(c.Request.Context(), uid, date, req.AdaptationInput)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListAdaptations godoc
// @Summary List adaptation sessions, oldest first
// @Tags Adaptations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.AdaptationSession
// @Router /adaptations [get]
func (h *TrainingHandler) ListAdaptations(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	as, err := h.adaptationService.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, as)
}

// AdaptationSummary godoc
// @Summary Adaptation lab summary
// @Description Latest status, coach recommendation and recovery fatigue alert.
// @Tags Adaptations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AdaptationSummary
// @Router /adaptations/summary [get]
func (h *TrainingHandler) AdaptationSummary(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	sum, err := h.adaptationService.Summary(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// DeleteAdaptation godoc
// @Summary Delete an adaptation session
// @Tags Adaptations
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} gin.H "Not found"
// @Router /adaptations/{id} [delete]
func (h *TrainingHandler) DeleteAdaptation(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := h.adaptationService.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StatsSummary godoc
// @Summary Training stats
// @Description Season and lifetime totals, weekly load report and weekly volume.
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param year query int false "Season year, defaults to the current year"
// @Success 200 {object} service.StatsSummary
// @Router /stats/summary [get]
func (h *TrainingHandler) StatsSummary(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	year := 0
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 {
			abortWithError(c, http.StatusBadRequest, "Invalid year.")
			return
		}
		year = y
	}
	sum, err := h.statsService.Summary(c.Request.Context(), uid, year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
