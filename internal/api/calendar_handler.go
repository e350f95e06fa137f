package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ali-Herrera/tri-tracker/internal/calendar"
	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/service"
)

// CalendarHandler serves the training calendar.
type CalendarHandler struct {
	calendarService service.CalendarService
}

func NewCalendarHandler(calendarService service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

// --- DTOs ---

// PlannedWorkoutRequest is the editable part of a planned workout.
type PlannedWorkoutRequest struct {
	Date        string               `json:"date" binding:"required"` // YYYY-MM-DD
	Sport       domain.CalendarSport `json:"sport" binding:"required,oneof=Swim Bike Run Lift Other"`
	Title       string               `json:"title" binding:"required"`
	Notes       string               `json:"notes"`
	EasyMinutes int                  `json:"easyMinutes" binding:"min=0"`
	HardMinutes int                  `json:"hardMinutes" binding:"min=0"`
}

func (r PlannedWorkoutRequest) input() service.PlannedWorkoutInput {
	return service.PlannedWorkoutInput{
		Date:        r.Date,
		Sport:       r.Sport,
		Title:       r.Title,
		Notes:       r.Notes,
		EasyMinutes: r.EasyMinutes,
		HardMinutes: r.HardMinutes,
	}
}

// CompleteRequest overrides the planned values. Omitted fields are derived
// from the plan.
type CompleteRequest struct {
	Distance   *float64                `json:"distance" binding:"omitempty,min=0"`
	Duration   *int                    `json:"duration" binding:"omitempty,min=1"`
	Intensity  *int                    `json:"intensity" binding:"omitempty,min=1,max=10"`
	Adaptation *domain.AdaptationInput `json:"adaptation"`
}

type CopyRequest struct {
	Date string `json:"date"` // defaults to the source day
}

type MoveRequest struct {
	WorkoutID  string               `json:"workoutId" binding:"required"`
	SourceDate string               `json:"sourceDate"`
	Target     *calendar.DropTarget `json:"target"` // null: dropped outside the calendar
}

// --- Handler Methods ---

// ListPlanned godoc
// @Summary List planned workouts
// @Description Planned workouts for days in [from, to], by day and display order.
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {array} domain.PlannedWorkout
// @Failure 400 {object} gin.H "Invalid date"
// @Router /calendar [get]
func (h *CalendarHandler) ListPlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	items, err := h.calendarService.List(c.Request.Context(), uid, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreatePlanned godoc
// @Summary Plan a workout
// @Description Adds a planned workout at the end of its day.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workout body PlannedWorkoutRequest true "Planned workout"
// @Success 201 {object} domain.PlannedWorkout
// @Failure 400 {object} gin.H "Invalid input"
// @Router /calendar [post]
func (h *CalendarHandler) CreatePlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req PlannedWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	p, err := h.calendarService.Create(c.Request.Context(), uid, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdatePlanned godoc
// @Summary Edit a planned workout
// @Description Moving to another day appends it at the end of that day. Completion data is kept.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Planned workout ID"
// @Param workout body PlannedWorkoutRequest true "Planned workout"
// @Success 200 {object} domain.PlannedWorkout
// @Failure 404 {object} gin.H "Not found"
// @Router /calendar/{id} [patch]
func (h *CalendarHandler) UpdatePlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req PlannedWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	p, err := h.calendarService.Update(c.Request.Context(), uid, c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CopyPlanned godoc
// @Summary Copy a planned workout
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Planned workout ID"
// @Param copy body CopyRequest false "Target day"
// @Success 201 {object} domain.PlannedWorkout
// @Router /calendar/{id}/copy [post]
func (h *CalendarHandler) CopyPlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req CopyRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	p, err := h.calendarService.Copy(c.Request.Context(), uid, c.Param("id"), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// DeletePlanned godoc
// @Summary Delete a planned workout
// @Description Derived records are kept or deleted per the configured delete policy.
// @Tags Calendar
// @Security BearerAuth
// @Param id path string true "Planned workout ID"
// @Success 204
// @Failure 404 {object} gin.H "Not found"
// @Router /calendar/{id} [delete]
func (h *CalendarHandler) DeletePlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := h.calendarService.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CompletePlanned godoc
// @Summary Complete a planned workout
// @Description Creates (or, once completed, updates) the Workout and optional AdaptationSession, then marks the plan completed.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Planned workout ID"
// @Param completion body CompleteRequest false "Completion values"
// @Success 200 {object} domain.PlannedWorkout
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 500 {object} gin.H "Sequence stopped part way"
// @Router /calendar/{id}/complete [post]
func (h *CalendarHandler) CompletePlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req CompleteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	p, err := h.calendarService.Complete(c.Request.Context(), uid, c.Param("id"), service.CompletionInput{
		Distance:   req.Distance,
		Duration:   req.Duration,
		Intensity:  req.Intensity,
		Adaptation: req.Adaptation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// MovePlanned godoc
// @Summary Drop a planned workout
// @Description Applies one drag-and-drop gesture as a single atomic reorder.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param move body MoveRequest true "Drop"
// @Success 200 {object} service.MoveResult
// @Failure 404 {object} gin.H "Workout not on its day"
// @Router /calendar/moves [post]
func (h *CalendarHandler) MovePlanned(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	res, err := h.calendarService.Move(c.Request.Context(), uid, service.MoveRequest{
		WorkoutID:  req.WorkoutID,
		SourceDate: req.SourceDate,
		Target:     req.Target,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// bindOptionalJSON binds a body that may be absent. An empty body, chunked or
// not, leaves req at its zero value.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}
