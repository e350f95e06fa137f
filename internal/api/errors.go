package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ali-Herrera/tri-tracker/internal/calendar"
	"github.com/Ali-Herrera/tri-tracker/internal/importer"
	"github.com/Ali-Herrera/tri-tracker/internal/service"
	"github.com/Ali-Herrera/tri-tracker/internal/storage"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without detail.
func respondError(c *gin.Context, err error) {
	var mappingErr *importer.MappingError
	var syncErr *service.SyncError

	switch {
	case errors.As(err, &mappingErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "missing": mappingErr.Missing})
	case errors.As(err, &syncErr):
		log.Printf("ERROR: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":        "Completion was only partly saved, retry to repair it.",
			"step":         syncErr.Step,
			"workoutId":    syncErr.WorkoutID,
			"adaptationId": syncErr.AdaptationID,
		})
	case errors.Is(err, storage.ErrObjectTooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrValidationFailed),
		errors.Is(err, importer.ErrNoValidRows),
		errors.Is(err, importer.ErrInvalidCandidates):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPlannedWorkoutNotFound),
		errors.Is(err, service.ErrWorkoutNotFound),
		errors.Is(err, service.ErrAdaptationNotFound),
		errors.Is(err, service.ErrImportNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateImport),
		errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrNotCompleted),
		errors.Is(err, importer.ErrImportInProgress),
		errors.Is(err, calendar.ErrDragInProgress):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		abortWithError(c, http.StatusInternalServerError, "Internal server error.")
	}
}
