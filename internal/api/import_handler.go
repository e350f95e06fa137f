package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ali-Herrera/tri-tracker/internal/importer"
	"github.com/Ali-Herrera/tri-tracker/internal/service"
)

// ImportHandler serves CSV imports.
type ImportHandler struct {
	importService service.ImportService
}

func NewImportHandler(importService service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// --- DTOs ---

// ImportRequest carries the export inline (csv) or by object key. Without a
// mapping the columns and units are inferred.
type ImportRequest struct {
	CSV          string            `json:"csv"`
	ObjectKey    string            `json:"objectKey"`
	Mapping      *importer.Mapping `json:"mapping"`
	Intensity    int               `json:"intensity" binding:"omitempty,min=1,max=10"`
	Force        bool              `json:"force"`
	DeleteSource bool              `json:"deleteSource"`
}

func (r ImportRequest) toService() service.ImportRequest {
	return service.ImportRequest{
		CSV:          r.CSV,
		ObjectKey:    r.ObjectKey,
		Mapping:      r.Mapping,
		Intensity:    r.Intensity,
		Force:        r.Force,
		DeleteSource: r.DeleteSource,
	}
}

// --- Handler Methods ---

// PreviewImport godoc
// @Summary Preview a CSV import
// @Description Normalizes the export and reports accepted and skipped rows. Nothing is stored.
// @Tags Imports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param import body ImportRequest true "Export and mapping"
// @Success 200 {object} service.ImportPreview
// @Failure 400 {object} gin.H "Invalid input"
// @Router /imports/preview [post]
func (h *ImportHandler) PreviewImport(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	p, err := h.importService.Preview(c.Request.Context(), uid, req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CommitImport godoc
// @Summary Import a CSV export
// @Description Stores accepted rows in atomic chunks. A chunk failure leaves earlier chunks stored; the job reports how many.
// @Tags Imports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param import body ImportRequest true "Export and mapping"
// @Success 201 {object} domain.ImportJob
// @Failure 409 {object} gin.H "Already imported or import running"
// @Failure 422 {object} gin.H "Columns must be chosen"
// @Failure 500 {object} gin.H "Partially applied"
// @Router /imports [post]
func (h *ImportHandler) CommitImport(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	job, err := h.importService.Commit(c.Request.Context(), uid, req.toService())
	if err != nil {
		var partial *importer.PartialCommitError
		switch {
		case errors.As(err, &partial) && job != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "job": job})
		case errors.Is(err, service.ErrDuplicateImport) && job != nil:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "job": job})
		default:
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusCreated, job)
}

// GetImport godoc
// @Summary Get an import job
// @Tags Imports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Import job ID"
// @Success 200 {object} domain.ImportJob
// @Failure 404 {object} gin.H "Not found"
// @Router /imports/{id} [get]
func (h *ImportHandler) GetImport(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	job, err := h.importService.GetJob(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
