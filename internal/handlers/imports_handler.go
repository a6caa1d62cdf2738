package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"geodata-service/internal/database"
	"geodata-service/internal/hierarchy"
	"geodata-service/internal/importer"
	"geodata-service/internal/models"
)

// BuildHierarchyRequest defines the payload for building a hierarchy
// artifact from the collected data.
type BuildHierarchyRequest struct {
	DomainID    string `json:"domain_id" binding:"required,min=1,max=100"`
	Name        string `json:"domain_name" binding:"required,min=1,max=200"`
	Description string `json:"domain_description"`
	Country     string `json:"country"`
	Language    string `json:"language"`
	// Source limits the build to one collected source; empty means all.
	Source string `json:"source,omitempty"`
}

// ImportResponse is returned by a successful import run.
type ImportResponse struct {
	Stats *importer.Stats   `json:"stats"`
	Log   *models.ImportLog `json:"log"`
}

// BuildHierarchy godoc
// @Summary Build a hierarchy artifact
// @Description Assemble the collected records into the three-tier domain structure and write the artifact files.
// @Tags hierarchy
// @Accept json
// @Produce json
// @Param descriptor body BuildHierarchyRequest true "Domain descriptor"
// @Success 200 {object} hierarchy.Summary "Summary of the built hierarchy"
// @Failure 400 {object} models.APIError "Bad Request"
// @Failure 404 {object} models.APIError "Source not found"
// @Failure 500 {object} models.APIError "Internal Server Error"
// @Router /hierarchy/build [post]
func BuildHierarchy(c *gin.Context) {
	var req BuildHierarchyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}

	records := manager.CombineAllData()
	if req.Source != "" {
		if _, ok := manager.Get(req.Source); !ok {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeSourceNotFound, "Source not found.", gin.H{"source": req.Source})
			return
		}
		filtered := records[:0]
		for _, rec := range records {
			if rec.Source == req.Source {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if len(records) == 0 {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "No collected data available; collect from a source first.", nil)
		return
	}

	desc := hierarchy.DomainDescriptor{
		DomainID:    req.DomainID,
		Name:        req.Name,
		Description: req.Description,
		Country:     req.Country,
		Language:    req.Language,
	}
	if desc.Country == "" {
		desc.Country = "Germany"
	}
	if desc.Language == "" {
		desc.Language = "de"
	}

	h := builder.Build(desc, records, hierarchy.BuildOptions{})
	if _, err := hierarchy.WriteArtifacts(h, artifactDir); err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to write hierarchy artifacts.", gin.H{"reason": err.Error()})
		return
	}
	RespondWithSuccess(c, http.StatusOK, h.Summarize())
}

// RunImport godoc
// @Summary Run an import
// @Description Import a hierarchy into the database. The hierarchy is read from the given artifact file, or built from the collected data when no file is given.
// @Tags imports
// @Accept json
// @Produce json
// @Param import body models.RunImportRequest true "Import parameters"
// @Success 200 {object} ImportResponse "Import statistics and audit log"
// @Failure 400 {object} models.APIError "Bad Request (e.g. unknown mode - see 'code' for INVALID_ENUM_VALUE)"
// @Failure 409 {object} models.APIError "Conflict (unique constraint violation)"
// @Failure 500 {object} models.APIError "Import failed"
// @Router /imports [post]
func RunImport(c *gin.Context) {
	var req models.RunImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}

	mode, err := importer.ParseMode(req.Mode)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeInvalidEnumValue, "Invalid import mode.", gin.H{"mode": req.Mode, "allowed": []string{"create", "update", "replace"}})
		return
	}

	var h *hierarchy.Hierarchy
	if req.File != "" {
		h, err = hierarchy.ReadHierarchy(req.File)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Failed to read hierarchy file.", gin.H{"file": req.File, "reason": err.Error()})
			return
		}
		if h.DomainID != req.DomainID {
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Hierarchy file belongs to a different domain.", gin.H{"expected": req.DomainID, "found": h.DomainID})
			return
		}
	} else {
		records := manager.CombineAllData()
		if len(records) == 0 {
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "No collected data available; collect from a source first.", nil)
			return
		}
		h = builder.Build(hierarchy.DomainDescriptor{
			DomainID: req.DomainID,
			Name:     req.DomainID,
			Country:  "Germany",
			Language: "de",
		}, records, hierarchy.BuildOptions{})
	}

	stats, logEntry, err := importer.New(database.GetDB()).Run(h, mode, req.DryRun)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			RespondWithError(c, http.StatusConflict, models.ErrorCodeConflict, "Import hit a unique constraint violation.", gin.H{"reason": pqErr.Detail})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeImportFailed, "Import failed.", gin.H{"reason": err.Error()})
		return
	}
	RespondWithSuccess(c, http.StatusOK, ImportResponse{Stats: stats, Log: logEntry})
}

// ListImportLogs godoc
// @Summary List import runs
// @Description Get the audit log of import runs, newest first, optionally filtered by domain and status.
// @Tags imports
// @Produce json
// @Param domain_id query string false "Filter by domain ID"
// @Param status query string false "Filter by status (pending, processing, completed, failed)"
// @Param limit query int false "Max results (default 50, max 500)"
// @Success 200 {array} models.ImportLog "Import logs"
// @Failure 400 {object} models.APIError "Bad Request"
// @Failure 500 {object} models.APIError "Internal Server Error"
// @Router /imports [get]
func ListImportLogs(c *gin.Context) {
	db := database.GetDB()

	limitStr := c.DefaultQuery("limit", strconv.Itoa(DefaultLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid limit parameter: not a number.", gin.H{"limit": limitStr})
		return
	}
	if limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}

	query := db.Model(&models.ImportLog{})
	if domainID := c.Query("domain_id"); domainID != "" {
		query = query.Where("domain_id = ?", domainID)
	}
	if status := c.Query("status"); status != "" {
		switch status {
		case models.ImportStatusPending, models.ImportStatusProcessing,
			models.ImportStatusCompleted, models.ImportStatusFailed:
			query = query.Where("status = ?", status)
		default:
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeInvalidEnumValue, "Invalid status filter.", gin.H{"status": status})
			return
		}
	}

	var logs []models.ImportLog
	if err := query.Order("started_at desc").Limit(limit).Find(&logs).Error; err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list import logs.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, logs)
}

// GetImportLog godoc
// @Summary Get one import run
// @Description Get a single import log entry by its ID.
// @Tags imports
// @Produce json
// @Param import_id path string true "Import log ID (UUID)"
// @Success 200 {object} models.ImportLog "Import log"
// @Failure 400 {object} models.APIError "Invalid UUID"
// @Failure 404 {object} models.APIError "Not found"
// @Failure 500 {object} models.APIError "Internal Server Error"
// @Router /imports/{import_id} [get]
func GetImportLog(c *gin.Context) {
	importID, err := uuid.Parse(c.Param("import_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid import ID format.", gin.H{"import_id": c.Param("import_id")})
		return
	}

	db := database.GetDB()
	var logEntry models.ImportLog
	if err := db.First(&logEntry, "id = ?", importID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeNotFound, "Import log not found.", gin.H{"import_id": importID})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to fetch import log.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, logEntry)
}
