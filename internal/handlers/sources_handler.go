package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geodata-service/internal/collector"
	"geodata-service/internal/models"
)

// ListSources godoc
// @Summary List registered data sources
// @Description Get the metadata of every registered collector.
// @Tags sources
// @Produce json
// @Success 200 {array} collector.SourceMetadata "Registered sources"
// @Router /sources [get]
func ListSources(c *gin.Context) {
	RespondWithSuccess(c, http.StatusOK, manager.ListAvailableCollectors())
}

// CollectSource godoc
// @Summary Collect from one source
// @Description Run the collector registered under source_name and return the normalized records.
// @Tags sources
// @Accept json
// @Produce json
// @Param source_name path string true "Source name"
// @Param options body models.CollectRequest false "Collection options"
// @Success 200 {object} collector.CollectionResult "Collected records and skipped items"
// @Failure 400 {object} models.APIError "Bad Request"
// @Failure 404 {object} models.APIError "Source not found"
// @Failure 502 {object} models.APIError "Upstream source failed"
// @Router /sources/{source_name}/collect [post]
func CollectSource(c *gin.Context) {
	sourceName := c.Param("source_name")
	if _, ok := manager.Get(sourceName); !ok {
		RespondWithError(c, http.StatusNotFound, models.ErrorCodeSourceNotFound, "Source not found.", gin.H{"source_name": sourceName})
		return
	}

	var req models.CollectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
			return
		}
	}

	result, err := manager.CollectFromSource(sourceName, collector.CollectOptions{
		MaxPages: req.MaxPages,
		SaveRaw:  req.SaveRaw,
	})
	if err != nil {
		RespondWithError(c, http.StatusBadGateway, models.ErrorCodeCollectFailed, "Collection from source failed.", gin.H{"source_name": sourceName, "reason": err.Error()})
		return
	}
	RespondWithSuccess(c, http.StatusOK, result)
}

// CollectAllSources godoc
// @Summary Collect from all sources
// @Description Run every registered collector. A failing source is skipped, the others still run.
// @Tags sources
// @Accept json
// @Produce json
// @Param options body models.CollectRequest false "Collection options"
// @Success 200 {object} map[string]collector.CollectionResult "Results per source"
// @Failure 400 {object} models.APIError "Bad Request"
// @Router /sources/collect [post]
func CollectAllSources(c *gin.Context) {
	var req models.CollectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
			return
		}
	}

	results := manager.CollectFromAllSources(collector.CollectOptions{
		MaxPages: req.MaxPages,
		SaveRaw:  req.SaveRaw,
	})
	RespondWithSuccess(c, http.StatusOK, results)
}

// GetCollectionSummary godoc
// @Summary Summarize collected data
// @Description Report per-source counts for everything collected since startup.
// @Tags sources
// @Produce json
// @Success 200 {object} collector.CollectionSummary "Collection summary"
// @Router /sources/summary [get]
func GetCollectionSummary(c *gin.Context) {
	RespondWithSuccess(c, http.StatusOK, manager.GetCollectionSummary())
}
