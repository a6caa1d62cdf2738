package handlers

import (
	"github.com/gin-gonic/gin"

	"geodata-service/internal/collector"
	"geodata-service/internal/hierarchy"
)

var (
	manager *collector.Manager
	builder *hierarchy.Builder

	// artifactDir is where built hierarchy files are written.
	artifactDir = "data/hierarchies"
)

// Init wires the handler package to its collaborators. Must be called
// before RegisterRoutes.
func Init(m *collector.Manager, b *hierarchy.Builder, artifacts string) {
	manager = m
	builder = b
	if artifacts != "" {
		artifactDir = artifacts
	}
}

// RegisterRoutes registers all API routes with the given Gin router.
func RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	sourceRoutes := v1.Group("/sources")
	{
		sourceRoutes.GET("/", ListSources)
		sourceRoutes.GET("/summary", GetCollectionSummary)
		sourceRoutes.POST("/collect", CollectAllSources)
		sourceRoutes.POST("/:source_name/collect", CollectSource)
	}

	domainRoutes := v1.Group("/domains")
	{
		domainRoutes.GET("/", ListDomains)
		domainRoutes.GET("/:domain_id", GetDomain)
		domainRoutes.GET("/:domain_id/locations", ListDomainLocations)
	}

	importRoutes := v1.Group("/imports")
	{
		importRoutes.POST("/", RunImport)
		importRoutes.GET("/", ListImportLogs)
		importRoutes.GET("/:import_id", GetImportLog)
	}

	v1.POST("/hierarchy/build", BuildHierarchy)
}
