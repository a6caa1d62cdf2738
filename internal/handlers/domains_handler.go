package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"geodata-service/internal/database"
	"geodata-service/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// paginationParams reads and clamps limit/offset query parameters.
func paginationParams(c *gin.Context) (limit, offset int, ok bool) {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(DefaultLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid limit parameter: not a number.", gin.H{"limit": limitStr})
		return 0, 0, false
	}
	if limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}

	offsetStr := c.DefaultQuery("offset", "0")
	offset, err = strconv.Atoi(offsetStr)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid offset parameter: not a number.", gin.H{"offset": offsetStr})
		return 0, 0, false
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, true
}

// ListDomains godoc
// @Summary List domains
// @Description Get all imported domains with their category counts.
// @Tags domains
// @Produce json
// @Success 200 {array} models.Domain "Domains"
// @Failure 500 {object} models.APIError "Internal Server Error"
// @Router /domains [get]
func ListDomains(c *gin.Context) {
	db := database.GetDB()

	var domains []models.Domain
	if err := db.Preload("Categories").Order("domain_id asc").Find(&domains).Error; err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list domains.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, domains)
}

// GetDomain godoc
// @Summary Get one domain tree
// @Description Get a domain with its categories and their locations.
// @Tags domains
// @Produce json
// @Param domain_id path string true "Domain ID (natural key)"
// @Success 200 {object} models.Domain "Domain with categories and locations"
// @Failure 404 {object} models.APIError "Domain not found"
// @Failure 500 {object} models.APIError "Internal Server Error"
// @Router /domains/{domain_id} [get]
func GetDomain(c *gin.Context) {
	domainID := c.Param("domain_id")
	db := database.GetDB()

	var domain models.Domain
	err := db.Preload("Categories.Locations").Where("domain_id = ?", domainID).First(&domain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeDomainNotFound, "Domain not found.", gin.H{"domain_id": domainID})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to fetch domain.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, domain)
}

// ListDomainLocations godoc
// @Summary List locations of a domain
// @Description Get the locations belonging to any category of the domain, optionally filtered by category, with pagination.
// @Tags domains
// @Produce json
// @Param domain_id path string true "Domain ID (natural key)"
// @Param category_id query string false "Filter by category ID"
// @Param limit query int false "Max results (default 50, max 500)"
// @Param offset query int false "Results offset"
// @Success 200 {array} models.Location "Locations"
// @Failure 400 {object} models.APIError "Bad Request"
// @Failure 404 {object} models.APIError "Domain not found"
// @Failure 500 {object} models.APIError "Internal Server Error"
// @Router /domains/{domain_id}/locations [get]
func ListDomainLocations(c *gin.Context) {
	domainID := c.Param("domain_id")
	db := database.GetDB()

	limit, offset, ok := paginationParams(c)
	if !ok {
		return
	}

	var domain models.Domain
	if err := db.Where("domain_id = ?", domainID).First(&domain).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeDomainNotFound, "Domain not found.", gin.H{"domain_id": domainID})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to fetch domain.", nil)
		return
	}

	query := db.Model(&models.Location{}).
		Joins("JOIN location_categories lc ON lc.location_id = locations.id").
		Joins("JOIN categories cat ON cat.id = lc.category_id").
		Where("cat.domain_ref = ?", domain.ID)

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("cat.category_id = ?", categoryID)
	}

	var locations []models.Location
	err := query.Distinct("locations.*").
		Order("locations.location_id asc").
		Limit(limit).Offset(offset).
		Find(&locations).Error
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list locations.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, locations)
}
