// Package importer reconciles a built hierarchy against the database. One
// run is one transaction: either every domain, category, location and
// association lands, or none do.
package importer

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"geodata-service/internal/hierarchy"
	"geodata-service/internal/models"
)

// Mode selects how existing rows are treated during a run.
type Mode string

const (
	// ModeCreate inserts missing entities and never touches existing ones.
	ModeCreate Mode = "create"
	// ModeUpdate overwrites every mapped field of existing entities.
	ModeUpdate Mode = "update"
	// ModeReplace drops the domain's categories first, then runs as update.
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	if !models.ValidImportModes[s] {
		return "", fmt.Errorf("invalid import mode %q", s)
	}
	return Mode(s), nil
}

// Stats accumulates what one run did. In dry-run the numbers describe what
// a real run would have done.
type Stats struct {
	DomainCreated       bool `json:"domain_created"`
	CategoriesProcessed int  `json:"categories_processed"`
	CategoriesCreated   int  `json:"categories_created"`
	CategoriesUpdated   int  `json:"categories_updated"`
	LocationsProcessed  int  `json:"locations_processed"`
	LocationsCreated    int  `json:"locations_created"`
	LocationsUpdated    int  `json:"locations_updated"`
	AssociationsCreated int  `json:"associations_created"`
}

// errDryRunRollback forces the transaction to roll back after a dry run
// has computed its statistics.
var errDryRunRollback = errors.New("dry run rollback")

// Importer executes import runs against one database.
type Importer struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// Run imports one hierarchy. The audit log row is written outside the work
// transaction so a failed or dry run still leaves a record behind.
func (im *Importer) Run(h *hierarchy.Hierarchy, mode Mode, dryRun bool) (*Stats, *models.ImportLog, error) {
	if h == nil || h.DomainID == "" {
		return nil, nil, fmt.Errorf("hierarchy has no domain id")
	}

	logEntry := &models.ImportLog{
		ID:       uuid.New(),
		DomainID: h.DomainID,
		Mode:     string(mode),
		DryRun:   dryRun,
		Status:   models.ImportStatusPending,
	}
	if err := im.db.Create(logEntry).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create import log: %w", err)
	}
	if err := im.db.Model(logEntry).Update("status", models.ImportStatusProcessing).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update import log: %w", err)
	}

	stats := &Stats{}
	var domainRef uint
	runErr := im.db.Transaction(func(tx *gorm.DB) error {
		ref, err := im.apply(tx, h, mode, stats)
		if err != nil {
			return err
		}
		domainRef = ref
		if dryRun {
			return errDryRunRollback
		}
		return nil
	})

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"categories_processed": stats.CategoriesProcessed,
		"categories_created":   stats.CategoriesCreated,
		"categories_updated":   stats.CategoriesUpdated,
		"locations_processed":  stats.LocationsProcessed,
		"locations_created":    stats.LocationsCreated,
		"locations_updated":    stats.LocationsUpdated,
		"associations_created": stats.AssociationsCreated,
		"completed_at":         &now,
	}

	if runErr != nil && !errors.Is(runErr, errDryRunRollback) {
		updates["status"] = models.ImportStatusFailed
		updates["error_message"] = runErr.Error()
		if err := im.db.Model(logEntry).Updates(updates).Error; err != nil {
			log.Printf("Failed to finalize import log %s: %v", logEntry.ID, err)
		}
		im.db.First(logEntry, "id = ?", logEntry.ID)
		return nil, logEntry, fmt.Errorf("import of %s failed: %w", h.DomainID, runErr)
	}

	updates["status"] = models.ImportStatusCompleted
	if !dryRun {
		updates["domain_ref"] = domainRef
	}
	if err := im.db.Model(logEntry).Updates(updates).Error; err != nil {
		log.Printf("Failed to finalize import log %s: %v", logEntry.ID, err)
	}
	im.db.First(logEntry, "id = ?", logEntry.ID)
	return stats, logEntry, nil
}

// apply performs the reconciliation inside tx and returns the domain's
// database id.
func (im *Importer) apply(tx *gorm.DB, h *hierarchy.Hierarchy, mode Mode, stats *Stats) (uint, error) {
	domain, created, err := upsertDomain(tx, h, mode)
	if err != nil {
		return 0, err
	}
	stats.DomainCreated = created

	if mode == ModeReplace {
		if err := deleteCategoriesForDomain(tx, domain); err != nil {
			return 0, err
		}
	}

	// Deterministic order keeps runs comparable in the logs.
	ids := make([]string, 0, len(h.Categories))
	for id := range h.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		bucket := h.Categories[id]
		// Buckets the source announced but nothing joined are not imported.
		if len(bucket.Locations) == 0 {
			continue
		}
		stats.CategoriesProcessed++

		category, err := upsertCategory(tx, domain, bucket, mode, stats)
		if err != nil {
			return 0, err
		}

		for _, entry := range bucket.Locations {
			stats.LocationsProcessed++
			location, err := upsertLocation(tx, entry, mode, stats)
			if err != nil {
				return 0, err
			}
			if err := attachCategory(tx, location, category, stats); err != nil {
				return 0, err
			}
		}
	}
	return domain.ID, nil
}

func upsertDomain(tx *gorm.DB, h *hierarchy.Hierarchy, mode Mode) (*models.Domain, bool, error) {
	var domain models.Domain
	err := tx.Where("domain_id = ?", h.DomainID).First(&domain).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		domain = models.Domain{
			DomainID:    h.DomainID,
			Name:        h.DomainName,
			Description: h.DomainDescription,
			Country:     h.Country,
			Language:    h.Language,
			SourceURL:   h.SourceURL,
			IsActive:    true,
		}
		if err := tx.Create(&domain).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create domain %s: %w", h.DomainID, err)
		}
		return &domain, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to look up domain %s: %w", h.DomainID, err)
	}

	if mode != ModeCreate {
		updates := map[string]interface{}{
			"name":        h.DomainName,
			"description": h.DomainDescription,
			"country":     h.Country,
			"language":    h.Language,
			"source_url":  h.SourceURL,
		}
		if err := tx.Model(&domain).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update domain %s: %w", h.DomainID, err)
		}
	}
	return &domain, false, nil
}

// deleteCategoriesForDomain removes the domain's categories and their
// location associations. Locations themselves survive, they may belong to
// other domains' categories.
func deleteCategoriesForDomain(tx *gorm.DB, domain *models.Domain) error {
	var categories []models.Category
	if err := tx.Where("domain_ref = ?", domain.ID).Find(&categories).Error; err != nil {
		return fmt.Errorf("failed to list categories of domain %s: %w", domain.DomainID, err)
	}
	for i := range categories {
		if err := tx.Model(&categories[i]).Association("Locations").Clear(); err != nil {
			return fmt.Errorf("failed to clear associations of category %s: %w", categories[i].CategoryID, err)
		}
	}
	if err := tx.Where("domain_ref = ?", domain.ID).Delete(&models.Category{}).Error; err != nil {
		return fmt.Errorf("failed to delete categories of domain %s: %w", domain.DomainID, err)
	}
	return nil
}

func upsertCategory(tx *gorm.DB, domain *models.Domain, bucket *hierarchy.CategoryBucket, mode Mode, stats *Stats) (*models.Category, error) {
	color := bucket.Color
	if color == "" {
		color = hierarchy.CategoryColor(bucket.CategoryID)
	}

	var category models.Category
	err := tx.Where("domain_ref = ? AND category_id = ?", domain.ID, bucket.CategoryID).First(&category).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = models.Category{
			DomainRef:  domain.ID,
			CategoryID: bucket.CategoryID,
			Name:       bucket.CategoryName,
			ExternalID: bucket.HandwerkID,
			Color:      color,
			IsActive:   true,
		}
		if err := tx.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("failed to create category %s: %w", bucket.CategoryID, err)
		}
		stats.CategoriesCreated++
		return &category, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up category %s: %w", bucket.CategoryID, err)
	}

	if mode != ModeCreate {
		updates := map[string]interface{}{
			"name":        bucket.CategoryName,
			"external_id": bucket.HandwerkID,
			"color":       color,
		}
		if err := tx.Model(&category).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update category %s: %w", bucket.CategoryID, err)
		}
		stats.CategoriesUpdated++
	}
	return &category, nil
}

func upsertLocation(tx *gorm.DB, entry hierarchy.LocationEntry, mode Mode, stats *Stats) (*models.Location, error) {
	var location models.Location
	err := tx.Where("location_id = ?", entry.LocationID).First(&location).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		location = models.Location{
			LocationID:  entry.LocationID,
			Name:        entry.Name,
			Latitude:    entry.Coordinates.Latitude,
			Longitude:   entry.Coordinates.Longitude,
			Street:      entry.Address.Street,
			City:        entry.Address.City,
			PostalCode:  entry.Address.PostalCode,
			Country:     entry.Address.Country,
			Phone:       entry.Contact.Phone,
			Fax:         entry.Contact.Fax,
			Email:       entry.Contact.Email,
			Website:     entry.Contact.Website,
			Description: entry.Description,
			SourceName:  entry.Metadata.Source,
			DetailURL:   entry.Metadata.DetailURL,
			IsActive:    true,
		}
		if err := tx.Create(&location).Error; err != nil {
			return nil, fmt.Errorf("failed to create location %s: %w", entry.LocationID, err)
		}
		stats.LocationsCreated++
		return &location, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up location %s: %w", entry.LocationID, err)
	}

	if mode != ModeCreate {
		updates := map[string]interface{}{
			"name":        entry.Name,
			"latitude":    entry.Coordinates.Latitude,
			"longitude":   entry.Coordinates.Longitude,
			"street":      entry.Address.Street,
			"city":        entry.Address.City,
			"postal_code": entry.Address.PostalCode,
			"country":     entry.Address.Country,
			"phone":       entry.Contact.Phone,
			"fax":         entry.Contact.Fax,
			"email":       entry.Contact.Email,
			"website":     entry.Contact.Website,
			"description": entry.Description,
			"source_name": entry.Metadata.Source,
			"detail_url":  entry.Metadata.DetailURL,
		}
		if err := tx.Model(&location).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update location %s: %w", entry.LocationID, err)
		}
		stats.LocationsUpdated++
	}
	return &location, nil
}

// attachCategory asserts the membership idempotently: attaching twice
// leaves a single join row and counts nothing the second time.
func attachCategory(tx *gorm.DB, location *models.Location, category *models.Category, stats *Stats) error {
	var count int64
	err := tx.Table("location_categories").
		Where("location_id = ? AND category_id = ?", location.ID, category.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check association %s/%s: %w", location.LocationID, category.CategoryID, err)
	}
	if count > 0 {
		return nil
	}
	if err := tx.Model(location).Association("Categories").Append(category); err != nil {
		return fmt.Errorf("failed to attach %s to %s: %w", location.LocationID, category.CategoryID, err)
	}
	stats.AssociationsCreated++
	return nil
}
