package models

import (
	"time"

	"github.com/google/uuid"
)

// ValidImportModes defines the allowed modes for an import run.
var ValidImportModes = map[string]bool{
	"create":  true,
	"update":  true,
	"replace": true,
}

// Import run statuses.
const (
	ImportStatusPending    = "pending"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// Domain represents a top-level dataset grouping (tier 1), e.g. one external
// data source such as a charity network or a chamber directory.
// @Description Domain represents a top-level dataset grouping (tier 1).
type Domain struct {
	ID          uint   `json:"-" gorm:"primaryKey"`
	DomainID    string `json:"domain_id" binding:"required,min=1,max=100" gorm:"type:varchar(100);not null;uniqueIndex"`
	Name        string `json:"name" binding:"required,min=1,max=200" gorm:"type:varchar(200);not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	Country  string `json:"country" gorm:"type:varchar(100);default:Germany"`
	Language string `json:"language" gorm:"type:varchar(10);default:de"`

	ColorScheme string `json:"color_scheme" gorm:"type:varchar(50);default:default"`
	Icon        string `json:"icon" gorm:"type:varchar(50)"`

	IsActive bool `json:"is_active" gorm:"default:true"`
	Featured bool `json:"featured" gorm:"default:false"`

	SourceURL string `json:"source_url,omitempty" gorm:"type:varchar(500)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Categories []Category `json:"categories,omitempty" gorm:"foreignKey:DomainRef;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Category represents a classification bucket within a Domain (tier 2).
// CategoryID is unique within its domain, not globally, hence the composite
// unique index with DomainRef.
// @Description Category represents a classification bucket within a Domain (tier 2).
type Category struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	DomainRef  uint   `json:"-" gorm:"not null;uniqueIndex:idx_domain_category"`
	CategoryID string `json:"category_id" binding:"required,min=1,max=100" gorm:"type:varchar(100);not null;uniqueIndex:idx_domain_category"`
	Name       string `json:"name" binding:"required,min=1,max=200" gorm:"type:varchar(200);not null"`

	// External system identifier, e.g. a handwerk id from the source filter list.
	ExternalID string `json:"external_id,omitempty" gorm:"type:varchar(50)"`

	Color string `json:"color" gorm:"type:varchar(7);default:#FF6B6B"`
	Icon  string `json:"icon" gorm:"type:varchar(50)"`

	IsActive     bool `json:"is_active" gorm:"default:true"`
	DisplayOrder int  `json:"display_order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Locations []Location `json:"locations,omitempty" gorm:"many2many:location_categories;"`
}

// Location represents a geographically placed entity (tier 3). LocationID is
// the natural key derived from the source's own identifier, prefixed with the
// source name so ids from different sources cannot collide. A location may
// belong to many categories.
// @Description Location represents a geographically placed entity (tier 3).
type Location struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	LocationID string `json:"location_id" binding:"required,min=1,max=100" gorm:"type:varchar(100);not null;uniqueIndex"`
	Name       string `json:"name" binding:"required,min=1,max=200" gorm:"type:varchar(200);not null;index"`

	Categories []Category `json:"categories,omitempty" gorm:"many2many:location_categories;"`

	Latitude  float64 `json:"latitude" binding:"required,gte=-90,lte=90" gorm:"not null;index:idx_coords"`
	Longitude float64 `json:"longitude" binding:"required,gte=-180,lte=180" gorm:"not null;index:idx_coords"`

	Street     string `json:"street,omitempty" gorm:"type:varchar(200)"`
	City       string `json:"city,omitempty" gorm:"type:varchar(100);index"`
	PostalCode string `json:"postal_code,omitempty" gorm:"type:varchar(20)"`
	Country    string `json:"country" gorm:"type:varchar(100);default:Germany"`

	Phone   string `json:"phone,omitempty" gorm:"type:varchar(50)"`
	Fax     string `json:"fax,omitempty" gorm:"type:varchar(50)"`
	Email   string `json:"email,omitempty" gorm:"type:varchar(254)"`
	Website string `json:"website,omitempty" gorm:"type:varchar(500)"`

	Description string `json:"description,omitempty" gorm:"type:text"`

	IsActive bool `json:"is_active" gorm:"default:true"`
	Verified bool `json:"verified" gorm:"default:false"`

	SourceName string `json:"source_name,omitempty" gorm:"type:varchar(200)"`
	DetailURL  string `json:"detail_url,omitempty" gorm:"type:varchar(500)"`
	// RawData keeps the original source payload as a JSON string for traceability.
	RawData string `json:"raw_data,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ImportLog is the audit record for one execution of the import engine.
// It is created when a run starts and finalized when the run ends; a failed
// run records the error message. The log row lives outside the import
// transaction so failed runs remain observable.
// @Description ImportLog is the audit record for one import run.
type ImportLog struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DomainRef uint      `json:"-" gorm:"index"`
	DomainID  string    `json:"domain_id" gorm:"type:varchar(100);not null;index"`

	Mode   string `json:"mode" gorm:"type:varchar(20);not null"`
	DryRun bool   `json:"dry_run" gorm:"default:false"`

	Status       string `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	ErrorMessage string `json:"error_message,omitempty" gorm:"type:text"`

	CategoriesProcessed int `json:"categories_processed" gorm:"default:0"`
	CategoriesCreated   int `json:"categories_created" gorm:"default:0"`
	CategoriesUpdated   int `json:"categories_updated" gorm:"default:0"`
	LocationsProcessed  int `json:"locations_processed" gorm:"default:0"`
	LocationsCreated    int `json:"locations_created" gorm:"default:0"`
	LocationsUpdated    int `json:"locations_updated" gorm:"default:0"`
	AssociationsCreated int `json:"associations_created" gorm:"default:0"`

	StartedAt   time.Time  `json:"started_at" gorm:"autoCreateTime"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunImportRequest defines the request payload for triggering an import run.
type RunImportRequest struct {
	DomainID string `json:"domain_id" binding:"required,min=1,max=100"`
	Mode     string `json:"mode" binding:"required,oneof=create update replace"`
	DryRun   bool   `json:"dry_run"`
	// Optional path to a hierarchical JSON artifact; when empty the hierarchy
	// is built from the latest collected data for the source.
	File string `json:"file,omitempty"`
}

// CollectRequest defines the request payload for triggering a collection run.
type CollectRequest struct {
	MaxPages int  `json:"max_pages,omitempty" binding:"omitempty,gte=1,lte=100"`
	SaveRaw  bool `json:"save_raw"`
}
