package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"geodata-service/internal/collector"
	"geodata-service/internal/database"
	"geodata-service/internal/hierarchy"
	"geodata-service/internal/models"
)

var (
	testDB     *gorm.DB
	router     *gin.Engine
	testSource *scriptedCollector
)

// scriptedCollector feeds the handlers deterministic data without hitting
// the network.
type scriptedCollector struct {
	meta    collector.SourceMetadata
	result  *collector.CollectionResult
	failErr error
}

func (s *scriptedCollector) Metadata() collector.SourceMetadata { return s.meta }

func (s *scriptedCollector) Collect(opts collector.CollectOptions) (*collector.CollectionResult, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.result, nil
}

// TestMain sets up the test database, a scripted source and the router.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	testDB, err = gorm.Open(sqlite.Open("file:handlers?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(testDB); err != nil {
		log.Fatalf("Failed to migrate test database schema: %v", err)
	}
	database.DB = testDB

	testSource = &scriptedCollector{
		meta: collector.SourceMetadata{
			Name:     "caritas",
			Category: "Social Services",
			Country:  "Germany",
		},
		result: &collector.CollectionResult{
			Records: []collector.LocationRecord{
				{SourceID: "1", Name: "JMD Dresden", Category: "Jugendmigrationsdienst",
					Latitude: 51.05, Longitude: 13.74, Source: "caritas"},
				{SourceID: "2", Name: "MBE Leipzig", Category: "Migrationsberatung für Erwachsene",
					Latitude: 51.34, Longitude: 12.37, Source: "caritas"},
			},
			Skipped: []collector.SkippedItem{{Name: "Kaputt", Reason: "missing coordinates"}},
		},
	}

	manager := collector.NewManager()
	manager.Register(testSource)

	artifactDir, err := os.MkdirTemp("", "hierarchies")
	if err != nil {
		log.Fatalf("Failed to create artifact directory: %v", err)
	}

	Init(manager, hierarchy.NewBuilder(nil), artifactDir)

	router = gin.Default()
	RegisterRoutes(router)

	exitCode := m.Run()

	sqlDB, err := testDB.DB()
	if err == nil {
		sqlDB.Close()
	}
	os.RemoveAll(artifactDir)
	os.Exit(exitCode)
}

func performRequest(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func resetTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{"location_categories", "locations", "categories", "domains", "import_logs"} {
		require.NoError(t, testDB.Exec("DELETE FROM "+table).Error)
	}
}

func collectOnce(t *testing.T) {
	t.Helper()
	w := performRequest(http.MethodPost, "/api/v1/sources/caritas/collect", models.CollectRequest{})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListSources(t *testing.T) {
	w := performRequest(http.MethodGet, "/api/v1/sources/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var sources []collector.SourceMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "caritas", sources[0].Name)
}

func TestCollectSource(t *testing.T) {
	w := performRequest(http.MethodPost, "/api/v1/sources/caritas/collect", models.CollectRequest{MaxPages: 2})
	assert.Equal(t, http.StatusOK, w.Code)

	var result collector.CollectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Records, 2)
	assert.Len(t, result.Skipped, 1)
}

func TestCollectSourceNotFound(t *testing.T) {
	w := performRequest(http.MethodPost, "/api/v1/sources/unbekannt/collect", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.ErrorCodeSourceNotFound, apiErr.Code)
}

func TestCollectSourceUpstreamFailure(t *testing.T) {
	testSource.failErr = fmt.Errorf("connection refused")
	defer func() { testSource.failErr = nil }()

	w := performRequest(http.MethodPost, "/api/v1/sources/caritas/collect", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.ErrorCodeCollectFailed, apiErr.Code)
}

func TestGetCollectionSummary(t *testing.T) {
	collectOnce(t)

	w := performRequest(http.MethodGet, "/api/v1/sources/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var summary collector.CollectionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Sources)
	assert.Equal(t, 2, summary.TotalLocations)
}

func TestBuildHierarchy(t *testing.T) {
	collectOnce(t)

	w := performRequest(http.MethodPost, "/api/v1/hierarchy/build", BuildHierarchyRequest{
		DomainID: "caritas_deutschland",
		Name:     "Caritas Deutschland",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var summary hierarchy.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "caritas_deutschland", summary.DomainID)
	assert.Equal(t, 2, summary.Categories)
	assert.Equal(t, 2, summary.Locations)
}

func TestBuildHierarchyValidation(t *testing.T) {
	w := performRequest(http.MethodPost, "/api/v1/hierarchy/build", gin.H{"domain_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunImportAndReadBack(t *testing.T) {
	resetTables(t)
	collectOnce(t)

	w := performRequest(http.MethodPost, "/api/v1/imports/", models.RunImportRequest{
		DomainID: "caritas_deutschland",
		Mode:     "create",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Stats.LocationsCreated)
	assert.Equal(t, models.ImportStatusCompleted, resp.Log.Status)

	// Domain tree is now servable.
	w = performRequest(http.MethodGet, "/api/v1/domains/caritas_deutschland", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var domain models.Domain
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &domain))
	assert.Equal(t, "caritas_deutschland", domain.DomainID)
	assert.Len(t, domain.Categories, 2)

	// Locations of the domain, filtered by category.
	w = performRequest(http.MethodGet, "/api/v1/domains/caritas_deutschland/locations?category_id=jugendmigrationsdienst", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var locations []models.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locations))
	require.Len(t, locations, 1)
	assert.Equal(t, "JMD Dresden", locations[0].Name)

	// The audit trail lists the run.
	w = performRequest(http.MethodGet, "/api/v1/imports/?domain_id=caritas_deutschland", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var logs []models.ImportLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.NotEmpty(t, logs)
	assert.Equal(t, "create", logs[0].Mode)

	w = performRequest(http.MethodGet, "/api/v1/imports/"+logs[0].ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunImportDryRun(t *testing.T) {
	resetTables(t)
	collectOnce(t)

	w := performRequest(http.MethodPost, "/api/v1/imports/", models.RunImportRequest{
		DomainID: "caritas_deutschland",
		Mode:     "create",
		DryRun:   true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Log.DryRun)
	assert.Equal(t, 2, resp.Stats.LocationsCreated)

	w = performRequest(http.MethodGet, "/api/v1/domains/caritas_deutschland", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunImportInvalidMode(t *testing.T) {
	w := performRequest(http.MethodPost, "/api/v1/imports/", gin.H{
		"domain_id": "caritas_deutschland",
		"mode":      "merge",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetImportLogInvalidID(t *testing.T) {
	w := performRequest(http.MethodGet, "/api/v1/imports/nicht-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.ErrorCodeValidation, apiErr.Code)
}

func TestGetDomainNotFound(t *testing.T) {
	w := performRequest(http.MethodGet, "/api/v1/domains/gibt_es_nicht", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.ErrorCodeDomainNotFound, apiErr.Code)
}
