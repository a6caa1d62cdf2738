package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"geodata-service/internal/collector"
	"geodata-service/internal/database"
	"geodata-service/internal/handlers"
	"geodata-service/internal/hierarchy"
)

func main() {
	// Load environment variables from .env file, if present.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	database.ConnectDatabase()

	manager := collector.DefaultManager()
	manager.SnapshotDir = envOrDefault("SNAPSHOT_DIR", "data/snapshots")

	handlers.Init(manager, hierarchy.NewBuilder(nil), envOrDefault("ARTIFACT_DIR", "data/hierarchies"))

	// Periodic collection keeps the cached source data fresh; sources that
	// failed a round are retried on the next one. COLLECT_SCHEDULE=off
	// disables it.
	if spec := envOrDefault("COLLECT_SCHEDULE", "@daily"); spec != "off" {
		scheduler := collector.NewScheduler(manager)
		if err := scheduler.Schedule(spec, collector.CollectOptions{SaveRaw: true}); err != nil {
			log.Fatalf("Invalid COLLECT_SCHEDULE %q: %v", spec, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Printf("Scheduled collection runs: %s", spec)
	}

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	handlers.RegisterRoutes(router)

	port := envOrDefault("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Geodata service starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Block until an interrupt arrives, then drain in-flight requests so no
	// import transaction is left dangling.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	summary := manager.GetCollectionSummary()
	log.Printf("Server exited. Collected %d locations from %d sources this run.",
		summary.TotalLocations, summary.Sources)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
