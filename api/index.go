package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	"patchpoint-api/internal/config"
	"patchpoint-api/internal/server"
)

var (
	handler     http.Handler
	mu          sync.Mutex
	initialized bool
)

// initHandler initializes the HTTP handler once and reuses it across invocations.
// Uses double-checked locking for optimal performance in serverless environments.
// A failed initialization is not remembered, so the next request retries it.
//
// Note: Firebase clients are not explicitly closed as the serverless runtime
// handles resource cleanup on function termination. The background address
// sweeper is not started here; function instances are too short-lived for it.
func initHandler() error {
	// Fast path: check without lock (first check)
	if initialized {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring lock
	if initialized {
		return nil
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return err
	}

	svcs, err := server.InitServices(context.Background(), cfg)
	if err != nil {
		log.Printf("Failed to initialize services: %v", err)
		return err
	}

	// Only set handler and mark as initialized after full successful initialization
	handler = server.CreateHandler(svcs, cfg)
	initialized = true

	log.Println("Handler initialized successfully")
	return nil
}

// Handler is the serverless function entry point
func Handler(w http.ResponseWriter, r *http.Request) {
	// Attempt initialization (will succeed immediately if already initialized)
	if err := initHandler(); err != nil {
		log.Printf("Handler initialization failed: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Delegate to the initialized handler
	handler.ServeHTTP(w, r)
}
