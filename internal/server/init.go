package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"patchpoint-api/internal/config"
	"patchpoint-api/internal/handlers"
	"patchpoint-api/internal/middleware"
	"patchpoint-api/internal/router"
	"patchpoint-api/internal/services"
)

// Services holds all initialized services for the application
type Services struct {
	Cache     *services.CacheService
	Storage   *services.StorageService
	Firestore *services.FirestoreService
	Geocoder  *services.GeocodingService
	Reports   *services.ReportService
	Comments  *services.CommentService
	Images    *services.ImageService
	Archives  *services.ArchiveService
	Backfill  *services.BackfillService
}

// InitServices initializes all application services based on configuration.
// Returns the initialized services or an error if initialization fails.
func InitServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Configure Firebase credentials
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsJSON != "" {
		// Use JSON credentials from environment variable (preferred for hosted deploys)
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	} else {
		// Use credentials file (for local development)
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}

	// Initialize Firebase Storage client
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Initialize Firestore client
	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, opts...)
	if err != nil {
		return nil, err
	}

	// Initialize core services
	cacheService := services.NewCacheService(cfg.CacheTTL, cfg.CacheCleanupInterval)
	storageService := services.NewStorageService(storageClient, cfg.FirebaseBucketName)
	firestoreService := services.NewFirestoreService(firestoreClient, cfg.ReportsCollection, cfg.CommentsCollection)
	geocoder := services.NewGeocodingService()
	reportService := services.NewReportService(firestoreService, geocoder, storageService)

	return &Services{
		Cache:     cacheService,
		Storage:   storageService,
		Firestore: firestoreService,
		Geocoder:  geocoder,
		Reports:   reportService,
		Comments:  services.NewCommentService(firestoreService),
		Images:    services.NewImageService(storageService, cacheService),
		Archives:  services.NewArchiveService(cfg.UploadsDir),
		Backfill:  services.NewBackfillService(reportService, firestoreService),
	}, nil
}

// CreateHandler creates an HTTP handler with all middleware applied
func CreateHandler(svcs *Services, cfg *config.Config) http.Handler {
	// Initialize handlers
	h := handlers.New(svcs.Reports, svcs.Comments, svcs.Images, svcs.Archives)

	sessionAuth := middleware.SessionAuth(cfg.JWTSecret)

	// Setup router
	mux := router.Setup(h, sessionAuth, cfg.UploadsDir)

	// Apply global middleware
	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	wrappedHandler := middleware.WithRequestID(mux)
	wrappedHandler = middleware.Logger(wrappedHandler)
	wrappedHandler = limiter.Limit(wrappedHandler)
	wrappedHandler = middleware.CORS(wrappedHandler, cfg.AllowedOrigins)

	return wrappedHandler
}

// StartBackfill starts the background address sweeper with optional startup
// sweep. Returns a cancel function to stop it gracefully.
func StartBackfill(ctx context.Context, backfill *services.BackfillService, interval time.Duration, sweepOnStartup bool) context.CancelFunc {
	if backfill == nil {
		log.Println("Cannot start address sweep: backfill service is nil")
		return func() {}
	}

	if interval <= 0 && !sweepOnStartup {
		return func() {}
	}

	sweepCtx, cancel := context.WithCancel(ctx)

	go func() {
		if sweepOnStartup {
			log.Println("Running one-time address sweep...")
			if n, err := backfill.RunOnce(sweepCtx); err != nil {
				if err != context.Canceled {
					log.Printf("Address sweep completed with error: %v", err)
				} else {
					log.Println("Address sweep canceled")
					return
				}
			} else {
				log.Printf("Address sweep completed: %d reports attempted", n)
			}
		}

		if interval > 0 {
			if err := backfill.Watch(sweepCtx, interval); err != nil && err != context.Canceled {
				log.Printf("Address sweep error: %v", err)
			}
		}
	}()

	return cancel
}
