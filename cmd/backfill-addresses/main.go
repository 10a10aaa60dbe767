package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"patchpoint-api/internal/config"
	"patchpoint-api/internal/services"
)

// One-shot sweep over the report collection: resolves and persists an address
// for every report that has none. Useful after importing legacy data or when
// the geocoding provider was down for a stretch.
func main() {
	logger := log.New(os.Stdout, "[AddressBackfill] ", log.LstdFlags)

	dryRun := flag.Bool("dry-run", false, "Resolve addresses but do not persist them")
	flag.Parse()

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		logger.Fatalf("load config: %v", cfgErr)
	}

	ctx := context.Background()

	// Configure GCP credentials
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, opts...)
	if err != nil {
		logger.Fatalf("firestore client: %v", err)
	}
	defer firestoreClient.Close()

	store := services.NewFirestoreService(firestoreClient, cfg.ReportsCollection, cfg.CommentsCollection)
	geocoder := services.NewGeocodingService()

	if *dryRun {
		logger.Println("DRY RUN - no Firestore writes")
		runDry(ctx, logger, store, geocoder)
		return
	}

	reports := services.NewReportService(store, geocoder, nil)
	backfill := services.NewBackfillService(reports, store)

	start := time.Now()
	attempted, err := backfill.RunOnce(ctx)
	if err != nil {
		logger.Fatalf("sweep failed: %v", err)
	}
	logger.Printf("Done: %d reports attempted in %v", attempted, time.Since(start).Round(time.Millisecond))
}

func runDry(ctx context.Context, logger *log.Logger, store *services.FirestoreService, geocoder *services.GeocodingService) {
	reports, err := store.ListReports(ctx)
	if err != nil {
		logger.Fatalf("list reports: %v", err)
	}

	missing := 0
	for _, report := range reports {
		if report.HasAddress() {
			continue
		}
		missing++

		resolved, err := geocoder.ReverseGeocode(ctx, report.GpsLat, report.GpsLon)
		if err != nil {
			logger.Printf("[DRY] %s: resolution failed (%v), would store %q", report.Id, err, services.AddressUnavailable)
			continue
		}
		addr := resolved.Format()
		if addr == "" {
			addr = services.AddressUnavailable
		}
		logger.Printf("[DRY] %s: would store %q", report.Id, addr)
	}

	logger.Printf("Done: %d of %d reports missing an address", missing, len(reports))
}
