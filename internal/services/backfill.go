package services

import (
	"context"
	"log"
	"os"
	"time"
)

// BackfillService is a janitor that periodically sweeps the report collection
// and resolves addresses the listing path has not touched yet. Listing remains
// the primary backfill trigger; the sweeper exists so that reports nobody
// lists still converge to a resolved address.
type BackfillService struct {
	reports *ReportService
	store   ReportStore
	logger  *log.Logger
}

func NewBackfillService(reports *ReportService, store ReportStore) *BackfillService {
	return &BackfillService{
		reports: reports,
		store:   store,
		logger:  log.New(os.Stdout, "[Backfill] ", log.LstdFlags),
	}
}

// RunOnce resolves every missing address in a single sweep and reports how
// many were attempted.
func (b *BackfillService) RunOnce(ctx context.Context) (int, error) {
	reports, err := b.store.ListReports(ctx)
	if err != nil {
		return 0, err
	}

	attempted := 0
	for _, report := range reports {
		if ctx.Err() != nil {
			return attempted, ctx.Err()
		}
		if report.HasAddress() {
			continue
		}
		b.reports.backfillAddress(ctx, report)
		attempted++
	}

	b.logger.Printf("Sweep complete: %d of %d reports attempted", attempted, len(reports))
	return attempted, nil
}

// Watch runs RunOnce on a fixed interval until the context is canceled.
func (b *BackfillService) Watch(ctx context.Context, interval time.Duration) error {
	b.logger.Printf("Starting address sweep (every %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Println("Sweep stopped by context")
			return ctx.Err()
		case <-ticker.C:
			if _, err := b.RunOnce(ctx); err != nil && err != context.Canceled {
				b.logger.Printf("Sweep error: %v", err)
			}
		}
	}
}
