package storage

import (
	"context"

	"shopeasy/models"
)

// RunStore is the interface any history backend must satisfy.
type RunStore interface {
	SaveRun(ctx context.Context, run models.SearchRun) error
	RecentRuns(ctx context.Context, limit int) ([]models.SearchRun, error)
	Close() error
}

// ListingWriter is the interface for exporting canonical listings.
type ListingWriter interface {
	Write(listings []models.Listing) error
	Close() error
}
