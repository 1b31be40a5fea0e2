// Package notify delivers price alerts and comparison reports to a Kafka
// topic and by email.
package notify

import (
	"context"
	"errors"
	"time"

	"shopeasy/models"
)

// Kind tells consumers what an Event carries.
type Kind string

const (
	KindPriceAlert Kind = "price_alert"
	KindReport     Kind = "report"
)

// Event is one notification about a finished search.
type Event struct {
	Kind       Kind                   `json:"kind"`
	RunID      string                 `json:"run_id"`
	Query      string                 `json:"query"`
	Recipient  string                 `json:"recipient,omitempty"`
	Threshold  models.OptFloat        `json:"threshold"`
	Cheapest   *models.Listing        `json:"cheapest,omitempty"`
	TopResults []models.ScoredListing `json:"top_results"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Notifier delivers an Event somewhere.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi fans an Event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
