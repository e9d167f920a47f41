package lifecycle

import (
	"context"
	"fmt"

	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/store"
)

// OrderNumberGenerator produces unique, human-readable order numbers of the
// form <HotelCode>-<Year>-<Seq>, where Seq is a per-hotel, per-year counter
// starting at 1. The store serializes the increment, so concurrent callers
// for the same (hotel, year) never observe the same value. Numbers are never
// reused; a failed creation after a successful increment simply burns one.
type OrderNumberGenerator struct {
	store store.Store
}

// NewOrderNumberGenerator creates a generator backed by the given store.
func NewOrderNumberGenerator(s store.Store) *OrderNumberGenerator {
	return &OrderNumberGenerator{store: s}
}

// Generate returns the next order number for the hotel and year. When the
// sequence store is unreachable the error wraps
// store.ErrGenerationUnavailable.
func (g *OrderNumberGenerator) Generate(ctx context.Context, hotel model.Hotel, year int) (string, error) {
	seq, err := g.store.NextOrderNumber(ctx, hotel.ID, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%d", hotel.Code, year, seq), nil
}
