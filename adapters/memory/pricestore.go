package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

// PriceStore is an in-memory implementation of ports.PriceStore.
type PriceStore struct {
	mu      sync.RWMutex
	flavors []pricing.Flavor
	records []pricing.Price
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{}
}

// AddFlavor registers a flavor in the catalog.
func (s *PriceStore) AddFlavor(f pricing.Flavor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flavors = append(s.flavors, f)
}

// FlavorCatalog returns all known flavors.
func (s *PriceStore) FlavorCatalog(ctx context.Context) ([]pricing.Flavor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]pricing.Flavor{}, s.flavors...), nil
}

// SetPrice appends a price record.
func (s *PriceStore) SetPrice(ctx context.Context, p pricing.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, p)
	return nil
}

// PricesOverlapping returns every record starting before the window end,
// in ascending start order.
func (s *PriceStore) PricesOverlapping(ctx context.Context, w usage.Window) ([]pricing.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []pricing.Price
	for _, rec := range s.records {
		if rec.ValidFrom.Before(w.End) {
			matching = append(matching, rec)
		}
	}
	sortRecords(matching)
	return matching, nil
}

// ListPrices returns all price records in ascending start order.
func (s *PriceStore) ListPrices(ctx context.Context) ([]pricing.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := append([]pricing.Price{}, s.records...)
	sortRecords(records)
	return records, nil
}

func sortRecords(records []pricing.Price) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ValidFrom.Before(records[j].ValidFrom)
	})
}

// Ensure interface compliance.
var _ ports.PriceStore = (*PriceStore)(nil)
