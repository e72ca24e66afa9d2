// Package memory provides in-memory implementations of storage ports,
// used in tests and by the offline report command.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

// UsageStore is an in-memory implementation of ports.UsageStore.
type UsageStore struct {
	mu        sync.RWMutex
	intervals []usage.Interval
}

// NewUsageStore creates a new in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{}
}

// RecordIntervals appends collected state intervals.
func (s *UsageStore) RecordIntervals(ctx context.Context, intervals []usage.Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals = append(s.intervals, intervals...)
	return nil
}

// ServerIntervals returns the state timeline of one instance inside the window.
func (s *UsageStore) ServerIntervals(ctx context.Context, instanceID string, w usage.Window) ([]usage.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []usage.Interval
	for _, iv := range s.intervals {
		if iv.InstanceID == instanceID && overlaps(iv, w) {
			matching = append(matching, iv)
		}
	}
	sortTimeline(matching)
	return matching, nil
}

// UserIntervals returns the state timelines of every instance owned by the user.
func (s *UsageStore) UserIntervals(ctx context.Context, userID string, w usage.Window) ([]usage.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []usage.Interval
	for _, iv := range s.intervals {
		if iv.UserID == userID && overlaps(iv, w) {
			matching = append(matching, iv)
		}
	}
	sortTimeline(matching)
	return matching, nil
}

// ServerOwner returns the owning user of an instance.
func (s *UsageStore) ServerOwner(ctx context.Context, instanceID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, iv := range s.intervals {
		if iv.InstanceID == instanceID {
			return iv.UserID, nil
		}
	}
	return "", ports.ErrNotFound
}

func overlaps(iv usage.Interval, w usage.Window) bool {
	if !iv.Begin.Before(w.End) {
		return false
	}
	return iv.End == nil || iv.End.After(w.Begin)
}

func sortTimeline(intervals []usage.Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].InstanceID != intervals[j].InstanceID {
			return intervals[i].InstanceID < intervals[j].InstanceID
		}
		return intervals[i].Begin.Before(intervals[j].Begin)
	})
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
