// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/domain/usage"
)

// ErrNotFound is returned when a scope identifier (server, user, project)
// does not resolve.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// UsageStore persists server-state intervals collected from the compute
// service. Interval lists are returned in chronological order per instance;
// window filtering keeps every interval that can overlap the window.
type UsageStore interface {
	// ServerIntervals returns the state timeline of one instance inside the
	// window. An unknown instance yields an empty list, not an error.
	ServerIntervals(ctx context.Context, instanceID string, w usage.Window) ([]usage.Interval, error)

	// UserIntervals returns the state timelines of every instance owned by
	// the user inside the window, ordered by instance and begin time.
	UserIntervals(ctx context.Context, userID string, w usage.Window) ([]usage.Interval, error)

	// ServerOwner returns the owning user of an instance, ErrNotFound if the
	// instance has never been observed.
	ServerOwner(ctx context.Context, instanceID string) (string, error)

	// RecordIntervals appends collected state intervals. Per-instance
	// chronological ordering is the collector's contract.
	RecordIntervals(ctx context.Context, intervals []usage.Interval) error
}

// PriceStore persists flavor price records and the flavor catalog.
type PriceStore interface {
	// PricesOverlapping returns every price record whose validity can
	// intersect the window: all records starting before the window end, in
	// ascending start order. Records dated before the window begin are
	// included so the schedule builder can establish the baseline.
	PricesOverlapping(ctx context.Context, w usage.Window) ([]pricing.Price, error)

	// FlavorCatalog returns all known flavors.
	FlavorCatalog(ctx context.Context) ([]pricing.Flavor, error)

	// SetPrice appends a price record. The record supersedes any earlier
	// record for the same (flavor, class) pair from its start time on.
	SetPrice(ctx context.Context, p pricing.Price) error

	// ListPrices returns all price records in ascending start order.
	ListPrices(ctx context.Context) ([]pricing.Price, error)
}

// Directory resolves users and projects to billing classes and membership.
// All lookups return ErrNotFound for dangling identifiers.
type Directory interface {
	// UserClass returns the billing class of a user.
	UserClass(ctx context.Context, userID string) (pricing.Class, error)

	// ProjectClass returns the billing class of a project.
	ProjectClass(ctx context.Context, projectID string) (pricing.Class, error)

	// ProjectUsers returns the member users of a project. A known project
	// with no members yields an empty list.
	ProjectUsers(ctx context.Context, projectID string) ([]string, error)

	// Projects returns all project IDs.
	Projects(ctx context.Context) ([]string, error)
}
