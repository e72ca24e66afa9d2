// Package usage provides server-state interval types and the consumption
// aggregation. All functions are pure - no side effects.
package usage

import (
	"fmt"
	"time"
)

// Status is a server lifecycle status as reported by the compute service.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusBuild        Status = "BUILD"
	StatusHardReboot   Status = "HARD_REBOOT"
	StatusMigrating    Status = "MIGRATING"
	StatusPaused       Status = "PAUSED"
	StatusReboot       Status = "REBOOT"
	StatusRescue       Status = "RESCUE"
	StatusResize       Status = "RESIZE"
	StatusShutoff      Status = "SHUTOFF"
	StatusVerifyResize Status = "VERIFY_RESIZE"

	StatusDeleted          Status = "DELETED"
	StatusError            Status = "ERROR"
	StatusShelved          Status = "SHELVED"
	StatusShelvedOffloaded Status = "SHELVED_OFFLOADED"
	StatusSoftDeleted      Status = "SOFT_DELETED"
	StatusSuspended        Status = "SUSPENDED"
	StatusUnknown          Status = "UNKNOWN"
)

// ConsumingStatuses are the statuses that count as billable occupancy.
// A server in any other status holds no flavor resources worth billing.
var ConsumingStatuses = map[Status]bool{
	StatusActive:       true,
	StatusBuild:        true,
	StatusHardReboot:   true,
	StatusMigrating:    true,
	StatusPaused:       true,
	StatusReboot:       true,
	StatusRescue:       true,
	StatusResize:       true,
	StatusShutoff:      true,
	StatusVerifyResize: true,
}

// Consuming reports whether the status counts as billable occupancy.
func (s Status) Consuming() bool {
	return ConsumingStatuses[s]
}

// Interval is one entry in a server's state timeline (immutable value type).
// End == nil means the server is still in this state as of data collection
// ("open" interval). For a fixed InstanceID the collector guarantees
// intervals are chronologically ordered and non-overlapping; this package
// assumes that and does not re-validate it.
type Interval struct {
	InstanceID   string
	InstanceName string
	FlavorID     string
	FlavorName   string
	UserID       string
	Status       Status
	Begin        time.Time
	End          *time.Time
}

// Window is a half-open query interval [Begin, End).
type Window struct {
	Begin time.Time
	End   time.Time
}

// Validate checks that the window is well formed.
func (w Window) Validate() error {
	if w.End.Before(w.Begin) {
		return ValidationError{
			Field:  "window",
			Reason: fmt.Sprintf("begin %s is after end %s", w.Begin.Format(time.RFC3339), w.End.Format(time.RFC3339)),
		}
	}
	return nil
}

// Sub returns the sub-window [begin, end) clipped to w.
func (w Window) Sub(begin, end time.Time) Window {
	if begin.Before(w.Begin) {
		begin = w.Begin
	}
	if end.After(w.End) {
		end = w.End
	}
	return Window{Begin: begin, End: end}
}

// Seconds returns the billable duration of one interval inside the window.
// The interval begin is clipped up to the window begin, an open end is
// closed at the window end, and an end past the window is clipped down.
// Non-consuming statuses and intervals outside the window contribute zero.
func (iv Interval) Seconds(w Window) float64 {
	if !iv.Status.Consuming() {
		return 0
	}

	begin := iv.Begin
	if begin.Before(w.Begin) {
		begin = w.Begin
	}

	end := w.End
	if iv.End != nil && iv.End.Before(w.End) {
		end = *iv.End
	}

	if !end.After(begin) {
		return 0
	}
	return end.Sub(begin).Seconds()
}

// ValidationError reports malformed request input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
