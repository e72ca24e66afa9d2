package usage_test

import (
	"errors"
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/domain/usage"
)

var (
	windowBegin = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	window      = usage.Window{Begin: windowBegin, End: windowEnd}
)

func ts(day, hour int) time.Time {
	return time.Date(2026, 1, day, hour, 0, 0, 0, time.UTC)
}

func tp(t time.Time) *time.Time {
	return &t
}

func TestIntervalSeconds(t *testing.T) {
	tests := []struct {
		name string
		iv   usage.Interval
		want float64
	}{
		{
			name: "fully inside",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: ts(10, 0), End: tp(ts(11, 0))},
			want: 86400,
		},
		{
			name: "open end closed at window end",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: ts(31, 23)},
			want: 3600,
		},
		{
			name: "begin before window clipped up",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), End: tp(ts(2, 0))},
			want: 86400,
		},
		{
			name: "end after window clipped down",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: ts(31, 0), End: tp(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
			want: 86400,
		},
		{
			name: "spans whole window",
			iv:   usage.Interval{Status: usage.StatusShutoff, Begin: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
			want: 31 * 86400,
		},
		{
			name: "entirely before window",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), End: tp(time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC))},
			want: 0,
		},
		{
			name: "entirely after window",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
			want: 0,
		},
		{
			name: "zero duration",
			iv:   usage.Interval{Status: usage.StatusActive, Begin: ts(10, 0), End: tp(ts(10, 0))},
			want: 0,
		},
		{
			name: "deleted does not consume",
			iv:   usage.Interval{Status: usage.StatusDeleted, Begin: ts(10, 0), End: tp(ts(11, 0))},
			want: 0,
		},
		{
			name: "shelved offloaded does not consume",
			iv:   usage.Interval{Status: usage.StatusShelvedOffloaded, Begin: ts(10, 0)},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.iv.Seconds(window)
			if got != tt.want {
				t.Errorf("Seconds() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestIntervalSecondsWindowAdditivity(t *testing.T) {
	// Splitting a window at any instant must not change the sum.
	intervals := []usage.Interval{
		{Status: usage.StatusActive, Begin: ts(5, 0), End: tp(ts(20, 0))},
		{Status: usage.StatusActive, Begin: ts(14, 12)},
		{Status: usage.StatusPaused, Begin: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), End: tp(ts(3, 6))},
	}
	split := ts(15, 7)
	left := usage.Window{Begin: windowBegin, End: split}
	right := usage.Window{Begin: split, End: windowEnd}

	for _, iv := range intervals {
		whole := iv.Seconds(window)
		parts := iv.Seconds(left) + iv.Seconds(right)
		if whole != parts {
			t.Errorf("Seconds(whole) = %f, split sum = %f", whole, parts)
		}
	}
}

func TestWindowValidate(t *testing.T) {
	if err := window.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	inverted := usage.Window{Begin: windowEnd, End: windowBegin}
	err := inverted.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error for inverted window")
	}
	var verr usage.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Validate() error type = %T, want ValidationError", err)
	}

	empty := usage.Window{Begin: windowBegin, End: windowBegin}
	if err := empty.Validate(); err != nil {
		t.Errorf("Validate() on empty window = %v, want nil", err)
	}
}

func TestStatusConsuming(t *testing.T) {
	consuming := []usage.Status{
		usage.StatusActive, usage.StatusBuild, usage.StatusHardReboot,
		usage.StatusMigrating, usage.StatusPaused, usage.StatusReboot,
		usage.StatusRescue, usage.StatusResize, usage.StatusShutoff,
		usage.StatusVerifyResize,
	}
	for _, s := range consuming {
		if !s.Consuming() {
			t.Errorf("%s.Consuming() = false, want true", s)
		}
	}

	idle := []usage.Status{
		usage.StatusDeleted, usage.StatusError, usage.StatusShelved,
		usage.StatusShelvedOffloaded, usage.StatusSoftDeleted,
		usage.StatusSuspended, usage.StatusUnknown, usage.Status("BOGUS"),
	}
	for _, s := range idle {
		if s.Consuming() {
			t.Errorf("%s.Consuming() = true, want false", s)
		}
	}
}
