package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/cloudbill/cloudbill/domain/usage"
)

// Period is a maximal sub-interval of a query window over which the full
// price table is constant. Its implicit end is the start of the following
// period, or the window end for the last period.
type Period struct {
	Start time.Time
	Rates Snapshot
}

// Schedule is the ordered partition of a window into price periods. It
// always contains at least one period anchored at the window begin.
type Schedule struct {
	Window  usage.Window
	Periods []Period
}

// End returns the effective end of period i.
func (s Schedule) End(i int) time.Time {
	if i+1 < len(s.Periods) {
		return s.Periods[i+1].Start
	}
	return s.Window.End
}

// BuildSchedule partitions the window into price periods. The baseline
// snapshot at the window begin is obtained by replaying every record dated
// at or before the window begin in ascending order, so for each
// (flavor, class) pair the most recent prior record wins. Each distinct
// record start time inside the window opens a new period; records sharing a
// start time land in the same period. A record carrying an unknown billing
// class is a validation error. This is a PURE function.
func BuildSchedule(w usage.Window, flavors []Flavor, records []Price) (Schedule, error) {
	for _, rec := range records {
		if !rec.Class.Valid() {
			return Schedule{}, usage.ValidationError{
				Field:  "price record",
				Reason: fmt.Sprintf("flavor %s: unknown user class %d", rec.FlavorName, int(rec.Class)),
			}
		}
	}

	sorted := make([]Price, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ValidFrom.Before(sorted[j].ValidFrom)
	})

	current := NewSnapshot(flavors)
	rest := sorted
	for len(rest) > 0 && !rest[0].ValidFrom.After(w.Begin) {
		current.Set(rest[0].Class, rest[0].FlavorName, rest[0].PerYear)
		rest = rest[1:]
	}

	schedule := Schedule{Window: w}
	anchor := w.Begin
	for _, rec := range rest {
		if !rec.ValidFrom.Before(w.End) {
			break
		}
		if rec.ValidFrom.After(anchor) {
			schedule.Periods = append(schedule.Periods, Period{Start: anchor, Rates: current.Clone()})
			anchor = rec.ValidFrom
		}
		current.Set(rec.Class, rec.FlavorName, rec.PerYear)
	}
	schedule.Periods = append(schedule.Periods, Period{Start: anchor, Rates: current})

	return schedule, nil
}
