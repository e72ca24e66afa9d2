package usage

// Flavors accumulates billable seconds per flavor name.
// The zero default is explicit: Add inserts the key before accumulating, so
// a flavor observed with zero consumption is still present in the map.
type Flavors map[string]float64

// Add accumulates seconds for a flavor, inserting the key if absent.
func (f Flavors) Add(flavor string, seconds float64) {
	f[flavor] += seconds
}

// Merge folds other into f elementwise.
func (f Flavors) Merge(other Flavors) {
	for flavor, seconds := range other {
		f[flavor] += seconds
	}
}

// Clone returns an independent copy.
func (f Flavors) Clone() Flavors {
	out := make(Flavors, len(f))
	for flavor, seconds := range f {
		out[flavor] = seconds
	}
	return out
}

// Consume turns one server's ordered state timeline into billable seconds
// per flavor inside the window. This is a PURE function.
func Consume(intervals []Interval, w Window) Flavors {
	flavors := make(Flavors)
	for _, iv := range intervals {
		if iv.Status.Consuming() {
			flavors.Add(iv.FlavorName, iv.Seconds(w))
		}
	}
	return flavors
}

// GroupByInstance partitions a combined interval list by instance ID,
// preserving the per-instance chronological order of the input.
func GroupByInstance(intervals []Interval) map[string][]Interval {
	byInstance := make(map[string][]Interval)
	for _, iv := range intervals {
		byInstance[iv.InstanceID] = append(byInstance[iv.InstanceID], iv)
	}
	return byInstance
}
