package usage_test

import (
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/domain/usage"
)

func TestConsume(t *testing.T) {
	intervals := []usage.Interval{
		{InstanceID: "s1", FlavorName: "m1.small", Status: usage.StatusActive, Begin: ts(1, 0), End: tp(ts(2, 0))},
		{InstanceID: "s1", FlavorName: "m1.small", Status: usage.StatusShutoff, Begin: ts(2, 0), End: tp(ts(2, 12))},
		{InstanceID: "s1", FlavorName: "m1.large", Status: usage.StatusActive, Begin: ts(2, 12), End: tp(ts(3, 0))},
		{InstanceID: "s1", FlavorName: "m1.large", Status: usage.StatusDeleted, Begin: ts(3, 0)},
	}

	flavors := usage.Consume(intervals, window)

	if got, want := flavors["m1.small"], float64(86400+43200); got != want {
		t.Errorf("m1.small = %f, want %f", got, want)
	}
	if got, want := flavors["m1.large"], float64(43200); got != want {
		t.Errorf("m1.large = %f, want %f", got, want)
	}
	if len(flavors) != 2 {
		t.Errorf("len(flavors) = %d, want 2", len(flavors))
	}
}

func TestConsumeKeepsZeroSecondFlavors(t *testing.T) {
	// A consuming interval outside the window still registers its flavor
	// with a zero entry.
	intervals := []usage.Interval{
		{FlavorName: "m1.tiny", Status: usage.StatusActive,
			Begin: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   tp(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))},
	}

	flavors := usage.Consume(intervals, window)

	seconds, ok := flavors["m1.tiny"]
	if !ok {
		t.Fatal("m1.tiny missing from result")
	}
	if seconds != 0 {
		t.Errorf("m1.tiny = %f, want 0", seconds)
	}
}

func TestConsumeSkipsNonConsuming(t *testing.T) {
	intervals := []usage.Interval{
		{FlavorName: "m1.small", Status: usage.StatusShelved, Begin: ts(1, 0), End: tp(ts(2, 0))},
	}

	flavors := usage.Consume(intervals, window)

	if _, ok := flavors["m1.small"]; ok {
		t.Error("shelved interval registered a flavor entry")
	}
	if len(flavors) != 0 {
		t.Errorf("len(flavors) = %d, want 0", len(flavors))
	}
}

func TestConsumeEmpty(t *testing.T) {
	flavors := usage.Consume(nil, window)
	if flavors == nil {
		t.Fatal("Consume(nil) returned nil map")
	}
	if len(flavors) != 0 {
		t.Errorf("len(flavors) = %d, want 0", len(flavors))
	}
}

func TestGroupByInstance(t *testing.T) {
	intervals := []usage.Interval{
		{InstanceID: "s1", Status: usage.StatusActive, Begin: ts(1, 0), End: tp(ts(2, 0))},
		{InstanceID: "s2", Status: usage.StatusActive, Begin: ts(1, 0)},
		{InstanceID: "s1", Status: usage.StatusShutoff, Begin: ts(2, 0)},
	}

	byInstance := usage.GroupByInstance(intervals)

	if len(byInstance) != 2 {
		t.Fatalf("len(byInstance) = %d, want 2", len(byInstance))
	}
	if len(byInstance["s1"]) != 2 {
		t.Errorf("len(s1) = %d, want 2", len(byInstance["s1"]))
	}
	// Per-instance order preserved.
	if !byInstance["s1"][0].Begin.Equal(ts(1, 0)) {
		t.Errorf("s1[0].Begin = %v, want %v", byInstance["s1"][0].Begin, ts(1, 0))
	}
}

func TestReportHierarchy(t *testing.T) {
	s1 := usage.NewReport()
	s1.Total.Add("m1.small", 100)
	s2 := usage.NewReport()
	s2.Total.Add("m1.small", 50)
	s2.Total.Add("m1.large", 25)

	user := usage.NewReport()
	user.AddServer("s1", s1)
	user.AddServer("s2", s2)

	if got, want := user.Total["m1.small"], 150.0; got != want {
		t.Errorf("user m1.small = %f, want %f", got, want)
	}
	if got, want := user.Total["m1.large"], 25.0; got != want {
		t.Errorf("user m1.large = %f, want %f", got, want)
	}

	project := usage.NewReport()
	project.AddUser("alice", user)

	if got, want := project.Total["m1.small"], 150.0; got != want {
		t.Errorf("project m1.small = %f, want %f", got, want)
	}
	if project.Users["alice"].Servers["s2"].Total["m1.large"] != 25 {
		t.Error("nested server report not reachable through the tree")
	}
}

func TestReportMerge(t *testing.T) {
	first := usage.NewReport()
	s1 := usage.NewReport()
	s1.Total.Add("m1.small", 10)
	first.AddServer("s1", s1)

	second := usage.NewReport()
	s1b := usage.NewReport()
	s1b.Total.Add("m1.small", 5)
	second.AddServer("s1", s1b)
	s2 := usage.NewReport()
	s2.Total.Add("m1.large", 7)
	second.AddServer("s2", s2)

	first.Merge(second)

	if got, want := first.Total["m1.small"], 15.0; got != want {
		t.Errorf("total m1.small = %f, want %f", got, want)
	}
	if got, want := first.Servers["s1"].Total["m1.small"], 15.0; got != want {
		t.Errorf("s1 m1.small = %f, want %f", got, want)
	}
	if got, want := first.Servers["s2"].Total["m1.large"], 7.0; got != want {
		t.Errorf("s2 m1.large = %f, want %f", got, want)
	}

	// Merging must not alias the source tree.
	s2.Total.Add("m1.large", 100)
	if first.Servers["s2"].Total["m1.large"] != 7 {
		t.Error("merge aliased the source report")
	}
}
