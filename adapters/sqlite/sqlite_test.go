package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/adapters/idgen"
	"github.com/cloudbill/cloudbill/adapters/sqlite"
	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestUsageStore(t *testing.T) {
	db := openTestDB(t)
	store := sqlite.NewUsageStore(db, idgen.NewSequential("iv"))
	ctx := context.Background()

	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	window := usage.Window{Begin: jan1, End: jan2}

	err := store.RecordIntervals(ctx, []usage.Interval{
		{InstanceID: "s1", InstanceName: "web-1", FlavorID: "f1", FlavorName: "m1.small",
			UserID: "alice", Status: usage.StatusActive, Begin: dec, End: &jan1},
		{InstanceID: "s1", InstanceName: "web-1", FlavorID: "f1", FlavorName: "m1.small",
			UserID: "alice", Status: usage.StatusShutoff, Begin: jan1},
		{InstanceID: "s2", InstanceName: "web-2", FlavorID: "f1", FlavorName: "m1.small",
			UserID: "alice", Status: usage.StatusActive, Begin: jan2},
	})
	if err != nil {
		t.Fatalf("RecordIntervals() error = %v", err)
	}

	t.Run("server intervals filtered by window", func(t *testing.T) {
		// The dec->jan1 interval ends exactly at the window begin and the
		// s2 interval starts at the window end; neither overlaps.
		intervals, err := store.ServerIntervals(ctx, "s1", window)
		if err != nil {
			t.Fatalf("ServerIntervals() error = %v", err)
		}
		if len(intervals) != 1 {
			t.Fatalf("len(intervals) = %d, want 1", len(intervals))
		}
		iv := intervals[0]
		if iv.Status != usage.StatusShutoff || !iv.Begin.Equal(jan1) || iv.End != nil {
			t.Errorf("unexpected interval %+v", iv)
		}
	})

	t.Run("user intervals ordered", func(t *testing.T) {
		wide := usage.Window{Begin: dec, End: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
		intervals, err := store.UserIntervals(ctx, "alice", wide)
		if err != nil {
			t.Fatalf("UserIntervals() error = %v", err)
		}
		if len(intervals) != 3 {
			t.Fatalf("len(intervals) = %d, want 3", len(intervals))
		}
		for i := 1; i < len(intervals); i++ {
			prev, cur := intervals[i-1], intervals[i]
			if prev.InstanceID > cur.InstanceID {
				t.Errorf("intervals not ordered by instance: %s before %s", prev.InstanceID, cur.InstanceID)
			}
			if prev.InstanceID == cur.InstanceID && prev.Begin.After(cur.Begin) {
				t.Error("intervals not ordered by begin within instance")
			}
		}
	})

	t.Run("server owner", func(t *testing.T) {
		owner, err := store.ServerOwner(ctx, "s1")
		if err != nil {
			t.Fatalf("ServerOwner() error = %v", err)
		}
		if owner != "alice" {
			t.Errorf("owner = %q, want alice", owner)
		}

		_, err = store.ServerOwner(ctx, "no-such")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestPriceStore(t *testing.T) {
	db := openTestDB(t)
	store := sqlite.NewPriceStore(db, idgen.NewSequential("pr"))
	ctx := context.Background()

	jun := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	jan15 := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	for _, p := range []pricing.Price{
		{FlavorName: "m1.small", Class: 1, PerYear: 1752, ValidFrom: jan15},
		{FlavorName: "m1.small", Class: 1, PerYear: 876, ValidFrom: jun},
		{FlavorName: "m1.large", Class: 2, PerYear: 3504, ValidFrom: jun},
	} {
		if err := store.SetPrice(ctx, p); err != nil {
			t.Fatalf("SetPrice() error = %v", err)
		}
	}

	t.Run("catalog deduplicates flavors", func(t *testing.T) {
		flavors, err := store.FlavorCatalog(ctx)
		if err != nil {
			t.Fatalf("FlavorCatalog() error = %v", err)
		}
		if len(flavors) != 2 {
			t.Fatalf("len(flavors) = %d, want 2", len(flavors))
		}
		if flavors[0].Name != "m1.large" || flavors[1].Name != "m1.small" {
			t.Errorf("flavors = %v, want m1.large then m1.small", flavors)
		}
		if flavors[0].ID == "" || flavors[1].ID == "" {
			t.Error("flavor IDs not assigned")
		}
	})

	t.Run("list ascending", func(t *testing.T) {
		records, err := store.ListPrices(ctx)
		if err != nil {
			t.Fatalf("ListPrices() error = %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("len(records) = %d, want 3", len(records))
		}
		for i := 1; i < len(records); i++ {
			if records[i-1].ValidFrom.After(records[i].ValidFrom) {
				t.Error("records not in ascending start order")
			}
		}
	})

	t.Run("overlapping excludes later records", func(t *testing.T) {
		w := usage.Window{
			Begin: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		}
		records, err := store.PricesOverlapping(ctx, w)
		if err != nil {
			t.Fatalf("PricesOverlapping() error = %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2 (jan15 record excluded)", len(records))
		}
		for _, rec := range records {
			if !rec.ValidFrom.Before(w.End) {
				t.Errorf("record %+v starts at or after the window end", rec)
			}
		}
	})

	t.Run("same flavor reuses catalog entry", func(t *testing.T) {
		records, err := store.ListPrices(ctx)
		if err != nil {
			t.Fatalf("ListPrices() error = %v", err)
		}
		var smallIDs []string
		for _, rec := range records {
			if rec.FlavorName == "m1.small" {
				smallIDs = append(smallIDs, rec.FlavorID)
			}
		}
		if len(smallIDs) != 2 || smallIDs[0] != smallIDs[1] {
			t.Errorf("m1.small flavor IDs = %v, want two identical", smallIDs)
		}
	})
}

func TestDirectoryStore(t *testing.T) {
	db := openTestDB(t)
	store := sqlite.NewDirectoryStore(db)
	ctx := context.Background()

	mustExec := func(query string, args ...interface{}) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("Exec(%q) error = %v", query, err)
		}
	}
	mustExec(`INSERT INTO projects (id, name, user_class) VALUES ('p1', 'team one', 1)`)
	mustExec(`INSERT INTO projects (id, name, user_class) VALUES ('p2', 'team two', 2)`)
	mustExec(`INSERT INTO users (id, name, project_id, user_class) VALUES ('bob', 'Bob', 'p1', 1)`)
	mustExec(`INSERT INTO users (id, name, project_id, user_class) VALUES ('alice', 'Alice', 'p1', 1)`)

	t.Run("user class", func(t *testing.T) {
		class, err := store.UserClass(ctx, "alice")
		if err != nil {
			t.Fatalf("UserClass() error = %v", err)
		}
		if class != 1 {
			t.Errorf("class = %d, want 1", class)
		}

		_, err = store.UserClass(ctx, "mallory")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("project class", func(t *testing.T) {
		class, err := store.ProjectClass(ctx, "p2")
		if err != nil {
			t.Fatalf("ProjectClass() error = %v", err)
		}
		if class != 2 {
			t.Errorf("class = %d, want 2", class)
		}

		_, err = store.ProjectClass(ctx, "no-such")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("project users", func(t *testing.T) {
		members, err := store.ProjectUsers(ctx, "p1")
		if err != nil {
			t.Fatalf("ProjectUsers() error = %v", err)
		}
		if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
			t.Errorf("members = %v, want [alice bob]", members)
		}

		empty, err := store.ProjectUsers(ctx, "p2")
		if err != nil {
			t.Fatalf("ProjectUsers(p2) error = %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("members = %v, want empty", empty)
		}

		_, err = store.ProjectUsers(ctx, "no-such")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("projects", func(t *testing.T) {
		ids, err := store.Projects(ctx)
		if err != nil {
			t.Fatalf("Projects() error = %v", err)
		}
		if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
			t.Errorf("ids = %v, want [p1 p2]", ids)
		}
	})
}
