// Package app orchestrates the domain engines over the store ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cloudbill/cloudbill/adapters/metrics"
	"github.com/cloudbill/cloudbill/domain/cost"
	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/domain/scope"
	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

// DefaultWorkers bounds the per-child fan-out when no limit is configured.
const DefaultWorkers = 8

// Reporter computes consumption and cost reports for a scope and window.
// It is safe for concurrent use; all state lives in the stores.
type Reporter struct {
	usage     ports.UsageStore
	prices    ports.PriceStore
	directory ports.Directory
	metrics   *metrics.Collector
	log       zerolog.Logger
	workers   int
}

// ReporterDeps contains dependencies for the reporter.
type ReporterDeps struct {
	Usage     ports.UsageStore
	Prices    ports.PriceStore
	Directory ports.Directory
	Metrics   *metrics.Collector // optional
	Logger    zerolog.Logger
	Workers   int // fan-out limit, DefaultWorkers if <= 0
}

// NewReporter creates a reporter.
func NewReporter(deps ReporterDeps) *Reporter {
	workers := deps.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Reporter{
		usage:     deps.Usage,
		prices:    deps.Prices,
		directory: deps.Directory,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		workers:   workers,
	}
}

// node is the gathered interval tree for one scope. Server nodes carry the
// instance timeline; higher levels carry children keyed by child ID.
type node struct {
	id        string
	level     scope.Level
	owner     string
	intervals []usage.Interval
	children  map[string]*node
}

// Consumption returns billable seconds per flavor for the scope and window,
// as a full tree down to server level. A scope with zero intervals yields an
// all-zero report; a dangling user or project identifier yields
// ports.ErrNotFound.
func (r *Reporter) Consumption(ctx context.Context, s scope.Scope, w usage.Window) (*usage.Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	root, err := r.gather(ctx, s, w)
	if err != nil {
		return nil, err
	}
	return consumeNode(root, w), nil
}

// Cost prices the scope's consumption over the window. The price schedule is
// built once; consumption is re-aggregated per price period and each
// period's contribution folded into one report. At the cloud-wide level a
// project whose billing class cannot be resolved is skipped with a warning
// instead of aborting its siblings.
func (r *Reporter) Cost(ctx context.Context, s scope.Scope, w usage.Window) (*cost.Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	root, err := r.gather(ctx, s, w)
	if err != nil {
		return nil, err
	}

	flavors, err := r.prices.FlavorCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("flavor catalog: %w", err)
	}
	records, err := r.prices.PricesOverlapping(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("price records: %w", err)
	}
	schedule, err := pricing.BuildSchedule(w, flavors, records)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.PricePeriods.Observe(float64(len(schedule.Periods)))
	}

	classes, err := r.resolveClasses(ctx, s, root)
	if err != nil {
		return nil, err
	}

	total := cost.NewReport()
	for i, period := range schedule.Periods {
		pw := usage.Window{Begin: period.Start, End: schedule.End(i)}
		total.Merge(chargeNode(root, pw, period.Rates, classes))
	}
	return total, nil
}

// classTable maps tree nodes to the billing class that prices them. For
// server, user, and project scopes one class covers the whole tree; for the
// cloud-wide scope each project subtree has its own.
type classTable struct {
	root       pricing.Class
	perProject map[string]pricing.Class
}

func (t classTable) forProject(projectID string) (pricing.Class, bool) {
	if t.perProject == nil {
		return t.root, true
	}
	c, ok := t.perProject[projectID]
	return c, ok
}

func (r *Reporter) resolveClasses(ctx context.Context, s scope.Scope, root *node) (classTable, error) {
	switch s.Level {
	case scope.LevelServer:
		owner := root.owner
		if owner == "" {
			var err error
			owner, err = r.usage.ServerOwner(ctx, s.ID)
			if err != nil {
				return classTable{}, fmt.Errorf("server %s owner: %w", s.ID, err)
			}
		}
		class, err := r.directory.UserClass(ctx, owner)
		if err != nil {
			return classTable{}, fmt.Errorf("user %s class: %w", owner, err)
		}
		return classTable{root: class}, nil

	case scope.LevelUser:
		class, err := r.directory.UserClass(ctx, s.ID)
		if err != nil {
			return classTable{}, fmt.Errorf("user %s class: %w", s.ID, err)
		}
		return classTable{root: class}, nil

	case scope.LevelProject:
		class, err := r.directory.ProjectClass(ctx, s.ID)
		if err != nil {
			return classTable{}, fmt.Errorf("project %s class: %w", s.ID, err)
		}
		return classTable{root: class}, nil

	case scope.LevelAll:
		table := classTable{perProject: make(map[string]pricing.Class, len(root.children))}
		for projectID := range root.children {
			class, err := r.directory.ProjectClass(ctx, projectID)
			if err != nil {
				if errors.Is(err, ports.ErrNotFound) {
					r.log.Warn().Str("project", projectID).Msg("billing class unresolved, skipping project")
					continue
				}
				return classTable{}, fmt.Errorf("project %s class: %w", projectID, err)
			}
			table.perProject[projectID] = class
		}
		return table, nil
	}
	return classTable{}, usage.ValidationError{Field: "scope", Reason: "unsupported level"}
}

// gather reads the interval tree for a scope. User and project fan-outs run
// concurrently, bounded by the worker limit; any child failure cancels the
// rest through the group context.
func (r *Reporter) gather(ctx context.Context, s scope.Scope, w usage.Window) (*node, error) {
	switch s.Level {
	case scope.LevelServer:
		intervals, err := r.usage.ServerIntervals(ctx, s.ID, w)
		if err != nil {
			return nil, fmt.Errorf("server %s intervals: %w", s.ID, err)
		}
		n := &node{id: s.ID, level: scope.LevelServer, intervals: intervals}
		if len(intervals) > 0 {
			n.owner = intervals[0].UserID
		}
		return n, nil

	case scope.LevelUser:
		if _, err := r.directory.UserClass(ctx, s.ID); err != nil {
			return nil, fmt.Errorf("user %s: %w", s.ID, err)
		}
		intervals, err := r.usage.UserIntervals(ctx, s.ID, w)
		if err != nil {
			return nil, fmt.Errorf("user %s intervals: %w", s.ID, err)
		}
		n := &node{id: s.ID, level: scope.LevelUser, children: make(map[string]*node)}
		for instanceID, timeline := range usage.GroupByInstance(intervals) {
			child := &node{id: instanceID, level: scope.LevelServer, intervals: timeline, owner: s.ID}
			n.children[instanceID] = child
		}
		return n, nil

	case scope.LevelProject:
		users, err := r.directory.ProjectUsers(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("project %s users: %w", s.ID, err)
		}
		return r.gatherChildren(ctx, s.ID, scope.LevelProject, users, scope.User, w)

	case scope.LevelAll:
		projects, err := r.directory.Projects(ctx)
		if err != nil {
			return nil, fmt.Errorf("projects: %w", err)
		}
		return r.gatherChildren(ctx, "", scope.LevelAll, projects, scope.Project, w)
	}
	return nil, usage.ValidationError{Field: "scope", Reason: "unsupported level"}
}

func (r *Reporter) gatherChildren(ctx context.Context, id string, level scope.Level, childIDs []string, child func(string) scope.Scope, w usage.Window) (*node, error) {
	n := &node{id: id, level: level, children: make(map[string]*node, len(childIDs))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	var mu sync.Mutex

	for _, childID := range childIDs {
		childID := childID
		g.Go(func() error {
			sub, err := r.gather(ctx, child(childID), w)
			if err != nil {
				return err
			}
			mu.Lock()
			n.children[childID] = sub
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return n, nil
}

// consumeNode turns a gathered tree into a consumption report for a window.
func consumeNode(n *node, w usage.Window) *usage.Report {
	rep := usage.NewReport()
	switch n.level {
	case scope.LevelServer:
		rep.Total = usage.Consume(n.intervals, w)
	case scope.LevelUser:
		for instanceID, child := range n.children {
			rep.AddServer(instanceID, consumeNode(child, w))
		}
	case scope.LevelProject:
		for userID, child := range n.children {
			rep.AddUser(userID, consumeNode(child, w))
		}
	case scope.LevelAll:
		for projectID, child := range n.children {
			rep.AddProject(projectID, consumeNode(child, w))
		}
	}
	return rep
}

// chargeNode prices a gathered tree for one price period.
func chargeNode(n *node, w usage.Window, rates pricing.Snapshot, classes classTable) *cost.Report {
	rep := cost.NewReport()
	switch n.level {
	case scope.LevelServer:
		for flavor, seconds := range usage.Consume(n.intervals, w) {
			rep.Charge(flavor, seconds, rates, classes.root)
		}
	case scope.LevelUser:
		for instanceID, child := range n.children {
			rep.AddServer(instanceID, chargeNode(child, w, rates, classes))
		}
	case scope.LevelProject:
		for userID, child := range n.children {
			rep.AddUser(userID, chargeNode(child, w, rates, classes))
		}
	case scope.LevelAll:
		for projectID, child := range n.children {
			class, ok := classes.forProject(projectID)
			if !ok {
				continue
			}
			rep.AddProject(projectID, chargeNode(child, w, rates, classTable{root: class}))
		}
	}
	return rep
}
