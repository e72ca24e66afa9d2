// Package cost provides the cost result tree and pricing arithmetic.
// All functions are pure - no side effects.
package cost

import "github.com/cloudbill/cloudbill/domain/pricing"

// SecondsPerYear converts yearly rates to per-second contributions.
const SecondsPerYear = 365 * 24 * 3600

// Report is the cost result tree. It mirrors the consumption tree shape but
// carries currency amounts, and every level keeps a per-flavor breakdown
// next to the running total and nested children.
type Report struct {
	Total    float64            `json:"total"`
	Flavors  map[string]float64 `json:"flavors"`
	Servers  map[string]*Report `json:"servers,omitempty"`
	Users    map[string]*Report `json:"users,omitempty"`
	Projects map[string]*Report `json:"projects,omitempty"`
}

// NewReport returns an empty report with an initialized flavor map.
func NewReport() *Report {
	return &Report{Flavors: make(map[string]float64)}
}

// Charge prices consumed seconds of one flavor at a yearly rate and folds
// the contribution into the report. The per-flavor entry always accumulates,
// even a zero or negative contribution, so priced-but-idle flavors stay
// visible; the total only takes positive contributions.
func (r *Report) Charge(flavor string, seconds float64, rates pricing.Snapshot, class pricing.Class) {
	contribution := seconds * rates.Rate(class, flavor) / SecondsPerYear
	r.Flavors[flavor] += contribution
	if contribution > 0 {
		r.Total += contribution
	}
}

// AddServer attaches a server-level child and folds it into the totals.
func (r *Report) AddServer(instanceID string, child *Report) {
	if r.Servers == nil {
		r.Servers = make(map[string]*Report)
	}
	r.Servers[instanceID] = child
	r.fold(child)
}

// AddUser attaches a user-level child and folds it into the totals.
func (r *Report) AddUser(userID string, child *Report) {
	if r.Users == nil {
		r.Users = make(map[string]*Report)
	}
	r.Users[userID] = child
	r.fold(child)
}

// AddProject attaches a project-level child and folds it into the totals.
func (r *Report) AddProject(projectID string, child *Report) {
	if r.Projects == nil {
		r.Projects = make(map[string]*Report)
	}
	r.Projects[projectID] = child
	r.fold(child)
}

func (r *Report) fold(child *Report) {
	r.Total += child.Total
	for flavor, amount := range child.Flavors {
		r.Flavors[flavor] += amount
	}
}

// Merge folds another report of the same shape into r, summing totals and
// per-flavor amounts and merging children recursively. Used to accumulate
// one report per price period into a whole-window result.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Total += other.Total
	for flavor, amount := range other.Flavors {
		r.Flavors[flavor] += amount
	}
	r.Servers = mergeChildren(r.Servers, other.Servers)
	r.Users = mergeChildren(r.Users, other.Users)
	r.Projects = mergeChildren(r.Projects, other.Projects)
}

func mergeChildren(dst, src map[string]*Report) map[string]*Report {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]*Report, len(src))
	}
	for id, child := range src {
		if existing, ok := dst[id]; ok {
			existing.Merge(child)
		} else {
			copied := NewReport()
			copied.Merge(child)
			dst[id] = copied
		}
	}
	return dst
}
