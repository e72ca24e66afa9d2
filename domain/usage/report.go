package usage

// Report is the consumption result tree. One recursive type covers every
// scope level: a server report carries only Total, a user report fills
// Servers, a project report fills Users, and a cloud-wide report fills
// Projects. A parent's Total is always the elementwise sum of its children.
type Report struct {
	Total    Flavors            `json:"total"`
	Servers  map[string]*Report `json:"servers,omitempty"`
	Users    map[string]*Report `json:"users,omitempty"`
	Projects map[string]*Report `json:"projects,omitempty"`
}

// NewReport returns an empty report with an initialized total map.
func NewReport() *Report {
	return &Report{Total: make(Flavors)}
}

// AddServer attaches a server-level child and folds it into the total.
func (r *Report) AddServer(instanceID string, child *Report) {
	if r.Servers == nil {
		r.Servers = make(map[string]*Report)
	}
	r.Servers[instanceID] = child
	r.Total.Merge(child.Total)
}

// AddUser attaches a user-level child and folds it into the total.
func (r *Report) AddUser(userID string, child *Report) {
	if r.Users == nil {
		r.Users = make(map[string]*Report)
	}
	r.Users[userID] = child
	r.Total.Merge(child.Total)
}

// AddProject attaches a project-level child and folds it into the total.
func (r *Report) AddProject(projectID string, child *Report) {
	if r.Projects == nil {
		r.Projects = make(map[string]*Report)
	}
	r.Projects[projectID] = child
	r.Total.Merge(child.Total)
}

// Merge folds another report of the same shape into r, summing totals and
// merging children recursively. Used to accumulate one report per price
// period into a whole-window result.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Total.Merge(other.Total)
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
