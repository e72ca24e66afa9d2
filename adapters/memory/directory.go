package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/ports"
)

// User is a directory entry for one user.
type User struct {
	ID      string
	Project string
	Class   pricing.Class
}

// Project is a directory entry for one project.
type Project struct {
	ID    string
	Class pricing.Class
}

// Directory is an in-memory implementation of ports.Directory.
type Directory struct {
	mu       sync.RWMutex
	users    map[string]User
	projects map[string]Project
}

// NewDirectory creates a new in-memory directory.
func NewDirectory() *Directory {
	return &Directory{
		users:    make(map[string]User),
		projects: make(map[string]Project),
	}
}

// AddProject registers a project.
func (d *Directory) AddProject(p Project) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.projects[p.ID] = p
}

// AddUser registers a user.
func (d *Directory) AddUser(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// RemoveProject deletes a project entry, leaving members dangling (for tests).
func (d *Directory) RemoveProject(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.projects, id)
}

// UserClass returns the billing class of a user.
func (d *Directory) UserClass(ctx context.Context, userID string) (pricing.Class, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[userID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return u.Class, nil
}

// ProjectClass returns the billing class of a project.
func (d *Directory) ProjectClass(ctx context.Context, projectID string) (pricing.Class, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.projects[projectID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return p.Class, nil
}

// ProjectUsers returns the member users of a project.
func (d *Directory) ProjectUsers(ctx context.Context, projectID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.projects[projectID]; !ok {
		return nil, ports.ErrNotFound
	}
	var members []string
	for _, u := range d.users {
		if u.Project == projectID {
			members = append(members, u.ID)
		}
	}
	sort.Strings(members)
	return members, nil
}

// Projects returns all project IDs.
func (d *Directory) Projects(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.projects))
	for id := range d.projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ensure interface compliance.
var _ ports.Directory = (*Directory)(nil)
