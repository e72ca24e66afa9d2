package sqlite

import (
	"context"
	"database/sql"

	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/ports"
)

// DirectoryStore implements ports.Directory using SQLite.
type DirectoryStore struct {
	db *DB
}

// NewDirectoryStore creates a new SQLite directory store.
func NewDirectoryStore(db *DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// UserClass returns the billing class of a user.
func (s *DirectoryStore) UserClass(ctx context.Context, userID string) (pricing.Class, error) {
	var class int
	err := s.db.QueryRowContext(ctx, `SELECT user_class FROM users WHERE id = ?`, userID).Scan(&class)
	if err == sql.ErrNoRows {
		return 0, ports.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return pricing.ParseClass(class)
}

// ProjectClass returns the billing class of a project.
func (s *DirectoryStore) ProjectClass(ctx context.Context, projectID string) (pricing.Class, error) {
	var class int
	err := s.db.QueryRowContext(ctx, `SELECT user_class FROM projects WHERE id = ?`, projectID).Scan(&class)
	if err == sql.ErrNoRows {
		return 0, ports.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return pricing.ParseClass(class)
}

// ProjectUsers returns the member users of a project.
func (s *DirectoryStore) ProjectUsers(ctx context.Context, projectID string) ([]string, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// Projects returns all project IDs.
func (s *DirectoryStore) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ensure interface compliance.
var _ ports.Directory = (*DirectoryStore)(nil)
