package sqlite

import (
	"context"
	"database/sql"

	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

// UsageStore implements ports.UsageStore using SQLite.
type UsageStore struct {
	db    *DB
	idgen ports.IDGenerator
}

// NewUsageStore creates a new SQLite usage store.
func NewUsageStore(db *DB, idgen ports.IDGenerator) *UsageStore {
	return &UsageStore{db: db, idgen: idgen}
}

const intervalColumns = `instance_id, instance_name, flavor_id, flavor_name, user_id, status, begin_at, end_at`

// ServerIntervals returns the state timeline of one instance inside the window.
func (s *UsageStore) ServerIntervals(ctx context.Context, instanceID string, w usage.Window) ([]usage.Interval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+intervalColumns+`
		FROM server_states
		WHERE instance_id = ?
		  AND begin_at < ?
		  AND (end_at IS NULL OR end_at > ?)
		ORDER BY begin_at
	`, instanceID, w.End.UTC(), w.Begin.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIntervals(rows)
}

// UserIntervals returns the state timelines of every instance owned by the
// user inside the window, ordered by instance and begin time.
func (s *UsageStore) UserIntervals(ctx context.Context, userID string, w usage.Window) ([]usage.Interval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+intervalColumns+`
		FROM server_states
		WHERE user_id = ?
		  AND begin_at < ?
		  AND (end_at IS NULL OR end_at > ?)
		ORDER BY instance_id, begin_at
	`, userID, w.End.UTC(), w.Begin.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIntervals(rows)
}

// ServerOwner returns the owning user of an instance.
func (s *UsageStore) ServerOwner(ctx context.Context, instanceID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM server_states
		WHERE instance_id = ?
		ORDER BY begin_at
		LIMIT 1
	`, instanceID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return owner, nil
}

// RecordIntervals appends collected state intervals.
func (s *UsageStore) RecordIntervals(ctx context.Context, intervals []usage.Interval) error {
	if len(intervals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO server_states (
			id, instance_id, instance_name, flavor_id, flavor_name,
			user_id, status, begin_at, end_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, iv := range intervals {
		// Store timestamps in UTC for consistent querying
		var end interface{}
		if iv.End != nil {
			end = iv.End.UTC()
		}
		_, err := stmt.ExecContext(ctx,
			s.idgen.New(), iv.InstanceID, iv.InstanceName, iv.FlavorID, iv.FlavorName,
			iv.UserID, string(iv.Status), iv.Begin.UTC(), end,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanIntervals(rows *sql.Rows) ([]usage.Interval, error) {
	var intervals []usage.Interval
	for rows.Next() {
		var iv usage.Interval
		var status string
		var end sql.NullTime
		err := rows.Scan(
			&iv.InstanceID, &iv.InstanceName, &iv.FlavorID, &iv.FlavorName,
			&iv.UserID, &status, &iv.Begin, &end,
		)
		if err != nil {
			return nil, err
		}
		iv.Status = usage.Status(status)
		if end.Valid {
			t := end.Time
			iv.End = &t
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
