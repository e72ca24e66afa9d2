package sqlite

import (
	"context"
	"database/sql"

	"github.com/cloudbill/cloudbill/domain/pricing"
	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

// PriceStore implements ports.PriceStore using SQLite.
type PriceStore struct {
	db    *DB
	idgen ports.IDGenerator
}

// NewPriceStore creates a new SQLite price store.
func NewPriceStore(db *DB, idgen ports.IDGenerator) *PriceStore {
	return &PriceStore{db: db, idgen: idgen}
}

// PricesOverlapping returns every record starting before the window end,
// in ascending start order. Earlier records are needed for the baseline.
func (s *PriceStore) PricesOverlapping(ctx context.Context, w usage.Window) ([]pricing.Price, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flavor_id, flavor_name, user_class, per_year, valid_from
		FROM flavor_prices
		WHERE valid_from < ?
		ORDER BY valid_from
	`, w.End.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPrices(rows)
}

// ListPrices returns all price records in ascending start order.
func (s *PriceStore) ListPrices(ctx context.Context) ([]pricing.Price, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flavor_id, flavor_name, user_class, per_year, valid_from
		FROM flavor_prices
		ORDER BY valid_from
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPrices(rows)
}

// FlavorCatalog returns all known flavors.
func (s *PriceStore) FlavorCatalog(ctx context.Context) ([]pricing.Flavor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM flavors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flavors []pricing.Flavor
	for rows.Next() {
		var f pricing.Flavor
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, err
		}
		flavors = append(flavors, f)
	}
	return flavors, rows.Err()
}

// SetPrice appends a price record and registers the flavor in the catalog
// if it is not known yet.
func (s *PriceStore) SetPrice(ctx context.Context, p pricing.Price) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	flavorID := p.FlavorID
	if flavorID == "" {
		err := tx.QueryRowContext(ctx, `SELECT id FROM flavors WHERE name = ?`, p.FlavorName).Scan(&flavorID)
		if err == sql.ErrNoRows {
			flavorID = s.idgen.New()
		} else if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flavors (id, name) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, flavorID, p.FlavorName)
	if err != nil {
		return err
	}

	id := p.ID
	if id == "" {
		id = s.idgen.New()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO flavor_prices (id, flavor_id, flavor_name, user_class, per_year, valid_from)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, flavorID, p.FlavorName, int(p.Class), p.PerYear, p.ValidFrom.UTC())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func scanPrices(rows *sql.Rows) ([]pricing.Price, error) {
	var records []pricing.Price
	for rows.Next() {
		var p pricing.Price
		var class int
		err := rows.Scan(&p.ID, &p.FlavorID, &p.FlavorName, &class, &p.PerYear, &p.ValidFrom)
		if err != nil {
			return nil, err
		}
		p.Class = pricing.Class(class)
		records = append(records, p)
	}
	return records, rows.Err()
}

// Ensure interface compliance.
var _ ports.PriceStore = (*PriceStore)(nil)
