/*
store.go - Persistence interfaces for compliance records

PURPOSE:
  Defines the boundary between the query services and the relational store.
  The store is assumed to filter and group natively; the services only
  reshape what it returns.

KEY INTERFACES:
  Store:  Read side used by the dashboard (counts, groupings, listings)
  Loader: Write side used only by the seed job (clear, batch insert)

READ-ONLY CONTRACT:
  The dashboard holds a Store, never a Loader. Records are replaced as a
  whole by the seed job; there is no update or single-record delete.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:     SQLite (default)
  - store/postgres/postgres.go: PostgreSQL via pgx
  - compliance/store/memory.go: In-memory for tests
*/
package compliance

import "context"

// Store is the read side of the records table.
type Store interface {
	// Count returns the number of records matching f.
	Count(ctx context.Context, f Filter) (int, error)

	// CountBy groups the records matching f by one dimension.
	// Order of the result is unspecified.
	CountBy(ctx context.Context, f Filter, d Dimension) ([]GroupCount, error)

	// CountByRegionAndType groups the records matching f by region and
	// scheme type in a single pass.
	CountByRegionAndType(ctx context.Context, f Filter) ([]RegionTypeCount, error)

	// List returns every record matching f ordered by region, then scheme.
	List(ctx context.Context, f Filter) ([]Record, error)

	// Distinct returns the distinct values of d across the whole table,
	// sorted ascending.
	Distinct(ctx context.Context, d Dimension) ([]string, error)
}

// Loader is the write side used by the seed job.
type Loader interface {
	// Clear removes every record.
	Clear(ctx context.Context) error

	// InsertBatch writes records atomically: all or none.
	InsertBatch(ctx context.Context, records []Record) error
}
