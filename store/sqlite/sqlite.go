/*
Package sqlite provides a SQLite-backed implementation of the compliance
storage interfaces.

PURPOSE:
  Holds the cumplimiento_records table and answers the dashboard's filtered
  counts, groupings and listings with plain SQL. Grouping happens in the
  database; callers only reshape the rows.

INTERFACES IMPLEMENTED:
  compliance.Store:  Read side (Count, CountBy, CountByRegionAndType, List, Distinct)
  compliance.Loader: Seed side (Clear, InsertBatch)

KEY TABLE:
  cumplimiento_records: one row per non-compliant patient/scheme pairing.
  dd_nombre, esquema_actual and tipo_esquema are NOT NULL because they are
  group-by keys; segmento may be NULL.

INDEXES:
  - idx_records_diris_esquema: listing order and region filter
  - idx_records_tipo_diris:    per-scheme-type breakdown
  - idx_records_esquema:       scheme filter

FILTERS:
  Only the active constraints of a compliance.Filter become predicates.
  Column names come from a fixed dimension map, never from user input.

CONCURRENCY:
  Uses sync.RWMutex so concurrent dashboard reads never interleave with a
  reseed. An in-memory database is pinned to a single connection, since
  every new connection to ":memory:" would open an empty database.

USAGE:
  store, err := sqlite.New("./data/cumplimiento.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := compliance.NewService(store)

SEE ALSO:
  - compliance/store.go: Interface definitions
  - store/postgres/postgres.go: PostgreSQL implementation
  - compliance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/compliance-dashboard/compliance"
)

// Store implements the compliance storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cumplimiento_records (
		id TEXT PRIMARY KEY,
		dd_nombre TEXT NOT NULL,
		ee_nombre TEXT NOT NULL,
		esquema_actual TEXT NOT NULL,
		anio_esquema_actual INTEGER NOT NULL,
		segmento TEXT,
		paciente_id TEXT NOT NULL,
		condicion TEXT NOT NULL,
		cumplimiento TEXT NOT NULL,
		tipo_esquema TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_diris_esquema
		ON cumplimiento_records(dd_nombre, esquema_actual);
	CREATE INDEX IF NOT EXISTS idx_records_tipo_diris
		ON cumplimiento_records(tipo_esquema, dd_nombre);
	CREATE INDEX IF NOT EXISTS idx_records_esquema
		ON cumplimiento_records(esquema_actual);
	`

	_, err := s.db.Exec(schema)
	return err
}

// columns maps each dimension to its column. Anything else is rejected.
var columns = map[compliance.Dimension]string{
	compliance.DimRegion:     "dd_nombre",
	compliance.DimScheme:     "esquema_actual",
	compliance.DimSchemeType: "tipo_esquema",
	compliance.DimCondition:  "condicion",
}

const recordColumns = `id, dd_nombre, ee_nombre, esquema_actual, anio_esquema_actual, segmento,
	paciente_id, condicion, cumplimiento, tipo_esquema, created_at`

// =============================================================================
// READ SIDE (compliance.Store interface)
// =============================================================================

// Count returns the number of records matching f.
func (s *Store) Count(ctx context.Context, f compliance.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := whereClause(f)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cumplimiento_records"+where, args...).Scan(&n)
	if err != nil {
		return 0, storeErr("count records", err)
	}
	return n, nil
}

// CountBy groups the records matching f by one dimension.
func (s *Store) CountBy(ctx context.Context, f compliance.Filter, d compliance.Dimension) ([]compliance.GroupCount, error) {
	col, ok := columns[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", compliance.ErrUnknownDimension, d)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := whereClause(f)
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*)
		FROM cumplimiento_records%[2]s
		GROUP BY %[1]s
	`, col, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("group records by "+string(d), err)
	}
	defer rows.Close()

	result := make([]compliance.GroupCount, 0)
	for rows.Next() {
		var g compliance.GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, storeErr("scan group count", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("group records by "+string(d), err)
	}
	return result, nil
}

// CountByRegionAndType groups the records matching f by region and scheme type.
func (s *Store) CountByRegionAndType(ctx context.Context, f compliance.Filter) ([]compliance.RegionTypeCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := whereClause(f)
	query := `
		SELECT dd_nombre, tipo_esquema, COUNT(*)
		FROM cumplimiento_records` + where + `
		GROUP BY dd_nombre, tipo_esquema
		ORDER BY dd_nombre ASC, tipo_esquema ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("group records by region and scheme type", err)
	}
	defer rows.Close()

	result := make([]compliance.RegionTypeCount, 0)
	for rows.Next() {
		var c compliance.RegionTypeCount
		if err := rows.Scan(&c.Region, &c.SchemeType, &c.Count); err != nil {
			return nil, storeErr("scan region/scheme type count", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("group records by region and scheme type", err)
	}
	return result, nil
}

// List returns every record matching f ordered by region, then scheme.
func (s *Store) List(ctx context.Context, f compliance.Filter) ([]compliance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := whereClause(f)
	query := "SELECT " + recordColumns + " FROM cumplimiento_records" + where +
		" ORDER BY dd_nombre ASC, esquema_actual ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list records", err)
	}
	defer rows.Close()

	records := make([]compliance.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list records", err)
	}
	return records, nil
}

// Distinct returns the distinct values of d across the whole table, ascending.
func (s *Store) Distinct(ctx context.Context, d compliance.Dimension) ([]string, error) {
	col, ok := columns[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", compliance.ErrUnknownDimension, d)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM cumplimiento_records ORDER BY %[1]s ASC", col)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("distinct "+string(d), err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storeErr("scan distinct value", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("distinct "+string(d), err)
	}
	return values, nil
}

func scanRecord(rows *sql.Rows) (compliance.Record, error) {
	var (
		r         compliance.Record
		segment   sql.NullString
		createdAt string
	)

	err := rows.Scan(
		&r.ID, &r.Region, &r.Facility, &r.Scheme, &r.SchemeYear, &segment,
		&r.PatientID, &r.Condition, &r.Compliance, &r.SchemeType, &createdAt,
	)
	if err != nil {
		return r, storeErr("scan record", err)
	}

	if segment.Valid {
		v := segment.String
		r.Segment = &v
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

// =============================================================================
// SEED SIDE (compliance.Loader interface)
// =============================================================================

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cumplimiento_records"); err != nil {
		return storeErr("clear records", err)
	}
	return nil
}

// InsertBatch writes records in a single transaction.
func (s *Store) InsertBatch(ctx context.Context, records []compliance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cumplimiento_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storeErr("prepare insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := stmt.ExecContext(ctx,
			r.ID,
			r.Region,
			r.Facility,
			r.Scheme,
			r.SchemeYear,
			nullString(r.Segment),
			r.PatientID,
			r.Condition,
			r.Compliance,
			string(r.SchemeType),
			createdAt.Format(time.RFC3339),
		)
		if err != nil {
			return storeErr("insert record "+r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit batch", err)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// whereClause turns the active constraints of f into a WHERE clause.
// Returns an empty clause when f places no constraint.
func whereClause(f compliance.Filter) (string, []any) {
	cs := f.Constraints()
	if len(cs) == 0 {
		return "", nil
	}

	preds := make([]string, 0, len(cs))
	args := make([]any, 0, len(cs))
	for _, c := range cs {
		preds = append(preds, columns[c.Dimension]+" = ?")
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", compliance.ErrStore, op, err)
}
