// Package postgres provides a PostgreSQL-backed implementation of the
// compliance storage interfaces using a pgx connection pool.
//
// The schema and queries mirror store/sqlite; only placeholders ($n) and
// column types differ. The pool is safe for concurrent use, so unlike the
// SQLite store no process-level lock is taken.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warp/compliance-dashboard/compliance"
)

// Store implements compliance.Store and compliance.Loader on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
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
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_records_diris_esquema
		ON cumplimiento_records(dd_nombre, esquema_actual);
	CREATE INDEX IF NOT EXISTS idx_records_tipo_diris
		ON cumplimiento_records(tipo_esquema, dd_nombre);
	CREATE INDEX IF NOT EXISTS idx_records_esquema
		ON cumplimiento_records(esquema_actual);
	`)
	return err
}

var columns = map[compliance.Dimension]string{
	compliance.DimRegion:     "dd_nombre",
	compliance.DimScheme:     "esquema_actual",
	compliance.DimSchemeType: "tipo_esquema",
	compliance.DimCondition:  "condicion",
}

const recordColumns = `id, dd_nombre, ee_nombre, esquema_actual, anio_esquema_actual, segmento,
	paciente_id, condicion, cumplimiento, tipo_esquema, created_at`

func (s *Store) Count(ctx context.Context, f compliance.Filter) (int, error) {
	where, args := whereClause(f)
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cumplimiento_records"+where, args...).Scan(&n); err != nil {
		return 0, storeErr("count records", err)
	}
	return int(n), nil
}

func (s *Store) CountBy(ctx context.Context, f compliance.Filter, d compliance.Dimension) ([]compliance.GroupCount, error) {
	col, ok := columns[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", compliance.ErrUnknownDimension, d)
	}

	where, args := whereClause(f)
	query := fmt.Sprintf("SELECT %[1]s, COUNT(*) FROM cumplimiento_records%[2]s GROUP BY %[1]s", col, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("group records by "+string(d), err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (compliance.GroupCount, error) {
		var (
			g compliance.GroupCount
			n int64
		)
		err := row.Scan(&g.Key, &n)
		g.Count = int(n)
		return g, err
	})
	if err != nil {
		return nil, storeErr("group records by "+string(d), err)
	}
	return result, nil
}

func (s *Store) CountByRegionAndType(ctx context.Context, f compliance.Filter) ([]compliance.RegionTypeCount, error) {
	where, args := whereClause(f)
	rows, err := s.pool.Query(ctx, `
		SELECT dd_nombre, tipo_esquema, COUNT(*)
		FROM cumplimiento_records`+where+`
		GROUP BY dd_nombre, tipo_esquema
		ORDER BY dd_nombre ASC, tipo_esquema ASC`, args...)
	if err != nil {
		return nil, storeErr("group records by region and scheme type", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (compliance.RegionTypeCount, error) {
		var (
			c          compliance.RegionTypeCount
			schemeType string
			n          int64
		)
		err := row.Scan(&c.Region, &schemeType, &n)
		c.SchemeType = compliance.SchemeType(schemeType)
		c.Count = int(n)
		return c, err
	})
	if err != nil {
		return nil, storeErr("group records by region and scheme type", err)
	}
	return result, nil
}

func (s *Store) List(ctx context.Context, f compliance.Filter) ([]compliance.Record, error) {
	where, args := whereClause(f)
	rows, err := s.pool.Query(ctx, "SELECT "+recordColumns+" FROM cumplimiento_records"+where+
		" ORDER BY dd_nombre ASC, esquema_actual ASC", args...)
	if err != nil {
		return nil, storeErr("list records", err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, storeErr("list records", err)
	}
	return records, nil
}

func (s *Store) Distinct(ctx context.Context, d compliance.Dimension) ([]string, error) {
	col, ok := columns[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", compliance.ErrUnknownDimension, d)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT DISTINCT %[1]s FROM cumplimiento_records ORDER BY %[1]s ASC", col))
	if err != nil {
		return nil, storeErr("distinct "+string(d), err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storeErr("distinct "+string(d), err)
	}
	return values, nil
}

func scanRecord(row pgx.CollectableRow) (compliance.Record, error) {
	var (
		r          compliance.Record
		year       int32
		schemeType string
	)
	err := row.Scan(
		&r.ID, &r.Region, &r.Facility, &r.Scheme, &year, &r.Segment,
		&r.PatientID, &r.Condition, &r.Compliance, &schemeType, &r.CreatedAt,
	)
	r.SchemeYear = int(year)
	r.SchemeType = compliance.SchemeType(schemeType)
	return r, err
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM cumplimiento_records"); err != nil {
		return storeErr("clear records", err)
	}
	return nil
}

// InsertBatch writes records in one transaction using a pgx batch.
func (s *Store) InsertBatch(ctx context.Context, records []compliance.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("begin batch", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		batch.Queue(`INSERT INTO cumplimiento_records (`+recordColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			r.ID, r.Region, r.Facility, r.Scheme, int32(r.SchemeYear), r.Segment,
			r.PatientID, r.Condition, r.Compliance, string(r.SchemeType), createdAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return storeErr("insert batch", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit batch", err)
	}
	return nil
}

func whereClause(f compliance.Filter) (string, []any) {
	cs := f.Constraints()
	if len(cs) == 0 {
		return "", nil
	}

	preds := make([]string, 0, len(cs))
	args := make([]any, 0, len(cs))
	for i, c := range cs {
		preds = append(preds, columns[c.Dimension]+" = $"+strconv.Itoa(i+1))
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", compliance.ErrStore, op, err)
}
