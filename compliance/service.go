/*
service.go - Query services behind the dashboard endpoints

PURPOSE:
  FilterOptions, Records and Stats are stateless: every call takes the
  request's Filter and goes to the store. Nothing is cached between calls.

FAN-OUT:
  Stats needs six independent reads (total, four single-column groupings,
  one region × scheme-type grouping) and FilterOptions three distinct
  projections. They run concurrently in an errgroup; the first failure
  cancels the rest and the call fails as a whole.

SNAPSHOTS:
  Sub-queries of one Stats call may observe different snapshots if the
  table is written concurrently. The table is only written by the seed job,
  so this is accepted.

SEE ALSO:
  - stats.go: Sorting and per-scheme-type partitioning
  - api/handlers.go: HTTP endpoints
*/
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warp/compliance-dashboard/metrics"
	"golang.org/x/sync/errgroup"
)

// Service answers the dashboard's read queries.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables query metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service reading from store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// FILTER OPTIONS
// =============================================================================

// FilterOptions returns the distinct regions, schemes and scheme types of the
// whole table. It ignores any current filter selection.
func (s *Service) FilterOptions(ctx context.Context) (opts *FilterOptions, err error) {
	defer s.observe(ctx, "filter_options", time.Now(), &err)

	g, ctx := errgroup.WithContext(ctx)
	result := &FilterOptions{}

	g.Go(func() error {
		values, err := s.store.Distinct(ctx, DimRegion)
		result.Diris = values
		return err
	})
	g.Go(func() error {
		values, err := s.store.Distinct(ctx, DimScheme)
		result.Esquemas = values
		return err
	})
	g.Go(func() error {
		values, err := s.store.Distinct(ctx, DimSchemeType)
		result.Tipos = values
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("filter options: %w", err)
	}

	result.Diris = nonNil(result.Diris)
	result.Esquemas = nonNil(result.Esquemas)
	result.Tipos = nonNil(result.Tipos)
	return result, nil
}

// =============================================================================
// RECORDS
// =============================================================================

// Records returns every record matching f, ordered by region then scheme.
func (s *Service) Records(ctx context.Context, f Filter) (records []Record, err error) {
	defer s.observe(ctx, "records", time.Now(), &err)

	records, err = s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	s.metrics.AddRecordsServed(len(records))
	return records, nil
}

// =============================================================================
// STATS
// =============================================================================

// Stats computes the total and the grouped breakdowns of the records
// matching f.
func (s *Service) Stats(ctx context.Context, f Filter) (stats *Stats, err error) {
	defer s.observe(ctx, "stats", time.Now(), &err)

	g, ctx := errgroup.WithContext(ctx)

	var (
		total                              int
		byRegion, byScheme, byType, byCond []GroupCount
		byRegionType                       []RegionTypeCount
	)

	g.Go(func() error {
		var err error
		total, err = s.store.Count(ctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		byRegion, err = s.store.CountBy(ctx, f, DimRegion)
		return err
	})
	g.Go(func() error {
		var err error
		byRegionType, err = s.store.CountByRegionAndType(ctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		byScheme, err = s.store.CountBy(ctx, f, DimScheme)
		return err
	})
	g.Go(func() error {
		var err error
		byType, err = s.store.CountBy(ctx, f, DimSchemeType)
		return err
	})
	g.Go(func() error {
		var err error
		byCond, err = s.store.CountBy(ctx, f, DimCondition)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	return &Stats{
		TotalRecords:      total,
		DirisStats:        toEntries(byRegion),
		DirisStatsBySheet: bySchemeType(byRegionType),
		EsquemaStats:      toEntries(byScheme),
		TipoStats:         toEntries(byType),
		CondicionStats:    toEntries(byCond),
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	s.metrics.ObserveQuery(op, start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "compliance query failed",
			"operation", op,
			"duration", time.Since(start),
			"error", err,
		)
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
