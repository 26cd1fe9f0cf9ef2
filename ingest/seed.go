package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/compliance-dashboard/compliance"
)

// DefaultBatchSize is the number of records written per transaction.
const DefaultBatchSize = 100

// Seed replaces the whole table with records: it clears the store, then
// inserts in batches of batchSize. It is destructive and not incremental.
// Returns the number of records written.
func Seed(ctx context.Context, loader compliance.Loader, records []compliance.Record, batchSize int, logger *slog.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("clearing existing records")
	if err := loader.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}

	batches := (len(records) + batchSize - 1) / batchSize
	written := 0
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := loader.InsertBatch(ctx, records[i:end]); err != nil {
			return written, fmt.Errorf("insert batch %d/%d: %w", i/batchSize+1, batches, err)
		}
		written += end - i
		logger.Info("imported batch", "batch", fmt.Sprintf("%d/%d", i/batchSize+1, batches))
	}
	return written, nil
}

// RegionShare is one line of the post-seed summary.
type RegionShare struct {
	Region  string
	Count   int
	Percent decimal.Decimal
}

// Summary returns the top n regions by record count with their share of the
// total, rounded to one decimal place. Ties are ordered by region name so the
// console output is stable.
func Summary(ctx context.Context, store compliance.Store, n int) (total int, top []RegionShare, err error) {
	total, err = store.Count(ctx, compliance.Filter{})
	if err != nil {
		return 0, nil, err
	}
	groups, err := store.CountBy(ctx, compliance.Filter{}, compliance.DimRegion)
	if err != nil {
		return 0, nil, err
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}

	hundred := decimal.NewFromInt(100)
	top = make([]RegionShare, 0, len(groups))
	for _, g := range groups {
		pct := decimal.Zero
		if total > 0 {
			pct = decimal.NewFromInt(int64(g.Count)).
				Mul(hundred).
				Div(decimal.NewFromInt(int64(total))).
				Round(1)
		}
		top = append(top, RegionShare{Region: g.Key, Count: g.Count, Percent: pct})
	}
	return total, top, nil
}
