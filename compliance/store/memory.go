// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/compliance-dashboard/compliance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps records in a slice. It implements both compliance.Store and
// compliance.Loader.
type Memory struct {
	mu      sync.RWMutex
	records []compliance.Record
	ids     map[string]bool
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]bool)}
}

// Clear removes every record.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = nil
	m.ids = make(map[string]bool)
	return nil
}

// InsertBatch adds records atomically. A duplicate ID rejects the whole batch.
func (m *Memory) InsertBatch(_ context.Context, records []compliance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all IDs first (atomic check)
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if m.ids[r.ID] || seen[r.ID] {
			return ErrDuplicateID
		}
		seen[r.ID] = true
	}

	for _, r := range records {
		m.records = append(m.records, r)
		m.ids[r.ID] = true
	}
	return nil
}

func (m *Memory) Count(_ context.Context, f compliance.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.records {
		if f.Match(r) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountBy(_ context.Context, f compliance.Filter, d compliance.Dimension) ([]compliance.GroupCount, error) {
	if !knownDimension(d) {
		return nil, compliance.ErrUnknownDimension
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, r := range m.records {
		if !f.Match(r) {
			continue
		}
		k := r.Value(d)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	result := make([]compliance.GroupCount, 0, len(order))
	for _, k := range order {
		result = append(result, compliance.GroupCount{Key: k, Count: counts[k]})
	}
	return result, nil
}

func (m *Memory) CountByRegionAndType(_ context.Context, f compliance.Filter) ([]compliance.RegionTypeCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type key struct {
		region     string
		schemeType compliance.SchemeType
	}
	counts := make(map[key]int)
	var order []key
	for _, r := range m.records {
		if !f.Match(r) {
			continue
		}
		k := key{region: r.Region, schemeType: r.SchemeType}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	result := make([]compliance.RegionTypeCount, 0, len(order))
	for _, k := range order {
		result = append(result, compliance.RegionTypeCount{
			Region:     k.region,
			SchemeType: k.schemeType,
			Count:      counts[k],
		})
	}
	return result, nil
}

func (m *Memory) List(_ context.Context, f compliance.Filter) ([]compliance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]compliance.Record, 0)
	for _, r := range m.records {
		if f.Match(r) {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Region != result[j].Region {
			return result[i].Region < result[j].Region
		}
		return result[i].Scheme < result[j].Scheme
	})
	return result, nil
}

func (m *Memory) Distinct(_ context.Context, d compliance.Dimension) ([]string, error) {
	if !knownDimension(d) {
		return nil, compliance.ErrUnknownDimension
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	values := make([]string, 0)
	for _, r := range m.records {
		v := r.Value(d)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values, nil
}

func knownDimension(d compliance.Dimension) bool {
	switch d {
	case compliance.DimRegion, compliance.DimScheme, compliance.DimSchemeType, compliance.DimCondition:
		return true
	}
	return false
}
