package collector

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// collectionState remembers the outcome of the most recent run per source.
type collectionState struct {
	result      *CollectionResult
	collectedAt time.Time
}

// Manager is the registry of all configured collectors. It runs them,
// isolates per-source failures and keeps the latest results around for
// combination and summary reporting.
type Manager struct {
	collectors map[string]Collector
	order      []string
	// mu guards collected. Collection runs from scheduled rounds and from
	// API handlers can overlap. Registration happens before serving starts,
	// so collectors and order need no lock.
	mu        sync.RWMutex
	collected map[string]*collectionState
	// SnapshotDir, when set, makes the manager persist every successful
	// collection run to disk.
	SnapshotDir string
}

func NewManager() *Manager {
	return &Manager{
		collectors: make(map[string]Collector),
		collected:  make(map[string]*collectionState),
	}
}

// Register adds a collector under the name its metadata carries.
// Registering the same name twice replaces the earlier collector.
func (m *Manager) Register(c Collector) {
	name := c.Metadata().Name
	if _, exists := m.collectors[name]; !exists {
		m.order = append(m.order, name)
	}
	m.collectors[name] = c
}

// ListAvailableCollectors returns the metadata of every registered source
// in registration order.
func (m *Manager) ListAvailableCollectors() []SourceMetadata {
	out := make([]SourceMetadata, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.collectors[name].Metadata())
	}
	return out
}

// Get returns the collector registered under name.
func (m *Manager) Get(name string) (Collector, bool) {
	c, ok := m.collectors[name]
	return c, ok
}

// CollectFromSource runs a single collector and caches its result.
func (m *Manager) CollectFromSource(name string, opts CollectOptions) (*CollectionResult, error) {
	c, ok := m.collectors[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}

	log.Printf("Collecting from source %s", name)
	result, err := c.Collect(opts)
	if err != nil {
		return nil, fmt.Errorf("collection from %s failed: %w", name, err)
	}

	m.mu.Lock()
	m.collected[name] = &collectionState{result: result, collectedAt: time.Now().UTC()}
	m.mu.Unlock()
	log.Printf("Source %s: %d records, %d skipped", name, len(result.Records), len(result.Skipped))

	if opts.SaveRaw && m.SnapshotDir != "" {
		if path, err := WriteSnapshot(m.SnapshotDir, name, result); err != nil {
			log.Printf("Failed to write snapshot for %s: %v", name, err)
		} else {
			log.Printf("Wrote snapshot %s", path)
		}
	}
	return result, nil
}

// CollectFromAllSources runs every registered collector. A failing source
// is logged and skipped; the remaining sources still run. The returned map
// holds the results of the sources that succeeded.
func (m *Manager) CollectFromAllSources(opts CollectOptions) map[string]*CollectionResult {
	results := make(map[string]*CollectionResult)
	for _, name := range m.order {
		result, err := m.CollectFromSource(name, opts)
		if err != nil {
			log.Printf("Skipping source %s: %v", name, err)
			continue
		}
		results[name] = result
	}
	return results
}

// CombineAllData flattens the cached results of all sources into one
// record list. Every record is tagged with the source it came from and
// carries that source's metadata where the record itself left a gap.
func (m *Manager) CombineAllData() []LocationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var combined []LocationRecord
	for _, name := range m.order {
		state, ok := m.collected[name]
		if !ok {
			continue
		}
		meta := m.collectors[name].Metadata()
		for _, rec := range state.result.Records {
			rec.Source = name
			if rec.Category == "" {
				rec.Category = meta.Category
			}
			if rec.Address.Country == "" {
				rec.Address.Country = meta.Country
			}
			combined = append(combined, rec)
		}
	}
	return combined
}

// SourceSummary describes one source's latest collection run.
type SourceSummary struct {
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Country     string    `json:"country"`
	Count       int       `json:"count"`
	Skipped     int       `json:"skipped"`
	CollectedAt time.Time `json:"collected_at"`
}

// CollectionSummary aggregates the state of all collected sources.
type CollectionSummary struct {
	Sources        int             `json:"sources"`
	TotalLocations int             `json:"total_locations"`
	Collections    []SourceSummary `json:"collections"`
}

// GetCollectionSummary reports what has been collected so far.
func (m *Manager) GetCollectionSummary() CollectionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := CollectionSummary{}
	names := make([]string, 0, len(m.collected))
	for name := range m.collected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := m.collected[name]
		meta := m.collectors[name].Metadata()
		summary.Sources++
		summary.TotalLocations += len(state.result.Records)
		summary.Collections = append(summary.Collections, SourceSummary{
			Source:      name,
			Category:    meta.Category,
			Country:     meta.Country,
			Count:       len(state.result.Records),
			Skipped:     len(state.result.Skipped),
			CollectedAt: state.collectedAt,
		})
	}
	return summary
}
