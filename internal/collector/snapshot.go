package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the envelope written to disk after a collection run.
type Snapshot struct {
	Source      string           `json:"source"`
	CollectedAt time.Time        `json:"collected_at"`
	TotalCount  int              `json:"total_count"`
	Records     []LocationRecord `json:"records"`
	Skipped     []SkippedItem    `json:"skipped,omitempty"`
}

// WriteSnapshot persists a collection result under dir and returns the
// written file path. Snapshots make runs reproducible and let the import
// step work from files instead of live sources.
func WriteSnapshot(dir, sourceName string, result *CollectionResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}

	snap := Snapshot{
		Source:      sourceName,
		CollectedAt: time.Now().UTC(),
		TotalCount:  len(result.Records),
		Records:     result.Records,
		Skipped:     result.Skipped,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot for %s: %w", sourceName, err)
	}

	name := fmt.Sprintf("%s_%s.json", sourceName, snap.CollectedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return path, nil
}

// ReadSnapshot loads a snapshot file written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
