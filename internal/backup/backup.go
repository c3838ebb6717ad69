// Package backup exports a merged-view snapshot for offline inspection.
// Snapshots are write-only and never re-imported.
package backup

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"planner/internal/merge"
)

type snapshot struct {
	ExportedAt      string `yaml:"exported_at"`
	Tasks           any    `yaml:"tasks"`
	Events          any    `yaml:"events"`
	RecurrenceRules any    `yaml:"recurrence_rules"`
	Stats           any    `yaml:"stats"`
}

// Write 将当前合并视图以 YAML 快照写出
// Write dumps the current merged view as a YAML snapshot
func Write(w io.Writer, view *merge.MergedView) error {
	snap := snapshot{
		ExportedAt:      time.Now().UTC().Format(time.RFC3339),
		Tasks:           view.Tasks,
		Events:          view.Events,
		RecurrenceRules: view.RecurrenceRules,
		Stats:           view.Overlay.Learning.Stats,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}
