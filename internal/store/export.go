// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// ExportEntry holds a content item with its audit trail for export.
type ExportEntry struct {
	Item  types.ContentItem  `json:"item" yaml:"item"`
	Trail []types.AuditEntry `json:"trail" yaml:"trail"`
}

// ExportYAML writes every content item and its audit trail to
// data/index/export.yaml.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dataDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes every content item and its audit trail to
// data/index/export.json.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dataDir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectItems+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying items for export: %w", err)
	}
	defer rows.Close()
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	entries := make([]ExportEntry, len(items))
	for i, item := range items {
		trail, err := s.AuditTrail(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		entries[i] = ExportEntry{Item: *item, Trail: trail}
	}
	return entries, nil
}
