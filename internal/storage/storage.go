// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage persists harvest results as JSON documents on disk.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteJSON marshals v as indented JSON and writes it to path, creating
// parent directories as needed. The path must end in ".json"; anything else
// is rejected before touching the filesystem.
func WriteJSON(path string, v any) error {
	if !strings.HasSuffix(path, ".json") {
		return fmt.Errorf("result file %q should have a .json extension", path)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
