// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/internal/util"
)

// Artifact names under the output directory.
const (
	ReportFile     = "migration-report.json"
	SummaryFile    = "migration-summary.html"
	PreviewDir     = "cleaned-content"
	previewFileExt = ".html"
)

// writePreviews writes one cleaned HTML body per document.
func writePreviews(outputDir string, docs []model.PageDocument) error {
	dir := filepath.Join(outputDir, PreviewDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating preview directory: %w", err)
	}

	for _, doc := range docs {
		path, err := util.SafeJoinPath(dir, doc.Slug+previewFileExt)
		if err != nil {
			return fmt.Errorf("preview for %q: %w", doc.Slug, err)
		}
		if err := os.WriteFile(path, []byte(doc.Content), 0644); err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
	}
	return nil
}

// writeReport writes the JSON report and the review summary.
func writeReport(outputDir string, r *Report) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, ReportFile), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	summary, err := renderSummary(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outputDir, SummaryFile), summary, 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
