// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-migrate/internal/logging"
	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/modules/migrator/cleaner"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// Report is written to migration-report.json. It is written before the
// commit stage and again after it; a run that exits non-zero may leave a
// report without finishedAt.
type Report struct {
	RunID            string               `json:"runId"`
	Timestamp        time.Time            `json:"timestamp"`
	FinishedAt       *time.Time           `json:"finishedAt"`
	Source           string               `json:"source"`
	DryRun           bool                 `json:"dryRun"`
	DegradedToDryRun bool                 `json:"degradedToDryRun"`
	Site             wordpress.SiteInfo   `json:"site"`
	Stats            ReportStats          `json:"stats"`
	Skipped          map[string]int       `json:"skipped"`
	Pages            []PageEntry          `json:"pages"`
	MenuSections     []model.MenuSection  `json:"menuSections"`
	Widgets          WidgetStats          `json:"widgets"`
	MediaStats       *types.MediaStats    `json:"mediaStats"`
	Warnings         []logging.Entry      `json:"warnings"`
	Commit           *CommitReport        `json:"commit"`
	Documents        []model.PageDocument `json:"-"`
}

// ReportStats are the per-stage counts.
type ReportStats struct {
	Pages        int `json:"pages"`
	Posts        int `json:"posts"`
	Attachments  int `json:"attachments"`
	MenuSections int `json:"menuSections"`
}

// WidgetStats counts page-builder widgets across all cleaned content, by
// widget type. Unrecognized widgets were kept as they were.
type WidgetStats struct {
	Converted    map[string]int `json:"converted"`
	Unrecognized map[string]int `json:"unrecognized"`
}

// PageEntry lists one migrated page or post.
type PageEntry struct {
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// CommitReport describes the commit stage.
type CommitReport struct {
	Attempted bool          `json:"attempted"`
	Committed int           `json:"committed"` // documents in committed batches
	Batches   []BatchReport `json:"batches"`
}

// BatchReport is one batch write.
type BatchReport struct {
	Index      int    `json:"index"`
	Collection string `json:"collection"`
	Size       int    `json:"size"`
	Committed  bool   `json:"committed"`
	Error      string `json:"error,omitempty"`
}

func newReport(source string, now time.Time, dryRun bool) *Report {
	return &Report{
		RunID:        uuid.NewString(),
		Timestamp:    now.UTC(),
		Source:       source,
		DryRun:       dryRun,
		Skipped:      map[string]int{},
		Pages:        []PageEntry{},
		MenuSections: []model.MenuSection{},
		Warnings:     []logging.Entry{},
		Widgets:      WidgetStats{Converted: map[string]int{}, Unrecognized: map[string]int{}},
	}
}

func (r *Report) setExport(exp *wordpress.Export) {
	r.Site = exp.Site
	r.Stats.Pages = len(exp.Pages)
	r.Stats.Posts = len(exp.Posts)
	r.Stats.Attachments = len(exp.Attachments)
	for k, v := range exp.Skipped {
		r.Skipped[k] = v
	}
}

func (r *Report) setDocuments(docs []model.PageDocument) {
	r.Documents = docs
	r.Pages = make([]PageEntry, 0, len(docs))
	for _, d := range docs {
		r.Pages = append(r.Pages, PageEntry{Title: d.Title, Slug: d.Slug, Status: d.Status})
	}
}

func (r *Report) setWidgets(s cleaner.Stats) {
	cleaner.Stats{Converted: r.Widgets.Converted, Unrecognized: r.Widgets.Unrecognized}.Merge(s)
}

func (r *Report) setSections(sections []model.MenuSection) {
	r.MenuSections = sections
	r.Stats.MenuSections = len(sections)
}

func (r *Report) collectWarnings(c *logging.Collector) {
	if c == nil {
		return
	}
	r.Warnings = c.Entries()
}
