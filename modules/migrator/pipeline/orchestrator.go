// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline drives a WordPress migration end to end: parse, media,
// clean and transform, menu sections, artifacts, and the batched commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/olegiv/ocms-migrate/internal/config"
	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/modules/migrator/media"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// ErrInputMissing is returned when the export file does not exist.
var ErrInputMissing = errors.New("input file not found")

// Stage names used in log records.
const (
	StageParse     = "parse"
	StageConnect   = "connect"
	StageMedia     = "media"
	StageTransform = "transform"
	StageMenus     = "menus"
	StageReport    = "report"
	StageCommit    = "commit"
)

// Orchestrator runs migrations with a fixed set of services.
type Orchestrator struct {
	svc Services
}

// New creates an Orchestrator. Missing optional services get defaults.
func New(svc Services) *Orchestrator {
	if svc.Logger == nil {
		svc.Logger = slog.New(slog.DiscardHandler)
	}
	if svc.Config == nil {
		svc.Config = &config.Config{BatchSize: 400, MediaConcurrency: 5, MediaMaxRedirects: media.DefaultMaxRedirects}
	}
	if svc.Profile == nil {
		svc.Profile = &config.Profile{}
	}
	if svc.Connector == nil {
		svc.Connector = noConnector{}
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	return &Orchestrator{svc: svc}
}

// Run migrates one export file. The returned report is non-nil whenever
// parsing succeeded, including when the commit fails.
func (o *Orchestrator) Run(ctx context.Context, input string, opts types.RunOptions) (*Report, error) {
	opts = opts.Normalize()
	logger := o.svc.Logger
	cfg := o.svc.Config

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	if info, err := os.Stat(input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, input)
		}
		return nil, fmt.Errorf("checking input: %w", err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputMissing, input)
	}

	report := newReport(input, o.svc.Now(), opts.DryRun)

	// Parse
	logger.Info("stage started", "stage", StageParse, "input", input)
	exp, err := wordpress.NewParser(logger).ParseFile(input)
	if err != nil {
		return nil, err
	}
	report.setExport(exp)
	logger.Info("export parsed",
		"pages", len(exp.Pages),
		"posts", len(exp.Posts),
		"attachments", len(exp.Attachments),
		"menu_items", len(exp.MenuItems),
	)

	// Connect
	var targets *Targets
	if !opts.DryRun {
		logger.Info("stage started", "stage", StageConnect)
		targets, err = o.svc.Connector.Connect(ctx)
		if err == nil && (targets == nil || targets.Store == nil) {
			err = &config.CredentialError{Err: errors.New("no document store configured")}
		}
		if err != nil {
			if !isCredentialError(err) {
				return nil, fmt.Errorf("connecting to target: %w", err)
			}
			logger.Warn("target unavailable, continuing as dry run", "error", err)
			opts.DryRun = true
			report.DryRun = true
			report.DegradedToDryRun = true
			targets = nil
		}
	}
	defer func() {
		if err := targets.Close(); err != nil {
			logger.Warn("closing document store", "error", err)
		}
	}()

	if opts.WantsUploads() && targets.Blob == nil {
		logger.Warn("no media bucket configured, uploads disabled")
		opts.UploadMedia = false
	}

	// Media
	var urls *media.URLMap
	var mediaDocs []model.MediaDocument
	if opts.DownloadMedia {
		logger.Info("stage started", "stage", StageMedia, "attachments", len(exp.Attachments))
		res, err := o.migrateMedia(ctx, input, outputDir, exp.Attachments, opts, targets)
		if err != nil {
			return nil, err
		}
		urls = res.URLMap
		mediaDocs = res.Documents
		report.MediaStats = &res.Stats
		if res.Stats.HasErrors() {
			logger.Warn("some attachments failed", "failed", res.Stats.Failed, "total", res.Stats.Total)
		}
	}

	// Transform. Content only points at the URL map once uploads produced
	// final URLs; local stand-in paths stay out of page content.
	logger.Info("stage started", "stage", StageTransform)
	rewrite := opts.WantsUploads()
	var contentMap map[string]string
	if rewrite && urls != nil {
		contentMap = urls.URLs()
	}
	cl := newCleaner(cfg, o.svc.Profile, contentMap)
	tr := newTransformer(cl, o.svc.Profile, urls, rewrite, logger, o.svc.Now())
	docs := tr.transform(exp)
	report.setWidgets(tr.widgets)

	// Menus
	logger.Info("stage started", "stage", StageMenus, "menu_items", len(exp.MenuItems))
	menus := wordpress.BuildMenus(exp.MenuItems, logger)
	sections := buildSections(menus, docs, len(exp.Pages), logger)
	report.setDocuments(docs)
	report.setSections(sections)

	// Report and previews
	logger.Info("stage started", "stage", StageReport, "output", outputDir)
	if err := writePreviews(outputDir, docs); err != nil {
		return report, err
	}
	report.collectWarnings(o.svc.Collector)
	if err := writeReport(outputDir, report); err != nil {
		return report, err
	}

	if opts.DryRun {
		o.finish(report, outputDir)
		logger.Info("dry run complete", "pages", len(docs), "menu_sections", len(sections))
		return report, nil
	}

	// Commit
	logger.Info("stage started", "stage", StageCommit)
	if !opts.WantsUploads() {
		mediaDocs = nil
	}
	c := newCommitter(targets.Store, cfg.BatchSize, cfg.WriteTimeout, logger)
	commitErr := c.commit(ctx, sections, docs, mediaDocs)
	report.Commit = c.report

	o.finish(report, outputDir)
	if commitErr != nil {
		return report, commitErr
	}
	logger.Info("migration complete", "committed", c.report.Committed, "batches", len(c.report.Batches))
	return report, nil
}

func (o *Orchestrator) migrateMedia(ctx context.Context, input, outputDir string, attachments []wordpress.Attachment, opts types.RunOptions, targets *Targets) (*media.Result, error) {
	logger := o.svc.Logger

	checkpoint := media.NewCheckpoint(outputDir, input, o.svc.Checkpoints)
	seed, err := checkpoint.Load(ctx)
	if err != nil {
		logger.Warn("ignoring unreadable url map checkpoint", "path", checkpoint.Path(), "error", err)
		seed = media.NewURLMap()
	}

	deps := media.Deps{
		Logger:   logger,
		Client:   o.svc.HTTPClient,
		Seed:     seed,
		Progress: o.svc.Progress,
		Now:      o.svc.Now,
	}
	if opts.WantsUploads() {
		deps.Blob = targets.Blob
	}

	res, err := media.New(media.ConfigFrom(o.svc.Config, outputDir), deps).Migrate(ctx, attachments)
	if err != nil {
		return nil, fmt.Errorf("migrating media: %w", err)
	}

	if err := checkpoint.Save(ctx, res.URLMap); err != nil {
		logger.Warn("saving url map checkpoint", "error", err)
	}
	return res, nil
}

// finish stamps the report and rewrites it. Errors are logged only; the
// report written before the commit stays on disk.
func (o *Orchestrator) finish(r *Report, outputDir string) {
	finished := o.svc.Now().UTC()
	r.FinishedAt = &finished
	r.collectWarnings(o.svc.Collector)
	if err := writeReport(outputDir, r); err != nil {
		o.svc.Logger.Error("rewriting report", "error", err)
	}
}
