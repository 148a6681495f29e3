// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command migrate moves a WordPress WXR export into the target CMS.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/olegiv/ocms-migrate/internal/cache"
	"github.com/olegiv/ocms-migrate/internal/config"
	"github.com/olegiv/ocms-migrate/internal/logging"
	"github.com/olegiv/ocms-migrate/modules/migrator/pipeline"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	dryRun        bool
	downloadMedia bool
	uploadMedia   bool
	verbose       bool
	output        string
	profile       string
	credentials   string
	envFile       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "migrate <input-file>",
		Short: "Migrate a WordPress export into the CMS",
		Long: `Parses a WordPress WXR export, cleans page builder markup, optionally
downloads and uploads media, and commits pages and menu sections to the
document store in batches.

Environment Variables:
  MIGRATE_OUTPUT_DIR            Output directory (default: ./migration/output)
  MIGRATE_CREDENTIALS_FILE      Service credential file
  MIGRATE_OLD_BASE_URL          Base URL of the old site
  MIGRATE_NEW_BASE_URL          Base URL of the new site
  MIGRATE_BATCH_SIZE            Documents per commit batch (max 500)
  MIGRATE_CHECKPOINT_REDIS_URL  Redis URL for shared media checkpoints (optional)`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appGitCommit, appBuildTime),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], flags)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.dryRun, "dry-run", false, "write previews and the report without touching the target")
	f.BoolVar(&flags.downloadMedia, "download-media", false, "download attachments into the output directory")
	f.BoolVar(&flags.uploadMedia, "upload-media", false, "upload attachments to the media bucket (implies --download-media)")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging and a media progress bar")
	f.StringVarP(&flags.output, "output", "o", "", "output directory (overrides MIGRATE_OUTPUT_DIR)")
	f.StringVar(&flags.profile, "profile", "", "site migration profile (YAML)")
	f.StringVar(&flags.credentials, "credentials", "", "service credential file")
	f.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	return cmd
}

func run(ctx context.Context, stdout io.Writer, input string, flags *cliFlags) error {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	profilePath := flags.profile
	if profilePath == "" {
		profilePath = cfg.ProfilePath
	}
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return err
	}
	profile.Apply(cfg)

	if flags.output != "" {
		cfg.OutputDir = flags.output
	}
	credentials := flags.credentials
	if credentials == "" {
		credentials = cfg.CredentialsFile
	}

	// Setup logger
	level := logging.ParseLevel(cfg.LogLevel)
	if flags.verbose {
		level = slog.LevelDebug
	}
	collector := logging.NewCollector()
	logger := slog.New(logging.NewCollectorHandler(
		slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}),
		collector,
	))
	slog.SetDefault(logger)

	var checkpoints cache.Cache
	if cfg.UseRedisCheckpoint() {
		c, backend := cache.New(cache.Config{RedisURL: cfg.CheckpointRedisURL, Prefix: "ocms-migrate:"}, logger)
		defer func() { _ = c.Close() }()
		checkpoints = c
		logger.Info("url map checkpoints enabled", "backend", backend)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := types.RunOptions{
		DryRun:        flags.dryRun,
		DownloadMedia: flags.downloadMedia,
		UploadMedia:   flags.uploadMedia,
		Verbose:       flags.verbose,
		OutputDir:     cfg.OutputDir,
	}.Normalize()

	svc := pipeline.Services{
		Logger:      logger,
		Config:      cfg,
		Profile:     profile,
		HTTPClient:  &http.Client{},
		Connector:   pipeline.CredentialConnector{Path: credentials},
		Checkpoints: checkpoints,
		Collector:   collector,
	}

	var bar *progressBar
	if flags.verbose && opts.DownloadMedia {
		bar = newProgressBar(stdout)
		svc.Progress = bar.observe
	}

	logger.Info("migration started",
		"input", input,
		"output", cfg.OutputDir,
		"dry_run", opts.DryRun,
		"download_media", opts.DownloadMedia,
		"upload_media", opts.UploadMedia,
	)

	report, err := pipeline.New(svc).Run(ctx, input, opts)
	bar.finish()
	if err != nil {
		return err
	}

	logger.Info("migration finished",
		"run_id", report.RunID,
		"pages", report.Stats.Pages,
		"posts", report.Stats.Posts,
		"menu_sections", report.Stats.MenuSections,
		"warnings", len(report.Warnings),
		"dry_run", report.DryRun,
	)
	return nil
}
