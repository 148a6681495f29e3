// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package types defines shared types for the migrator module.
// This package is separate to avoid import cycles between the pipeline and its stages.
package types

// RunOptions are the switches of one migration run.
type RunOptions struct {
	DryRun        bool
	DownloadMedia bool
	UploadMedia   bool // implies DownloadMedia
	Verbose       bool
	OutputDir     string
}

// Normalize returns the options with implied flags set.
func (o RunOptions) Normalize() RunOptions {
	if o.UploadMedia {
		o.DownloadMedia = true
	}
	return o
}

// WantsWrites reports whether the run needs the target services.
func (o RunOptions) WantsWrites() bool {
	return !o.DryRun
}

// WantsUploads reports whether media goes to the blob store.
func (o RunOptions) WantsUploads() bool {
	return o.UploadMedia && !o.DryRun
}

// Per-attachment outcomes reported to progress callbacks.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

// MediaError records one failed attachment.
type MediaError struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// MediaStats summarizes a media migration. Every attachment is counted
// exactly once as downloaded, skipped or failed; uploaded is a subset of
// downloaded.
type MediaStats struct {
	Total      int          `json:"total"`
	Downloaded int          `json:"downloaded"`
	Uploaded   int          `json:"uploaded"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Errors     []MediaError `json:"errors"`
}

// HasErrors returns true if any attachment failed.
func (s *MediaStats) HasErrors() bool {
	return s.Failed > 0
}

// MediaEvent is passed to progress callbacks after each attachment.
type MediaEvent struct {
	ID      string
	URL     string
	Outcome string
	Total   int // attachments in the run
}
