// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package types

import "testing"

func TestRunOptions_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		opts         RunOptions
		wantDownload bool
		wantUploads  bool
		wantWrites   bool
	}{
		{
			name:       "defaults",
			opts:       RunOptions{},
			wantWrites: true,
		},
		{
			name:         "download only",
			opts:         RunOptions{DownloadMedia: true},
			wantDownload: true,
			wantWrites:   true,
		},
		{
			name:         "upload implies download",
			opts:         RunOptions{UploadMedia: true},
			wantDownload: true,
			wantUploads:  true,
			wantWrites:   true,
		},
		{
			name:         "dry run suppresses uploads",
			opts:         RunOptions{UploadMedia: true, DryRun: true},
			wantDownload: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.Normalize()
			if got.DownloadMedia != tt.wantDownload {
				t.Errorf("DownloadMedia = %v, want %v", got.DownloadMedia, tt.wantDownload)
			}
			if got.WantsUploads() != tt.wantUploads {
				t.Errorf("WantsUploads() = %v, want %v", got.WantsUploads(), tt.wantUploads)
			}
			if got.WantsWrites() != tt.wantWrites {
				t.Errorf("WantsWrites() = %v, want %v", got.WantsWrites(), tt.wantWrites)
			}
		})
	}
}

func TestMediaStats_HasErrors(t *testing.T) {
	stats := MediaStats{Total: 1, Downloaded: 1}
	if stats.HasErrors() {
		t.Error("HasErrors() = true, want false")
	}
}
