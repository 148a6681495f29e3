// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blob stores migrated media files in an object bucket.
package blob

import "context"

// Metadata is attached to an uploaded object.
type Metadata struct {
	ContentType string
	OriginalURL string
	AltText     string
	Caption     string
}

// Ref identifies an uploaded object.
type Ref struct {
	Bucket string
	Key    string
	Size   int64
}

// Store uploads objects and publishes them.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, meta Metadata) (Ref, error)
	MakePublic(ctx context.Context, ref Ref) (string, error)
	PublicURL(key string) string
}
