// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"path"
	"strings"
	"time"
)

// Supported image variant types
const (
	VariantThumbnail = "thumbnail"
)

// Supported MIME types
const (
	MimeTypeJPEG   = "image/jpeg"
	MimeTypePNG    = "image/png"
	MimeTypeGIF    = "image/gif"
	MimeTypeWebP   = "image/webp"
	MimeTypeSVG    = "image/svg+xml"
	MimeTypeICO    = "image/x-icon"
	MimeTypePDF    = "application/pdf"
	MimeTypeMP4    = "video/mp4"
	MimeTypeWebM   = "video/webm"
	MimeTypeMP3    = "audio/mpeg"
	MimeTypeDOCX   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeTypeZIP    = "application/zip"
	MimeTypeBinary = "application/octet-stream"
)

// ImageVariantConfig defines settings for generating image variants.
type ImageVariantConfig struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // true = crop to exact size, false = fit within bounds
}

// ImageVariants defines the variants produced for migrated images.
var ImageVariants = map[string]ImageVariantConfig{
	VariantThumbnail: {Width: 150, Height: 150, Quality: 80, Crop: true},
}

// MediaDocument is the metadata record stored for an uploaded attachment.
type MediaDocument struct {
	ID          string    `json:"id" bson:"id"`
	Filename    string    `json:"filename" bson:"filename"`
	OriginalURL string    `json:"originalUrl" bson:"originalUrl"`
	URL         string    `json:"url" bson:"url"`
	StoragePath string    `json:"storagePath" bson:"storagePath"`
	MimeType    string    `json:"mimeType" bson:"mimeType"`
	Size        int64     `json:"size" bson:"size"`
	Width       int       `json:"width,omitempty" bson:"width,omitempty"`
	Height      int       `json:"height,omitempty" bson:"height,omitempty"`
	AltText     string    `json:"altText" bson:"altText"`
	Caption     string    `json:"caption" bson:"caption"`
	UploadedAt  time.Time `json:"uploadedAt" bson:"uploadedAt"`
	CreatedBy   string    `json:"createdBy" bson:"createdBy"`
}

// IsImage returns true if the media is an image.
func (m *MediaDocument) IsImage() bool {
	return IsImageMimeType(m.MimeType)
}

// IsImageMimeType reports whether a MIME type is a raster image the
// migration can probe.
func IsImageMimeType(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	default:
		return false
	}
}

// MimeTypeFromFilename guesses a MIME type from a filename extension.
func MimeTypeFromFilename(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".jpe":
		return MimeTypeJPEG
	case ".png":
		return MimeTypePNG
	case ".gif":
		return MimeTypeGIF
	case ".webp":
		return MimeTypeWebP
	case ".svg":
		return MimeTypeSVG
	case ".ico":
		return MimeTypeICO
	case ".pdf":
		return MimeTypePDF
	case ".mp4", ".m4v":
		return MimeTypeMP4
	case ".webm":
		return MimeTypeWebM
	case ".mp3":
		return MimeTypeMP3
	case ".docx":
		return MimeTypeDOCX
	case ".xlsx":
		return MimeTypeXLSX
	case ".zip":
		return MimeTypeZIP
	default:
		return MimeTypeBinary
	}
}
