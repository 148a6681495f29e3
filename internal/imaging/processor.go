// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging probes downloaded images and writes review thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/ocms-migrate/internal/model"
)

// ErrUnsupportedFormat is returned for data that is not a JPEG, PNG, GIF
// or WebP image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ProbeResult describes an image without decoding its pixels.
type ProbeResult struct {
	Width       int // as displayed, after EXIF orientation
	Height      int
	MimeType    string
	Orientation int
}

// VariantResult contains the result of creating an image variant.
type VariantResult struct {
	Type     string
	Width    int
	Height   int
	Size     int64
	FilePath string
}

// Processor handles image operations using pure Go libraries.
type Processor struct {
	thumbDir string
}

// NewProcessor creates a processor that writes thumbnails under thumbDir.
func NewProcessor(thumbDir string) *Processor {
	return &Processor{
		thumbDir: thumbDir,
	}
}

// Probe returns the dimensions and type of an encoded image.
func (p *Processor) Probe(data []byte) (*ProbeResult, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image config: %w", err)
	}

	orientation := 1
	if format == "jpeg" {
		orientation = readExifOrientation(bytes.NewReader(data))
	}

	width, height := cfg.Width, cfg.Height
	if orientation >= 5 && orientation <= 8 {
		width, height = height, width
	}

	return &ProbeResult{
		Width:       width,
		Height:      height,
		MimeType:    formatToMimeType(format),
		Orientation: orientation,
	}, nil
}

// Thumbnail creates the thumbnail variant of an encoded image and saves it
// under the thumbnail directory with the given filename.
func (p *Processor) Thumbnail(data []byte, filename string) (*VariantResult, error) {
	return p.CreateVariant(data, filename, model.ImageVariants[model.VariantThumbnail], model.VariantThumbnail)
}

// CreateVariant creates a resized variant of an encoded image.
func (p *Processor) CreateVariant(data []byte, filename string, config model.ImageVariantConfig, variantType string) (*VariantResult, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format == "jpeg" {
		img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	}

	var resized image.Image
	if config.Crop {
		// Crop to exact size from center
		resized = imaging.Fill(img, config.Width, config.Height, imaging.Center, imaging.Lanczos)
	} else {
		// Fit within bounds while maintaining aspect ratio
		resized = imaging.Fit(img, config.Width, config.Height, imaging.Lanczos)
	}

	outFormat := detectFormatFromFilename(filename)
	processed, err := encodeImage(resized, outFormat, config.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}
	if outFormat == "webp" {
		// Encoded as JPEG; keep the name honest.
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
	}

	path, err := p.saveImageFile(filename, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s variant: %w", variantType, err)
	}

	bounds := resized.Bounds()
	return &VariantResult{
		Type:     variantType,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Size:     int64(len(processed)),
		FilePath: path,
	}, nil
}

// IsImage checks if a MIME type represents an image that can be processed.
func (p *Processor) IsImage(mimeType string) bool {
	return model.IsImageMimeType(mimeType)
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
// Orientation values:
// 1: Normal
// 2: Flip horizontal
// 3: Rotate 180°
// 4: Flip vertical
// 5: Rotate 90° CW + flip horizontal
// 6: Rotate 90° CW
// 7: Rotate 90° CCW + flip horizontal
// 8: Rotate 90° CCW
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes an image to bytes with the specified format and quality.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		// JPEG, and WebP which has no pure Go encoder
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	switch mimetype.Detect(data).String() {
	case model.MimeTypeJPEG:
		return "jpeg"
	case model.MimeTypePNG:
		return "png"
	case model.MimeTypeGIF:
		return "gif"
	case model.MimeTypeWebP:
		return "webp"
	default:
		// TIFF is rejected here too (CVE-2023-36308 in disintegration/imaging)
		return ""
	}
}

// detectFormatFromFilename extracts format from filename extension.
func detectFormatFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "jpeg"
	}
}

// formatToMimeType converts format string to MIME type.
func formatToMimeType(format string) string {
	switch format {
	case "jpeg":
		return model.MimeTypeJPEG
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	case "webp":
		return model.MimeTypeWebP
	default:
		return model.MimeTypeBinary
	}
}

// saveImageFile creates the thumbnail directory if needed and saves data
// to it. Only the base name of filename is used.
func (p *Processor) saveImageFile(filename string, data []byte) (string, error) {
	safeFilename := filepath.Base(filename)
	if safeFilename == "." || safeFilename == ".." || safeFilename == "" || safeFilename == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename")
	}

	if err := os.MkdirAll(p.thumbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(p.thumbDir, safeFilename)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filePath, nil
}
