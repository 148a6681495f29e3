// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// SanitizeMediaFilename turns an attachment filename into a flat, lowercase
// ASCII name: anything other than letters, digits, dots and hyphens becomes a
// hyphen and hyphen runs collapse. Names without an extension get ".bin".
func SanitizeMediaFilename(filename string) string {
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))

	ext := strings.ToLower(path.Ext(filename))
	stem := strings.TrimSuffix(filename, path.Ext(filename))

	stem = strings.ToLower(unidecode.Unidecode(stem))
	replacer := strings.NewReplacer(
		" ", "-",
		"'", "",
		"\"", "",
		"<", "",
		">", "",
		"&", "",
		"#", "",
		"?", "",
		"%", "",
	)
	stem = replacer.Replace(stem)
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '-'
		}
	}, stem)
	stem = multipleHyphens.ReplaceAllString(stem, "-")
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		stem = "file"
	}

	ext = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, ext)
	if ext == "" || ext == "." {
		ext = ".bin"
	}

	return stem + ext
}

// ValidatePathWithinBase ensures that a resolved path is within the expected
// base directory. It cleans both paths and checks that the resolved path
// starts with the base path. Returns an error if path traversal is detected.
func ValidatePathWithinBase(basePath, targetPath string) error {
	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}

	absTarget, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return fmt.Errorf("invalid target path: %w", err)
	}

	// Trailing separator keeps /output-other from matching /output
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: path escapes base directory")
	}

	return nil
}

// SafeJoinPath joins path components and validates the result is within
// the base directory. Returns the cleaned path or an error if traversal
// is detected.
func SafeJoinPath(basePath string, components ...string) (string, error) {
	fullPath := filepath.Join(append([]string{basePath}, components...)...)

	if err := ValidatePathWithinBase(basePath, fullPath); err != nil {
		return "", err
	}

	return fullPath, nil
}
