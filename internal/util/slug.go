// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose helpers for the migration tool:
// slug generation, filename sanitising, safe path joins and text trimming.
package util

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// slugRegex matches non-alphanumeric characters (except hyphens)
	slugRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// whitespaceRun matches any run of whitespace
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Slugify converts a string to a URL-friendly slug.
// Latin text is lowercased with accents stripped. Text in other scripts that
// would otherwise produce an empty slug is transliterated first.
func Slugify(s string) string {
	if slug := slugify(s); slug != "" {
		return slug
	}
	return slugify(unidecode.Unidecode(s))
}

func slugify(s string) string {
	// Normalize unicode characters (decompose accents)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = whitespaceRun.ReplaceAllString(result, "-")
	result = slugRegex.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	// Check if it only contains lowercase letters, numbers, and hyphens
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	return !strings.Contains(s, "--")
}

// UniqueSlug returns slug, or slug with a numeric suffix, such that the
// result is not reported as taken. The chosen slug is not reserved.
func UniqueSlug(slug string, taken func(string) bool) string {
	if !taken(slug) {
		return slug
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", slug, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
