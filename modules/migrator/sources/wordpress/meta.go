// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// MetaKind tags how a post-meta value was decoded.
type MetaKind int

const (
	// MetaText is a plain string value.
	MetaText MetaKind = iota
	// MetaJSON is a JSON document; Value holds the unmarshalled form.
	MetaJSON
	// MetaPHPString is a PHP-serialized string; Value holds the string.
	MetaPHPString
	// MetaPHPSerialized is any other PHP-serialized value. It is not
	// decoded and only Raw is set.
	MetaPHPSerialized
)

func (k MetaKind) String() string {
	switch k {
	case MetaText:
		return "text"
	case MetaJSON:
		return "json"
	case MetaPHPString:
		return "php-string"
	case MetaPHPSerialized:
		return "php-serialized"
	default:
		return "unknown"
	}
}

// MetaValue is a decoded post-meta entry.
type MetaValue struct {
	Kind  MetaKind
	Raw   string
	Value any
}

// Decoded reports whether Value carries a decoded form.
func (v MetaValue) Decoded() bool {
	return v.Kind != MetaPHPSerialized
}

// String returns the decoded string form when there is one, else Raw.
func (v MetaValue) String() string {
	if s, ok := v.Value.(string); ok {
		return s
	}
	return v.Raw
}

var (
	phpStringRe     = regexp.MustCompile(`(?s)^s:(\d+):"(.*)";$`)
	phpSerializedRe = regexp.MustCompile(`^(a|O|C):\d+:`)
	phpInnerString  = regexp.MustCompile(`s:(\d+):"`)
)

// DecodeMeta decodes a raw post-meta value. JSON objects and arrays are
// unmarshalled, a serialized PHP string is unwrapped, and other serialized
// PHP values are kept raw.
func DecodeMeta(raw string) MetaValue {
	trimmed := strings.TrimSpace(raw)

	if m := phpStringRe.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		// Length is in bytes. A mismatch means this was not a serialized string.
		if err == nil && n == len(m[2]) {
			return MetaValue{Kind: MetaPHPString, Raw: raw, Value: m[2]}
		}
	}

	if phpSerializedRe.MatchString(trimmed) && strings.HasSuffix(trimmed, "}") {
		return MetaValue{Kind: MetaPHPSerialized, Raw: raw}
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return MetaValue{Kind: MetaJSON, Raw: raw, Value: v}
		}
	}

	return MetaValue{Kind: MetaText, Raw: raw, Value: raw}
}

// serializedStrings returns every string value found in a PHP-serialized
// payload, in order. Keys are included; callers filter what they need.
func serializedStrings(raw string) []string {
	var out []string
	for _, loc := range phpInnerString.FindAllStringSubmatchIndex(raw, -1) {
		n, err := strconv.Atoi(raw[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		start := loc[1]
		end := start + n
		if end > len(raw) {
			continue
		}
		out = append(out, raw[start:end])
	}
	return out
}

// serializedInt finds an integer stored under a string key at any depth of
// a PHP-serialized payload and returns the first occurrence.
func serializedInt(raw, key string) (int, bool) {
	re := regexp.MustCompile(`s:` + strconv.Itoa(len(key)) + `:"` + regexp.QuoteMeta(key) + `";i:(\d+);`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// serializedListValues returns the string values of a PHP-serialized list
// such as a:2:{i:0;s:4:"menu";i:1;s:0:"";}, skipping empty entries.
func serializedListValues(raw string) []string {
	var out []string
	for _, s := range serializedStrings(raw) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func metaString(meta map[string]MetaValue, key string) string {
	if v, ok := meta[key]; ok {
		return strings.TrimSpace(v.String())
	}
	return ""
}
