// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cleaner

import (
	"net/url"
	"sort"
	"strings"
)

// RewriteURL applies the URL map and base rewriting to one URL. Values
// starting with the old base get the new base instead; root-relative paths
// get the new base prepended unless they already sit under a root-relative
// new base. Everything else is returned unchanged.
func (c *Cleaner) RewriteURL(raw string) string {
	if mapped, ok := c.opts.URLMap[strings.TrimSpace(raw)]; ok && mapped != "" {
		return mapped
	}
	return c.rewriteBase(raw)
}

func (c *Cleaner) rewriteBase(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return raw
	}
	if c.oldBase != "" && strings.HasPrefix(v, c.oldBase) {
		// A new base nested under the old one is already rewritten.
		if c.newBase != "" && strings.HasPrefix(c.newBase, c.oldBase) && strings.HasPrefix(v, c.newBase) {
			return raw
		}
		return c.newBase + v[len(c.oldBase):]
	}
	if c.newBase != "" && isRootRelative(v) {
		if isRootRelative(c.newBase) && underPath(v, c.newBase) {
			return raw
		}
		return c.newBase + v
	}
	return raw
}

func isRootRelative(v string) bool {
	return strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//")
}

// underPath reports whether v is base or a path below it.
func underPath(v, base string) bool {
	if !strings.HasPrefix(v, base) {
		return false
	}
	rest := v[len(base):]
	return rest == "" || strings.ContainsAny(rest[:1], "/?#")
}

// RewriteMediaURLs substitutes every URL key of urlMap found in content
// with its new URL. Keys are also matched in their base-rewritten form,
// since content has usually been cleaned before the map is complete.
// Non-URL keys such as attachment ids are ignored.
func (c *Cleaner) RewriteMediaURLs(content string, urlMap map[string]string) string {
	if content == "" || len(urlMap) == 0 {
		return content
	}

	pairs := make(map[string]string)
	for oldURL, newURL := range urlMap {
		if newURL == "" || !looksLikeURL(oldURL) {
			continue
		}
		pairs[oldURL] = newURL
		if rewritten := c.rewriteBase(oldURL); rewritten != oldURL {
			pairs[rewritten] = newURL
		}
	}
	if len(pairs) == 0 {
		return content
	}

	// Longest first, so a URL is never replaced by a prefix of itself.
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	oldnew := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		oldnew = append(oldnew, k, pairs[k])
	}
	return strings.NewReplacer(oldnew...).Replace(content)
}

func looksLikeURL(s string) bool {
	if strings.HasPrefix(s, "/") {
		return true
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
