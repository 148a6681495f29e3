// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cleaner

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Elements removed outright in the first step.
var strippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Hosts whose iframe embeds are dropped.
var blockedEmbedHosts = []string{
	"facebook.com",
	"facebook.net",
	"twitter.com",
	"x.com",
}

// Classes marking screen-reader-only text and decorative builder chrome.
var decorativeClasses = map[string]bool{
	"sr-only":                true,
	"screen-reader-text":     true,
	"screen-reader-only":     true,
	"elementor-screen-only":  true,
	"visually-hidden":        true,
	"elementor-hidden":       true,
	"skip-link":              true,
	"elementor-menu-toggle":  true,
	"elementor-icon-wrapper": true,
}

// Layout containers replaced by their children.
var scaffoldingClasses = map[string]bool{
	"elementor":                       true,
	"elementor-inner":                 true,
	"elementor-section-wrap":          true,
	"elementor-section":               true,
	"elementor-top-section":           true,
	"elementor-inner-section":         true,
	"elementor-container":             true,
	"elementor-row":                   true,
	"elementor-column":                true,
	"elementor-column-wrap":           true,
	"elementor-widget-wrap":           true,
	"elementor-widget-container":      true,
	"elementor-background-overlay":    true,
	"e-con":                           true,
	"e-con-inner":                     true,
	"e-container":                     true,
	"wp-block-group":                  true,
	"wp-block-group__inner-container": true,
	"wp-block-columns":                true,
	"wp-block-column":                 true,
	"wp-block-cover__inner-container": true,
	"entry-content":                   true,
	"vc_row":                          true,
	"vc_column":                       true,
	"wpb_wrapper":                     true,
	"et_pb_section":                   true,
	"et_pb_row":                       true,
	"et_pb_column":                    true,
}

// Class prefixes generated by WordPress, page builders and icon fonts.
var vendorClassPrefixes = []string{
	"elementor",
	"e-",
	"wp-",
	"wpb_",
	"vc_",
	"et_pb_",
	"post-",
	"page-",
	"attachment-",
	"size-",
	"align",
	"has-",
	"is-",
	"fa-",
	"eicon",
	"menu-item",
	"animated",
	"animation",
}

// Exact class names treated like vendor classes.
var vendorClasses = map[string]bool{
	"fa":         true,
	"fas":        true,
	"far":        true,
	"fab":        true,
	"clearfix":   true,
	"cf":         true,
	"hentry":     true,
	"type-page":  true,
	"lazyload":   true,
	"lazyloaded": true,
}

// Id prefixes generated by WordPress and page builders.
var vendorIDPrefixes = []string{
	"elementor",
	"wp-",
	"post-",
	"attachment_",
	"attachment-",
	"ez-toc",
	"rev_slider",
	"et_pb_",
	"vc_",
	"gallery-",
}

// Attributes removed regardless of element. data-* is handled separately.
var presentationalAttrs = map[string]bool{
	"style":         true,
	"srcset":        true,
	"sizes":         true,
	"align":         true,
	"bgcolor":       true,
	"border":        true,
	"decoding":      true,
	"fetchpriority": true,
}

// Elements removed when they have no text and no media.
var removableWhenEmpty = map[string]bool{
	"p":       true,
	"div":     true,
	"span":    true,
	"li":      true,
	"ul":      true,
	"ol":      true,
	"section": true,
	"article": true,
}

// Elements that count as content even without text.
var mediaElements = map[string]bool{
	"img":     true,
	"picture": true,
	"video":   true,
	"audio":   true,
	"iframe":  true,
	"embed":   true,
	"object":  true,
	"svg":     true,
	"canvas":  true,
	"source":  true,
	"input":   true,
	"hr":      true,
}

var blockElements = map[string]bool{
	"address":    true,
	"article":    true,
	"aside":      true,
	"blockquote": true,
	"details":    true,
	"dialog":     true,
	"dd":         true,
	"div":        true,
	"dl":         true,
	"dt":         true,
	"fieldset":   true,
	"figcaption": true,
	"figure":     true,
	"footer":     true,
	"form":       true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"header":     true,
	"hgroup":     true,
	"hr":         true,
	"li":         true,
	"main":       true,
	"nav":        true,
	"ol":         true,
	"p":          true,
	"pre":        true,
	"section":    true,
	"table":      true,
	"ul":         true,
}

// URL-bearing attributes rewritten in the URL step.
var urlAttrs = map[string]bool{
	"href":     true,
	"src":      true,
	"data-src": true,
}

func isVendorClass(class string) bool {
	if vendorClasses[class] || scaffoldingClasses[class] || decorativeClasses[class] {
		return true
	}
	for _, prefix := range vendorClassPrefixes {
		if strings.HasPrefix(class, prefix) {
			return true
		}
	}
	return false
}

func isVendorID(id string) bool {
	for _, prefix := range vendorIDPrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func isBlockedEmbed(src string) bool {
	src = strings.ToLower(src)
	for _, host := range blockedEmbedHosts {
		if strings.Contains(src, "://"+host) || strings.Contains(src, "."+host) || strings.HasPrefix(src, "//"+host) {
			return true
		}
	}
	return false
}

// keepList matches classes the caller wants preserved.
type keepList struct {
	exact    map[string]bool
	patterns []*regexp.Regexp
}

func newKeepList(entries []string, patterns []*regexp.Regexp) keepList {
	k := keepList{exact: make(map[string]bool), patterns: patterns}
	for _, e := range entries {
		if len(e) > 2 && strings.HasPrefix(e, "/") && strings.HasSuffix(e, "/") {
			if re, err := regexp.Compile(e[1 : len(e)-1]); err == nil {
				k.patterns = append(k.patterns, re)
				continue
			}
		}
		k.exact[e] = true
	}
	return k
}

func (k keepList) keeps(class string) bool {
	if k.exact[class] {
		return true
	}
	for _, re := range k.patterns {
		if re.MatchString(class) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}
