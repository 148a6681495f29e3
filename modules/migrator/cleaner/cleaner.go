// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cleaner turns WordPress and page-builder markup into portable
// semantic HTML.
//
// Clean runs a fixed sequence of steps over a parsed fragment:
//
//  1. strip scripts, styles, comments, social embeds and decorative nodes
//  2. convert recognized builder widgets into plain HTML
//  3. unwrap layout containers and divs wrapping a single block
//  4. drop vendor classes, data-* (except data-src), inline styles, vendor ids
//  5. rewrite URLs from the old base to the new one
//  6. give every image an alt attribute and lazy loading
//  7. remove elements left without text or media
//  8. normalize whitespace
//
// Widgets without a converter, or whose markup a converter does not
// recognize, are kept as they are. Cleaning its own output changes nothing.
package cleaner

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WidgetTypeAttr is the attribute Elementor uses to tag widget markup.
const WidgetTypeAttr = "data-widget_type"

// Options configures a Cleaner.
type Options struct {
	OldBaseURL        string
	NewBaseURL        string
	KeepClasses       []string // exact names, or /regex/
	KeepClassPatterns []*regexp.Regexp
	RemoveEmpty       bool
	Semantic          bool              // convert builder widgets
	URLMap            map[string]string // exact media URL replacements, checked before base rewriting
}

// DefaultOptions enables widget conversion and empty-element removal.
func DefaultOptions() Options {
	return Options{RemoveEmpty: true, Semantic: true}
}

// Stats counts widget conversions for one Clean call, by widget type.
type Stats struct {
	Converted    map[string]int
	Unrecognized map[string]int
}

// Merge adds the counts of o to s. Both maps of s must be non-nil.
func (s Stats) Merge(o Stats) {
	for k, v := range o.Converted {
		s.Converted[k] += v
	}
	for k, v := range o.Unrecognized {
		s.Unrecognized[k] += v
	}
}

// Cleaner is safe for concurrent use once constructed; Register must not
// be called concurrently with Clean.
type Cleaner struct {
	opts       Options
	oldBase    string
	newBase    string
	keep       keepList
	converters map[string]Converter
}

// New creates a Cleaner with the built-in widget converters.
func New(opts Options) *Cleaner {
	c := &Cleaner{
		opts:       opts,
		oldBase:    strings.TrimRight(strings.TrimSpace(opts.OldBaseURL), "/"),
		newBase:    strings.TrimRight(strings.TrimSpace(opts.NewBaseURL), "/"),
		keep:       newKeepList(opts.KeepClasses, opts.KeepClassPatterns),
		converters: make(map[string]Converter),
	}
	registerBuiltins(c)
	return c
}

// Options returns the configuration the cleaner was built with.
func (c *Cleaner) Options() Options {
	return c.opts
}

// Clean returns the cleaned form of an HTML fragment. Empty input yields
// an empty string.
func (c *Cleaner) Clean(s string) string {
	out, _ := c.CleanWithStats(s)
	return out
}

// CleanWithStats is Clean plus per-widget-type conversion counts.
func (c *Cleaner) CleanWithStats(s string) (string, Stats) {
	stats := Stats{Converted: map[string]int{}, Unrecognized: map[string]int{}}
	if strings.TrimSpace(s) == "" {
		return "", stats
	}

	root, err := parseFragment(s)
	if err != nil {
		return "", stats
	}

	p := &pass{
		c:         c,
		root:      root,
		protected: make(map[*html.Node]bool),
		stats:     stats,
	}
	p.stripDisallowed()
	if c.opts.Semantic {
		p.convertWidgets()
	}
	p.unwrapScaffolding()
	p.unwrapRedundantDivs()
	p.stripAttributes()
	p.rewriteURLs()
	p.semanticize()
	if c.opts.RemoveEmpty {
		p.removeEmpty()
	}

	return normalizeWhitespace(renderChildren(root)), p.stats
}

// pass holds the state of one Clean call.
type pass struct {
	c         *Cleaner
	root      *html.Node
	protected map[*html.Node]bool // preserved widgets, skipped by steps 3, 4 and 7
	stats     Stats
}

func (p *pass) stripDisallowed() {
	var doomed []*html.Node
	walk(p.root, func(n *html.Node) bool {
		switch n.Type {
		case html.CommentNode:
			doomed = append(doomed, n)
			return false
		case html.ElementNode:
			if p.disallowed(n) {
				doomed = append(doomed, n)
				return false
			}
		}
		return true
	})
	for _, n := range doomed {
		detach(n)
	}
}

func (p *pass) disallowed(n *html.Node) bool {
	if strippedElements[n.Data] {
		return true
	}
	if n.Data == "iframe" {
		src, _ := attr(n, "src")
		if src == "" {
			src, _ = attr(n, "data-src")
		}
		if isBlockedEmbed(src) {
			return true
		}
	}
	if id, _ := attr(n, "id"); id == "fb-root" {
		return true
	}
	for _, class := range classes(n) {
		if decorativeClasses[class] {
			return true
		}
	}
	if v, _ := attr(n, "aria-hidden"); v == "true" && strings.TrimSpace(textOf(n)) == "" {
		return true
	}
	return false
}

func (p *pass) convertWidgets() {
	var widgets []*html.Node
	walk(p.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if _, ok := attr(n, WidgetTypeAttr); ok {
				widgets = append(widgets, n)
			}
		}
		return true
	})

	for _, w := range widgets {
		if !p.attached(w) || p.isProtected(w) {
			continue
		}
		conv := p.c.convert(w)
		if conv.Outcome == Unrecognized {
			p.protected[w] = true
			p.stats.Unrecognized[conv.WidgetType]++
			continue
		}
		p.stats.Converted[conv.WidgetType]++
		replaceWithHTML(w, conv.HTML)
	}
}

func (p *pass) unwrapScaffolding() {
	var wrappers []*html.Node
	walk(p.root, func(n *html.Node) bool {
		if p.protected[n] {
			return false
		}
		if n.Type == html.ElementNode && n != p.root {
			for _, class := range classes(n) {
				if scaffoldingClasses[class] {
					wrappers = append(wrappers, n)
					break
				}
			}
		}
		return true
	})
	for _, n := range wrappers {
		unwrap(n)
	}
}

// unwrapRedundantDivs replaces any div whose only meaningful child is a
// block element with that child. Children that empty-element removal will
// delete do not count, so a second Clean finds nothing left to unwrap.
func (p *pass) unwrapRedundantDivs() {
	for {
		changed := false
		var divs []*html.Node
		walk(p.root, func(n *html.Node) bool {
			if p.protected[n] {
				return false
			}
			if n.Type == html.ElementNode && n.DataAtom == atom.Div && n != p.root {
				divs = append(divs, n)
			}
			return true
		})
		for _, n := range divs {
			if p.soleBlockChild(n) {
				unwrap(n)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (p *pass) soleBlockChild(n *html.Node) bool {
	var only *html.Node
	count := 0
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.TextNode:
			if strings.TrimSpace(ch.Data) != "" {
				return false
			}
		case html.ElementNode:
			if p.c.opts.RemoveEmpty && p.removable(ch) {
				continue
			}
			count++
			only = ch
		}
	}
	return count == 1 && blockElements[only.Data]
}

func (p *pass) stripAttributes() {
	walk(p.root, func(n *html.Node) bool {
		if p.protected[n] {
			return false
		}
		if n.Type != html.ElementNode || n == p.root {
			return true
		}

		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			switch {
			case strings.HasPrefix(key, "data-") && key != "data-src":
				continue
			case presentationalAttrs[key]:
				continue
			case key == "id" && isVendorID(a.Val):
				continue
			case key == "class":
				a.Val = p.c.filterClasses(a.Val)
				if a.Val == "" {
					continue
				}
			}
			kept = append(kept, a)
		}
		n.Attr = kept
		return true
	})
}

func (c *Cleaner) filterClasses(v string) string {
	var out []string
	for _, class := range strings.Fields(v) {
		if isVendorClass(class) && !c.keep.keeps(class) {
			continue
		}
		out = append(out, class)
	}
	return strings.Join(out, " ")
}

func (p *pass) rewriteURLs() {
	walk(p.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		for i, a := range n.Attr {
			if a.Namespace == "" && urlAttrs[strings.ToLower(a.Key)] {
				n.Attr[i].Val = p.c.RewriteURL(a.Val)
			}
		}
		return true
	})
}

func (p *pass) semanticize() {
	walk(p.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Img {
			return true
		}
		src, _ := attr(n, "src")
		if lazy, ok := attr(n, "data-src"); ok && lazy != "" && (src == "" || strings.HasPrefix(src, "data:")) {
			setAttr(n, "src", lazy)
		}
		if _, ok := attr(n, "alt"); !ok {
			setAttr(n, "alt", "")
		}
		setAttr(n, "loading", "lazy")
		return true
	})
}

func (p *pass) removeEmpty() {
	for {
		var doomed []*html.Node
		walk(p.root, func(n *html.Node) bool {
			if p.protected[n] {
				return false
			}
			if n.Type == html.ElementNode && n != p.root && p.removable(n) {
				doomed = append(doomed, n)
				return false
			}
			return true
		})
		if len(doomed) == 0 {
			return
		}
		for _, n := range doomed {
			detach(n)
		}
	}
}

// removable reports whether empty-element removal deletes n.
func (p *pass) removable(n *html.Node) bool {
	if !removableWhenEmpty[n.Data] || p.protected[n] {
		return false
	}
	return !p.hasContent(n)
}

// hasContent reports whether n holds text, media or a preserved widget.
func (p *pass) hasContent(n *html.Node) bool {
	found := false
	walk(n, func(d *html.Node) bool {
		if found {
			return false
		}
		switch d.Type {
		case html.TextNode:
			if strings.TrimSpace(d.Data) != "" {
				found = true
			}
		case html.ElementNode:
			if d != n && (mediaElements[d.Data] || p.protected[d]) {
				found = true
			}
		}
		return !found
	})
	return found
}

func (p *pass) isProtected(n *html.Node) bool {
	for a := n; a != nil; a = a.Parent {
		if p.protected[a] {
			return true
		}
	}
	return false
}

func (p *pass) attached(n *html.Node) bool {
	for a := n; a != nil; a = a.Parent {
		if a == p.root {
			return true
		}
	}
	return false
}

var (
	blockCloseRe = regexp.MustCompile(`(</(?:p|div|h[1-6]|ul|ol|li|dl|dt|dd|figure|figcaption|section|article|aside|header|footer|nav|details|summary|blockquote|table|thead|tbody|tfoot|tr|pre)>|<hr/>)\n?`)
	blankRunRe   = regexp.MustCompile(`(?:[ \t]*\n){3,}`)
)

// normalizeWhitespace ends every block element on its own line, collapses
// runs of blank lines to one and trims the result.
func normalizeWhitespace(s string) string {
	s = blockCloseRe.ReplaceAllString(s, "$1\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func parseFragment(s string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, fn)
		c = next
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

func replaceWithHTML(n *html.Node, fragment string) {
	parent := n.Parent
	if parent == nil {
		return
	}
	if strings.TrimSpace(fragment) != "" {
		context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
		if err == nil {
			for _, c := range nodes {
				parent.InsertBefore(c, n)
			}
		}
	}
	parent.RemoveChild(n)
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(d *html.Node) bool {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
		}
		return true
	})
	return b.String()
}
