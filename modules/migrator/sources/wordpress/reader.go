// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html/charset"

	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/internal/util"
)

// FormatError reports a document that is not a usable WXR export.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid WXR export: %s: %v", e.Reason, e.Err)
	}
	return "invalid WXR export: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// zeroDate is how WordPress stores an unset date.
const zeroDate = "0000-00-00 00:00:00"

// Parser reads WordPress WXR exports.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a WXR parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFile reads and parses the export at path.
func (p *Parser) ParseFile(filePath string) (*Export, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	return p.Parse(bytes.NewReader(data))
}

// Parse parses a WXR document. A document without a channel, or one that
// is not well-formed, yields a *FormatError.
func (p *Parser) Parse(r io.Reader) (*Export, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	if err := checkStructure(data); err != nil {
		return nil, err
	}

	rp := rss.Parser{}
	feed, err := rp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Reason: "malformed feed", Err: err}
	}

	export := &Export{
		Site:    siteInfo(feed),
		Terms:   channelTerms(feed.Extensions),
		Skipped: make(map[string]int),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		postType := wpValue(item.Extensions, "post_type")
		switch postType {
		case PostTypePage:
			export.Pages = append(export.Pages, p.page(item))
		case PostTypePost:
			export.Posts = append(export.Posts, p.post(item, export.Terms))
		case PostTypeAttachment:
			export.Attachments = append(export.Attachments, p.attachment(item))
		case PostTypeMenuItem:
			export.MenuItems = append(export.MenuItems, p.menuItem(item, export.Terms))
		default:
			if postType == "" {
				postType = "unknown"
			}
			export.Skipped[postType]++
		}
	}

	p.logger.Debug("parsed export",
		"pages", len(export.Pages),
		"posts", len(export.Posts),
		"attachments", len(export.Attachments),
		"menu_items", len(export.MenuItems),
		"terms", len(export.Terms))

	return export, nil
}

// checkStructure verifies that the document is an rss root with a channel
// element before handing it to the feed parser, which is lenient.
func checkStructure(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return &FormatError{Reason: "missing channel element"}
		}
		if err != nil {
			return &FormatError{Reason: "malformed XML", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 && t.Name.Local != "rss" {
				return &FormatError{Reason: fmt.Sprintf("unexpected root element %q", t.Name.Local)}
			}
			if depth == 2 && t.Name.Local == "channel" {
				return nil
			}
		case xml.EndElement:
			depth--
		}
	}
}

func siteInfo(feed *rss.Feed) SiteInfo {
	return SiteInfo{
		Title:       strings.TrimSpace(feed.Title),
		Link:        strings.TrimSpace(feed.Link),
		Description: strings.TrimSpace(feed.Description),
		Language:    strings.TrimSpace(feed.Language),
		BaseSiteURL: wpValue(feed.Extensions, "base_site_url"),
		BaseBlogURL: wpValue(feed.Extensions, "base_blog_url"),
		WXRVersion:  wpValue(feed.Extensions, "wxr_version"),
	}
}

func channelTerms(exts ext.Extensions) []Term {
	var terms []Term
	for _, e := range wpElements(exts, "category") {
		terms = append(terms, Term{
			ID:          child(e, "term_id"),
			Taxonomy:    TaxonomyCategory,
			Slug:        child(e, "category_nicename"),
			Name:        child(e, "cat_name"),
			Parent:      child(e, "category_parent"),
			Description: child(e, "category_description"),
		})
	}
	for _, e := range wpElements(exts, "tag") {
		terms = append(terms, Term{
			ID:          child(e, "term_id"),
			Taxonomy:    TaxonomyTag,
			Slug:        child(e, "tag_slug"),
			Name:        child(e, "tag_name"),
			Description: child(e, "tag_description"),
		})
	}
	for _, e := range wpElements(exts, "term") {
		terms = append(terms, Term{
			ID:          child(e, "term_id"),
			Taxonomy:    child(e, "term_taxonomy"),
			Slug:        child(e, "term_slug"),
			Name:        child(e, "term_name"),
			Parent:      child(e, "term_parent"),
			Description: child(e, "term_description"),
		})
	}
	return terms
}

func (p *Parser) page(item *rss.Item) Page {
	meta := postMeta(item.Extensions)
	title := strings.TrimSpace(item.Title)

	slug := wpValue(item.Extensions, "post_name")
	if slug == "" {
		slug = util.Slugify(title)
	}

	pg := Page{
		ID:              wpValue(item.Extensions, "post_id"),
		Title:           title,
		Slug:            slug,
		Link:            strings.TrimSpace(item.Link),
		Content:         content(item),
		Excerpt:         extValue(item.Extensions, "excerpt", "encoded"),
		Status:          wpValue(item.Extensions, "status"),
		ParentID:        parentID(wpValue(item.Extensions, "post_parent")),
		MenuOrder:       atoi(wpValue(item.Extensions, "menu_order")),
		Author:          author(item),
		CreatedAt:       p.itemDate(item, "post_date_gmt", "post_date"),
		ModifiedAt:      p.itemDate(item, "post_modified_gmt", "post_modified"),
		Meta:            meta,
		BuilderPayload:  metaString(meta, "_elementor_data"),
		FeaturedImageID: metaString(meta, "_thumbnail_id"),
		Template:        metaString(meta, "_wp_page_template"),
	}
	pg.IsBuilderAuthored = metaString(meta, "_elementor_edit_mode") == "builder"
	if pg.ModifiedAt.IsZero() {
		pg.ModifiedAt = pg.CreatedAt
	}
	return pg
}

func (p *Parser) post(item *rss.Item, terms []Term) Post {
	post := Post{Page: p.page(item)}
	for _, c := range item.Categories {
		if c == nil {
			continue
		}
		switch c.Domain {
		case TaxonomyCategory:
			post.Categories = append(post.Categories, resolveTerm(terms, TaxonomyCategory, c.Value))
		case TaxonomyTag:
			post.Tags = append(post.Tags, resolveTerm(terms, TaxonomyTag, c.Value))
		}
	}
	return post
}

func (p *Parser) attachment(item *rss.Item) Attachment {
	meta := postMeta(item.Extensions)
	attachmentURL := wpValue(item.Extensions, "attachment_url")
	if attachmentURL == "" && item.GUID != nil {
		attachmentURL = strings.TrimSpace(item.GUID.Value)
	}

	a := Attachment{
		ID:          wpValue(item.Extensions, "post_id"),
		Title:       strings.TrimSpace(item.Title),
		URL:         attachmentURL,
		Filename:    filenameFromURL(attachmentURL),
		ParentID:    parentID(wpValue(item.Extensions, "post_parent")),
		CreatedAt:   p.itemDate(item, "post_date_gmt", "post_date"),
		AltText:     metaString(meta, "_wp_attachment_image_alt"),
		Caption:     extValue(item.Extensions, "excerpt", "encoded"),
		Description: content(item),
		Meta:        meta,
	}
	a.MimeType = model.MimeTypeFromFilename(a.Filename)

	if v, ok := meta["_wp_attachment_metadata"]; ok {
		if w, ok := serializedInt(v.Raw, "width"); ok {
			a.Width = w
		}
		if h, ok := serializedInt(v.Raw, "height"); ok {
			a.Height = h
		}
	}
	return a
}

func (p *Parser) menuItem(item *rss.Item, terms []Term) MenuItem {
	meta := postMeta(item.Extensions)

	mi := MenuItem{
		ID:       wpValue(item.Extensions, "post_id"),
		Title:    strings.TrimSpace(item.Title),
		URL:      metaString(meta, "_menu_item_url"),
		ParentID: metaString(meta, "_menu_item_menu_item_parent"),
		Order:    atoi(wpValue(item.Extensions, "menu_order")),
		ObjectID: metaString(meta, "_menu_item_object_id"),
		Target:   metaString(meta, "_menu_item_target"),
	}

	switch metaString(meta, "_menu_item_object") {
	case ObjectPage:
		mi.ObjectType = ObjectPage
	case ObjectPost:
		mi.ObjectType = ObjectPost
	default:
		mi.ObjectType = ObjectCustom
	}

	if v, ok := meta["_menu_item_classes"]; ok {
		if v.Decoded() {
			mi.CSSClasses = strings.Fields(v.String())
		} else {
			mi.CSSClasses = serializedListValues(v.Raw)
		}
	}

	for _, c := range item.Categories {
		if c != nil && c.Domain == TaxonomyNavMenu {
			mi.Menu = resolveTerm(terms, TaxonomyNavMenu, c.Value)
			break
		}
	}
	return mi
}

// itemDate returns the first parseable date among the given wp: fields,
// falling back to pubDate.
func (p *Parser) itemDate(item *rss.Item, fields ...string) time.Time {
	for _, f := range fields {
		v := wpValue(item.Extensions, f)
		if v == "" || v == zeroDate {
			continue
		}
		t, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			p.logger.Debug("unparseable date", "field", f, "value", v, "error", err)
			continue
		}
		return t.UTC()
	}
	if item.PubDateParsed != nil {
		return item.PubDateParsed.UTC()
	}
	return time.Time{}
}

// resolveTerm finds a channel term by display name. Item categories carry
// the nicename only as an attribute the feed parser drops, so the slug is
// recovered from the channel or derived from the name.
func resolveTerm(terms []Term, taxonomy, name string) Term {
	name = strings.TrimSpace(name)
	for _, t := range terms {
		if t.Taxonomy == taxonomy && t.Name == name {
			return t
		}
	}
	return Term{Taxonomy: taxonomy, Name: name, Slug: util.Slugify(name)}
}

func content(item *rss.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return extValue(item.Extensions, "content", "encoded")
}

func author(item *rss.Item) string {
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return strings.TrimSpace(item.DublinCoreExt.Creator[0])
	}
	if v := extValue(item.Extensions, "dc", "creator"); v != "" {
		return v
	}
	return strings.TrimSpace(item.Author)
}

func postMeta(exts ext.Extensions) map[string]MetaValue {
	meta := make(map[string]MetaValue)
	for _, e := range wpElements(exts, "postmeta") {
		key := child(e, "meta_key")
		if key == "" {
			continue
		}
		meta[key] = DecodeMeta(child(e, "meta_value"))
	}
	return meta
}

func filenameFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

func parentID(v string) string {
	if v == "0" {
		return ""
	}
	return v
}

func atoi(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func wpElements(exts ext.Extensions, name string) []ext.Extension {
	if exts == nil {
		return nil
	}
	return exts["wp"][name]
}

func wpValue(exts ext.Extensions, name string) string {
	return extValue(exts, "wp", name)
}

func extValue(exts ext.Extensions, prefix, name string) string {
	if exts == nil {
		return ""
	}
	values := exts[prefix][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func child(e ext.Extension, name string) string {
	values := e.Children[name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
