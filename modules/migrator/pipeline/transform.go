// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/ocms-migrate/internal/config"
	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/internal/util"
	"github.com/olegiv/ocms-migrate/modules/migrator/cleaner"
	"github.com/olegiv/ocms-migrate/modules/migrator/media"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
)

// MaxMetaDescription is the longest metaDescription written, in runes.
const MaxMetaDescription = 160

// textPolicy strips all markup for plain-text fields.
var textPolicy = bluemonday.StrictPolicy()

// transformer turns parsed records into page documents.
type transformer struct {
	cleaner *cleaner.Cleaner
	profile *config.Profile
	urls    *media.URLMap // nil when media did not run
	rewrite bool          // apply the URL map to content
	logger  *slog.Logger
	now     time.Time

	taken   map[string]bool
	slugsBy map[string]string // page id -> final slug, non-empty ids only
	widgets cleaner.Stats
}

func newTransformer(cl *cleaner.Cleaner, profile *config.Profile, urls *media.URLMap, rewrite bool, logger *slog.Logger, now time.Time) *transformer {
	return &transformer{
		cleaner: cl,
		profile: profile,
		urls:    urls,
		rewrite: rewrite,
		logger:  logger,
		now:     now,
		taken:   make(map[string]bool),
		slugsBy: make(map[string]string),
		widgets: cleaner.Stats{Converted: map[string]int{}, Unrecognized: map[string]int{}},
	}
}

// newCleaner builds the cleaner from environment and profile settings.
// The URL map is only used when uploads made it point at final URLs.
func newCleaner(cfg *config.Config, profile *config.Profile, urlMap map[string]string) *cleaner.Cleaner {
	return cleaner.New(cleaner.Options{
		OldBaseURL:  cfg.OldBaseURL,
		NewBaseURL:  cfg.NewBaseURL,
		KeepClasses: profile.KeepClasses,
		RemoveEmpty: profile.RemoveEmptyEnabled(),
		Semantic:    profile.SemanticEnabled(),
		URLMap:      urlMap,
	})
}

// transform converts pages then posts, in export order.
func (t *transformer) transform(exp *wordpress.Export) []model.PageDocument {
	docs := make([]model.PageDocument, 0, len(exp.Pages)+len(exp.Posts))

	// Slugs are reserved first so parent references resolve regardless of order.
	pageSlugs := make([]string, len(exp.Pages))
	for i, p := range exp.Pages {
		pageSlugs[i] = t.reserve(p)
	}
	postSlugs := make([]string, len(exp.Posts))
	for i, p := range exp.Posts {
		postSlugs[i] = t.reserve(p.Page)
	}

	for i, p := range exp.Pages {
		doc := t.document(p, pageSlugs[i])
		doc.PageType = t.pageType(doc.Slug, p.Template)
		if p.ParentID != "" {
			doc.Parent = t.slugsBy[p.ParentID]
		}
		docs = append(docs, doc)
	}

	for i, p := range exp.Posts {
		doc := t.document(p.Page, postSlugs[i])
		doc.PageType = model.PageTypeNews
		section := model.MenuSectionNews
		doc.MenuSection = &section
		doc.Categories = termSlugs(p.Categories)
		doc.Tags = termSlugs(p.Tags)
		docs = append(docs, doc)
	}

	return docs
}

// reserve records the slug of an identified page for parent lookups.
func (t *transformer) reserve(p wordpress.Page) string {
	slug := t.reserveSlug(p)
	if p.ID != "" {
		t.slugsBy[p.ID] = slug
	}
	return slug
}

func (t *transformer) document(p wordpress.Page, slug string) model.PageDocument {
	content, stats := t.cleaner.CleanWithStats(p.Content)
	t.widgets.Merge(stats)
	if t.rewrite && t.urls != nil {
		content = t.cleaner.RewriteMediaURLs(content, t.urls.URLs())
	}

	created := p.CreatedAt
	if created.IsZero() {
		created = t.now
	}
	updated := p.ModifiedAt
	if updated.IsZero() {
		updated = created
	}

	doc := model.PageDocument{
		Title:           p.Title,
		Slug:            slug,
		Content:         content,
		Status:          wordpress.MapStatus(p.Status),
		MenuOrder:       p.MenuOrder,
		MetaTitle:       p.Title,
		MetaDescription: metaDescription(p.Excerpt, content),
		SourceID:        p.ID,
		CreatedAt:       created.UTC(),
		UpdatedAt:       updated.UTC(),
		CreatedBy:       model.MigrationUser,
		UpdatedBy:       model.MigrationUser,
	}

	if p.FeaturedImageID != "" && t.urls != nil {
		if u, ok := t.urls.Get(p.FeaturedImageID); ok {
			doc.HeaderImage = &u
		}
	}
	return doc
}

// reserveSlug returns a slug unique across the run. The parser does not
// de-duplicate, so collisions get a numeric suffix and a warning.
func (t *transformer) reserveSlug(p wordpress.Page) string {
	slug := p.Slug
	if slug != "" && !util.IsValidSlug(slug) {
		// post_name is percent-encoded for non-ASCII titles.
		if u, err := url.PathUnescape(slug); err == nil {
			slug = u
		}
		slug = util.Slugify(slug)
	}
	if slug == "" {
		slug = util.Slugify(p.Title)
	}
	if slug == "" {
		slug = "untitled"
		if p.ID != "" {
			slug += "-" + p.ID
		}
	}

	unique := util.UniqueSlug(slug, func(s string) bool { return t.taken[s] })
	if unique != slug {
		t.logger.Warn("duplicate slug renamed", "id", p.ID, "slug", slug, "renamed", unique)
	}
	t.taken[unique] = true
	return unique
}

// pageType picks a profile override, then a type implied by the page
// template, then standard.
func (t *transformer) pageType(slug, template string) string {
	if pt, ok := t.profile.PageType(slug); ok {
		return pt
	}

	tmpl := strings.ToLower(template)
	switch {
	case strings.Contains(tmpl, "video"):
		return model.PageTypeVideoGallery
	case strings.Contains(tmpl, "staff"), strings.Contains(tmpl, "team"):
		return model.PageTypeStaffListing
	default:
		return model.PageTypeStandard
	}
}

// metaDescription is the plain text of the excerpt, or of the content when
// there is no excerpt, cut to MaxMetaDescription runes.
func metaDescription(excerpt, content string) string {
	if text := plainText(excerpt); text != "" {
		return util.Truncate(text, MaxMetaDescription)
	}
	return util.Truncate(plainText(content), MaxMetaDescription)
}

func plainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	text := html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

func termSlugs(terms []wordpress.Term) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		slug := term.Slug
		if slug == "" {
			slug = util.Slugify(term.Name)
		}
		out = append(out, slug)
	}
	return out
}
