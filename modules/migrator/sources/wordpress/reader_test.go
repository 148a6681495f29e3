// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-migrate/internal/model"
)

func parseFixture(t *testing.T) *Export {
	t.Helper()
	export, err := NewParser(nil).ParseFile("testdata/export.xml")
	require.NoError(t, err)
	return export
}

func TestParseSiteInfo(t *testing.T) {
	export := parseFixture(t)

	assert.Equal(t, "Riverside School", export.Site.Title)
	assert.Equal(t, "https://old.example.org", export.Site.Link)
	assert.Equal(t, "en-US", export.Site.Language)
	assert.Equal(t, "https://old.example.org", export.Site.BaseSiteURL)
	assert.Equal(t, "1.2", export.Site.WXRVersion)
}

func TestParseRecordCounts(t *testing.T) {
	export := parseFixture(t)

	assert.Len(t, export.Pages, 2)
	assert.Len(t, export.Posts, 1)
	assert.Len(t, export.Attachments, 1)
	assert.Len(t, export.MenuItems, 3)
	assert.Equal(t, 7, export.Len())
	assert.Equal(t, map[string]int{"revision": 1}, export.Skipped)
}

func TestParseBuilderPage(t *testing.T) {
	export := parseFixture(t)
	page := export.Pages[0]

	assert.Equal(t, "10", page.ID)
	assert.Equal(t, "About Us", page.Title)
	assert.Equal(t, "about-us", page.Slug)
	assert.Equal(t, "publish", page.Status)
	assert.Equal(t, "admin", page.Author)
	assert.Equal(t, 1, page.MenuOrder)
	assert.Empty(t, page.ParentID)
	assert.True(t, page.IsBuilderAuthored)
	assert.True(t, strings.HasPrefix(page.BuilderPayload, `[{"id":"abc"`), page.BuilderPayload)
	assert.Equal(t, "30", page.FeaturedImageID)
	assert.Contains(t, page.Content, "elementor-widget-heading")
	assert.Contains(t, page.Excerpt, "intro")

	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), page.CreatedAt)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), page.ModifiedAt)

	data := page.Meta["_elementor_data"]
	assert.Equal(t, MetaJSON, data.Kind)
	assert.True(t, data.Decoded())
}

func TestParsePageFallbacks(t *testing.T) {
	export := parseFixture(t)
	page := export.Pages[1]

	// Empty post_name falls back to the title slug.
	assert.Equal(t, "our-staff", page.Slug)
	assert.Equal(t, "10", page.ParentID)
	assert.Equal(t, "draft", page.Status)
	assert.False(t, page.IsBuilderAuthored)
	assert.Equal(t, "page-staff.php", page.Template)
	// Zero GMT date falls back to the local post date.
	assert.Equal(t, time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC), page.CreatedAt)
	assert.Equal(t, page.CreatedAt, page.ModifiedAt)
}

func TestParsePostTaxonomies(t *testing.T) {
	export := parseFixture(t)
	post := export.Posts[0]

	assert.Equal(t, "sports-day-results", post.Slug)
	assert.Equal(t, "editor", post.Author)
	require.Len(t, post.Categories, 1)
	assert.Equal(t, "school-news", post.Categories[0].Slug)
	assert.Equal(t, "3", post.Categories[0].ID)

	var tags []string
	for _, tag := range post.Tags {
		tags = append(tags, tag.Slug)
	}
	assert.Equal(t, []string{"sports-day", "athletics"}, tags)
}

func TestParseAttachment(t *testing.T) {
	export := parseFixture(t)
	a := export.Attachments[0]

	assert.Equal(t, "30", a.ID)
	assert.Equal(t, "https://old.example.org/wp-content/uploads/2024/03/track.jpg", a.URL)
	assert.Equal(t, "track.jpg", a.Filename)
	assert.Equal(t, model.MimeTypeJPEG, a.MimeType)
	assert.Equal(t, "20", a.ParentID)
	assert.Equal(t, "Running track", a.AltText)
	assert.Equal(t, "The new running track", a.Caption)
	assert.Equal(t, "Running track in spring", a.Description)
	assert.Equal(t, 1200, a.Width)
	assert.Equal(t, 800, a.Height)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), a.CreatedAt)

	assert.False(t, a.Meta["_wp_attachment_metadata"].Decoded())
}

func TestParseMenuItems(t *testing.T) {
	export := parseFixture(t)
	items := export.MenuItems

	assert.Equal(t, "40", items[0].ID)
	assert.Equal(t, ObjectPage, items[0].ObjectType)
	assert.Equal(t, "10", items[0].ObjectID)
	assert.True(t, items[0].IsTopLevel())
	assert.Equal(t, []string{"menu-main"}, items[0].CSSClasses)
	assert.Equal(t, "primary", items[0].Menu.Slug)
	assert.Equal(t, "Primary", items[0].Menu.Name)

	assert.Equal(t, "40", items[1].ParentID)
	assert.False(t, items[1].IsTopLevel())

	assert.Equal(t, ObjectCustom, items[2].ObjectType)
	assert.Equal(t, "https://old.example.org/contact/", items[2].URL)
	assert.Equal(t, "_blank", items[2].Target)
	assert.Equal(t, "footer", items[2].Menu.Slug)
}

func TestParseChannelTerms(t *testing.T) {
	export := parseFixture(t)

	byTaxonomy := map[string][]string{}
	for _, term := range export.Terms {
		byTaxonomy[term.Taxonomy] = append(byTaxonomy[term.Taxonomy], term.Slug)
	}
	assert.Equal(t, []string{"school-news"}, byTaxonomy[TaxonomyCategory])
	assert.Equal(t, []string{"sports-day"}, byTaxonomy[TaxonomyTag])
	assert.Equal(t, []string{"primary", "footer"}, byTaxonomy[TaxonomyNavMenu])
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no channel", input: `<?xml version="1.0"?><rss version="2.0"><foo/></rss>`},
		{name: "wrong root", input: `<?xml version="1.0"?><feed><channel/></feed>`},
		{name: "not xml", input: `this is not xml at all`},
		{name: "empty", input: ``},
		{name: "truncated", input: `<rss><chan`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).Parse(strings.NewReader(tt.input))
			require.Error(t, err)

			var formatErr *FormatError
			assert.True(t, errors.As(err, &formatErr), "expected *FormatError, got %T", err)
		})
	}
}

func TestParseEmptyChannel(t *testing.T) {
	input := `<?xml version="1.0"?>
<rss version="2.0" xmlns:wp="http://wordpress.org/export/1.2/">
<channel><title>Empty</title></channel>
</rss>`

	export, err := NewParser(nil).Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Empty", export.Site.Title)
	assert.Zero(t, export.Len())
}

func TestParseFileMissing(t *testing.T) {
	_, err := NewParser(nil).ParseFile("testdata/does-not-exist.xml")
	require.Error(t, err)

	var formatErr *FormatError
	assert.False(t, errors.As(err, &formatErr))
}
