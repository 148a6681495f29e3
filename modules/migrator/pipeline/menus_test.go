package pipeline

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/modules/migrator/cleaner"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/about-us/", "about-us"},
		{"https://old.example.org/about-us/staff/", "staff"},
		{"about-us", "about-us"},
		{"https://old.example.org/", ""},
		{"", ""},
		{"/news/?page=2", "news"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slugFromURL(tt.in))
		})
	}
}

func TestBuildSections(t *testing.T) {
	news := model.MenuSectionNews
	docs := []model.PageDocument{
		{Title: "About Us", Slug: "about-us", SourceID: "10"},
		{Title: "Contact", Slug: "contact", SourceID: "11"},
		{Title: "Visit", Slug: "visit", SourceID: "12"},
		{Title: "Sports Day", Slug: "sports-day", SourceID: "20", MenuSection: &news},
	}
	items := []wordpress.MenuItem{
		{ID: "40", Title: "About", ObjectType: wordpress.ObjectPage, ObjectID: "10", Order: 2, Menu: wordpress.Term{Name: "Primary", Slug: "primary"}},
		{ID: "41", Title: "Contact", ObjectType: wordpress.ObjectPage, URL: "/contact/", Order: 5, Menu: wordpress.Term{Name: "Primary", Slug: "primary"}},
		{ID: "42", Title: "Sports Day", ObjectType: wordpress.ObjectPage, Order: 1, Menu: wordpress.Term{Name: "Primary", Slug: "primary"}},
		{ID: "43", Title: "Visit", ObjectType: wordpress.ObjectPage, Order: 1, Menu: wordpress.Term{Name: "Footer Links", Slug: "footer"}},
		{ID: "44", Title: "About again", ObjectType: wordpress.ObjectPage, ObjectID: "10", Order: 7, Menu: wordpress.Term{Name: "Footer Links", Slug: "footer"}},
		{ID: "45", Title: "Blog", ObjectType: wordpress.ObjectCustom, URL: "https://blog.example.org", Menu: wordpress.Term{Name: "Footer Links", Slug: "footer"}},
	}

	logger := slog.New(slog.DiscardHandler)
	sections := buildSections(wordpress.BuildMenus(items, logger), docs, 3, logger)

	assert.Equal(t, []model.MenuSection{
		{ID: "primary", Title: "Primary", Order: 0, Visible: true},
		{ID: "footer-links", Title: "Footer Links", Order: 1, Visible: true},
		{ID: "news", Title: "News", Order: 2, Visible: true},
	}, sections)

	require.NotNil(t, docs[0].MenuSection)
	assert.Equal(t, "primary", *docs[0].MenuSection)
	assert.Equal(t, 2, docs[0].MenuOrder)

	assert.Equal(t, "primary", *docs[1].MenuSection)
	assert.Equal(t, 5, docs[1].MenuOrder)

	assert.Equal(t, "footer-links", *docs[2].MenuSection)

	// Posts are not matched by title.
	assert.Equal(t, "news", *docs[3].MenuSection)
	assert.Equal(t, 0, docs[3].MenuOrder)
}

func TestBuildSectionsNoMenus(t *testing.T) {
	docs := []model.PageDocument{{Title: "About", Slug: "about"}}
	sections := buildSections(nil, docs, 1, slog.New(slog.DiscardHandler))
	assert.Empty(t, sections)
	assert.Nil(t, docs[0].MenuSection)
}

func TestRenderSummary(t *testing.T) {
	section := "primary"
	r := newReport("export.xml", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true)
	r.Site.Title = "Riverside School"
	r.Stats = ReportStats{Pages: 2, Posts: 1, Attachments: 3, MenuSections: 1}
	r.MediaStats = &types.MediaStats{
		Total: 3, Downloaded: 1, Skipped: 1, Failed: 1,
		Errors: []types.MediaError{{ID: "31", URL: "https://old.example.org/x.jpg", Error: "HTTP 404"}},
	}
	r.setWidgets(cleaner.Stats{
		Converted:    map[string]int{"heading": 4},
		Unrecognized: map[string]int{"countdown": 1},
	})
	r.Documents = []model.PageDocument{
		{Title: "About | Us", Slug: "about-us", PageType: model.PageTypeStandard, Status: model.PageStatusPublished, MenuSection: &section},
	}

	out, err := renderSummary(r)
	require.NoError(t, err)
	html := string(out)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Migration summary: Riverside School</title>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, `href="cleaned-content/about-us.html"`)
	assert.Contains(t, html, "About | Us")
	assert.Contains(t, html, "1 downloaded, 0 uploaded, 1 skipped, 1 failed of 3.")
	assert.Contains(t, html, "HTTP 404")
	assert.Contains(t, html, "<td>heading</td>")
	assert.Contains(t, html, "<td>countdown</td>")
	assert.Contains(t, html, "<strong>Dry run.</strong>")
	assert.NotContains(t, html, "Commit")
}

func TestRenderSummaryOmitsEmptySections(t *testing.T) {
	r := newReport("export.xml", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), false)
	r.MediaStats = &types.MediaStats{Total: 1, Downloaded: 1}

	out, err := renderSummary(r)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "1 downloaded, 0 uploaded, 0 skipped, 0 failed of 1.")
	assert.NotContains(t, html, "<ul>")
	assert.NotContains(t, html, "Widgets")
}
