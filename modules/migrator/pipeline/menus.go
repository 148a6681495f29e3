package pipeline

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/internal/util"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
)

// newsSectionTitle titles the section added for posts.
const newsSectionTitle = "News"

// buildSections creates one visible section per menu, in discovery order,
// and files top-level page items under it. Only the first pageCount docs
// are pages. A news section is appended when posts reference one that no
// menu provided.
func buildSections(menus []wordpress.Menu, docs []model.PageDocument, pageCount int, logger *slog.Logger) []model.MenuSection {
	pages := docs[:pageCount]
	sections := make([]model.MenuSection, 0, len(menus)+1)
	seen := make(map[string]bool)

	for _, menu := range menus {
		id := util.Slugify(menu.Name)
		if id == "" {
			id = menu.Slug
		}
		if seen[id] {
			logger.Warn("menu section id reused, merging", "menu", menu.Name, "section", id)
		} else {
			seen[id] = true
			sections = append(sections, model.MenuSection{
				ID:      id,
				Title:   menu.Name,
				Order:   len(sections),
				Visible: true,
			})
		}

		for _, node := range menu.Roots {
			assignMenuItem(node.Item, id, pages, logger)
		}
	}

	if !seen[model.MenuSectionNews] && referencesSection(docs, model.MenuSectionNews) {
		sections = append(sections, model.MenuSection{
			ID:      model.MenuSectionNews,
			Title:   newsSectionTitle,
			Order:   len(sections),
			Visible: true,
		})
	}

	return sections
}

// assignMenuItem matches a page item to a document by object id, then by
// the slug in its URL, then by exact title. The first match wins and a
// page keeps the section of the first menu that claims it.
func assignMenuItem(item wordpress.MenuItem, section string, docs []model.PageDocument, logger *slog.Logger) {
	if item.ObjectType != wordpress.ObjectPage {
		return
	}

	i := findPage(item, docs)
	if i < 0 {
		logger.Warn("menu item matches no page", "item", item.ID, "title", item.Title, "url", item.URL)
		return
	}

	doc := &docs[i]
	if doc.InMenu() {
		logger.Debug("page already in a menu section", "slug", doc.Slug, "section", *doc.MenuSection)
		return
	}
	sec := section
	doc.MenuSection = &sec
	doc.MenuOrder = item.Order
}

func findPage(item wordpress.MenuItem, docs []model.PageDocument) int {
	if item.ObjectID != "" {
		for i, d := range docs {
			if d.SourceID == item.ObjectID {
				return i
			}
		}
	}
	if slug := slugFromURL(item.URL); slug != "" {
		for i, d := range docs {
			if d.Slug == slug {
				return i
			}
		}
	}
	if item.Title != "" {
		for i, d := range docs {
			if d.Title == item.Title {
				return i
			}
		}
	}
	return -1
}

// slugFromURL returns the last path segment: "/about-us/" -> "about-us".
func slugFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func referencesSection(docs []model.PageDocument, id string) bool {
	for _, d := range docs {
		if d.MenuSection != nil && *d.MenuSection == id {
			return true
		}
	}
	return false
}
