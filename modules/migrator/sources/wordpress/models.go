// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import "time"

// WordPress post types the parser understands.
const (
	PostTypePage       = "page"
	PostTypePost       = "post"
	PostTypeAttachment = "attachment"
	PostTypeMenuItem   = "nav_menu_item"
)

// Menu item object types.
const (
	ObjectPage   = "page"
	ObjectPost   = "post"
	ObjectCustom = "custom"
)

// Taxonomies referenced by items and channel terms.
const (
	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"
	TaxonomyNavMenu  = "nav_menu"
)

// Export is everything read from one WXR document.
type Export struct {
	Site        SiteInfo
	Pages       []Page
	Posts       []Post
	Attachments []Attachment
	MenuItems   []MenuItem
	Terms       []Term         // channel-level categories, tags and menu terms
	Skipped     map[string]int // ignored items by post type
}

// SiteInfo holds channel-level metadata.
type SiteInfo struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Language    string `json:"language"`
	BaseSiteURL string `json:"baseSiteUrl"`
	BaseBlogURL string `json:"baseBlogUrl"`
	WXRVersion  string `json:"wxrVersion"`
}

// Term is a category, tag or menu declared on the channel.
type Term struct {
	ID          string
	Taxonomy    string
	Slug        string
	Name        string
	Parent      string
	Description string
}

// Page is a WordPress page. Posts share the same shape.
type Page struct {
	ID                string
	Title             string
	Slug              string
	Link              string
	Content           string
	Excerpt           string
	Status            string // raw WordPress status
	ParentID          string // empty when top-level
	MenuOrder         int
	Author            string
	CreatedAt         time.Time
	ModifiedAt        time.Time
	Meta              map[string]MetaValue
	IsBuilderAuthored bool
	BuilderPayload    string // raw page-builder JSON, opaque
	FeaturedImageID   string
	Template          string // _wp_page_template
}

// Post is a blog post: a Page with taxonomy assignments.
type Post struct {
	Page
	Categories []Term
	Tags       []Term
}

// Attachment is an uploaded media item.
type Attachment struct {
	ID          string
	Title       string
	URL         string
	Filename    string
	MimeType    string
	ParentID    string
	CreatedAt   time.Time
	AltText     string
	Caption     string
	Description string
	Width       int
	Height      int
	Meta        map[string]MetaValue
}

// MenuItem is one navigation entry. Tree structure comes from ParentID.
type MenuItem struct {
	ID         string
	Title      string
	URL        string
	ParentID   string // "0" or empty for top-level items
	Order      int
	ObjectType string // page, post or custom
	ObjectID   string
	CSSClasses []string
	Target     string
	Menu       Term // owning nav_menu term, zero when unknown
}

// IsTopLevel reports whether the item has no parent.
func (m *MenuItem) IsTopLevel() bool {
	return m.ParentID == "" || m.ParentID == "0"
}

// Len returns the number of parsed records.
func (e *Export) Len() int {
	return len(e.Pages) + len(e.Posts) + len(e.Attachments) + len(e.MenuItems)
}
