// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the documents the migration writes to the target
// content store.
package model

import "time"

// Page statuses
const (
	PageStatusDraft     = "draft"
	PageStatusPublished = "published"
	PageStatusArchived  = "archived"
)

// Page types
const (
	PageTypeStandard     = "standard"
	PageTypeNews         = "news"
	PageTypeVideoGallery = "video-gallery"
	PageTypeStaffListing = "staff-listing"
)

// IsValidPageType reports whether t is one of the known page types.
func IsValidPageType(t string) bool {
	switch t {
	case PageTypeStandard, PageTypeNews, PageTypeVideoGallery, PageTypeStaffListing:
		return true
	}
	return false
}

// MenuSectionNews is the section every migrated post is filed under.
const MenuSectionNews = "news"

// MigrationUser is recorded as author of every migrated document.
const MigrationUser = "migration"

// PageDocument is a page or post as stored in the target CMS.
type PageDocument struct {
	Title           string    `json:"title" bson:"title"`
	Slug            string    `json:"slug" bson:"slug"`
	Content         string    `json:"content" bson:"content"`
	Status          string    `json:"status" bson:"status"`
	PageType        string    `json:"pageType" bson:"pageType"`
	MenuSection     *string   `json:"menuSection" bson:"menuSection"`
	MenuOrder       int       `json:"menuOrder" bson:"menuOrder"`
	MetaTitle       string    `json:"metaTitle" bson:"metaTitle"`
	MetaDescription string    `json:"metaDescription" bson:"metaDescription"`
	HeaderImage     *string   `json:"headerImage" bson:"headerImage"`
	Parent          string    `json:"parent,omitempty" bson:"parent,omitempty"`
	Categories      []string  `json:"categories,omitempty" bson:"categories,omitempty"`
	Tags            []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	SourceID        string    `json:"sourceId,omitempty" bson:"sourceId,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
	CreatedBy       string    `json:"createdBy" bson:"createdBy"`
	UpdatedBy       string    `json:"updatedBy" bson:"updatedBy"`
}

// InMenu reports whether the page has been assigned to a menu section.
func (p *PageDocument) InMenu() bool {
	return p.MenuSection != nil
}
