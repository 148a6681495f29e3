// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// MenuSection is a top-level navigation grouping.
type MenuSection struct {
	ID          string `json:"id" bson:"id"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
	Order       int    `json:"order" bson:"order"`
	Visible     bool   `json:"visible" bson:"visible"`
}
