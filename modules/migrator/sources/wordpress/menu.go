// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import (
	"log/slog"
	"sort"

	"github.com/olegiv/ocms-migrate/internal/util"
)

// DefaultMenuName names the group used for items with no nav_menu term.
const DefaultMenuName = "Main Menu"

// Menu is one navigation menu with its items arranged as a forest.
type Menu struct {
	Name  string
	Slug  string
	Roots []*MenuNode
}

// MenuNode is a menu item and its ordered children.
type MenuNode struct {
	Item     MenuItem
	Children []*MenuNode
}

// Size returns the number of nodes in the menu.
func (m *Menu) Size() int {
	var count func(nodes []*MenuNode) int
	count = func(nodes []*MenuNode) int {
		n := len(nodes)
		for _, c := range nodes {
			n += count(c.Children)
		}
		return n
	}
	return count(m.Roots)
}

// BuildMenus groups menu items by their owning menu, in order of first
// appearance, and arranges each group into a tree ordered by menu order.
// Items whose parent is missing become roots. Parent cycles are broken at
// the first repeated item, which becomes a root. Both cases are logged as
// warnings.
func BuildMenus(items []MenuItem, logger *slog.Logger) []Menu {
	if logger == nil {
		logger = slog.Default()
	}

	type group struct {
		name  string
		slug  string
		items []MenuItem
	}
	var groups []*group
	bySlug := make(map[string]*group)

	for _, it := range items {
		name, slug := it.Menu.Name, it.Menu.Slug
		if name == "" && slug == "" {
			name = DefaultMenuName
		}
		if name == "" {
			name = slug
		}
		if slug == "" {
			slug = util.Slugify(name)
		}

		g, ok := bySlug[slug]
		if !ok {
			g = &group{name: name, slug: slug}
			bySlug[slug] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, it)
	}

	menus := make([]Menu, 0, len(groups))
	for _, g := range groups {
		menus = append(menus, Menu{
			Name:  g.name,
			Slug:  g.slug,
			Roots: buildTree(g.name, g.items, logger),
		})
	}
	return menus
}

func buildTree(menu string, items []MenuItem, logger *slog.Logger) []*MenuNode {
	nodes := make([]*MenuNode, len(items))
	byID := make(map[string]*MenuNode, len(items))
	for i := range items {
		nodes[i] = &MenuNode{Item: items[i]}
		if items[i].ID != "" {
			byID[items[i].ID] = nodes[i]
		}
	}

	var roots []*MenuNode
	children := make(map[*MenuNode][]*MenuNode)
	for _, n := range nodes {
		if n.Item.IsTopLevel() {
			roots = append(roots, n)
			continue
		}
		parent, ok := byID[n.Item.ParentID]
		if !ok || parent == n {
			logger.Warn("menu item parent not found, treating as top-level",
				"menu", menu, "item", n.Item.ID, "parent", n.Item.ParentID)
			roots = append(roots, n)
			continue
		}
		children[parent] = append(children[parent], n)
	}

	attached := make(map[*MenuNode]bool, len(nodes))
	var attach func(n *MenuNode)
	attach = func(n *MenuNode) {
		attached[n] = true
		for _, c := range children[n] {
			if attached[c] {
				continue
			}
			n.Children = append(n.Children, c)
			attach(c)
		}
	}
	for _, r := range roots {
		attach(r)
	}

	// Anything left sits on a parent cycle or below one.
	for _, n := range nodes {
		if attached[n] {
			continue
		}
		seen := make(map[*MenuNode]bool)
		cur := n
		for !seen[cur] {
			seen[cur] = true
			cur = byID[cur.Item.ParentID]
		}
		logger.Warn("menu item parent cycle broken",
			"menu", menu, "item", cur.Item.ID, "parent", cur.Item.ParentID)
		cur.Item.ParentID = ""
		roots = append(roots, cur)
		attach(cur)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Item.Order < nodes[j].Item.Order
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
