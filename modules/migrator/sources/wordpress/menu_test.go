// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []*MenuNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Item.ID)
	}
	return out
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})), &buf
}

func TestBuildMenusFromFixture(t *testing.T) {
	export := parseFixture(t)
	menus := BuildMenus(export.MenuItems, nil)

	require.Len(t, menus, 2)
	assert.Equal(t, "Primary", menus[0].Name)
	assert.Equal(t, "primary", menus[0].Slug)
	assert.Equal(t, []string{"40"}, ids(menus[0].Roots))
	assert.Equal(t, []string{"41"}, ids(menus[0].Roots[0].Children))
	assert.Equal(t, 2, menus[0].Size())

	assert.Equal(t, "Footer", menus[1].Name)
	assert.Equal(t, []string{"42"}, ids(menus[1].Roots))
}

func TestBuildMenusDefaultGroup(t *testing.T) {
	items := []MenuItem{
		{ID: "1", ParentID: "0", Order: 2},
		{ID: "2", ParentID: "0", Order: 1},
	}

	menus := BuildMenus(items, nil)
	require.Len(t, menus, 1)
	assert.Equal(t, DefaultMenuName, menus[0].Name)
	assert.Equal(t, "main-menu", menus[0].Slug)
}

func TestBuildMenusOrderingIsStable(t *testing.T) {
	items := []MenuItem{
		{ID: "a", Order: 3},
		{ID: "b", Order: 1},
		{ID: "c", Order: 1},
		{ID: "d", Order: 2},
		{ID: "e", ParentID: "b", Order: 5},
		{ID: "f", ParentID: "b", Order: 4},
	}

	menus := BuildMenus(items, nil)
	require.Len(t, menus, 1)
	roots := menus[0].Roots

	assert.Equal(t, []string{"b", "c", "d", "a"}, ids(roots))
	assert.Equal(t, []string{"f", "e"}, ids(roots[0].Children))
}

func TestBuildMenusOrphanBecomesRoot(t *testing.T) {
	logger, buf := bufferLogger()
	items := []MenuItem{
		{ID: "1", Order: 1},
		{ID: "2", ParentID: "99", Order: 0},
	}

	menus := BuildMenus(items, logger)
	assert.Equal(t, []string{"2", "1"}, ids(menus[0].Roots))
	assert.Contains(t, buf.String(), "parent not found")
}

func TestBuildMenusBreaksCycles(t *testing.T) {
	logger, buf := bufferLogger()
	items := []MenuItem{
		{ID: "root", Order: 0},
		{ID: "x", ParentID: "y", Order: 1},
		{ID: "y", ParentID: "x", Order: 2},
		{ID: "z", ParentID: "y", Order: 3},
	}

	menus := BuildMenus(items, logger)
	require.Len(t, menus, 1)
	m := menus[0]

	// Every item appears exactly once.
	assert.Equal(t, 4, m.Size())
	assert.Contains(t, buf.String(), "cycle broken")

	// Walking x's parent chain starts at x, so the first repeat is x.
	assert.Equal(t, []string{"root", "x"}, ids(m.Roots))
	x := m.Roots[1]
	assert.Empty(t, x.Item.ParentID)
	assert.Equal(t, []string{"y"}, ids(x.Children))
	assert.Equal(t, []string{"z"}, ids(x.Children[0].Children))
}

func TestBuildMenusSelfParent(t *testing.T) {
	logger, _ := bufferLogger()
	menus := BuildMenus([]MenuItem{{ID: "1", ParentID: "1"}}, logger)
	require.Len(t, menus, 1)
	assert.Equal(t, []string{"1"}, ids(menus[0].Roots))
}

func TestBuildMenusEmpty(t *testing.T) {
	assert.Empty(t, BuildMenus(nil, nil))
}
