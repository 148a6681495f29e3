// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package wordpress

import "github.com/olegiv/ocms-migrate/internal/model"

// MapStatus converts a WordPress post status to a target page status.
// Unknown statuses map to draft.
func MapStatus(status string) string {
	switch status {
	case "publish":
		return model.PageStatusPublished
	case "trash":
		return model.PageStatusArchived
	case "draft", "pending", "private", "future":
		return model.PageStatusDraft
	default:
		return model.PageStatusDraft
	}
}
