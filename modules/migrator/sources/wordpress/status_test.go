package wordpress

import (
	"testing"

	"github.com/olegiv/ocms-migrate/internal/model"
)

func TestMapStatus(t *testing.T) {
	tests := map[string]string{
		"publish":    model.PageStatusPublished,
		"draft":      model.PageStatusDraft,
		"pending":    model.PageStatusDraft,
		"private":    model.PageStatusDraft,
		"future":     model.PageStatusDraft,
		"trash":      model.PageStatusArchived,
		"inherit":    model.PageStatusDraft,
		"auto-draft": model.PageStatusDraft,
		"":           model.PageStatusDraft,
	}

	for in, want := range tests {
		if got := MapStatus(in); got != want {
			t.Errorf("MapStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
