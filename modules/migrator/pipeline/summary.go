package pipeline

import (
	"bytes"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderSummary renders a human review index of the run: counts, media
// outcome, every page with a link to its preview, and warnings.
func renderSummary(r *Report) ([]byte, error) {
	var md strings.Builder

	title := "Migration summary"
	if r.Site.Title != "" {
		title += ": " + r.Site.Title
	}
	fmt.Fprintf(&md, "# %s\n\n", escapeMarkdown(title))
	fmt.Fprintf(&md, "Run `%s` of `%s` at %s.", r.RunID, r.Source, r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	switch {
	case r.DegradedToDryRun:
		md.WriteString(" **Dry run** (no usable target credentials).")
	case r.DryRun:
		md.WriteString(" **Dry run.**")
	}
	md.WriteString("\n\n")

	md.WriteString("| Records | Count |\n|---|---:|\n")
	fmt.Fprintf(&md, "| Pages | %d |\n", r.Stats.Pages)
	fmt.Fprintf(&md, "| Posts | %d |\n", r.Stats.Posts)
	fmt.Fprintf(&md, "| Attachments | %d |\n", r.Stats.Attachments)
	fmt.Fprintf(&md, "| Menu sections | %d |\n\n", r.Stats.MenuSections)

	if m := r.MediaStats; m != nil {
		md.WriteString("## Media\n\n")
		fmt.Fprintf(&md, "%d downloaded, %d uploaded, %d skipped, %d failed of %d.\n\n",
			m.Downloaded, m.Uploaded, m.Skipped, m.Failed, m.Total)
		if m.HasErrors() {
			for _, e := range m.Errors {
				fmt.Fprintf(&md, "- %s: %s\n", escapeMarkdown(e.URL), escapeMarkdown(e.Error))
			}
			md.WriteString("\n")
		}
	}

	if len(r.Widgets.Converted)+len(r.Widgets.Unrecognized) > 0 {
		md.WriteString("## Widgets\n\n| Widget | Converted | Kept as is |\n|---|---:|---:|\n")
		for _, name := range widgetNames(r.Widgets) {
			fmt.Fprintf(&md, "| %s | %d | %d |\n", escapeMarkdown(name),
				r.Widgets.Converted[name], r.Widgets.Unrecognized[name])
		}
		md.WriteString("\n")
	}

	if len(r.Documents) > 0 {
		md.WriteString("## Pages\n\n| Title | Type | Status | Section |\n|---|---|---|---|\n")
		for _, d := range r.Documents {
			section := ""
			if d.MenuSection != nil {
				section = *d.MenuSection
			}
			fmt.Fprintf(&md, "| [%s](%s/%s%s) | %s | %s | %s |\n",
				escapeMarkdown(d.Title), PreviewDir, d.Slug, previewFileExt,
				d.PageType, d.Status, escapeMarkdown(section))
		}
		md.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		md.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&md, "- %s\n", escapeMarkdown(w.Message+attrSuffix(w.Attrs)))
		}
		md.WriteString("\n")
	}

	if c := r.Commit; c != nil && c.Attempted {
		fmt.Fprintf(&md, "## Commit\n\n%d documents committed in %d batches.\n", c.Committed, len(c.Batches))
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(md.String()), &body); err != nil {
		return nil, fmt.Errorf("rendering summary: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(title))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

func widgetNames(w WidgetStats) []string {
	names := make([]string, 0, len(w.Converted)+len(w.Unrecognized))
	for k := range w.Converted {
		names = append(names, k)
	}
	for k := range w.Unrecognized {
		if _, ok := w.Converted[k]; !ok {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	return names
}

func attrSuffix(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, attrs[k])
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `>`, `\>`, `|`, `\|`, `#`, `\#`, `!`, `\!`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(strings.Join(strings.Fields(s), " "))
}
