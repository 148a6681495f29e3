// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cleaner

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

// Outcome tags the result of a widget conversion.
type Outcome int

const (
	// Converted means HTML replaces the widget.
	Converted Outcome = iota
	// Unrecognized means the widget is kept as is: either no converter is
	// registered for its type or its markup lacks what the converter needs.
	Unrecognized
)

func (o Outcome) String() string {
	if o == Converted {
		return "converted"
	}
	return "unrecognized"
}

// Conversion is the result of converting one widget element.
type Conversion struct {
	Outcome    Outcome
	WidgetType string
	HTML       string        // replacement markup, set when Converted
	Element    *nethtml.Node // the original element, set when Unrecognized
}

// Converter extracts the meaningful parts of a widget and returns plain
// HTML for them. It returns false when the widget's markup is not what it
// expects.
type Converter func(widget *goquery.Selection) (string, bool)

// Register adds or replaces the converter for a widget type such as
// "heading" or "image-box".
func (c *Cleaner) Register(widgetType string, conv Converter) {
	c.converters[widgetType] = conv
}

// Convert runs the registered converter for a widget element.
func (c *Cleaner) Convert(widget *goquery.Selection) Conversion {
	if widget.Length() == 0 {
		return Conversion{Outcome: Unrecognized}
	}
	return c.convert(widget.Get(0))
}

func (c *Cleaner) convert(n *nethtml.Node) Conversion {
	widgetType := WidgetType(n)
	conv, ok := c.converters[widgetType]
	if !ok {
		return Conversion{Outcome: Unrecognized, WidgetType: widgetType, Element: n}
	}
	out, ok := conv(goquery.NewDocumentFromNode(n).Selection)
	if !ok {
		return Conversion{Outcome: Unrecognized, WidgetType: widgetType, Element: n}
	}
	return Conversion{Outcome: Converted, WidgetType: widgetType, HTML: out}
}

// WidgetType returns the widget type of an element tagged with
// data-widget_type, without the skin suffix: "heading.default" is "heading".
func WidgetType(n *nethtml.Node) string {
	v, _ := attr(n, WidgetTypeAttr)
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	return v
}

func registerBuiltins(c *Cleaner) {
	c.Register("heading", convertHeading)
	c.Register("text-editor", convertTextEditor)
	c.Register("image", convertImage)
	c.Register("video", convertVideo)
	c.Register("button", convertButton)
	c.Register("icon-list", convertIconList)
	c.Register("accordion", convertAccordion)
	c.Register("toggle", convertAccordion)
	c.Register("tabs", convertTabs)
	c.Register("gallery", convertGallery)
	c.Register("image-gallery", convertGallery)
	c.Register("image-box", convertImageBox)
}

func convertHeading(w *goquery.Selection) (string, bool) {
	title := w.Find(".elementor-heading-title").First()
	if title.Length() == 0 {
		title = w.Find("h1, h2, h3, h4, h5, h6").First()
	}
	if title.Length() == 0 {
		return "", false
	}

	text := collapsedText(title)
	if text == "" {
		return "", true
	}
	tag := goquery.NodeName(title)
	if !isHeadingTag(tag) {
		tag = "h2"
	}
	return "<" + tag + ">" + html.EscapeString(text) + "</" + tag + ">", true
}

func convertTextEditor(w *goquery.Selection) (string, bool) {
	container := w.Find(".elementor-text-editor").First()
	if container.Length() == 0 {
		container = w.Find(".elementor-widget-container").First()
	}
	if container.Length() == 0 {
		return "", false
	}
	inner, err := container.Html()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

func convertImage(w *goquery.Selection) (string, bool) {
	img := w.Find("img").First()
	if img.Length() == 0 {
		return "", false
	}
	fig, ok := figure(img, collapsedText(w.Find("figcaption, .widget-image-caption").First()))
	if !ok {
		return "", false
	}
	return fig, true
}

var (
	youtubeIDRe = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|v/)|youtu\.be/)([A-Za-z0-9_-]{6,})`)
	vimeoIDRe   = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
)

type videoSettings struct {
	VideoType      string `json:"video_type"`
	YouTubeURL     string `json:"youtube_url"`
	VimeoURL       string `json:"vimeo_url"`
	DailymotionURL string `json:"dailymotion_url"`
	HostedURL      struct {
		URL string `json:"url"`
	} `json:"hosted_url"`
	ExternalURL struct {
		URL string `json:"url"`
	} `json:"external_url"`
}

func convertVideo(w *goquery.Selection) (string, bool) {
	var settings videoSettings
	if raw, ok := w.Attr("data-settings"); ok {
		_ = json.Unmarshal([]byte(raw), &settings)
	}

	hosted := ""
	embed := ""
	switch settings.VideoType {
	case "hosted":
		hosted = firstNonEmpty(settings.ExternalURL.URL, settings.HostedURL.URL)
	case "vimeo":
		embed = settings.VimeoURL
	case "dailymotion":
		embed = settings.DailymotionURL
	default:
		embed = settings.YouTubeURL
	}

	if embed == "" && hosted == "" {
		if iframe := w.Find("iframe").First(); iframe.Length() > 0 {
			embed = firstNonEmpty(attrOf(iframe, "src"), attrOf(iframe, "data-lazy-load"), attrOf(iframe, "data-src"))
		}
	}
	if embed == "" && hosted == "" {
		if video := w.Find("video").First(); video.Length() > 0 {
			hosted = firstNonEmpty(attrOf(video, "src"), attrOf(video.Find("source").First(), "src"))
		}
	}

	switch {
	case hosted != "":
		return `<div class="video-embed"><video src="` + html.EscapeString(hosted) + `" controls preload="metadata"></video></div>`, true
	case embed != "" && !isBlockedEmbed(embed):
		return `<div class="video-embed"><iframe src="` + html.EscapeString(embedURL(embed)) + `" loading="lazy" allowfullscreen></iframe></div>`, true
	default:
		return "", false
	}
}

// embedURL turns a YouTube or Vimeo page URL into its player URL.
func embedURL(raw string) string {
	if strings.Contains(raw, "/embed/") || strings.Contains(raw, "player.vimeo.com") {
		return raw
	}
	if m := youtubeIDRe.FindStringSubmatch(raw); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := vimeoIDRe.FindStringSubmatch(raw); m != nil {
		return "https://player.vimeo.com/video/" + m[1]
	}
	return raw
}

func convertButton(w *goquery.Selection) (string, bool) {
	link := w.Find("a.elementor-button").First()
	if link.Length() == 0 {
		link = w.Find("a").First()
	}
	if link.Length() == 0 {
		return "", false
	}

	text := collapsedText(link.Find(".elementor-button-text").First())
	if text == "" {
		text = collapsedText(link)
	}
	href := attrOf(link, "href")
	if text == "" && href == "" {
		return "", false
	}
	if text == "" {
		text = href
	}

	var b strings.Builder
	b.WriteString(`<p><a`)
	if href != "" {
		b.WriteString(` href="` + html.EscapeString(href) + `"`)
	}
	if target := attrOf(link, "target"); target != "" {
		b.WriteString(` target="` + html.EscapeString(target) + `"`)
	}
	b.WriteString(` class="button">` + html.EscapeString(text) + `</a></p>`)
	return b.String(), true
}

func convertIconList(w *goquery.Selection) (string, bool) {
	items := w.Find(".elementor-icon-list-item")
	if items.Length() == 0 {
		return "", false
	}

	var b strings.Builder
	items.Each(func(_ int, item *goquery.Selection) {
		text := collapsedText(item.Find(".elementor-icon-list-text").First())
		if text == "" {
			text = collapsedText(item)
		}
		if text == "" {
			return
		}
		b.WriteString("<li>")
		if href := attrOf(item.Find("a[href]").First(), "href"); href != "" {
			b.WriteString(`<a href="` + html.EscapeString(href) + `">` + html.EscapeString(text) + `</a>`)
		} else {
			b.WriteString(html.EscapeString(text))
		}
		b.WriteString("</li>")
	})
	if b.Len() == 0 {
		return "", true
	}
	return "<ul>" + b.String() + "</ul>", true
}

func convertAccordion(w *goquery.Selection) (string, bool) {
	items := w.Find(".elementor-accordion-item, .elementor-toggle-item")
	if items.Length() == 0 {
		return "", false
	}

	var b strings.Builder
	items.Each(func(_ int, item *goquery.Selection) {
		title := collapsedText(item.Find(".elementor-tab-title").First())
		content, _ := item.Find(".elementor-tab-content").First().Html()
		if title == "" && strings.TrimSpace(content) == "" {
			return
		}
		b.WriteString("<details><summary>" + html.EscapeString(title) + "</summary>")
		b.WriteString(strings.TrimSpace(content))
		b.WriteString("</details>")
	})
	return b.String(), true
}

func convertTabs(w *goquery.Selection) (string, bool) {
	contents := w.Find(".elementor-tab-content")
	if contents.Length() == 0 {
		return "", false
	}
	titles := w.Find(".elementor-tab-desktop-title")
	if titles.Length() == 0 {
		titles = w.Find(".elementor-tab-title")
	}

	var b strings.Builder
	contents.Each(func(i int, content *goquery.Selection) {
		title := titles.Eq(i)
		if tab := attrOf(content, "data-tab"); tab != "" {
			if match := titles.FilterFunction(func(_ int, t *goquery.Selection) bool {
				return attrOf(t, "data-tab") == tab
			}).First(); match.Length() > 0 {
				title = match
			}
		}
		inner, _ := content.Html()
		if text := collapsedText(title); text != "" {
			b.WriteString("<h3>" + html.EscapeString(text) + "</h3>")
		}
		b.WriteString(strings.TrimSpace(inner))
	})
	if b.Len() == 0 {
		return "", true
	}
	return `<div class="tabs">` + b.String() + `</div>`, true
}

func convertGallery(w *goquery.Selection) (string, bool) {
	var figures []string
	w.Find("img").Each(func(_ int, img *goquery.Selection) {
		caption := collapsedText(img.Closest("figure, .gallery-item").Find("figcaption, .gallery-caption").First())
		if fig, ok := figure(img, caption); ok {
			figures = append(figures, fig)
		}
	})
	if len(figures) == 0 {
		// Pro galleries lazy-load images as backgrounds.
		w.Find("[data-thumbnail]").Each(func(_ int, item *goquery.Selection) {
			src := attrOf(item, "data-thumbnail")
			if src == "" {
				return
			}
			figures = append(figures, `<figure><img src="`+html.EscapeString(src)+`" alt=""></figure>`)
		})
	}
	if len(figures) == 0 {
		return "", false
	}
	return `<div class="gallery">` + strings.Join(figures, "") + `</div>`, true
}

func convertImageBox(w *goquery.Selection) (string, bool) {
	img := w.Find(".elementor-image-box-img img").First()
	if img.Length() == 0 {
		img = w.Find("img").First()
	}
	title := w.Find(".elementor-image-box-title").First()
	if img.Length() == 0 && title.Length() == 0 {
		return "", false
	}

	var b strings.Builder
	if img.Length() > 0 {
		if fig, ok := figure(img, ""); ok {
			b.WriteString(fig)
		}
	}
	if text := collapsedText(title); text != "" {
		tag := goquery.NodeName(title)
		if !isHeadingTag(tag) {
			tag = "h3"
		}
		b.WriteString("<" + tag + ">" + html.EscapeString(text) + "</" + tag + ">")
	}
	if desc := collapsedText(w.Find(".elementor-image-box-description").First()); desc != "" {
		b.WriteString("<p>" + html.EscapeString(desc) + "</p>")
	}
	return b.String(), true
}

// figure renders an image as <figure><img></figure> with an optional
// caption. It fails when the image has no usable source.
func figure(img *goquery.Selection, caption string) (string, bool) {
	src := imageSource(img)
	if src == "" {
		return "", false
	}
	alt := attrOf(img, "alt")

	var b strings.Builder
	b.WriteString(`<figure><img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(alt) + `">`)
	if caption != "" {
		b.WriteString("<figcaption>" + html.EscapeString(caption) + "</figcaption>")
	}
	b.WriteString("</figure>")
	return b.String(), true
}

// imageSource prefers the real source of lazy-loaded images.
func imageSource(img *goquery.Selection) string {
	src := attrOf(img, "src")
	if src == "" || strings.HasPrefix(src, "data:") {
		if lazy := firstNonEmpty(attrOf(img, "data-src"), attrOf(img, "data-lazy-src")); lazy != "" {
			return lazy
		}
	}
	if strings.HasPrefix(src, "data:") {
		return ""
	}
	return src
}

func collapsedText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

func attrOf(s *goquery.Selection, name string) string {
	if s.Length() == 0 {
		return ""
	}
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isHeadingTag(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
