// Package logging provides a slog handler that keeps a copy of warnings
// and errors so they can be written into the migration report.
package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Collector accumulates entries from any number of handlers.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) add(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

// Entries returns a copy of the captured entries in arrival order.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of captured entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CollectorHandler is a slog.Handler that wraps another handler and also
// copies WARN and ERROR records into a Collector.
type CollectorHandler struct {
	inner     slog.Handler
	collector *Collector
	level     slog.Level // Minimum level to capture (default: WARN)
	attrs     []slog.Attr
	group     string
}

// NewCollectorHandler creates a CollectorHandler that wraps the given handler.
// Records at WARN level and above go to both the wrapped handler and the collector.
func NewCollectorHandler(inner slog.Handler, collector *Collector) *CollectorHandler {
	return NewCollectorHandlerWithLevel(inner, collector, slog.LevelWarn)
}

// NewCollectorHandlerWithLevel creates a CollectorHandler with a custom minimum level.
func NewCollectorHandlerWithLevel(inner slog.Handler, collector *Collector, level slog.Level) *CollectorHandler {
	return &CollectorHandler{
		inner:     inner,
		collector: collector,
		level:     level,
	}
}

// Enabled implements slog.Handler.
func (h *CollectorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *CollectorHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.collector.add(Entry{
			Time:    r.Time,
			Level:   r.Level.String(),
			Message: r.Message,
			Attrs:   h.extractAttrs(r),
		})
	}

	if !h.inner.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *CollectorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefixed := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	prefixed = append(prefixed, h.attrs...)
	for _, a := range attrs {
		prefixed = append(prefixed, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &CollectorHandler{
		inner:     h.inner.WithAttrs(attrs),
		collector: h.collector,
		level:     h.level,
		attrs:     prefixed,
		group:     h.group,
	}
}

// WithGroup implements slog.Handler.
func (h *CollectorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &CollectorHandler{
		inner:     h.inner.WithGroup(name),
		collector: h.collector,
		level:     h.level,
		attrs:     h.attrs,
		group:     h.key(name),
	}
}

func (h *CollectorHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// extractAttrs flattens handler and record attributes into strings.
// Group values are flattened with dotted keys.
func (h *CollectorHandler) extractAttrs(r slog.Record) map[string]string {
	if len(h.attrs) == 0 && r.NumAttrs() == 0 {
		return nil
	}

	out := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(out, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(out, h.group, a)
		return true
	})
	return out
}

func flatten(out map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			flatten(out, strings.TrimSuffix(key, "."), ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	out[key] = a.Value.String()
}

// ParseLevel maps a configured level name to a slog.Level. Unknown names
// mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
