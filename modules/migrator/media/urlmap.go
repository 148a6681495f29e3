package media

import (
	"encoding/json"
	"maps"
	"strings"
)

// URLMap maps old media URLs and attachment ids to new URLs.
// It is not safe for concurrent writes; the migrator only writes to it
// between windows.
type URLMap struct {
	entries map[string]string
}

// NewURLMap returns an empty map.
func NewURLMap() *URLMap {
	return &URLMap{entries: make(map[string]string)}
}

// Record maps both the attachment id and its source URL to newURL.
func (m *URLMap) Record(id, sourceURL, newURL string) {
	if sourceURL != "" {
		m.entries[sourceURL] = newURL
	}
	if id != "" {
		m.entries[id] = newURL
	}
}

// Set maps a single key.
func (m *URLMap) Set(key, newURL string) {
	m.entries[key] = newURL
}

// Get looks up an old URL or attachment id. A miss means "no image".
func (m *URLMap) Get(key string) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len returns the number of keys.
func (m *URLMap) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the mapping.
func (m *URLMap) Entries() map[string]string {
	return maps.Clone(m.entries)
}

// URLs returns only the URL-keyed entries, for rewriting content.
func (m *URLMap) URLs() map[string]string {
	out := make(map[string]string)
	for k, v := range m.entries {
		if strings.Contains(k, "/") {
			out[k] = v
		}
	}
	return out
}

// Merge copies all entries of other into m.
func (m *URLMap) Merge(other map[string]string) {
	maps.Copy(m.entries, other)
}

// MarshalJSON encodes the map as a flat JSON object.
func (m *URLMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.entries)
}

// UnmarshalJSON replaces the map contents.
func (m *URLMap) UnmarshalJSON(data []byte) error {
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.entries = entries
	return nil
}
