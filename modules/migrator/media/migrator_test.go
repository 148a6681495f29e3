// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-migrate/internal/blob"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// fakeBlob records uploads in memory.
type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]blob.Metadata
	public  map[string]bool
	fail    error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		objects: make(map[string][]byte),
		meta:    make(map[string]blob.Metadata),
		public:  make(map[string]bool),
	}
}

func (f *fakeBlob) Upload(_ context.Context, key string, data []byte, meta blob.Metadata) (blob.Ref, error) {
	if f.fail != nil {
		return blob.Ref{}, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.meta[key] = meta
	return blob.Ref{Bucket: "test", Key: key, Size: int64(len(data))}, nil
}

func (f *fakeBlob) MakePublic(_ context.Context, ref blob.Ref) (string, error) {
	f.mu.Lock()
	f.public[ref.Key] = true
	f.mu.Unlock()
	return f.PublicURL(ref.Key), nil
}

func (f *fakeBlob) PublicURL(key string) string {
	return "https://cdn.example.org/" + key
}

// mediaServer serves /ok/<name> with a small body and 404s everything else.
func mediaServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ok/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprintf(w, "content of %s", r.URL.Path)
	})
	mux.HandleFunc("/missing/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/moved/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/ok/moved.jpg", http.StatusFound)
	})
	mux.HandleFunc("/loop/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func attachment(id, rawURL string) wordpress.Attachment {
	return wordpress.Attachment{
		ID:        id,
		URL:       rawURL,
		Filename:  filepath.Base(rawURL),
		MimeType:  "image/jpeg",
		CreatedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func testConfig(t *testing.T) Config {
	return Config{
		OutputDir:    t.TempDir(),
		Concurrency:  2,
		Timeout:      5 * time.Second,
		MaxRedirects: DefaultMaxRedirects,
		SkipExisting: true,
		UserAgent:    "ocms-migrate-test",
	}
}

func TestMigrateOneNotFound(t *testing.T) {
	srv, _ := mediaServer(t)
	cfg := testConfig(t)

	atts := []wordpress.Attachment{
		attachment("101", srv.URL+"/ok/first.jpg"),
		attachment("102", srv.URL+"/missing/second.jpg"),
		attachment("103", srv.URL+"/ok/third.jpg"),
	}

	res, err := New(cfg, Deps{}).Migrate(context.Background(), atts)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.Total)
	assert.Equal(t, 2, res.Stats.Downloaded)
	assert.Equal(t, 0, res.Stats.Uploaded)
	assert.Equal(t, 0, res.Stats.Skipped)
	assert.Equal(t, 1, res.Stats.Failed)
	require.Len(t, res.Stats.Errors, 1)
	assert.Equal(t, "102", res.Stats.Errors[0].ID)
	assert.Contains(t, res.Stats.Errors[0].Error, "404")

	assert.Equal(t, 4, res.URLMap.Len())
	got, ok := res.URLMap.Get(srv.URL + "/ok/first.jpg")
	assert.True(t, ok)
	assert.Equal(t, "/media/first.jpg", got)
	got, ok = res.URLMap.Get("103")
	assert.True(t, ok)
	assert.Equal(t, "/media/third.jpg", got)
	_, ok = res.URLMap.Get("102")
	assert.False(t, ok)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, MediaDir, "first.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "content of /ok/first.jpg", string(data))
}

func TestMigrateStatsConservation(t *testing.T) {
	srv, _ := mediaServer(t)

	var atts []wordpress.Attachment
	for i := range 11 {
		switch i % 4 {
		case 0:
			atts = append(atts, attachment(fmt.Sprint(i), fmt.Sprintf("%s/ok/f%d.jpg", srv.URL, i)))
		case 1:
			atts = append(atts, attachment(fmt.Sprint(i), fmt.Sprintf("%s/missing/f%d.jpg", srv.URL, i)))
		case 2:
			atts = append(atts, wordpress.Attachment{ID: fmt.Sprint(i)})
		default:
			atts = append(atts, attachment(fmt.Sprint(i), "http://127.0.0.1:1/refused.jpg"))
		}
	}

	res, err := New(testConfig(t), Deps{}).Migrate(context.Background(), atts)
	require.NoError(t, err)

	assert.Equal(t, len(atts), res.Stats.Total)
	assert.Equal(t, res.Stats.Total, res.Stats.Downloaded+res.Stats.Skipped+res.Stats.Failed)
	assert.LessOrEqual(t, res.Stats.Uploaded, res.Stats.Downloaded)
	assert.Equal(t, 3, res.Stats.Downloaded)
	assert.Equal(t, 3, res.Stats.Skipped)
	assert.Equal(t, 5, res.Stats.Failed)
	assert.Len(t, res.Stats.Errors, res.Stats.Failed)
}

func TestMigrateSkipExisting(t *testing.T) {
	srv, hits := mediaServer(t)
	cfg := testConfig(t)

	mediaDir := filepath.Join(cfg.OutputDir, MediaDir)
	require.NoError(t, os.MkdirAll(mediaDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "logo.png"), []byte("old"), 0644))

	att := attachment("7", srv.URL+"/ok/logo.png")
	res, err := New(cfg, Deps{}).Migrate(context.Background(), []wordpress.Attachment{att})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 0, res.Stats.Downloaded)
	assert.Equal(t, int32(0), hits.Load())

	got, ok := res.URLMap.Get("7")
	assert.True(t, ok)
	assert.Equal(t, "/media/logo.png", got)
}

func TestMigrateSkipExistingDisabled(t *testing.T) {
	srv, hits := mediaServer(t)
	cfg := testConfig(t)
	cfg.SkipExisting = false

	mediaDir := filepath.Join(cfg.OutputDir, MediaDir)
	require.NoError(t, os.MkdirAll(mediaDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "logo.png"), []byte("old"), 0644))

	res, err := New(cfg, Deps{}).Migrate(context.Background(), []wordpress.Attachment{attachment("7", srv.URL+"/ok/logo.png")})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Downloaded)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMigrateFollowsRedirects(t *testing.T) {
	srv, _ := mediaServer(t)

	res, err := New(testConfig(t), Deps{}).Migrate(context.Background(),
		[]wordpress.Attachment{attachment("1", srv.URL+"/moved/photo.jpg")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Downloaded)
}

func TestMigrateRedirectLimit(t *testing.T) {
	srv, hits := mediaServer(t)
	cfg := testConfig(t)
	cfg.MaxRedirects = 3

	res, err := New(cfg, Deps{}).Migrate(context.Background(),
		[]wordpress.Attachment{attachment("1", srv.URL+"/loop/photo.jpg")})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Failed)
	require.Len(t, res.Stats.Errors, 1)
	assert.Contains(t, res.Stats.Errors[0].Error, "stopped after 3 redirects")
	assert.Equal(t, int32(4), hits.Load())
}

func TestMigrateRedirectsDisabled(t *testing.T) {
	srv, hits := mediaServer(t)
	cfg := testConfig(t)
	cfg.MaxRedirects = 0

	res, err := New(cfg, Deps{}).Migrate(context.Background(),
		[]wordpress.Attachment{attachment("1", srv.URL+"/moved/photo.jpg")})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Failed)
	require.Len(t, res.Stats.Errors, 1)
	assert.Contains(t, res.Stats.Errors[0].Error, "unexpected status 302")
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewDefaultsNegativeRedirects(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRedirects = -1
	assert.Equal(t, DefaultMaxRedirects, New(cfg, Deps{}).cfg.MaxRedirects)

	cfg.MaxRedirects = 0
	assert.Equal(t, 0, New(cfg, Deps{}).cfg.MaxRedirects)
}

func TestMigrateUploads(t *testing.T) {
	srv, _ := mediaServer(t)
	store := newFakeBlob()

	att := attachment("30", srv.URL+"/ok/track.jpg")
	att.AltText = "Running track"
	att.Caption = "Opening day"

	res, err := New(testConfig(t), Deps{Blob: store}).Migrate(context.Background(), []wordpress.Attachment{att})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Downloaded)
	assert.Equal(t, 1, res.Stats.Uploaded)

	const key = "media/2024/03/track.jpg"
	assert.Contains(t, store.objects, key)
	assert.True(t, store.public[key])
	assert.Equal(t, blob.Metadata{
		ContentType: "image/jpeg",
		OriginalURL: att.URL,
		AltText:     "Running track",
		Caption:     "Opening day",
	}, store.meta[key])

	got, ok := res.URLMap.Get(att.URL)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.org/"+key, got)

	require.Len(t, res.Documents, 1)
	doc := res.Documents[0]
	assert.Equal(t, "30", doc.ID)
	assert.Equal(t, key, doc.StoragePath)
	assert.Equal(t, "migration", doc.CreatedBy)
}

func TestMigrateUploadFailure(t *testing.T) {
	srv, _ := mediaServer(t)
	store := newFakeBlob()
	store.fail = errors.New("bucket unavailable")

	res, err := New(testConfig(t), Deps{Blob: store}).Migrate(context.Background(),
		[]wordpress.Attachment{attachment("1", srv.URL+"/ok/a.jpg")})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Stats.Downloaded)
	assert.Equal(t, 0, res.Stats.Uploaded)
	assert.Equal(t, 1, res.Stats.Failed)
	assert.Contains(t, res.Stats.Errors[0].Error, "upload")
	assert.Equal(t, 0, res.URLMap.Len())
}

func TestMigrateSeedSkipsUploaded(t *testing.T) {
	srv, hits := mediaServer(t)
	att := attachment("1", srv.URL+"/ok/a.jpg")

	seed := NewURLMap()
	seed.Set(att.URL, "https://cdn.example.org/media/2024/03/a.jpg")

	res, err := New(testConfig(t), Deps{Blob: newFakeBlob(), Seed: seed}).Migrate(context.Background(), []wordpress.Attachment{att})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, int32(0), hits.Load())
	got, _ := res.URLMap.Get("1")
	assert.Equal(t, "https://cdn.example.org/media/2024/03/a.jpg", got)
}

func TestMigrateProgress(t *testing.T) {
	srv, _ := mediaServer(t)

	var mu sync.Mutex
	outcomes := map[string]string{}
	totals := map[int]int{}
	progress := func(e types.MediaEvent) {
		mu.Lock()
		outcomes[e.ID] = e.Outcome
		totals[e.Total]++
		mu.Unlock()
	}

	atts := []wordpress.Attachment{
		attachment("1", srv.URL+"/ok/a.jpg"),
		attachment("2", srv.URL+"/missing/b.jpg"),
		{ID: "3"},
	}
	_, err := New(testConfig(t), Deps{Progress: progress}).Migrate(context.Background(), atts)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"1": types.OutcomeDownloaded,
		"2": types.OutcomeFailed,
		"3": types.OutcomeSkipped,
	}, outcomes)
	assert.Equal(t, map[int]int{3: 3}, totals)
}

func TestMigrateCanceled(t *testing.T) {
	srv, _ := mediaServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(t), Deps{}).Migrate(ctx, []wordpress.Attachment{attachment("1", srv.URL+"/ok/a.jpg")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMigrateEmpty(t *testing.T) {
	res, err := New(testConfig(t), Deps{}).Migrate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Total)
	assert.Equal(t, 0, res.URLMap.Len())
}

func TestAssignNames(t *testing.T) {
	atts := []wordpress.Attachment{
		{Filename: "Team Photo.JPG"},
		{Filename: "team-photo.jpg"},
		{URL: "https://old.example.org/wp-content/uploads/2024/03/Café.png"},
		{Filename: "team photo.jpg"},
	}

	assert.Equal(t, []string{
		"team-photo.jpg",
		"team-photo-2.jpg",
		"cafe.png",
		"team-photo-3.jpg",
	}, assignNames(atts))
}

func TestObjectKeyFallsBackToNow(t *testing.T) {
	m := New(Config{}, Deps{Now: func() time.Time { return time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC) }})

	assert.Equal(t, "media/2025/11/a.jpg", m.objectKey(wordpress.Attachment{}, "a.jpg"))
	assert.Equal(t, "media/2019/01/a.jpg", m.objectKey(wordpress.Attachment{
		CreatedAt: time.Date(2019, 1, 31, 23, 0, 0, 0, time.UTC),
	}, "a.jpg"))
}

func TestAttachmentError(t *testing.T) {
	err := &AttachmentError{ID: "5", URL: "u", Op: "download", Err: &StatusError{Code: 404}}

	assert.Equal(t, "attachment 5: download: unexpected status 404 Not Found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("x")))
}
