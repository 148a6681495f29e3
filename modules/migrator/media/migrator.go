// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media downloads WordPress attachments, optionally uploads them to
// a blob store, and builds the old-to-new URL map used to rewrite content.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/olegiv/ocms-migrate/internal/blob"
	"github.com/olegiv/ocms-migrate/internal/config"
	"github.com/olegiv/ocms-migrate/internal/imaging"
	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/internal/util"
	"github.com/olegiv/ocms-migrate/modules/migrator/sources/wordpress"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// Local layout under the output directory.
const (
	MediaDir     = "media"
	ThumbsDir    = ".thumbs"
	LocalURLBase = "/media/"
)

// maxDownloadSize caps a single attachment body.
const maxDownloadSize = 512 << 20

// DefaultMaxRedirects is used when Config.MaxRedirects is negative.
const DefaultMaxRedirects = 5

// Config controls downloads and uploads.
type Config struct {
	OutputDir     string
	Concurrency   int           // window width
	Timeout       time.Duration // per download
	UploadTimeout time.Duration // per upload, including making it public
	RateLimit     float64       // downloads per second, 0 = unlimited
	MaxRedirects  int           // per download, 0 = none, negative = DefaultMaxRedirects
	SkipExisting  bool
	UserAgent     string
}

// ConfigFrom builds a media config from the environment settings.
func ConfigFrom(cfg *config.Config, outputDir string) Config {
	return Config{
		OutputDir:     outputDir,
		Concurrency:   cfg.MediaConcurrency,
		Timeout:       cfg.MediaTimeout,
		UploadTimeout: cfg.UploadTimeout,
		RateLimit:     cfg.MediaRateLimit,
		MaxRedirects:  cfg.MediaMaxRedirects,
		SkipExisting:  cfg.MediaSkipExisting,
		UserAgent:     cfg.UserAgent,
	}
}

// Deps are the collaborators of a Migrator. Only Logger is required.
type Deps struct {
	Logger   *slog.Logger
	Client   *http.Client // built from Config when nil
	Blob     blob.Store   // nil disables uploads
	Images   *imaging.Processor
	Seed     *URLMap // checkpoint loaded before the run
	Progress func(types.MediaEvent)
	Now      func() time.Time
}

// Result is the outcome of Migrate.
type Result struct {
	Stats     types.MediaStats
	URLMap    *URLMap
	Documents []model.MediaDocument // metadata of uploaded attachments
}

// Migrator processes attachments in fixed-size concurrent windows.
type Migrator struct {
	cfg      Config
	logger   *slog.Logger
	client   *http.Client
	blob     blob.Store
	images   *imaging.Processor
	limiter  *rate.Limiter
	seed     *URLMap
	progress func(types.MediaEvent)
	now      func() time.Time
	mediaDir string
	total    int
}

// New creates a Migrator.
func New(cfg Config, deps Deps) *Migrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 60 * time.Second
	}
	if cfg.MaxRedirects < 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	m := &Migrator{
		cfg:      cfg,
		logger:   deps.Logger,
		blob:     deps.Blob,
		images:   deps.Images,
		seed:     deps.Seed,
		progress: deps.Progress,
		now:      deps.Now,
		mediaDir: filepath.Join(cfg.OutputDir, MediaDir),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	client := http.Client{}
	if deps.Client != nil {
		client = *deps.Client
	}
	client.CheckRedirect = redirectPolicy(cfg.MaxRedirects)
	m.client = &client
	if m.images == nil {
		m.images = imaging.NewProcessor(filepath.Join(m.mediaDir, ThumbsDir))
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg.RateLimit > 0 {
		burst := max(1, int(cfg.RateLimit))
		m.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return m
}

// redirectPolicy stops following redirects after limit hops.
func redirectPolicy(limit int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if limit == 0 {
			// The redirect response itself fails the download.
			return http.ErrUseLastResponse
		}
		if len(via) > limit {
			return fmt.Errorf("stopped after %d redirects", limit)
		}
		return nil
	}
}

// outcome is the result of one attachment.
type outcome struct {
	kind     string
	newURL   string
	uploaded bool
	doc      *model.MediaDocument
	err      error
}

// Migrate processes every attachment. Attachment failures are recorded in
// the stats and never returned; the error is non-nil only when the
// context ends or the media directory cannot be created.
func (m *Migrator) Migrate(ctx context.Context, attachments []wordpress.Attachment) (*Result, error) {
	res := &Result{
		Stats:  types.MediaStats{Total: len(attachments), Errors: []types.MediaError{}},
		URLMap: NewURLMap(),
	}
	if m.seed != nil {
		res.URLMap.Merge(m.seed.Entries())
	}
	if len(attachments) == 0 {
		return res, nil
	}

	if err := os.MkdirAll(m.mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}

	m.total = len(attachments)
	names := assignNames(attachments)
	width := m.cfg.Concurrency

	for start := 0; start < len(attachments); start += width {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+width, len(attachments))

		results := make([]outcome, end-start)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i-start] = m.process(gctx, attachments[i], names[i], res.URLMap)
				return nil
			})
		}
		_ = g.Wait()

		// The window has resolved; merging here keeps map writes single-threaded.
		for i, out := range results {
			m.merge(res, attachments[start+i], out)
		}
	}

	m.logger.Info("media migrated",
		"total", res.Stats.Total,
		"downloaded", res.Stats.Downloaded,
		"uploaded", res.Stats.Uploaded,
		"skipped", res.Stats.Skipped,
		"failed", res.Stats.Failed,
	)
	return res, nil
}

func (m *Migrator) merge(res *Result, att wordpress.Attachment, out outcome) {
	switch out.kind {
	case types.OutcomeDownloaded:
		res.Stats.Downloaded++
		if out.uploaded {
			res.Stats.Uploaded++
		}
	case types.OutcomeSkipped:
		res.Stats.Skipped++
	default:
		res.Stats.Failed++
		res.Stats.Errors = append(res.Stats.Errors, types.MediaError{
			ID:    att.ID,
			URL:   att.URL,
			Error: out.err.Error(),
		})
		if IsNotFound(out.err) {
			m.logger.Warn("attachment missing on source", "id", att.ID, "url", att.URL)
		} else {
			m.logger.Warn("attachment failed", "id", att.ID, "url", att.URL, "error", out.err)
		}
	}

	if out.newURL != "" {
		res.URLMap.Record(att.ID, att.URL, out.newURL)
	}
	if out.doc != nil {
		res.Documents = append(res.Documents, *out.doc)
	}
}

// process handles one attachment. urls is only read.
func (m *Migrator) process(ctx context.Context, att wordpress.Attachment, name string, urls *URLMap) (out outcome) {
	defer func() {
		if m.progress != nil {
			m.progress(types.MediaEvent{ID: att.ID, URL: att.URL, Outcome: out.kind, Total: m.total})
		}
	}()

	if att.URL == "" {
		m.logger.Debug("attachment has no url", "id", att.ID)
		return outcome{kind: types.OutcomeSkipped}
	}

	// Already uploaded by a previous run
	if m.blob != nil {
		if prev, ok := urls.Get(att.URL); ok && isAbsolute(prev) {
			return outcome{kind: types.OutcomeSkipped, newURL: prev}
		}
	}

	localPath, err := util.SafeJoinPath(m.mediaDir, name)
	if err != nil {
		return failed(att, "filename", err)
	}

	if m.cfg.SkipExisting {
		if info, err := os.Stat(localPath); err == nil && !info.IsDir() {
			return m.reuseLocal(ctx, att, name, localPath)
		}
	}

	data, err := m.download(ctx, att.URL)
	if err != nil {
		return failed(att, "download", err)
	}

	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return failed(att, "write", err)
	}

	dims := m.inspect(att, name, data)

	if m.blob == nil {
		return outcome{kind: types.OutcomeDownloaded, newURL: LocalURLBase + name}
	}

	doc, err := m.upload(ctx, att, name, data, dims)
	if err != nil {
		return failed(att, "upload", err)
	}
	return outcome{kind: types.OutcomeDownloaded, newURL: doc.URL, uploaded: true, doc: doc}
}

// reuseLocal treats a file left by an earlier run as migrated. With a blob
// store the local bytes are uploaded; the attachment still counts as
// skipped because nothing was downloaded.
func (m *Migrator) reuseLocal(ctx context.Context, att wordpress.Attachment, name, localPath string) outcome {
	if m.blob == nil {
		m.logger.Debug("media exists, skipping download", "id", att.ID, "file", name)
		return outcome{kind: types.OutcomeSkipped, newURL: LocalURLBase + name}
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return failed(att, "read", err)
	}
	doc, err := m.upload(ctx, att, name, data, m.inspect(att, name, data))
	if err != nil {
		return failed(att, "upload", err)
	}
	return outcome{kind: types.OutcomeSkipped, newURL: doc.URL, doc: doc}
}

func (m *Migrator) download(ctx context.Context, rawURL string) ([]byte, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if m.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", m.cfg.UserAgent)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("body exceeds %d bytes", maxDownloadSize)
	}
	return data, nil
}

type dimensions struct {
	width, height int
	mimeType      string
}

// inspect sniffs the content type, probes image dimensions the export did
// not carry and writes a review thumbnail. Failures are logged only.
func (m *Migrator) inspect(att wordpress.Attachment, name string, data []byte) dimensions {
	dims := dimensions{width: att.Width, height: att.Height, mimeType: att.MimeType}

	sniffed := mimetype.Detect(data).String()
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != model.MimeTypeBinary && sniffed != "text/plain" {
		dims.mimeType = sniffed
	}
	if dims.mimeType == "" {
		dims.mimeType = model.MimeTypeFromFilename(name)
	}

	if !m.images.IsImage(dims.mimeType) {
		return dims
	}

	if dims.width == 0 || dims.height == 0 {
		probe, err := m.images.Probe(data)
		if err != nil {
			m.logger.Debug("reading image config failed", "id", att.ID, "error", err)
		} else {
			dims.width, dims.height = probe.Width, probe.Height
		}
	}

	if _, err := m.images.Thumbnail(data, name); err != nil {
		m.logger.Debug("thumbnail failed", "id", att.ID, "error", err)
	}
	return dims
}

func (m *Migrator) upload(ctx context.Context, att wordpress.Attachment, name string, data []byte, dims dimensions) (*model.MediaDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.UploadTimeout)
	defer cancel()

	key := m.objectKey(att, name)
	ref, err := m.blob.Upload(ctx, key, data, blob.Metadata{
		ContentType: dims.mimeType,
		OriginalURL: att.URL,
		AltText:     att.AltText,
		Caption:     att.Caption,
	})
	if err != nil {
		return nil, err
	}

	publicURL, err := m.blob.MakePublic(ctx, ref)
	if err != nil {
		return nil, err
	}

	return &model.MediaDocument{
		ID:          att.ID,
		Filename:    name,
		OriginalURL: att.URL,
		URL:         publicURL,
		StoragePath: ref.Key,
		MimeType:    dims.mimeType,
		Size:        ref.Size,
		Width:       dims.width,
		Height:      dims.height,
		AltText:     att.AltText,
		Caption:     att.Caption,
		UploadedAt:  m.now().UTC(),
		CreatedBy:   model.MigrationUser,
	}, nil
}

// objectKey partitions uploads by the attachment's year and month.
func (m *Migrator) objectKey(att wordpress.Attachment, name string) string {
	t := att.CreatedAt
	if t.IsZero() {
		t = m.now()
	}
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s", MediaDir, t.Year(), int(t.Month()), name)
}

// assignNames sanitizes filenames and suffixes duplicates so concurrent
// attachments never share a local file.
func assignNames(attachments []wordpress.Attachment) []string {
	names := make([]string, len(attachments))
	taken := make(map[string]bool, len(attachments))

	for i, att := range attachments {
		base := att.Filename
		if base == "" {
			base = filenameFromURL(att.URL)
		}
		name := util.SanitizeMediaFilename(base)

		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		stem = util.UniqueSlug(stem, func(s string) bool { return taken[s+ext] })
		name = stem + ext

		taken[name] = true
		names[i] = name
	}
	return names
}

func filenameFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return ""
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// AttachmentError describes why one attachment could not be migrated.
type AttachmentError struct {
	ID  string
	URL string
	Op  string // filename, download, write, read or upload
	Err error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx download response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err is a 404 download response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func failed(att wordpress.Attachment, op string, err error) outcome {
	return outcome{
		kind: types.OutcomeFailed,
		err:  &AttachmentError{ID: att.ID, URL: att.URL, Op: op, Err: err},
	}
}
