// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/ocms-migrate/internal/blob"
	"github.com/olegiv/ocms-migrate/internal/cache"
	"github.com/olegiv/ocms-migrate/internal/config"
	"github.com/olegiv/ocms-migrate/internal/logging"
	"github.com/olegiv/ocms-migrate/internal/store"
	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// Services is everything a run needs, built once by the caller.
type Services struct {
	Logger      *slog.Logger
	Config      *config.Config
	Profile     *config.Profile
	HTTPClient  *http.Client
	Connector   Connector   // opens the target store; never called in dry runs
	Checkpoints cache.Cache // optional shared URL-map checkpoint
	Collector   *logging.Collector
	Progress    func(types.MediaEvent)
	Now         func() time.Time
}

// Targets are the write-side services of a run.
type Targets struct {
	Store store.DocumentStore
	Blob  blob.Store // nil when no bucket is configured
}

// Close releases the document store.
func (t *Targets) Close() error {
	if t == nil || t.Store == nil {
		return nil
	}
	return t.Store.Close()
}

// Connector opens the target services. Failures should be reported as
// *config.CredentialError so the run can fall back to a dry run.
type Connector interface {
	Connect(ctx context.Context) (*Targets, error)
}

// CredentialConnector opens the store and bucket named in the service
// credential file.
type CredentialConnector struct {
	Path string // explicit file; empty searches the default locations
}

// Connect implements Connector.
func (c CredentialConnector) Connect(ctx context.Context) (*Targets, error) {
	creds, path, err := config.LoadCredentials(c.Path)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, creds.Store)
	if err != nil {
		return nil, &config.CredentialError{Path: path, Err: err}
	}

	targets := &Targets{Store: st}
	if creds.HasBlob() {
		b, err := blob.NewS3Store(ctx, blob.S3Options{
			Bucket:          creds.Blob.Bucket,
			Region:          creds.Blob.Region,
			Endpoint:        creds.Blob.Endpoint,
			AccessKeyID:     creds.Blob.AccessKeyID,
			SecretAccessKey: creds.Blob.SecretAccessKey,
			PublicBaseURL:   creds.Blob.PublicBaseURL,
			UsePathStyle:    creds.Blob.UsePathStyle,
		})
		if err != nil {
			_ = st.Close()
			return nil, &config.CredentialError{Path: path, Err: err}
		}
		targets.Blob = b
	}
	return targets, nil
}

type noConnector struct{}

func (noConnector) Connect(context.Context) (*Targets, error) {
	return nil, &config.CredentialError{Err: config.ErrNoCredentials}
}

// isCredentialError reports whether err means "no usable target".
func isCredentialError(err error) bool {
	var ce *config.CredentialError
	return errors.As(err, &ce)
}
