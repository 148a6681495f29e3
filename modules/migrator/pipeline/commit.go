// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-migrate/internal/config"
	"github.com/olegiv/ocms-migrate/internal/model"
	"github.com/olegiv/ocms-migrate/internal/store"
)

// committer writes documents in bounded batches. Each batch is atomic; a
// failed batch stops the commit and earlier batches stay written.
type committer struct {
	store     store.DocumentStore
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
	report    *CommitReport
}

func newCommitter(st store.DocumentStore, batchSize int, timeout time.Duration, logger *slog.Logger) *committer {
	if batchSize <= 0 || batchSize > config.MaxBatchSize {
		batchSize = config.MaxBatchSize
	}
	return &committer{
		store:     st,
		batchSize: batchSize,
		timeout:   timeout,
		logger:    logger,
		report:    &CommitReport{Attempted: true, Batches: []BatchReport{}},
	}
}

// commit writes menu sections, then pages, then media metadata.
func (c *committer) commit(ctx context.Context, sections []model.MenuSection, docs []model.PageDocument, mediaDocs []model.MediaDocument) error {
	sectionWrites := make([]store.Write, 0, len(sections))
	for _, s := range sections {
		sectionWrites = append(sectionWrites, store.Write{Collection: store.CollectionMenuSections, ID: s.ID, Data: s})
	}
	if err := c.write(ctx, sectionWrites); err != nil {
		return err
	}

	pageWrites := make([]store.Write, 0, len(docs))
	for _, d := range docs {
		pageWrites = append(pageWrites, store.Write{Collection: store.CollectionPages, ID: d.Slug, Data: d})
	}
	if err := c.write(ctx, pageWrites); err != nil {
		return err
	}

	mediaWrites := make([]store.Write, 0, len(mediaDocs))
	for _, m := range mediaDocs {
		mediaWrites = append(mediaWrites, store.Write{Collection: store.CollectionMedia, ID: m.ID, Data: m})
	}
	return c.write(ctx, mediaWrites)
}

func (c *committer) write(ctx context.Context, writes []store.Write) error {
	for start := 0; start < len(writes); start += c.batchSize {
		batch := writes[start:min(start+c.batchSize, len(writes))]
		index := len(c.report.Batches) + 1
		br := BatchReport{Index: index, Collection: batch[0].Collection, Size: len(batch)}

		err := c.writeBatch(ctx, batch)
		if err != nil {
			var be *store.WriteBatchError
			if !errors.As(err, &be) {
				be = &store.WriteBatchError{Collection: br.Collection, Size: br.Size, Err: err}
			}
			be.Batch = index
			br.Error = be.Err.Error()
			c.report.Batches = append(c.report.Batches, br)
			c.logger.Error("batch write failed", "batch", index, "collection", br.Collection, "size", br.Size, "error", be.Err)
			return be
		}

		br.Committed = true
		c.report.Batches = append(c.report.Batches, br)
		c.report.Committed += len(batch)
		c.logger.Info("batch committed", "batch", index, "collection", br.Collection, "size", br.Size)
	}
	return nil
}

func (c *committer) writeBatch(ctx context.Context, batch []store.Write) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.store.BatchWrite(ctx, batch)
}
