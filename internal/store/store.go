// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides the document store migrated content is written to.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Collections written by the migration.
const (
	CollectionPages        = "pages"
	CollectionMenuSections = "menuSections"
	CollectionMedia        = "media"
)

// ErrNotFound is returned by Get when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Write is one document upsert inside a batch.
type Write struct {
	Collection string
	ID         string
	Data       any
}

// Record is a stored document with its JSON body.
type Record struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the record body into v.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// DocumentStore is a narrow CRUD interface over named collections.
// BatchWrite applies all writes atomically or none of them.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Set(ctx context.Context, collection, id string, data any) error
	BatchWrite(ctx context.Context, writes []Write) error
	Query(ctx context.Context, collection, field string, value any, orderBy string) ([]Record, error)
	Close() error
}

// WriteBatchError reports a failed batch. Writes of earlier batches stay
// committed.
type WriteBatchError struct {
	Batch      int
	Collection string
	Size       int
	Err        error
}

func (e *WriteBatchError) Error() string {
	return fmt.Sprintf("batch %d (%s, %d writes): %v", e.Batch, e.Collection, e.Size, e.Err)
}

func (e *WriteBatchError) Unwrap() error {
	return e.Err
}

func newBatchError(writes []Write, err error) *WriteBatchError {
	be := &WriteBatchError{Size: len(writes), Err: err}
	if len(writes) > 0 {
		be.Collection = writes[0].Collection
	}
	return be
}

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func validateField(field string) error {
	if !fieldRe.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}

func validateWrite(w Write) error {
	if w.Collection == "" {
		return errors.New("write without collection")
	}
	if w.ID == "" {
		return fmt.Errorf("write to %s without id", w.Collection)
	}
	return nil
}
