// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 10 * time.Second

// MongoStore keeps each collection in a MongoDB collection of the same
// name, keyed by _id. Batches run inside a session transaction, which
// requires a replica set.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// OpenMongo connects to MongoDB and verifies the connection.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, errors.New("mongodb database name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &MongoStore{client: client, database: client.Database(database)}, nil
}

// Get returns a single document as JSON.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var doc bson.M
	err := s.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return toRecord(doc)
}

// Set upserts a single document.
func (s *MongoStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := validateWrite(Write{Collection: collection, ID: id, Data: data}); err != nil {
		return err
	}
	_, err := s.database.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, data, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}
	return nil
}

// BatchWrite upserts all writes inside one transaction.
func (s *MongoStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if err := validateWrite(w); err != nil {
			return newBatchError(writes, err)
		}
	}

	session, err := s.client.StartSession()
	if err != nil {
		return newBatchError(writes, fmt.Errorf("starting session: %w", err))
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		opts := options.Replace().SetUpsert(true)
		for _, w := range writes {
			_, err := s.database.Collection(w.Collection).ReplaceOne(sc, bson.M{"_id": w.ID}, w.Data, opts)
			if err != nil {
				return nil, fmt.Errorf("writing %s/%s: %w", w.Collection, w.ID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return newBatchError(writes, err)
	}
	return nil
}

// Query returns documents whose field equals value, sorted by orderBy
// (document id when empty).
func (s *MongoStore) Query(ctx context.Context, collection, field string, value any, orderBy string) ([]Record, error) {
	if err := validateField(field); err != nil {
		return nil, err
	}

	sort := bson.D{{Key: "_id", Value: 1}}
	if orderBy != "" {
		if err := validateField(orderBy); err != nil {
			return nil, err
		}
		sort = append(bson.D{{Key: orderBy, Value: 1}}, sort...)
	}

	cursor, err := s.database.Collection(collection).Find(ctx,
		bson.M{field: value}, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var records []Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", collection, err)
		}
		rec, err := toRecord(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, cursor.Err()
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// toRecord moves _id out of the body and renders the rest as relaxed
// extended JSON, which is plain JSON for the types the migration writes.
func toRecord(doc bson.M) (Record, error) {
	id := fmt.Sprint(doc["_id"])
	delete(doc, "_id")

	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s: %w", id, err)
	}
	return Record{ID: id, Data: data}, nil
}

var _ DocumentStore = (*MongoStore)(nil)
