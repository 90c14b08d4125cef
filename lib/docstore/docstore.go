// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package docstore implements record.Store with the MongoDB driver,
// talking to the FerretDB bridge over its translated document URL.
//
// Connecting is lazy: Connect validates the URL and builds the client
// but does not dial. The first Insert or List reaches the bridge, so a
// bridge that never came up surfaces as a storage error on the
// request that needed it.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/bureau-foundation/docbridge/lib/record"
)

// CollectionName is the collection Person records live in.
const CollectionName = "people"

// DefaultServerSelectionTimeout bounds how long an operation waits for
// the bridge to be reachable before failing.
const DefaultServerSelectionTimeout = 5 * time.Second

// Connector builds document clients. The zero value is ready to use.
type Connector struct {
	// ServerSelectionTimeout overrides DefaultServerSelectionTimeout.
	ServerSelectionTimeout time.Duration

	// Logger records client lifecycle. Nil means slog.Default().
	Logger *slog.Logger
}

// Connect configures a client for documentURL and returns a store over
// the "people" collection of the URL's database.
func (c Connector) Connect(ctx context.Context, documentURL string) (record.Store, error) {
	database, err := databaseName(documentURL)
	if err != nil {
		return nil, err
	}

	timeout := c.ServerSelectionTimeout
	if timeout <= 0 {
		timeout = DefaultServerSelectionTimeout
	}
	clientOptions := options.Client().
		ApplyURI(documentURL).
		SetServerSelectionTimeout(timeout).
		SetAppName("docbridge")

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("docstore: configuring client: %w", err)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "document client configured",
		"database", database,
		"collection", CollectionName,
	)

	return &Store{
		client:     client,
		collection: client.Database(database).Collection(CollectionName),
	}, nil
}

// databaseName extracts the database path component of a document URL.
// An empty database is an error: every record must land somewhere
// named.
func databaseName(documentURL string) (string, error) {
	parsed, err := connstring.ParseAndValidate(documentURL)
	if err != nil {
		return "", fmt.Errorf("docstore: invalid document URL: %w", err)
	}
	if parsed.Database == "" {
		return "", errors.New("docstore: document URL names no database")
	}
	return parsed.Database, nil
}

// Store is a record.Store over one MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Insert writes one Person document.
func (s *Store) Insert(ctx context.Context, person record.Person) error {
	if _, err := s.collection.InsertOne(ctx, person); err != nil {
		return fmt.Errorf("docstore: inserting into %s: %w", CollectionName, err)
	}
	return nil
}

// List returns every Person document in insertion order as reported by
// the server.
func (s *Store) List(ctx context.Context) ([]record.Person, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("docstore: querying %s: %w", CollectionName, err)
	}
	people := []record.Person{}
	if err := cursor.All(ctx, &people); err != nil {
		return nil, fmt.Errorf("docstore: reading %s: %w", CollectionName, err)
	}
	return people, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("docstore: disconnecting: %w", err)
	}
	return nil
}
