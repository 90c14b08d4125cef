// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the document type the request handler persists
// and the store interface the document client implements.
package record

import "context"

// MaxAge bounds Person.Age: ages are drawn from [0, MaxAge).
const MaxAge = 100

// Person is the single persisted record type.
type Person struct {
	Name string `json:"name" bson:"name"`
	Age  int    `json:"age" bson:"age"`
}

// Store persists and lists Person records through the bridge.
type Store interface {
	Insert(ctx context.Context, person Person) error
	List(ctx context.Context) ([]Person, error)
	Close(ctx context.Context) error
}
