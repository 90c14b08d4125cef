// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/docbridge/lib/record"
)

// DefaultName is the name every inserted Person carries.
const DefaultName = "John Doe"

// Error messages returned in non-200 bodies. They are fixed so driver
// errors and bridge output never reach the caller.
const (
	MessageUnavailable = "document store unavailable"
	MessageStorage     = "storage operation failed"
	MessageInternal    = "internal error"
)

// ErrStorage matches every StorageError.
var ErrStorage = errors.New("storage operation failed")

// StorageError reports a failed insert or list against the document
// store.
type StorageError struct {
	// Op is "insert" or "list".
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("handler: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Gate yields the document store once the bridge is ready. It is
// satisfied by *gateway.State.
type Gate interface {
	Ready(ctx context.Context) (record.Store, error)
}

// Random draws ages. It is satisfied by *rand.Rand.
type Random interface {
	IntN(n int) int
}

type defaultRandom struct{}

func (defaultRandom) IntN(n int) int { return rand.IntN(n) }

// Response is what an invocation returns to the hosting runtime.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// recordsBody is the 200 response body.
type recordsBody struct {
	Records []record.Person `json:"records"`
}

// errorBody is the non-200 response body.
type errorBody struct {
	Error string `json:"error"`
}

// Options configures a Handler.
type Options struct {
	// Random draws ages. Nil means math/rand/v2.
	Random Random

	// Logger receives one line per invocation. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Handler serves invocations. It is safe for concurrent use, but
// invocations run one at a time.
type Handler struct {
	gate   Gate
	random Random
	logger *slog.Logger

	mu       sync.Mutex
	sequence atomic.Uint64
}

// New returns a Handler that reaches storage through gate.
func New(gate Gate, options Options) *Handler {
	random := options.Random
	if random == nil {
		random = defaultRandom{}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gate:   gate,
		random: random,
		logger: logger.With("component", "handler"),
	}
}

// Handle runs one invocation. The event is not interpreted beyond an
// optional request id; see requestID.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (response Response) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := requestID(event, h.sequence.Add(1))
	logger := h.logger.With("request_id", id)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "invocation panicked", "panic", recovered)
			response = errorResponse(http.StatusInternalServerError, MessageInternal)
		}
	}()

	store, err := h.gate.Ready(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "bridge not available", "error", err)
		return errorResponse(http.StatusServiceUnavailable, MessageUnavailable)
	}

	people, err := h.insertAndList(ctx, store)
	if err != nil {
		logger.ErrorContext(ctx, "storage operation failed", "error", err)
		return errorResponse(http.StatusInternalServerError, MessageStorage)
	}

	body, err := json.Marshal(recordsBody{Records: people})
	if err != nil {
		logger.ErrorContext(ctx, "encoding records failed", "error", err)
		return errorResponse(http.StatusInternalServerError, MessageInternal)
	}
	logger.InfoContext(ctx, "invocation complete", "records", len(people))
	return Response{StatusCode: http.StatusOK, Body: string(body)}
}

func (h *Handler) insertAndList(ctx context.Context, store record.Store) ([]record.Person, error) {
	person := record.Person{Name: DefaultName, Age: h.random.IntN(record.MaxAge)}
	if err := store.Insert(ctx, person); err != nil {
		return nil, &StorageError{Op: "insert", Err: err}
	}
	people, err := store.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	if people == nil {
		people = []record.Person{}
	}
	return people, nil
}

// errorResponse builds a non-200 response. Callers pass one of the
// fixed Message constants; causes are logged, never returned.
func errorResponse(status int, message string) Response {
	body, err := json.Marshal(errorBody{Error: message})
	if err != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	return Response{StatusCode: status, Body: string(body)}
}

// requestID returns the event's "requestId" or "request_id" string
// field when the event is a JSON object carrying one, and a sequence
// number otherwise.
func requestID(event json.RawMessage, sequence uint64) string {
	var fields struct {
		RequestID      string `json:"requestId"`
		RequestIDSnake string `json:"request_id"`
	}
	if len(event) > 0 && json.Unmarshal(event, &fields) == nil {
		if fields.RequestID != "" {
			return fields.RequestID
		}
		if fields.RequestIDSnake != "" {
			return fields.RequestIDSnake
		}
	}
	return "invocation-" + strconv.FormatUint(sequence, 10)
}
