// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler implements the docbridge request handler. Each
// invocation passes the readiness gate, inserts one Person record with
// a random age, lists every stored record, and reports the result as a
// Response the hosting runtime can return verbatim.
//
// Failures never escape as errors or panics. A gate failure becomes a
// 503 response and a storage failure a 500, both with a JSON body of
// the form {"error": "..."} holding a fixed message. The underlying
// error is logged with the request id.
package handler
