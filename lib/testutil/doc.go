// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for docbridge packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a wall-clock fallback) so individual tests
// never call time.After directly.
//
// [FakeBridgeBinary] writes an executable shell script that stands in
// for the FerretDB binary. Supervisor tests use it to observe the
// working directory and environment the bridge is launched with, and
// to simulate crashes, without needing a real bridge installed.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
