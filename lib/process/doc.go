// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the docbridge binary:
// reporting a fatal error before (or instead of) the structured logger
// and exiting with the right status.
package process
