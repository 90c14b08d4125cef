// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 content digests of the bridge binary.
//
// The supervisor logs the digest of the FerretDB binary it launches so
// that a degraded bridge can be correlated with the exact build that was
// deployed, and, when configured with an expected digest, refuses to
// launch a binary that does not match.
//
//   - [HashFile] -- streams a file through BLAKE3 with constant memory
//   - [FormatDigest] / [ParseDigest] -- canonical hex representation
//
// This package has no dependencies on other docbridge packages.
package binhash
