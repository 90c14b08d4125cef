// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile reads and atomically writes small JSON state files.
//
// The supervisor records the bridge process lifecycle (pid, status,
// exit code, binary digest) in its scratch directory on every status
// transition. Operators and the "docbridge status" command read that
// file to see what the hosting process did with its bridge without
// attaching to it.
//
// [Write] goes through a temporary file in the same directory which is
// fsynced and renamed into place, followed by an fsync of the parent
// directory, so a reader never observes a partial document.
//
// This package has no dependencies on other docbridge packages.
package statefile
