// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FakeBridgeBinary writes body as a /bin/sh script named "ferretdb" in a
// fresh temporary directory and returns its absolute path. The script
// is executable and runs with whatever environment and working
// directory the supervisor gives it, so a body such as
//
//	pwd > cwd.txt
//	echo "$FERRETDB_TELEMETRY" > telemetry.txt
//	exit 3
//
// lets a test inspect exactly what the bridge received. The bridge
// environment carries no PATH, so bodies should use shell builtins only.
func FakeBridgeBinary(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ferretdb")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake bridge binary: %v", err)
	}
	return path
}

// ScratchDir returns a fresh directory to use as the bridge's working
// directory. It is removed when the test completes.
func ScratchDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("", "docbridge-scratch-*")
	if err != nil {
		t.Fatalf("creating scratch directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}
