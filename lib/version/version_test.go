// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	originalVersion, originalCommit, originalTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = originalVersion, originalCommit, originalTime })

	Version, GitCommit, BuildTime = "1.2.3", "abc1234", "2026-05-01T00:00:00Z"
	if got, want := Info(), "1.2.3 (abc1234, 2026-05-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{Info(), "Go: go", "Platform: ", "Driver: "} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() = %q, missing %q", full, want)
		}
	}
}
