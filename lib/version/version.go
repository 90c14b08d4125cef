// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/docbridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Full returns Info plus the Go toolchain, platform, and the document
// driver version linked into the binary.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s\n  Driver: %s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH, DriverVersion())
}

// driverModule is the module path of the document driver.
const driverModule = "go.mongodb.org/mongo-driver/v2"

// DriverVersion returns the version of the MongoDB driver module in the
// running binary's build info, or "unknown" when build info is not
// available (as in tests).
func DriverVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, module := range info.Deps {
		if module.Path == driverModule {
			return module.Version
		}
	}
	return "unknown"
}
