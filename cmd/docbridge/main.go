// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/docbridge/lib/process"
	"github.com/bureau-foundation/docbridge/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// streams carries the standard streams so commands can be run in tests.
type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// Handle --version before dispatch to match other binaries.
	if len(args) > 0 && args[0] == "--version" {
		fmt.Fprintf(stdout, "docbridge %s\n", version.Info())
		return nil
	}
	return rootCommand(streams{stdin: stdin, stdout: stdout, stderr: stderr}).Execute(args)
}

func rootCommand(std streams) *command {
	return &command{
		Name:    "docbridge",
		Summary: "Serve a document database over a PostgreSQL backing store through a FerretDB bridge.",
		help:    std.stderr,
		Subcommands: []*command{
			translateCommand(std),
			invokeCommand(std),
			serveCommand(std),
			statusCommand(std),
			versionCommand(std),
		},
	}
}

func versionCommand(std streams) *command {
	return &command{
		Name:    "version",
		Summary: "Print build, toolchain, and driver versions",
		Run: func(args []string) error {
			fmt.Fprintf(std.stdout, "docbridge %s\n", version.Full())
			return nil
		},
	}
}
