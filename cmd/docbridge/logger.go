// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/docbridge/lib/config"
)

// newLogger builds the process logger from log.level and log.format.
// With format "auto", stderr on a terminal gets slog.TextHandler and
// anything else gets slog.JSONHandler, matching what a hosting runtime's
// log collector ingests.
func newLogger(logConfig config.LogConfig, stderr io.Writer) (*slog.Logger, error) {
	level, err := logConfig.SlogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}

	text := false
	switch logConfig.Format {
	case config.FormatText:
		text = true
	case config.FormatAuto:
		if file, ok := stderr.(*os.File); ok {
			text = term.IsTerminal(int(file.Fd()))
		}
	}

	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(stderr, options)
	} else {
		handler = slog.NewJSONHandler(stderr, options)
	}
	return slog.New(handler), nil
}
