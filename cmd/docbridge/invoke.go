// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/docbridge/handler"
	"github.com/bureau-foundation/docbridge/lib/netutil"
)

// maxEventSize bounds one event line read by serve.
const maxEventSize = 1 << 20

// invoker runs one invocation.
type invoker func(ctx context.Context, event json.RawMessage) handler.Response

// host owns everything a warm hosting process keeps between
// invocations.
type host struct {
	handler *handler.Handler
	close   func(context.Context) error
	logger  *slog.Logger
}

// startHost loads configuration and builds the gateway state and
// handler. The bridge is not started until the first invocation.
func startHost(configPath string, stderr io.Writer) (*host, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}
	state, err := newState(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &host{
		handler: handler.New(state, handler.Options{Logger: logger}),
		close:   state.Close,
		logger:  logger,
	}, nil
}

func (h *host) shutdown() {
	if err := h.close(context.Background()); err != nil {
		h.logger.Warn("closing document client failed", "error", err)
	}
}

func invokeCommand(std streams) *command {
	var (
		configPath string
		eventPath  string
		count      int
	)
	return &command{
		Name:    "invoke",
		Summary: "Run the handler one or more times in this process",
		Usage:   "docbridge invoke [--event FILE] [--count N] [--config FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("invoke", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.StringVar(&eventPath, "event", "", "JSON or JSONC event file passed to every invocation (default: {})")
			flagSet.IntVarP(&count, "count", "n", 1, "number of warm invocations")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			event, err := readEventFile(eventPath)
			if err != nil {
				return err
			}

			host, err := startHost(configPath, std.stderr)
			if err != nil {
				return err
			}
			defer host.shutdown()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			encoder := json.NewEncoder(std.stdout)
			for range count {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := encoder.Encode(host.handler.Handle(ctx, event)); err != nil {
					return fmt.Errorf("writing response: %w", err)
				}
			}
			return nil
		},
	}
}

func serveCommand(std streams) *command {
	var configPath string
	return &command{
		Name:    "serve",
		Summary: "Read one event per line on stdin and write one response per line on stdout",
		Usage:   "docbridge serve [--config FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			host, err := startHost(configPath, std.stderr)
			if err != nil {
				return err
			}
			defer host.shutdown()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			host.logger.Info("serving events from stdin")
			return serveEvents(ctx, std.stdin, std.stdout, host.handler.Handle)
		},
	}
}

// serveEvents reads newline-delimited events from r, invokes each one
// in order, and writes each response as one JSON line to w. Blank lines
// are skipped. An event that is not valid JSON or JSONC, or is longer
// than maxEventSize, gets a 400 response without reaching the handler
// and serving continues. It returns nil at end of input or when the
// reader of w goes away.
func serveEvents(ctx context.Context, r io.Reader, w io.Writer, invoke invoker) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	encoder := json.NewEncoder(w)

	for {
		line, tooLong, err := readEventLine(reader, maxEventSize)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !tooLong && len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var response handler.Response
		if tooLong {
			response = badRequest(fmt.Errorf("event exceeds %d bytes", maxEventSize))
		} else if event, err := decodeEvent(line); err != nil {
			response = badRequest(err)
		} else {
			response = invoke(ctx, event)
		}
		if err := encoder.Encode(response); err != nil {
			if netutil.IsExpectedCloseError(err) {
				return nil
			}
			return fmt.Errorf("writing response: %w", err)
		}
	}
}

// readEventLine reads one line without its terminator. A line longer
// than limit is consumed through its newline and reported as tooLong
// with no content. It returns io.EOF only when no line remains.
func readEventLine(reader *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	started := false
	for {
		fragment, isPrefix, err := reader.ReadLine()
		if err != nil {
			if started && errors.Is(err, io.EOF) {
				return line, tooLong, nil
			}
			return nil, false, err
		}
		started = true
		if !tooLong {
			if len(line)+len(fragment) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, fragment...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// readEventFile reads and decodes an event file. An empty path yields
// the empty object.
func readEventFile(path string) (json.RawMessage, error) {
	if path == "" {
		return json.RawMessage(`{}`), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event: %w", err)
	}
	event, err := decodeEvent(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return event, nil
}

// decodeEvent strips JSONC comments and trailing commas and checks that
// the result is JSON.
func decodeEvent(data []byte) (json.RawMessage, error) {
	event := jsonc.ToJSON(data)
	if !json.Valid(event) {
		return nil, errors.New("event is not valid JSON")
	}
	return json.RawMessage(event), nil
}

func badRequest(err error) handler.Response {
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return handler.Response{StatusCode: http.StatusBadRequest, Body: string(body)}
}
