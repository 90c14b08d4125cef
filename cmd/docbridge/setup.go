// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/docbridge/gateway"
	"github.com/bureau-foundation/docbridge/lib/config"
	"github.com/bureau-foundation/docbridge/lib/docstore"
)

// configFlag registers --config on flagSet.
func configFlag(flagSet *pflag.FlagSet, path *string) {
	flagSet.StringVar(path, "config", "", "path to docbridge.yaml (default: $"+config.EnvConfigPath+", else built-in defaults)")
}

// loadConfig loads and validates configuration from path, or from
// DOCBRIDGE_CONFIG when path is empty.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newState builds the process-wide gateway state from cfg. Nothing is
// launched until the first invocation passes the gate.
func newState(cfg *config.Config, logger *slog.Logger) (*gateway.State, error) {
	relationalURL, err := cfg.ConnectionURL()
	if err != nil {
		return nil, err
	}
	binaryPath, err := cfg.BinaryPath()
	if err != nil {
		return nil, err
	}
	bounds, err := cfg.Readiness.Bounds()
	if err != nil {
		return nil, err
	}

	probe := gateway.DefaultProbeConfig()
	probe.InitialInterval = bounds.InitialInterval
	probe.MaxInterval = bounds.MaxInterval
	probe.Timeout = bounds.Timeout

	return gateway.New(gateway.Config{
		RelationalURL:    relationalURL,
		BinaryPath:       binaryPath,
		ScratchDirectory: cfg.Bridge.ScratchDir,
		ExpectedDigest:   cfg.Bridge.ExpectedDigest,
		Policy:           gateway.ReadinessPolicy(cfg.Readiness.Policy),
		Probe:            probe,
	}, gateway.Options{
		Connector: docstore.Connector{Logger: logger},
		Logger:    logger,
	})
}
