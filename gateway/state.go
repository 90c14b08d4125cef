// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/docbridge/lib/clock"
	"github.com/bureau-foundation/docbridge/lib/connstring"
	"github.com/bureau-foundation/docbridge/lib/record"
	"github.com/bureau-foundation/docbridge/supervisor"
)

// ReadinessPolicy selects what Ready waits for between starting the
// bridge and configuring the document client.
type ReadinessPolicy string

const (
	// PolicyProbe waits for the bridge's port to accept a connection.
	PolicyProbe ReadinessPolicy = "probe"

	// PolicyNone does not wait at all.
	PolicyNone ReadinessPolicy = "none"
)

// ParseReadinessPolicy validates a policy name. The empty string means
// PolicyProbe.
func ParseReadinessPolicy(name string) (ReadinessPolicy, error) {
	switch ReadinessPolicy(name) {
	case "", PolicyProbe:
		return PolicyProbe, nil
	case PolicyNone:
		return PolicyNone, nil
	default:
		return "", fmt.Errorf("gateway: unknown readiness policy %q (want %q or %q)", name, PolicyProbe, PolicyNone)
	}
}

// ErrNotConfigured is matched by Ready's error when the document client
// could not be configured.
var ErrNotConfigured = errors.New("document client not configured")

// Connector configures the document client. It is called at most once
// per State, with the translated document URL.
type Connector interface {
	Connect(ctx context.Context, documentURL string) (record.Store, error)
}

// Config describes the bridge and how to reach it. The bridge always
// listens on supervisor.DefaultEndpoint, the address the translated
// document URL targets.
type Config struct {
	// RelationalURL is the PostgreSQL connection string.
	RelationalURL string

	BinaryPath       string
	ScratchDirectory string
	ExpectedDigest   string

	Policy ReadinessPolicy
	Probe  ProbeConfig
}

// Options carries collaborators. Only Connector is required.
type Options struct {
	Connector Connector

	// Spawner is passed to the supervisor. Nil means
	// supervisor.ExecSpawner.
	Spawner supervisor.Spawner

	// Dialer is used by the readiness probe. Nil means net.Dialer.
	Dialer Dialer

	Clock  clock.Clock
	Logger *slog.Logger
}

// State is the process-wide state of a docbridge host: one supervisor,
// one translated URL, and at most one configured document client.
type State struct {
	descriptor  *connstring.Descriptor
	documentURL string
	supervisor  *supervisor.Supervisor
	connector   Connector
	policy      ReadinessPolicy
	probe       ProbeConfig
	dialer      Dialer
	clock       clock.Clock
	logger      *slog.Logger

	once       sync.Once
	store      record.Store
	err        error
	probeError error
}

// New translates config.RelationalURL and prepares, without starting,
// the supervisor. A malformed URL is returned as an error matching
// connstring.ErrMalformed and nothing else happens.
func New(config Config, options Options) (*State, error) {
	descriptor, err := connstring.Parse(config.RelationalURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: translating connection string: %w", err)
	}
	if options.Connector == nil {
		return nil, errors.New("gateway: Connector is required")
	}

	policy, err := ParseReadinessPolicy(string(config.Policy))
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	dialer := options.Dialer
	if dialer == nil {
		dialer = (&net.Dialer{}).DialContext
	}

	bridge, err := supervisor.New(supervisor.Config{
		BinaryPath:       config.BinaryPath,
		BackingURL:       config.RelationalURL,
		Endpoint:         supervisor.DefaultEndpoint,
		ScratchDirectory: config.ScratchDirectory,
		ExpectedDigest:   config.ExpectedDigest,
		Spawner:          options.Spawner,
		Clock:            clk,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	return &State{
		descriptor:  descriptor,
		documentURL: descriptor.DocumentURL(),
		supervisor:  bridge,
		connector:   options.Connector,
		policy:      policy,
		probe:       config.Probe.withDefaults(),
		dialer:      dialer,
		clock:       clk,
		logger:      logger.With("component", "gateway"),
	}, nil
}

// Ready passes the readiness gate and returns the configured document
// store. The first call starts the bridge, optionally probes it, and
// configures the client; concurrent callers wait for it and every
// later call returns the same result immediately.
func (s *State) Ready(ctx context.Context) (record.Store, error) {
	s.once.Do(func() { s.initialize(ctx) })
	return s.store, s.err
}

func (s *State) initialize(ctx context.Context) {
	s.logger.InfoContext(ctx, "cold start", "backing_store", s.descriptor, "policy", s.policy)

	s.supervisor.Start(ctx)

	if s.policy == PolicyProbe {
		address := s.supervisor.Endpoint().Address()
		if err := probeBridge(ctx, address, s.supervisor, s.dialer, s.probe, s.clock, s.logger); err != nil {
			s.probeError = err
			s.logger.WarnContext(ctx, "bridge not ready, continuing degraded", "error", err)
		}
	}

	store, err := s.connector.Connect(ctx, s.documentURL)
	if err != nil {
		s.err = fmt.Errorf("gateway: %w: %w", ErrNotConfigured, err)
		s.logger.ErrorContext(ctx, "configuring document client failed", "error", err)
		return
	}
	s.store = store
	s.logger.InfoContext(ctx, "document client configured", "database", s.descriptor.Database)
}

// Supervisor returns the bridge supervisor.
func (s *State) Supervisor() *supervisor.Supervisor { return s.supervisor }

// Descriptor returns the parsed relational connection string.
func (s *State) Descriptor() *connstring.Descriptor { return s.descriptor }

// ProbeError returns the readiness probe's failure from cold start, or
// nil if the probe succeeded or has not run.
func (s *State) ProbeError() error { return s.probeError }

// Close disconnects the document client if it was configured. The
// bridge is left to die with the hosting process.
func (s *State) Close(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Close(ctx)
}
