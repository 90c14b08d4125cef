// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bureau-foundation/docbridge/lib/clock"
)

// ErrBridgeUnavailable is matched by probe failures caused by the
// bridge process failing to spawn or exiting.
var ErrBridgeUnavailable = errors.New("bridge unavailable")

// ProbeConfig bounds the readiness probe.
type ProbeConfig struct {
	// InitialInterval is the wait after the first failed dial.
	InitialInterval time.Duration

	// MaxInterval caps the wait between dials.
	MaxInterval time.Duration

	// Timeout bounds the total time spent probing.
	Timeout time.Duration

	// DialTimeout bounds each individual dial.
	DialTimeout time.Duration
}

// DefaultProbeConfig returns the probe bounds used when none are
// configured.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		Timeout:         10 * time.Second,
		DialTimeout:     time.Second,
	}
}

func (p ProbeConfig) withDefaults() ProbeConfig {
	defaults := DefaultProbeConfig()
	if p.InitialInterval <= 0 {
		p.InitialInterval = defaults.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = defaults.MaxInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = defaults.Timeout
	}
	if p.DialTimeout <= 0 {
		p.DialTimeout = defaults.DialTimeout
	}
	return p
}

// Dialer opens a connection; it has the signature of
// net.Dialer.DialContext.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// bridgeWatch is the part of the supervisor the probe needs.
type bridgeWatch interface {
	Done() <-chan struct{}
	Err() error
}

// clockTimer adapts a clock.Clock to backoff.Timer so the probe's waits
// follow the injected clock.
type clockTimer struct {
	clock   clock.Clock
	channel <-chan time.Time
}

func (t *clockTimer) Start(d time.Duration) { t.channel = t.clock.After(d) }
func (t *clockTimer) Stop()                 {}
func (t *clockTimer) C() <-chan time.Time   { return t.channel }

// probeBridge dials address until it accepts a TCP connection. It
// returns an error matching ErrBridgeUnavailable as soon as the bridge
// process is known to be dead, the last dial error when the timeout is
// exhausted, or ctx's error.
func probeBridge(ctx context.Context, address string, bridge bridgeWatch, dial Dialer, config ProbeConfig, clk clock.Clock, logger *slog.Logger) error {
	probeContext, cancel := context.WithCancel(ctx)
	defer cancel()

	// Abort the wait between dials the moment the bridge dies.
	go func() {
		select {
		case <-bridge.Done():
			cancel()
		case <-probeContext.Done():
		}
	}()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = config.InitialInterval
	policy.MaxInterval = config.MaxInterval
	policy.MaxElapsedTime = config.Timeout
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.Clock = clk
	policy.Reset()

	attempts := 0
	operation := func() error {
		attempts++
		select {
		case <-bridge.Done():
			return backoff.Permanent(bridgeDead(bridge))
		default:
		}

		dialContext, cancelDial := context.WithTimeout(probeContext, config.DialTimeout)
		defer cancelDial()
		connection, err := dial(dialContext, "tcp", address)
		if err != nil {
			return err
		}
		connection.Close()
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("bridge not accepting connections yet",
			"address", address,
			"attempt", attempts,
			"retry_in", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(policy, probeContext), notify, &clockTimer{clock: clk})
	if err == nil {
		logger.Info("bridge accepting connections", "address", address, "attempts", attempts)
		return nil
	}

	select {
	case <-bridge.Done():
		return bridgeDead(bridge)
	default:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("gateway: bridge at %s not ready after %d attempts: %w", address, attempts, err)
}

func bridgeDead(bridge bridgeWatch) error {
	if cause := bridge.Err(); cause != nil {
		return fmt.Errorf("gateway: %w: %w", ErrBridgeUnavailable, cause)
	}
	return fmt.Errorf("gateway: %w", ErrBridgeUnavailable)
}
