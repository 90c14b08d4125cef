// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/docbridge/lib/clock"
	"github.com/bureau-foundation/docbridge/lib/testutil"
)

// aliveBridge never exits.
type aliveBridge struct{ done chan struct{} }

func (b aliveBridge) Done() <-chan struct{} { return b.done }
func (b aliveBridge) Err() error            { return nil }

// deadBridge has already failed.
type deadBridge struct{ done chan struct{} }

func newDeadBridge() deadBridge {
	done := make(chan struct{})
	close(done)
	return deadBridge{done: done}
}

func (b deadBridge) Done() <-chan struct{} { return b.done }
func (b deadBridge) Err() error            { return errors.New("bridge exited with status 1") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func refuse(context.Context, string, string) (net.Conn, error) {
	return nil, errors.New("connection refused")
}

func TestProbeConfigDefaults(t *testing.T) {
	got := ProbeConfig{Timeout: time.Minute}.withDefaults()
	want := DefaultProbeConfig()
	want.Timeout = time.Minute
	if got != want {
		t.Errorf("withDefaults = %+v, want %+v", got, want)
	}
}

func TestProbeDeadBridgeNeverDials(t *testing.T) {
	dials := 0
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		dials++
		return refuse(ctx, network, address)
	}

	err := probeBridge(context.Background(), "127.0.0.1:27017", newDeadBridge(), dial,
		DefaultProbeConfig(), clock.Real(), discardLogger())
	if !errors.Is(err, ErrBridgeUnavailable) {
		t.Fatalf("probeBridge = %v, want ErrBridgeUnavailable", err)
	}
	if dials != 0 {
		t.Errorf("dialed %d times", dials)
	}
}

func TestProbeHonorsContextCancellation(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- probeBridge(ctx, "127.0.0.1:27017", aliveBridge{done: make(chan struct{})}, refuse,
			ProbeConfig{InitialInterval: time.Second, Timeout: time.Hour}.withDefaults(),
			fakeClock, discardLogger())
	}()

	fakeClock.WaitForTimers(1)
	cancel()

	err := testutil.RequireReceive(t, result, 5*time.Second, "probe after cancel")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("probeBridge = %v, want context.Canceled", err)
	}
}

func TestProbeBacksOffExponentially(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	config := ProbeConfig{
		InitialInterval: time.Second,
		MaxInterval:     4 * time.Second,
		Timeout:         time.Hour,
		DialTimeout:     time.Second,
	}

	attempts := make(chan time.Time, 16)
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		attempts <- fakeClock.Now()
		if len(attempts) == 5 {
			client, server := net.Pipe()
			server.Close()
			return client, nil
		}
		return refuse(ctx, network, address)
	}

	result := make(chan error, 1)
	go func() {
		result <- probeBridge(context.Background(), "127.0.0.1:27017", aliveBridge{done: make(chan struct{})},
			dial, config, fakeClock, discardLogger())
	}()

	// Each round advances exactly as far as the pending wait, so the
	// attempt timestamps expose the backoff schedule.
	for _, wait := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second} {
		fakeClock.WaitForTimers(1)
		fakeClock.Advance(wait)
	}

	if err := testutil.RequireReceive(t, result, 5*time.Second, "probe result"); err != nil {
		t.Fatalf("probeBridge: %v", err)
	}
	close(attempts)
	var times []time.Time
	for at := range attempts {
		times = append(times, at)
	}
	if len(times) != 5 {
		t.Fatalf("got %d attempts, want 5", len(times))
	}
	want := []time.Duration{0, time.Second, 3 * time.Second, 7 * time.Second, 11 * time.Second}
	for i, at := range times {
		if got := at.Sub(times[0]); got != want[i] {
			t.Errorf("attempt %d at +%v, want +%v", i, got, want[i])
		}
	}
}
