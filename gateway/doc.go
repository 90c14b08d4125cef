// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway holds the process-wide state of a docbridge host and
// the readiness gate every request passes through.
//
// A [State] is created once at process entry with [New] and handed by
// reference to the request handler. New translates the PostgreSQL URL
// first; a malformed URL fails New before the supervisor or document
// client is touched, so a host whose translation failed never serves.
//
// [State.Ready] is a one-time barrier. The first caller, on cold start:
//
//  1. starts the bridge through the supervisor (non-blocking);
//  2. with [PolicyProbe], dials the bridge's loopback port with bounded
//     exponential backoff until it accepts a connection, the probe
//     times out, or the bridge process dies;
//  3. configures the document client with the translated URL.
//
// Every caller, including the first, waits for that sequence and then
// shares its result. Warm invocations never start, probe, or configure
// again.
//
// A failed probe is logged and the client is configured anyway: the
// bridge is best effort and requests against a dead bridge surface as
// storage errors. [PolicyNone] skips the probe entirely and reproduces
// the fire-and-hope behavior where the first request may race the
// bridge's startup.
package gateway
