// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor launches and tracks the FerretDB bridge process.
//
// A [Supervisor] belongs to one hosting process. [Supervisor.Start]
// launches the bridge at most once for the Supervisor's lifetime, no
// matter how many warm invocations call it, and returns without waiting
// for the bridge to accept connections. The bridge runs with:
//
//   - its working directory set to a private scratch directory, because
//     FerretDB writes local state files next to itself;
//   - exactly three environment variables (the raw PostgreSQL URL,
//     telemetry disabled, and the loopback listen address). Nothing from
//     the hosting process's environment is forwarded;
//   - on Linux, its own process group and a parent-death signal, so the
//     bridge dies with the hosting process. There is no Stop.
//
// Launch failures ([SpawnError]) and unexpected exits ([ExitError]) are
// logged and recorded on the [Handle], never returned to the caller.
// The bridge is best effort: a request that reaches a failed bridge sees
// a storage error from the document client instead.
//
// Every status transition is also written atomically to
// bridge-state.json in the scratch directory (see lib/statefile).
package supervisor
