// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations docbridge depends on:
// reading the current time for bridge lifecycle timestamps and waiting
// between readiness probe attempts.
//
// Production code injects [Real]. Tests inject [Fake] and drive time
// forward with [FakeClock.Advance], synchronizing with the code under
// test through [FakeClock.WaitForTimers] instead of sleeping.
//
// This package depends on no other docbridge packages.
package clock
