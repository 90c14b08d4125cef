// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for docbridge.
//
// Configuration is loaded from a single file specified by either the
// DOCBRIDGE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no file discovery. When neither is given,
// [Load] returns [Default], which runs ./ferretdb from the working
// directory against the URL in MY_POSTGRES_DATABASE_URL.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter: logs
// are always JSON and the readiness probe cannot be disabled by
// omission.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${TMPDIR}, and ${VAR:-default} patterns are expanded.
//
// The PostgreSQL connection string itself never appears in the file.
// The file names the environment variable that carries it
// (connection.env) and [Config.ConnectionURL] reads it.
//
// This package depends on no other docbridge packages.
package config
