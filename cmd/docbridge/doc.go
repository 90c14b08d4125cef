// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Docbridge hosts the document-database request handler on top of a
// PostgreSQL backing store. It supervises one FerretDB bridge process
// that speaks the MongoDB wire protocol on 127.0.0.1:27017, translates
// the PostgreSQL connection string into the matching document URL,
// and runs the handler against it.
//
// Subcommands:
//
//	docbridge translate URL           print the document URL for URL
//	docbridge invoke [--count N]      run the handler N times in one warm process
//	docbridge serve                   read one event per stdin line, write one response per line
//	docbridge status                  report the bridge state recorded in the scratch directory
//
// Configuration comes from the file named by --config or
// DOCBRIDGE_CONFIG; see lib/config. The PostgreSQL URL is read from the
// environment variable named by connection.env
// (MY_POSTGRES_DATABASE_URL by default).
package main
