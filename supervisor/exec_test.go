// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/docbridge/lib/testutil"
)

func TestExecSpawnerRunsInScratchWithMinimalEnvironment(t *testing.T) {
	t.Setenv("DOCBRIDGE_LEAK", "ambient-secret")

	binary := testutil.FakeBridgeBinary(t, strings.Join([]string{
		`pwd > cwd.txt`,
		`echo "${FERRETDB_TELEMETRY}|${FERRETDB_LISTEN_ADDR}|${FERRETDB_POSTGRESQL_URL}|${DOCBRIDGE_LEAK:-absent}" > env.txt`,
		`echo "listening on $FERRETDB_LISTEN_ADDR"`,
		`echo "fatal: could not connect" >&2`,
		`exit 3`,
	}, "\n"))
	scratch := testutil.ScratchDir(t)

	supervisor, err := New(Config{
		BinaryPath:       binary,
		BackingURL:       backingURL,
		ScratchDirectory: scratch,
		Logger:           quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	supervisor.Start(context.Background())
	testutil.RequireClosed(t, supervisor.Done(), 10*time.Second, "fake bridge exited")

	cwd, err := os.ReadFile(filepath.Join(scratch, "cwd.txt"))
	if err != nil {
		t.Fatalf("bridge did not run in scratch directory: %v", err)
	}
	wantDirectory, _ := filepath.EvalSymlinks(scratch)
	gotDirectory, _ := filepath.EvalSymlinks(strings.TrimSpace(string(cwd)))
	if gotDirectory != wantDirectory {
		t.Errorf("bridge working directory = %q, want %q", gotDirectory, wantDirectory)
	}

	env, err := os.ReadFile(filepath.Join(scratch, "env.txt"))
	if err != nil {
		t.Fatalf("reading env.txt: %v", err)
	}
	wantEnv := "disable|127.0.0.1:27017|" + backingURL + "|absent"
	if got := strings.TrimSpace(string(env)); got != wantEnv {
		t.Errorf("bridge saw %q, want %q", got, wantEnv)
	}

	var exitError *ExitError
	if !errors.As(supervisor.Err(), &exitError) {
		t.Fatalf("Err() = %v, want *ExitError", supervisor.Err())
	}
	if exitError.Code != 3 {
		t.Errorf("exit code = %d, want 3", exitError.Code)
	}
	if !slices.Contains(exitError.Output, "fatal: could not connect") {
		t.Errorf("exit output %q missing stderr line", exitError.Output)
	}
}

func TestExecSpawnerMissingBinary(t *testing.T) {
	scratch := testutil.ScratchDir(t)
	supervisor, err := New(Config{
		BinaryPath:       filepath.Join(t.TempDir(), "ferretdb"),
		BackingURL:       backingURL,
		ScratchDirectory: scratch,
		Logger:           quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	supervisor.Start(context.Background())

	testutil.RequireClosed(t, supervisor.Done(), 5*time.Second, "spawn failure")
	if !errors.Is(supervisor.Err(), ErrSpawn) {
		t.Errorf("Err() = %v, want ErrSpawn", supervisor.Err())
	}
	if got := supervisor.Status(); got != StatusFailed {
		t.Errorf("Status = %s, want failed", got)
	}
}

func TestExecSpawnerNotExecutable(t *testing.T) {
	binary := filepath.Join(t.TempDir(), "ferretdb")
	if err := os.WriteFile(binary, []byte("not a program"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	supervisor, err := New(Config{
		BinaryPath:       binary,
		BackingURL:       backingURL,
		ScratchDirectory: testutil.ScratchDir(t),
		Logger:           quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	supervisor.Start(context.Background())

	if !errors.Is(supervisor.Err(), ErrSpawn) {
		t.Errorf("Err() = %v, want ErrSpawn", supervisor.Err())
	}
}

func TestExecSpawnerRefusesNilEnvironment(t *testing.T) {
	_, err := ExecSpawner{}.Spawn(Command{Path: "/bin/true"})
	if err == nil {
		t.Fatal("Spawn with nil Env succeeded")
	}
}
