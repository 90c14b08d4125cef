// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/docbridge/lib/binhash"
	"github.com/bureau-foundation/docbridge/lib/clock"
	"github.com/bureau-foundation/docbridge/lib/statefile"
)

// Environment variable names understood by the FerretDB bridge.
const (
	EnvPostgreSQLURL = "FERRETDB_POSTGRESQL_URL"
	EnvTelemetry     = "FERRETDB_TELEMETRY"
	EnvListenAddr    = "FERRETDB_LISTEN_ADDR"

	// TelemetryDisabled is the value of EnvTelemetry the bridge is
	// always launched with.
	TelemetryDisabled = "disable"

	// StateFileName is the name of the lifecycle record written in the
	// scratch directory.
	StateFileName = "bridge-state.json"
)

// Status is the lifecycle state of the bridge process.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusFailed     Status = "failed"
)

// Handle is a snapshot of the bridge process. It is also the document
// written to the state file.
type Handle struct {
	PID          int       `json:"pid,omitempty"`
	Status       Status    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	BinaryPath   string    `json:"binary_path"`
	BinaryDigest string    `json:"binary_digest,omitempty"`
	ListenAddr   string    `json:"listen_addr"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	ExitedAt     time.Time `json:"exited_at,omitzero"`
	Exited       bool      `json:"exited,omitempty"`
	ExitCode     int       `json:"exit_code,omitempty"`

	// Err is the SpawnError or ExitError behind StatusFailed.
	Err error `json:"-"`
}

// Config configures a Supervisor.
type Config struct {
	// BinaryPath locates the bridge binary. Relative paths are resolved
	// against the hosting process's working directory.
	BinaryPath string

	// BackingURL is the raw, untranslated PostgreSQL connection string
	// handed to the bridge.
	BackingURL string

	// Endpoint is the loopback address the bridge listens on. Zero
	// means DefaultEndpoint.
	Endpoint Endpoint

	// ScratchDirectory is the bridge's working directory. It is created
	// with mode 0700 if missing and must not be the application's own
	// working directory.
	ScratchDirectory string

	// ExpectedDigest, when set, is the hex BLAKE3 digest the binary must
	// have. A mismatch is a SpawnError.
	ExpectedDigest string

	// Spawner launches the process. Nil means ExecSpawner.
	Spawner Spawner

	// Clock stamps lifecycle transitions. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle events and bridge output. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Supervisor owns the bridge process for one hosting process.
type Supervisor struct {
	binaryPath     string
	backingURL     string
	endpoint       Endpoint
	scratch        string
	expectedDigest binhash.Digest
	verifyDigest   bool
	spawner        Spawner
	clock          clock.Clock
	logger         *slog.Logger

	once sync.Once
	done chan struct{}

	mu       sync.Mutex
	handle   Handle
	launches int
}

// New validates config and returns an idle Supervisor. Nothing is
// launched until Start.
func New(config Config) (*Supervisor, error) {
	if config.BinaryPath == "" {
		return nil, errors.New("supervisor: BinaryPath is required")
	}
	if config.BackingURL == "" {
		return nil, errors.New("supervisor: BackingURL is required")
	}
	if config.ScratchDirectory == "" {
		return nil, errors.New("supervisor: ScratchDirectory is required")
	}

	binaryPath, err := filepath.Abs(config.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("supervisor: resolving %s: %w", config.BinaryPath, err)
	}
	scratch, err := filepath.Abs(config.ScratchDirectory)
	if err != nil {
		return nil, fmt.Errorf("supervisor: resolving %s: %w", config.ScratchDirectory, err)
	}
	if workingDirectory, err := os.Getwd(); err == nil && filepath.Clean(workingDirectory) == scratch {
		return nil, fmt.Errorf("supervisor: scratch directory %s is the application working directory", scratch)
	}

	endpoint := config.Endpoint
	if endpoint == (Endpoint{}) {
		endpoint = DefaultEndpoint
	}
	if _, err := ParseEndpoint(endpoint.Address()); err != nil {
		return nil, err
	}

	supervisor := &Supervisor{
		binaryPath: binaryPath,
		backingURL: config.BackingURL,
		endpoint:   endpoint,
		scratch:    scratch,
		spawner:    config.Spawner,
		clock:      config.Clock,
		logger:     config.Logger,
		done:       make(chan struct{}),
	}
	if config.ExpectedDigest != "" {
		digest, err := binhash.ParseDigest(config.ExpectedDigest)
		if err != nil {
			return nil, fmt.Errorf("supervisor: ExpectedDigest: %w", err)
		}
		supervisor.expectedDigest = digest
		supervisor.verifyDigest = true
	}
	if supervisor.spawner == nil {
		supervisor.spawner = ExecSpawner{}
	}
	if supervisor.clock == nil {
		supervisor.clock = clock.Real()
	}
	if supervisor.logger == nil {
		supervisor.logger = slog.Default()
	}
	supervisor.logger = supervisor.logger.With("component", "supervisor")
	supervisor.handle = Handle{
		Status:     StatusNotStarted,
		BinaryPath: binaryPath,
		ListenAddr: endpoint.Address(),
	}
	return supervisor, nil
}

// Environment returns the complete environment the bridge is launched
// with, in a stable order.
func (s *Supervisor) Environment() []string {
	return []string{
		EnvPostgreSQLURL + "=" + s.backingURL,
		EnvTelemetry + "=" + TelemetryDisabled,
		EnvListenAddr + "=" + s.endpoint.Address(),
	}
}

// Endpoint returns the bridge's listen address.
func (s *Supervisor) Endpoint() Endpoint { return s.endpoint }

// ScratchDirectory returns the bridge's working directory.
func (s *Supervisor) ScratchDirectory() string { return s.scratch }

// StatePath returns the path of the lifecycle state file.
func (s *Supervisor) StatePath() string {
	return filepath.Join(s.scratch, StateFileName)
}

// Start launches the bridge the first time it is called and does
// nothing on every later call. It returns as soon as the process has
// been spawned (or failed to spawn); it never waits for the bridge to
// accept connections. Failures are logged and recorded on the Handle.
//
// The bridge is not tied to ctx: it lives as long as the hosting
// process.
func (s *Supervisor) Start(ctx context.Context) {
	s.once.Do(func() { s.launch(ctx) })
}

func (s *Supervisor) launch(ctx context.Context) {
	s.mu.Lock()
	s.launches++
	s.handle.Status = StatusStarting
	s.handle.StartedAt = s.clock.Now()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "starting bridge",
		"binary", s.binaryPath,
		"listen_addr", s.endpoint.Address(),
		"scratch_dir", s.scratch,
	)

	if err := os.MkdirAll(s.scratch, 0700); err != nil {
		s.fail(ctx, &SpawnError{BinaryPath: s.binaryPath, Err: fmt.Errorf("creating scratch directory: %w", err)})
		return
	}
	s.persist()

	digest, err := binhash.HashFile(s.binaryPath)
	if err != nil {
		s.fail(ctx, &SpawnError{BinaryPath: s.binaryPath, Err: err})
		return
	}
	if s.verifyDigest && digest != s.expectedDigest {
		s.fail(ctx, &SpawnError{
			BinaryPath: s.binaryPath,
			Err: fmt.Errorf("binary digest %s does not match expected %s",
				binhash.FormatDigest(digest), binhash.FormatDigest(s.expectedDigest)),
		})
		return
	}
	s.mu.Lock()
	s.handle.BinaryDigest = binhash.FormatDigest(digest)
	s.mu.Unlock()

	output := newOutputLog(s.logger)
	process, err := s.spawner.Spawn(Command{
		Path:   s.binaryPath,
		Dir:    s.scratch,
		Env:    s.Environment(),
		Stdout: output.stream("stdout"),
		Stderr: output.stream("stderr"),
	})
	if err != nil {
		s.fail(ctx, &SpawnError{BinaryPath: s.binaryPath, Err: err})
		return
	}

	s.mu.Lock()
	s.handle.PID = process.PID()
	s.handle.Status = StatusRunning
	s.mu.Unlock()
	s.persist()

	s.logger.InfoContext(ctx, "bridge started",
		"pid", process.PID(),
		"binary_digest", binhash.FormatDigest(digest),
	)

	// Reap the bridge in the background so it never becomes a zombie,
	// and record how it ended.
	go s.reap(process, output)
}

func (s *Supervisor) reap(process Process, output *outputLog) {
	waitError := process.Wait()
	output.flush()

	exitCode := 0
	if waitError != nil {
		var coder interface{ ExitCode() int }
		if errors.As(waitError, &coder) {
			exitCode = coder.ExitCode()
		} else {
			exitCode = -1
		}
	}

	exitError := &ExitError{Code: exitCode, Output: output.lines()}

	s.mu.Lock()
	s.handle.Status = StatusFailed
	s.handle.Err = exitError
	s.handle.Reason = exitError.Error()
	s.handle.Exited = true
	s.handle.ExitCode = exitCode
	s.handle.ExitedAt = s.clock.Now()
	s.mu.Unlock()
	s.persist()

	s.logger.Error("bridge exited",
		"pid", process.PID(),
		"exit_code", exitCode,
		"error", waitError,
	)
	close(s.done)
}

func (s *Supervisor) fail(ctx context.Context, err error) {
	s.mu.Lock()
	s.handle.Status = StatusFailed
	s.handle.Err = err
	s.handle.Reason = err.Error()
	s.mu.Unlock()
	s.persist()

	s.logger.ErrorContext(ctx, "bridge failed to start", "error", err)
	close(s.done)
}

// persist writes the current handle to the state file. Failures are
// logged; the state file is diagnostic only.
func (s *Supervisor) persist() {
	handle := s.Handle()
	if _, err := os.Stat(s.scratch); err != nil {
		return
	}
	if err := statefile.Write(s.StatePath(), handle); err != nil {
		s.logger.Warn("writing bridge state file failed", "path", s.StatePath(), "error", err)
	}
}

// Handle returns a snapshot of the bridge process.
func (s *Supervisor) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() Status {
	return s.Handle().Status
}

// Err returns the SpawnError or ExitError behind StatusFailed, or nil.
func (s *Supervisor) Err() error {
	return s.Handle().Err
}

// Done is closed once the bridge has failed to spawn or has exited and
// been reaped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Launches returns how many times a launch was attempted. It is 0 or 1
// for the lifetime of a Supervisor.
func (s *Supervisor) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

// ReadState reads the lifecycle record a Supervisor wrote in scratch.
func ReadState(scratch string) (Handle, error) {
	var handle Handle
	if err := statefile.Read(filepath.Join(scratch, StateFileName), &handle); err != nil {
		return Handle{}, err
	}
	return handle, nil
}
