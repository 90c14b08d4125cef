// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/docbridge/supervisor"
)

// exitBridgeDown is the status command's exit code when the bridge is
// not running.
const exitBridgeDown = 3

// bridgeDownError reports a bridge that is not running.
type bridgeDownError struct {
	reason string
}

func (e *bridgeDownError) Error() string { return "bridge not running: " + e.reason }
func (e *bridgeDownError) ExitCode() int { return exitBridgeDown }

// statusReport is what status prints with --json.
type statusReport struct {
	supervisor.Handle
	Alive bool `json:"alive"`
}

func statusCommand(std streams) *command {
	var (
		configPath string
		jsonOutput bool
	)
	return &command{
		Name:    "status",
		Summary: "Report the bridge state recorded in the scratch directory",
		Usage:   "docbridge status [--json] [--config FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.BoolVar(&jsonOutput, "json", false, "print the state as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			handle, err := supervisor.ReadState(cfg.Bridge.ScratchDir)
			if errors.Is(err, os.ErrNotExist) {
				return &bridgeDownError{reason: "no state file in " + cfg.Bridge.ScratchDir}
			}
			if err != nil {
				return err
			}

			report := statusReport{Handle: handle, Alive: processAlive(handle.PID)}
			if jsonOutput {
				encoder := json.NewEncoder(std.stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(report); err != nil {
					return err
				}
			} else {
				printStatus(std.stdout, report)
			}

			switch {
			case handle.Status != supervisor.StatusRunning:
				return &bridgeDownError{reason: "status " + string(handle.Status)}
			case !report.Alive:
				return &bridgeDownError{reason: fmt.Sprintf("pid %d is gone", handle.PID)}
			}
			return nil
		},
	}
}

// processAlive reports whether pid names a live process. EPERM means
// the process exists but belongs to someone else.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func printStatus(w io.Writer, report statusReport) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "status:\t%s\n", report.Status)
	if report.PID > 0 {
		fmt.Fprintf(tw, "pid:\t%d (alive: %t)\n", report.PID, report.Alive)
	}
	fmt.Fprintf(tw, "listen:\t%s\n", report.ListenAddr)
	fmt.Fprintf(tw, "binary:\t%s\n", report.BinaryPath)
	if report.BinaryDigest != "" {
		fmt.Fprintf(tw, "digest:\t%s\n", report.BinaryDigest)
	}
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(tw, "started:\t%s\n", report.StartedAt.Format(time.RFC3339))
	}
	if report.Exited {
		fmt.Fprintf(tw, "exited:\t%s (code %d)\n", report.ExitedAt.Format(time.RFC3339), report.ExitCode)
	}
	if report.Reason != "" {
		fmt.Fprintf(tw, "reason:\t%s\n", report.Reason)
	}
	tw.Flush()
}
