// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// TCP connection flags
	tcpAddr string

	// Ambient flags
	configFile string
	logLevel   string
	logFile    string
)

// logger is replaced in PersistentPreRunE once flags are resolved
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "linkscope",
	Short: "DNP3 Link Layer Analyzer",
	Long: `Linkscope - A CLI tool for monitoring and analyzing DNP3 link-layer frames.

Frames are synchronized on the 0x05 0x64 start bytes, checked against the
header and per-block CRCs, and printed or validated as they arrive.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]
  TCP:       --tcp host:20000

For WebSocket authentication, the password is read from the LINKSCOPE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Any flag may also be set in a config file (--config, or ./linkscope.yaml) or
through a LINKSCOPE_<FLAG> environment variable, e.g. LINKSCOPE_BAUD=19200.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Flags(), configFile); err != nil {
			return err
		}
		l, err := newLogger(logLevel, logFile)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// TCP connection flags
	rootCmd.PersistentFlags().StringVar(&tcpAddr, "tcp", "", "DNP3 over TCP endpoint (host:port)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./linkscope.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
}

// exitError ends a command with a specific process exit code. The command
// has already printed its own result, so Execute does not report it again.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

// ExitCode returns the process exit code for an error returned by Execute
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return 1
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	var e *exitError
	if err != nil && !errors.As(err, &e) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
