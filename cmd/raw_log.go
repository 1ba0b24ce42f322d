// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/linkscope/pkg/capture"
	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recordFile string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded link frames in human-readable format",
	Long: `Continuously decode and display DNP3 link frames as they arrive.

Each frame is shown with timestamp, function, direction, addresses, flags
and a hex dump of its user data. Frames failing the length or CRC checks are
shown as errors.

With --record FILE every frame and error is also written to a capture file
that can be read back with the replay command.

Supports serial, WebSocket and TCP connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&recordFile, "record", "", "Write a capture of all frames and errors to FILE")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Linkscope - Raw Frame Log\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	var handler link.Handler = link.HandlerFuncs{
		Frame: func(h link.Header, payload []byte) {
			fmt.Fprint(out, link.FormatFrame(time.Now(), h, payload))
		},
		Error: func(err link.ParseError) {
			fmt.Fprint(out, link.FormatError(time.Now(), err))
		},
	}

	var recorder *capture.Recorder
	if recordFile != "" {
		f, err := os.Create(recordFile)
		if err != nil {
			return fmt.Errorf("failed to create capture: %w", err)
		}
		defer f.Close()

		recorder = capture.NewRecorder(capture.NewWriter(f), handler)
		handler = recorder
		logger.Info("recording capture", zap.String("file", recordFile))
	}

	parser := link.NewParser()
	err = readLoop(ctx, conn, func(data []byte) {
		parser.Decode(data, handler)
	})

	if recorder != nil && recorder.Err() != nil {
		logger.Error("capture incomplete", zap.String("file", recordFile), zap.Error(recorder.Err()))
	}
	return err
}
