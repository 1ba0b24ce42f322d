// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
	metricsAddr   string
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze damaged frames and link anomalies",
	Long: `Track framing errors and link-layer anomalies with statistics.

This command checks each frame and detects:
  - Framing errors (bad length, header CRC, block CRC)
  - Unknown function codes
  - User data on functions that carry none, or missing user data
  - Wrong frame count valid (FCV) bit for the function
  - Reserved source or destination addresses
  - Statistics and trends (frame rate, error rate, success rate)

Errors seen before the first valid frame are counted as discarded while the
stream synchronizes and are not reported.

By default, only errors are displayed. Use --show-all to display valid frames too.
Use --metrics-addr to expose the counters as Prometheus metrics.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	errorDetectionCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9108)")
}

// syncGate suppresses errors until the first valid frame, since joining a
// stream mid-frame produces spurious CRC failures
type syncGate struct {
	synchronized bool
	discarded    int
}

// frame reports whether this frame completes synchronization
func (g *syncGate) frame() bool {
	if g.synchronized {
		return false
	}
	g.synchronized = true
	return true
}

// error reports whether the error should be surfaced
func (g *syncGate) error() bool {
	if !g.synchronized {
		g.discarded++
		return false
	}
	return true
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var metrics *linkMetrics
	if metricsAddr != "" {
		reg := newRegistry()
		metrics = newLinkMetrics(reg)
		serveMetrics(ctx, metricsAddr, reg)
	}

	if useTUI {
		return runTUIMode(ctx, conn, connInfo, metrics)
	}
	return runTextMode(ctx, cmd.OutOrStdout(), conn, connInfo, metrics)
}

// printParseError prints a framing error in highlighted format
func printParseError(w io.Writer, ts time.Time, err link.ParseError) {
	fmt.Fprintf(w, "[%s] \033[1;31m%s:\033[0m %v\n", ts.Format("15:04:05.000"), err.Kind, err)
	fmt.Fprintf(w, "  >>> FRAME DISCARDED <<<\n\n")
}

// printValidationErrors prints the anomalies found in a frame
func printValidationErrors(w io.Writer, ts time.Time, h link.Header, payload []byte, errors []link.ValidationError) {
	fmt.Fprintf(w, "[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X) %d -> %d\n",
		ts.Format("15:04:05.000"), h.Function(), h.Control().Byte(), h.Source(), h.Destination())
	fmt.Fprintf(w, "  CRC: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case link.AnomalyUnknownFunction:
			fmt.Fprintf(w, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case link.AnomalyUnexpectedPayload, link.AnomalyMissingPayload:
			fmt.Fprintf(w, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			fmt.Fprintf(w, "    User data: %d bytes\n", len(payload))

		case link.AnomalyFrameCountValid:
			fmt.Fprintf(w, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			fmt.Fprintf(w, "    FCV=%t FCB=%t\n", h.Control().FCV, h.Control().FCB)

		case link.AnomalyReservedAddress:
			fmt.Fprintf(w, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Fprintf(w, "  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Fprintf(w, "  >>> FRAME FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, conn Connection, connInfo string, metrics *linkMetrics) error {
	m := initialModel(connInfo, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	parser := link.NewParser()
	gate := &syncGate{}
	handler := link.HandlerFuncs{
		Frame: func(h link.Header, payload []byte) {
			if gate.frame() {
				p.Send(syncMsg{discarded: gate.discarded})
			}
			anomalies := link.ValidateFrame(h, payload)
			metrics.observeFrame(h, len(payload), anomalies)
			p.Send(frameMsg{
				timestamp:  time.Now(),
				header:     h,
				payloadLen: len(payload),
				anomalies:  anomalies,
			})
		},
		Error: func(err link.ParseError) {
			if !gate.error() {
				return
			}
			metrics.observeError(err)
			p.Send(parseErrorMsg{timestamp: time.Now(), err: err})
		},
	}

	go func() {
		_ = readLoop(ctx, conn, func(data []byte) {
			metrics.observeBytes(len(data))
			parser.Decode(data, handler)
		})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, w io.Writer, conn Connection, connInfo string, metrics *linkMetrics) error {
	fmt.Fprintf(w, "Linkscope - Error Detection Mode\n")
	fmt.Fprintf(w, "Connection: %s\n", connInfo)
	fmt.Fprintf(w, "Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Fprintf(w, "Mode: All frames\n")
	} else {
		fmt.Fprintf(w, "Mode: Errors only\n")
	}
	fmt.Fprintf(w, "Press Ctrl+C to exit\n\n")

	stats := link.NewStatistics()
	handler := newTextHandler(w, stats, metrics)

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Reads happen in their own goroutine so the ticker keeps firing on a
	// silent line
	dataChan := make(chan []byte, 10)
	doneChan := make(chan error, 1)
	go func() {
		doneChan <- readLoop(ctx, conn, func(data []byte) {
			chunk := make([]byte, len(data))
			copy(chunk, data)
			dataChan <- chunk
		})
	}()

	parser := link.NewParser()
	for {
		select {
		case data := <-dataChan:
			metrics.observeBytes(len(data))
			parser.Decode(data, handler)

		case <-statsTicker.C:
			fmt.Fprintln(w)
			fmt.Fprint(w, stats.String())
			fmt.Fprintln(w)

		case err := <-doneChan:
			fmt.Fprintln(w)
			fmt.Fprint(w, stats.String())
			return err
		}
	}
}

// newTextHandler builds the text-mode handler around a sync gate
func newTextHandler(w io.Writer, stats *link.Statistics, metrics *linkMetrics) link.Handler {
	gate := &syncGate{}
	return link.HandlerFuncs{
		Frame: func(h link.Header, payload []byte) {
			now := time.Now()
			if gate.frame() {
				if gate.discarded > 0 {
					fmt.Fprintf(w, "[SYNC] Synchronized after discarding %d damaged frames\n\n", gate.discarded)
				} else {
					fmt.Fprintf(w, "[SYNC] Synchronized\n\n")
				}
			}

			anomalies := link.ValidateFrame(h, payload)
			stats.RecordFrame(h, len(payload), anomalies)
			metrics.observeFrame(h, len(payload), anomalies)

			if len(anomalies) > 0 {
				printValidationErrors(w, now, h, payload, anomalies)
			} else if showAll {
				fmt.Fprint(w, link.FormatFrame(now, h, payload))
			}
		},
		Error: func(err link.ParseError) {
			if !gate.error() {
				return
			}
			stats.RecordError(err)
			metrics.observeError(err)
			printParseError(w, time.Now(), err)
		},
	}
}
