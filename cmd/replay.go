// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/linkscope/pkg/capture"
	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/spf13/cobra"
)

var replayErrorsOnly bool

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Print a capture recorded with raw_log --record",
	Long: `Read a capture file and print every recorded frame and framing error
with its original timestamp, followed by a statistics summary and a table of
traffic per source and destination.

Frames are re-validated on replay, so anomalies are reported even for
captures recorded before a check was added.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only print errors and anomalous frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	summary, err := replayCapture(out, f, replayErrorsOnly)
	fmt.Fprintln(out)
	fmt.Fprint(out, summary.stats.String())
	if summary.stations.len() > 0 {
		fmt.Fprintln(out)
		printLinkTable(out, summary.stations)
	}
	return err
}

type replaySummary struct {
	stats    *link.Statistics
	stations *stationTracker
}

// replayCapture prints the records in r and returns their summary. A
// truncated trailing record ends the replay with an error; everything before
// it is still counted.
func replayCapture(w io.Writer, r io.Reader, errorsOnly bool) (replaySummary, error) {
	summary := replaySummary{
		stats:    link.NewStatistics(),
		stations: newStationTracker(),
	}
	stats := summary.stats
	reader := capture.NewReader(r)

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			return summary, err
		}

		switch rec.Kind {
		case capture.KindFrame:
			h := rec.Header()
			anomalies := link.ValidateFrame(h, rec.Payload)
			stats.RecordFrame(h, len(rec.Payload), anomalies)
			summary.stations.record(rec.Timestamp(), h, len(rec.Payload), len(anomalies))
			if errorsOnly && len(anomalies) == 0 {
				continue
			}
			fmt.Fprint(w, link.FormatFrame(rec.Timestamp(), h, rec.Payload))
			for _, a := range anomalies {
				fmt.Fprintf(w, "  Warning: %s\n", a.Message)
			}

		case capture.KindError:
			perr := rec.ParseError()
			stats.RecordError(perr)
			fmt.Fprint(w, link.FormatError(rec.Timestamp(), perr))
		}
	}
}
