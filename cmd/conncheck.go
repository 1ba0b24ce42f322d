// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/spf13/cobra"
)

var connCheckCmd = &cobra.Command{
	Use:   "conn_check",
	Short: "Measure link quality without printing frames",
	Long: `Decode the link for a fixed time and report how healthy it is.

Every byte is run through the frame parser, but frames are not printed. Once
a second a status line shows throughput, valid frames and framing errors. At
the end a summary lists the error breakdown, the framing error ratio and the
longest silence between valid frames.

The check passes when at least one valid frame arrived and the share of
damaged frames stays at or below --max-error-percent.

Exit codes:
  0 - Link healthy
  1 - No valid frames, too many framing errors, or connection lost
  2 - Connection error`,
	RunE: runConnCheck,
}

var (
	connCheckDuration     int
	connCheckMaxErrorRate float64
)

func init() {
	rootCmd.AddCommand(connCheckCmd)
	connCheckCmd.Flags().IntVar(&connCheckDuration, "duration", 30, "Test duration in seconds")
	connCheckCmd.Flags().Float64Var(&connCheckMaxErrorRate, "max-error-percent", 5, "Highest framing error percentage that still passes")
}

// linkQuality decodes a byte stream and keeps the counters conn_check
// reports. feed and snapshot may be called from different goroutines.
type linkQuality struct {
	mu sync.Mutex

	parser *link.Parser
	stats  *link.Statistics
	start  time.Time
	now    time.Time

	bytes      uint64
	lastValid  time.Time
	longestGap time.Duration
}

func newLinkQuality(start time.Time) *linkQuality {
	return &linkQuality{
		parser:    link.NewParser(),
		stats:     link.NewStatistics(),
		start:     start,
		now:       start,
		lastValid: start,
	}
}

// feed decodes one chunk received at ts
func (q *linkQuality) feed(ts time.Time, data []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.now = ts
	q.bytes += uint64(len(data))
	q.parser.Decode(data, q)
}

func (q *linkQuality) OnFrame(h link.Header, payload []byte) {
	q.stats.RecordFrame(h, len(payload), nil)
	q.noteGap(q.now)
	q.lastValid = q.now
}

func (q *linkQuality) OnError(err link.ParseError) {
	q.stats.RecordError(err)
}

func (q *linkQuality) noteGap(ts time.Time) {
	if gap := ts.Sub(q.lastValid); gap > q.longestGap {
		q.longestGap = gap
	}
}

type qualitySnapshot struct {
	elapsed      time.Duration
	bytes        uint64
	frames       uint64
	valid        uint64
	badLength    uint64
	badHeaderCRC uint64
	badBodyCRC   uint64
	longestGap   time.Duration
}

// snapshot returns the counters as of ts. The silence since the last valid
// frame counts toward the longest gap.
func (q *linkQuality) snapshot(ts time.Time) qualitySnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	gap := q.longestGap
	if open := ts.Sub(q.lastValid); open > gap {
		gap = open
	}
	return qualitySnapshot{
		elapsed:      ts.Sub(q.start),
		bytes:        q.bytes,
		frames:       q.stats.TotalFrames,
		valid:        q.stats.ValidFrames,
		badLength:    q.stats.BadLength,
		badHeaderCRC: q.stats.BadHeaderCRC,
		badBodyCRC:   q.stats.BadBodyCRC,
		longestGap:   gap,
	}
}

func (s qualitySnapshot) errors() uint64 {
	return s.badLength + s.badHeaderCRC + s.badBodyCRC
}

// errorPercent is the share of synchronized frames that were discarded
func (s qualitySnapshot) errorPercent() float64 {
	if s.frames == 0 {
		return 0
	}
	return float64(s.errors()) * 100 / float64(s.frames)
}

func (s qualitySnapshot) bytesPerSecond() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.bytes) / s.elapsed.Seconds()
}

// passed reports whether the link meets the error threshold
func (s qualitySnapshot) passed(maxErrorPercent float64) bool {
	return s.valid > 0 && s.errorPercent() <= maxErrorPercent
}

func printQualityStatus(w io.Writer, ts time.Time, s qualitySnapshot) {
	fmt.Fprintf(w, "[%s] %7.0f B/s  frames %6d  errors %4d (%.1f%%)\n",
		ts.Format("15:04:05.000"), s.bytesPerSecond(), s.valid, s.errors(), s.errorPercent())
}

func printQualitySummary(w io.Writer, s qualitySnapshot) {
	fmt.Fprintf(w, "\n--- Link Quality ---\n")
	fmt.Fprintf(w, "Duration:        %v\n", s.elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Bytes received:  %d (%.0f B/s)\n", s.bytes, s.bytesPerSecond())
	fmt.Fprintf(w, "Sync hits:       %d\n", s.frames)
	fmt.Fprintf(w, "Valid frames:    %d\n", s.valid)
	fmt.Fprintf(w, "Framing errors:  %d (%.1f%%)\n", s.errors(), s.errorPercent())
	if s.errors() > 0 {
		fmt.Fprintf(w, "  Bad Length:     %d\n", s.badLength)
		fmt.Fprintf(w, "  Header CRC:     %d\n", s.badHeaderCRC)
		fmt.Fprintf(w, "  Body CRC:       %d\n", s.badBodyCRC)
	}
	fmt.Fprintf(w, "Longest silence: %v\n", s.longestGap.Round(time.Millisecond))
}

func runConnCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(connCheckDuration)*time.Second)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return exitCode(2)
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Link Quality Check\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Duration: %d seconds\n\n", connCheckDuration)

	q := newLinkQuality(time.Now())
	doneChan := make(chan error, 1)
	go func() {
		doneChan <- readLoop(ctx, conn, func(data []byte) {
			q.feed(time.Now(), data)
		})
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			printQualityStatus(out, now, q.snapshot(now))

		case <-doneChan:
			s := q.snapshot(time.Now())
			printQualitySummary(out, s)

			if ctx.Err() == nil {
				fmt.Fprintf(out, "Result: FAILED (connection lost)\n")
				return exitCode(1)
			}
			if !s.passed(connCheckMaxErrorRate) {
				fmt.Fprintf(out, "Result: FAILED (no valid frames or error rate above %.1f%%)\n", connCheckMaxErrorRate)
				return exitCode(1)
			}
			fmt.Fprintf(out, "Result: PASSED (link healthy)\n")
			return nil
		}
	}
}
