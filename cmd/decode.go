// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/spf13/cobra"
)

var (
	decodeChunk int
	decodeStats bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [HEX...]",
	Short: "Decode link frames from hex input",
	Long: `Decode DNP3 link frames from hex bytes given as arguments or on stdin.

Whitespace, colons and 0x prefixes are ignored, so output from most hex dump
tools can be pasted directly:

  linkscope decode 05 64 05 C0 01 00 00 04 E9 21
  echo "0564 05C0 0100 0004 E921" | linkscope decode

--chunk N feeds the parser N bytes at a time to check that frames split
across reads decode the same way.`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().IntVar(&decodeChunk, "chunk", 0, "Feed the parser N bytes at a time (0 = all at once)")
	decodeCmd.Flags().BoolVar(&decodeStats, "stats", false, "Print a statistics summary after decoding")
}

func runDecode(cmd *cobra.Command, args []string) error {
	var input string
	if len(args) > 0 {
		input = strings.Join(args, " ")
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		input = string(b)
	}

	data, err := parseHexInput(input)
	if err != nil {
		return err
	}
	if decodeChunk < 0 {
		return fmt.Errorf("invalid --chunk: %d", decodeChunk)
	}

	stats := decodeFrames(cmd.OutOrStdout(), data, decodeChunk)
	if decodeStats {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), stats.String())
	}
	if stats.TotalFrames == 0 {
		fmt.Fprintln(os.Stderr, "no frames found")
	}
	return nil
}

// parseHexInput accepts hex bytes with optional separators and 0x prefixes
func parseHexInput(s string) ([]byte, error) {
	var sb strings.Builder
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ':' || r == ',' || r == '-'
	}) {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		if len(field) == 1 {
			field = "0" + field
		}
		sb.WriteString(field)
	}

	data, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// decodeFrames runs data through a fresh parser, chunk bytes at a time,
// printing each event to w
func decodeFrames(w io.Writer, data []byte, chunk int) *link.Statistics {
	stats := link.NewStatistics()
	now := time.Now()

	parser := link.NewParser()
	handler := link.HandlerFuncs{
		Frame: func(h link.Header, payload []byte) {
			anomalies := link.ValidateFrame(h, payload)
			stats.RecordFrame(h, len(payload), anomalies)
			fmt.Fprint(w, link.FormatFrame(now, h, payload))
			for _, a := range anomalies {
				fmt.Fprintf(w, "  Warning: %s\n", a.Message)
			}
		},
		Error: func(err link.ParseError) {
			stats.RecordError(err)
			fmt.Fprint(w, link.FormatError(now, err))
		},
	}

	if chunk <= 0 {
		chunk = len(data)
	}
	for len(data) > 0 {
		n := min(chunk, len(data))
		parser.Decode(data[:n], handler)
		data = data[n:]
	}

	if parser.InFrame() {
		fmt.Fprintln(w, "(input ends inside a frame)")
	}
	return stats
}
