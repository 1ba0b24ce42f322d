// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a decoded frame into a human-readable string
func FormatFrame(ts time.Time, h Header, payload []byte) string {
	timestamp := ts.Format("15:04:05.000")
	c := h.Control()

	result := fmt.Sprintf("[%s] %s (0x%02X) %s %d -> %d len=%d\n",
		timestamp, c.Function, c.Byte(), formatDirection(c), h.Source(), h.Destination(), len(payload))
	result += fmt.Sprintf("  Flags: %s\n", formatFlags(c))

	if len(payload) > 0 {
		result += "  User Data: " + FormatHex(payload)
	}

	return result
}

// FormatError formats a framing error
func FormatError(ts time.Time, err ParseError) string {
	return fmt.Sprintf("[%s] %s: %v\n", ts.Format("15:04:05.000"), err.Kind, err)
}

// FormatHex formats bytes as a hex dump with 16 bytes per line
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n             ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatDirection(c Control) string {
	if c.Master {
		return "M>O"
	}
	return "O>M"
}

func formatFlags(c Control) string {
	flags := []string{}
	if c.Master {
		flags = append(flags, "DIR")
	}
	if c.IsPrimary() {
		flags = append(flags, "PRM")
		if c.FCV {
			flags = append(flags, "FCV")
			if c.FCB {
				flags = append(flags, "FCB")
			}
		}
	} else if c.FCV {
		flags = append(flags, "DFC")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
