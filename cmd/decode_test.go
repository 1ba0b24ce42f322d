// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexInput(t *testing.T) {
	want := []byte{0x05, 0x64, 0x05, 0xC0, 0x01, 0x00, 0x00, 0x04, 0xE9, 0x21}

	tests := []struct {
		name  string
		input string
	}{
		{"spaced", "05 64 05 C0 01 00 00 04 E9 21"},
		{"packed", "056405C0010000 04E921\n"},
		{"colons", "05:64:05:c0:01:00:00:04:e9:21"},
		{"prefixed", "0x05, 0x64, 0x05, 0xC0, 0x01, 0x00, 0x00, 0x04, 0xE9, 0x21"},
		{"single nibble", "5 64 5 C0 1 0 0 4 E9 21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHexInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseHexInput_Invalid(t *testing.T) {
	_, err := parseHexInput("05 6G")
	assert.Error(t, err)

	_, err = parseHexInput("056")
	assert.Error(t, err)
}

func TestDecodeFrames_Reference(t *testing.T) {
	data, err := parseHexInput("05 64 05 C0 01 00 00 04 E9 21")
	require.NoError(t, err)

	var out bytes.Buffer
	stats := decodeFrames(&out, data, 0)

	assert.Equal(t, uint64(1), stats.TotalFrames)
	assert.Contains(t, out.String(), "PRI_RESET_LINK_STATES (0xC0) M>O 1024 -> 1 len=0")
	assert.NotContains(t, out.String(), "inside a frame")
}

func TestDecodeFrames_BadHeaderCRC(t *testing.T) {
	data, err := parseHexInput("05 64 05 C0 01 00 00 04 20 21")
	require.NoError(t, err)

	var out bytes.Buffer
	stats := decodeFrames(&out, data, 0)

	assert.Equal(t, uint64(1), stats.BadHeaderCRC)
	assert.Contains(t, out.String(), "BAD_HEADER_CRC")
}

func TestDecodeFrames_ChunkingDoesNotChangeResult(t *testing.T) {
	data := testStream()

	whole := decodeFrames(&bytes.Buffer{}, data, 0)
	for _, chunk := range []int{1, 2, 3, 7, 16, 100} {
		split := decodeFrames(&bytes.Buffer{}, data, chunk)
		assert.Equal(t, whole.TotalFrames, split.TotalFrames, "chunk=%d", chunk)
		assert.Equal(t, whole.BadBodyCRC, split.BadBodyCRC, "chunk=%d", chunk)
		assert.Equal(t, whole.PayloadBytes, split.PayloadBytes, "chunk=%d", chunk)
	}

	assert.Equal(t, uint64(3), whole.TotalFrames)
	assert.Equal(t, uint64(1), whole.BadBodyCRC)
}

func TestDecodeFrames_Truncated(t *testing.T) {
	frame := encodeFrame(0xC4, 10, 1, []byte{1, 2, 3, 4})

	var out bytes.Buffer
	stats := decodeFrames(&out, frame[:len(frame)-3], 0)

	assert.Zero(t, stats.TotalFrames)
	assert.Contains(t, out.String(), "(input ends inside a frame)")
}

func TestDecodeFrames_ReportsAnomalies(t *testing.T) {
	// Unconfirmed user data with no user data
	var out bytes.Buffer
	decodeFrames(&out, encodeFrame(0xC4, 10, 1, nil), 0)

	assert.Contains(t, out.String(), "  Warning: ")
}
