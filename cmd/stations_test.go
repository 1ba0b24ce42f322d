// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationTracker_Rows(t *testing.T) {
	tr := newStationTracker()
	ts := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)

	tr.record(ts, link.NewHeader(link.DecodeControl(0xC4), 10, 1), 6, 0)
	tr.record(ts.Add(time.Second), link.NewHeader(link.DecodeControl(0xC4), 10, 1), 4, 1)
	tr.record(ts, link.NewHeader(link.DecodeControl(0x00), 1, 10), 0, 0)
	tr.record(ts, link.NewHeader(link.DecodeControl(0xC4), 0xFFFF, 1), 3, 0)

	rows := tr.rows()
	require.Len(t, rows, 3)
	assert.Equal(t, 3, tr.len())

	// Ordered by source, then destination
	assert.Equal(t, []string{"1", "10", "M>O", "2", "10", "1", "PRI_UNCONFIRMED_USER_DATA", "08:00:01.000"}, []string(rows[0]))
	assert.Equal(t, "BCAST", rows[1][1])
	assert.Equal(t, []string{"10", "1", "O>M", "1", "0", "0", "SEC_ACK", "08:00:00.000"}, []string(rows[2]))
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "1024", formatAddress(1024))
	assert.Equal(t, "SELF", formatAddress(0xFFFC))
	assert.Equal(t, "BCAST", formatAddress(0xFFFD))
	assert.Equal(t, "BCAST", formatAddress(0xFFFF))
	assert.Equal(t, "65520", formatAddress(0xFFF0))
}
