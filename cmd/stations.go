// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/charmbracelet/bubbles/table"
	"github.com/olekukonko/tablewriter"
)

// linkKey identifies one direction of traffic between two stations
type linkKey struct {
	source      uint16
	destination uint16
}

type linkActivity struct {
	frames    uint64
	bytes     uint64
	anomalies uint64
	lastFunc  string
	master    bool
	lastSeen  time.Time
}

// stationTracker counts frames per source/destination pair
type stationTracker struct {
	links map[linkKey]*linkActivity
}

func newStationTracker() *stationTracker {
	return &stationTracker{links: make(map[linkKey]*linkActivity)}
}

func (t *stationTracker) record(ts time.Time, h link.Header, payloadLen int, anomalies int) {
	key := linkKey{source: h.Source(), destination: h.Destination()}
	a, ok := t.links[key]
	if !ok {
		a = &linkActivity{}
		t.links[key] = a
	}
	a.frames++
	a.bytes += uint64(payloadLen)
	a.anomalies += uint64(anomalies)
	a.lastFunc = h.Function().String()
	a.master = h.IsMaster()
	a.lastSeen = ts
}

func (t *stationTracker) len() int {
	return len(t.links)
}

var stationColumns = []table.Column{
	{Title: "Source", Width: 7},
	{Title: "Dest", Width: 7},
	{Title: "Dir", Width: 4},
	{Title: "Frames", Width: 8},
	{Title: "Bytes", Width: 8},
	{Title: "Anom", Width: 6},
	{Title: "Last Function", Width: 26},
	{Title: "Last Seen", Width: 12},
}

// rows returns one table row per link, ordered by source then destination
func (t *stationTracker) rows() []table.Row {
	keys := make([]linkKey, 0, len(t.links))
	for k := range t.links {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].destination < keys[j].destination
	})

	rows := make([]table.Row, 0, len(keys))
	for _, k := range keys {
		a := t.links[k]
		dir := "O>M"
		if a.master {
			dir = "M>O"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", k.source),
			formatAddress(k.destination),
			dir,
			fmt.Sprintf("%d", a.frames),
			fmt.Sprintf("%d", a.bytes),
			fmt.Sprintf("%d", a.anomalies),
			a.lastFunc,
			a.lastSeen.Format("15:04:05.000"),
		})
	}
	return rows
}

// printLinkTable writes the tracked links as a plain text table
func printLinkTable(w io.Writer, t *stationTracker) {
	headers := make([]string, len(stationColumns))
	for i, c := range stationColumns {
		headers[i] = c.Title
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderLine(false)
	tw.SetBorder(false)
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)

	for _, row := range t.rows() {
		tw.Append(row)
	}
	tw.Render()
}

func formatAddress(addr uint16) string {
	switch {
	case addr >= link.AddressBroadcastMin:
		return "BCAST"
	case addr == link.AddressSelf:
		return "SELF"
	default:
		return fmt.Sprintf("%d", addr)
	}
}
