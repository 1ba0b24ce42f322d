// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Linkscope - DNP3 Link Layer Analyzer
//
// A CLI tool for monitoring and decoding DNP3 link-layer frames from serial
// lines, WebSocket bridges and TCP endpoints.

package main

import (
	"os"

	"github.com/Thermoquad/linkscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
