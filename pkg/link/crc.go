// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_DNP)

// CalculateCRC computes the DNP3 CRC-16 checksum for the given data
func CalculateCRC(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// readUint16 reads a little-endian 16-bit value
func readUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
