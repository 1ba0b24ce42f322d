// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link implements the DNP3 data-link layer frame decoder.
//
// The decoder consumes an unbounded byte stream (serial port, TCP socket or
// WebSocket bridge) in slices of any size and reports validated link frames
// and framing errors to a Handler. Frames carry a 10-byte header protected by
// its own CRC, followed by user data split into 16-byte blocks, each with a
// trailing CRC.
package link

// Sync pattern that starts every frame
const (
	Sync1 = 0x05
	Sync2 = 0x64
)

// Frame geometry
const (
	HeaderSize    = 10  // sync(2) + length + control + dest(2) + src(2) + crc(2)
	MinLength     = 5   // length byte floor: control + dest + src
	MaxLength     = 255 // length byte ceiling
	MaxUserData   = MaxLength - MinLength
	BlockSize     = 16 // user data bytes per CRC block
	BlockCRCSize  = 2
	FullBlockSize = BlockSize + BlockCRCSize
	MaxBodySize   = 282 // 15 full blocks + one 10-byte block with its CRC
)

// Header field offsets
const (
	offsetLength      = 2
	offsetControl     = 3
	offsetDestination = 4
	offsetSource      = 6
	offsetCRC         = 8
)

// Control byte bits
const (
	ControlDir      = 0x80 // set when the frame comes from the master
	ControlPrm      = 0x40 // set on primary frames
	ControlFCB      = 0x20 // frame count bit
	ControlFCV      = 0x10 // frame count valid (DFC on secondary frames)
	ControlFuncMask = 0x4F // PRM + function nibble
)

// Address ranges
const (
	AddressReservedStart = 0xFFF0
	AddressReservedEnd   = 0xFFFB
	AddressSelf          = 0xFFFC
	AddressBroadcastMin  = 0xFFFD
)

// Parser phases (internal)
const (
	phaseSync1 = iota
	phaseSync2
	phaseHeader
	phaseBody
)
