// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import "github.com/Thermoquad/linkscope/pkg/link"

// encodeFrame builds a wire frame with correct header and block CRCs
func encodeFrame(control byte, dest, src uint16, userData []byte) []byte {
	frame := []byte{
		link.Sync1, link.Sync2,
		byte(len(userData) + link.MinLength),
		control,
		byte(dest), byte(dest >> 8),
		byte(src), byte(src >> 8),
	}
	crc := link.CalculateCRC(frame)
	frame = append(frame, byte(crc), byte(crc>>8))

	for len(userData) > 0 {
		n := min(link.BlockSize, len(userData))
		crc := link.CalculateCRC(userData[:n])
		frame = append(frame, userData[:n]...)
		frame = append(frame, byte(crc), byte(crc>>8))
		userData = userData[n:]
	}
	return frame
}

// testStream is two good frames around a frame with a damaged block CRC
func testStream() []byte {
	var s []byte
	s = append(s, encodeFrame(0xC4, 10, 1, []byte{0xC0, 0xC1, 0x01, 0x3C, 0x02, 0x06})...)
	bad := encodeFrame(0x44, 1, 10, []byte{0xC0, 0xC1, 0x81, 0x00, 0x00})
	bad[len(bad)-1] ^= 0x01
	s = append(s, bad...)
	s = append(s, encodeFrame(0x00, 1, 10, nil)...)
	return s
}
