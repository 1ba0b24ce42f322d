// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

// Control holds the fields decoded from a link control byte
type Control struct {
	Function Function
	Master   bool // DIR bit
	FCB      bool // frame count bit
	FCV      bool // frame count valid; DFC on secondary frames
}

// DecodeControl decodes a control byte. Every byte value is accepted.
func DecodeControl(b byte) Control {
	return Control{
		Function: DecodeFunction(b & ControlFuncMask),
		Master:   b&ControlDir != 0,
		FCB:      b&ControlFCB != 0,
		FCV:      b&ControlFCV != 0,
	}
}

// IsPrimary reports whether the frame was sent by a primary station
func (c Control) IsPrimary() bool {
	return c.Function.IsPrimary()
}

// Byte recomposes the wire control byte
func (c Control) Byte() byte {
	b := c.Function.Raw()
	if c.Master {
		b |= ControlDir
	}
	if c.FCB {
		b |= ControlFCB
	}
	if c.FCV {
		b |= ControlFCV
	}
	return b
}
