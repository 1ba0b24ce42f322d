// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "fmt"

// Header is a decoded link header. It is immutable once constructed.
type Header struct {
	control     Control
	destination uint16
	source      uint16
}

// NewHeader creates a header from decoded control fields and addresses
func NewHeader(control Control, destination, source uint16) Header {
	return Header{
		control:     control,
		destination: destination,
		source:      source,
	}
}

// Control returns the decoded control fields
func (h Header) Control() Control {
	return h.control
}

// Function returns the link function of the frame
func (h Header) Function() Function {
	return h.control.Function
}

// Destination returns the 16-bit destination address
func (h Header) Destination() uint16 {
	return h.destination
}

// Source returns the 16-bit source address
func (h Header) Source() uint16 {
	return h.source
}

// IsMaster reports whether the frame was sent by the master
func (h Header) IsMaster() bool {
	return h.control.Master
}

// IsBroadcast returns true if the destination is one of the broadcast addresses
func (h Header) IsBroadcast() bool {
	return h.destination >= AddressBroadcastMin
}

// String returns a one-line description of the header
func (h Header) String() string {
	return fmt.Sprintf("%s master=%t fcb=%t fcv=%t dest=%d src=%d",
		h.control.Function, h.control.Master, h.control.FCB, h.control.FCV,
		h.destination, h.source)
}
