// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "fmt"

// FunctionCode enumerates the link function codes this decoder knows.
// FuncUnknown is the escape for every other masked control value.
type FunctionCode int

// Function code values
const (
	FuncUnknown FunctionCode = iota
	FuncPriResetLinkStates
	FuncPriTestLinkStates
	FuncPriConfirmedUserData
	FuncPriUnconfirmedUserData
	FuncPriRequestLinkStatus
	FuncSecAck
	FuncSecNack
	FuncSecLinkStatus
	FuncSecNotSupported
)

// Masked control byte values (PRM bit + function nibble)
const (
	rawPriResetLinkStates     = 0x40
	rawPriTestLinkStates      = 0x42
	rawPriConfirmedUserData   = 0x43
	rawPriUnconfirmedUserData = 0x44
	rawPriRequestLinkStatus   = 0x49
	rawSecAck                 = 0x00
	rawSecNack                = 0x01
	rawSecLinkStatus          = 0x0B
	rawSecNotSupported        = 0x0F
)

// Function is a decoded link function: one of the named codes, or
// FuncUnknown carrying the masked byte it was decoded from.
type Function struct {
	code FunctionCode
	raw  uint8
}

// DecodeFunction maps a masked control value (control & ControlFuncMask)
// to a Function. Bits outside the mask are ignored.
func DecodeFunction(masked uint8) Function {
	masked &= ControlFuncMask

	var code FunctionCode
	switch masked {
	case rawPriResetLinkStates:
		code = FuncPriResetLinkStates
	case rawPriTestLinkStates:
		code = FuncPriTestLinkStates
	case rawPriConfirmedUserData:
		code = FuncPriConfirmedUserData
	case rawPriUnconfirmedUserData:
		code = FuncPriUnconfirmedUserData
	case rawPriRequestLinkStatus:
		code = FuncPriRequestLinkStatus
	case rawSecAck:
		code = FuncSecAck
	case rawSecNack:
		code = FuncSecNack
	case rawSecLinkStatus:
		code = FuncSecLinkStatus
	case rawSecNotSupported:
		code = FuncSecNotSupported
	default:
		code = FuncUnknown
	}

	return Function{code: code, raw: masked}
}

// Code returns the enumerated function code
func (f Function) Code() FunctionCode {
	return f.code
}

// Raw returns the masked control value the function was decoded from
func (f Function) Raw() uint8 {
	return f.raw
}

// IsUnknown reports whether the masked value matched no named code
func (f Function) IsUnknown() bool {
	return f.code == FuncUnknown
}

// IsPrimary reports whether the PRM bit is set
func (f Function) IsPrimary() bool {
	return f.raw&ControlPrm != 0
}

// CarriesUserData reports whether the function is one of the user data codes
func (f Function) CarriesUserData() bool {
	return f.code == FuncPriConfirmedUserData || f.code == FuncPriUnconfirmedUserData
}

// String returns the human-readable function name
func (f Function) String() string {
	if f.code == FuncUnknown {
		return fmt.Sprintf("UNKNOWN(0x%02X)", f.raw)
	}
	return f.code.String()
}

// String returns the name of the function code
func (c FunctionCode) String() string {
	switch c {
	case FuncPriResetLinkStates:
		return "PRI_RESET_LINK_STATES"
	case FuncPriTestLinkStates:
		return "PRI_TEST_LINK_STATES"
	case FuncPriConfirmedUserData:
		return "PRI_CONFIRMED_USER_DATA"
	case FuncPriUnconfirmedUserData:
		return "PRI_UNCONFIRMED_USER_DATA"
	case FuncPriRequestLinkStatus:
		return "PRI_REQUEST_LINK_STATUS"
	case FuncSecAck:
		return "SEC_ACK"
	case FuncSecNack:
		return "SEC_NACK"
	case FuncSecLinkStatus:
		return "SEC_LINK_STATUS"
	case FuncSecNotSupported:
		return "SEC_NOT_SUPPORTED"
	default:
		return "UNKNOWN"
	}
}
