// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyUnknownFunction AnomalyType = iota
	AnomalyUnexpectedPayload
	AnomalyMissingPayload
	AnomalyFrameCountValid
	AnomalyReservedAddress
)

// String returns the short name used in statistics and metrics labels
func (a AnomalyType) String() string {
	switch a {
	case AnomalyUnknownFunction:
		return "unknown_function"
	case AnomalyUnexpectedPayload:
		return "unexpected_payload"
	case AnomalyMissingPayload:
		return "missing_payload"
	case AnomalyFrameCountValid:
		return "frame_count_valid"
	case AnomalyReservedAddress:
		return "reserved_address"
	default:
		return "unknown"
	}
}

// ValidationError represents a frame that passed its CRC checks but breaks
// a link layer rule
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a decoded frame against the link layer rules.
// Returns a slice of validation errors (empty if the frame is valid)
func ValidateFrame(h Header, payload []byte) []ValidationError {
	errors := []ValidationError{}

	fn := h.Function()
	if fn.IsUnknown() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownFunction,
			Message: fmt.Sprintf("Unknown function code 0x%02X", fn.Raw()),
			Details: map[string]interface{}{"function": fn.Raw()},
		})
	}

	errors = append(errors, validatePayload(fn, payload)...)
	errors = append(errors, validateFrameCount(h.Control())...)
	errors = append(errors, validateAddresses(h)...)

	return errors
}

// validatePayload checks that user data only travels on user data functions
func validatePayload(fn Function, payload []byte) []ValidationError {
	switch {
	case fn.CarriesUserData() && len(payload) == 0:
		return []ValidationError{{
			Type:    AnomalyMissingPayload,
			Message: fmt.Sprintf("%s without user data", fn),
			Details: map[string]interface{}{"function": fn.Raw()},
		}}
	case !fn.CarriesUserData() && !fn.IsUnknown() && len(payload) > 0:
		return []ValidationError{{
			Type:    AnomalyUnexpectedPayload,
			Message: fmt.Sprintf("%s carries %d bytes of user data", fn, len(payload)),
			Details: map[string]interface{}{"function": fn.Raw(), "length": len(payload)},
		}}
	}
	return nil
}

// validateFrameCount checks FCV against the primary function. Secondary
// frames use the bit as DFC and are not checked.
func validateFrameCount(c Control) []ValidationError {
	var want bool
	switch c.Function.Code() {
	case FuncPriTestLinkStates, FuncPriConfirmedUserData:
		want = true
	case FuncPriResetLinkStates, FuncPriUnconfirmedUserData, FuncPriRequestLinkStatus:
		want = false
	default:
		return nil
	}

	if c.FCV == want {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyFrameCountValid,
		Message: fmt.Sprintf("%s with FCV=%t (expected %t)", c.Function, c.FCV, want),
		Details: map[string]interface{}{"fcv": c.FCV, "expected": want},
	}}
}

// validateAddresses rejects reserved destinations and non-unicast sources
func validateAddresses(h Header) []ValidationError {
	errors := []ValidationError{}

	dest := h.Destination()
	if dest >= AddressReservedStart && dest <= AddressReservedEnd {
		errors = append(errors, ValidationError{
			Type:    AnomalyReservedAddress,
			Message: fmt.Sprintf("Reserved destination address 0x%04X", dest),
			Details: map[string]interface{}{"destination": dest},
		})
	}

	src := h.Source()
	if src >= AddressReservedStart {
		errors = append(errors, ValidationError{
			Type:    AnomalyReservedAddress,
			Message: fmt.Sprintf("Reserved source address 0x%04X", src),
			Details: map[string]interface{}{"source": src},
		})
	}

	return errors
}
