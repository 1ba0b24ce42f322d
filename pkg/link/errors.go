// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "fmt"

// ErrorKind classifies a framing error
type ErrorKind int

// Error kinds
const (
	KindBadLength ErrorKind = iota + 1
	KindBadHeaderCRC
	KindBadBodyCRC
)

// String returns the name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindBadLength:
		return "BAD_LENGTH"
	case KindBadHeaderCRC:
		return "BAD_HEADER_CRC"
	case KindBadBodyCRC:
		return "BAD_BODY_CRC"
	default:
		return "UNKNOWN"
	}
}

// ParseError is reported to the handler when a frame is discarded.
// Length carries the raw length byte for KindBadLength.
type ParseError struct {
	Kind   ErrorKind
	Length uint8
}

// Sentinel errors for errors.Is; they match on Kind only
var (
	ErrBadLength    = ParseError{Kind: KindBadLength}
	ErrBadHeaderCRC = ParseError{Kind: KindBadHeaderCRC}
	ErrBadBodyCRC   = ParseError{Kind: KindBadBodyCRC}
)

// Error implements the error interface
func (e ParseError) Error() string {
	switch e.Kind {
	case KindBadLength:
		return fmt.Sprintf("bad length: %d (min %d)", e.Length, MinLength)
	case KindBadHeaderCRC:
		return "header CRC mismatch"
	case KindBadBodyCRC:
		return "body CRC mismatch"
	default:
		return fmt.Sprintf("parse error kind %d", int(e.Kind))
	}
}

// Is matches any ParseError of the same kind
func (e ParseError) Is(target error) bool {
	t, ok := target.(ParseError)
	return ok && t.Kind == e.Kind
}

func badLength(length uint8) ParseError {
	return ParseError{Kind: KindBadLength, Length: length}
}
