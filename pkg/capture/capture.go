// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records decoded link events to a file and reads them back.
//
// A capture is a CBOR sequence: one map per event, integer keys, no framing
// between items. Frames are stored decoded (control byte, addresses, user
// data) rather than as raw wire bytes.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/fxamacker/cbor/v2"
)

// Kind distinguishes frame records from error records
type Kind uint8

// Record kinds
const (
	KindFrame Kind = 1
	KindError Kind = 2
)

// Record is one captured event
type Record struct {
	Time        int64  `cbor:"0,keyasint"` // unix nanoseconds
	Kind        Kind   `cbor:"1,keyasint"`
	Control     uint8  `cbor:"2,keyasint,omitempty"`
	Destination uint16 `cbor:"3,keyasint,omitempty"`
	Source      uint16 `cbor:"4,keyasint,omitempty"`
	Payload     []byte `cbor:"5,keyasint,omitempty"`
	ErrorKind   uint8  `cbor:"6,keyasint,omitempty"`
	Length      uint8  `cbor:"7,keyasint,omitempty"`
}

// ErrInvalidRecord is returned for records with an unknown kind
var ErrInvalidRecord = errors.New("invalid capture record")

// Timestamp returns the record time
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// Header returns the link header of a frame record
func (r Record) Header() link.Header {
	return link.NewHeader(link.DecodeControl(r.Control), r.Destination, r.Source)
}

// ParseError returns the framing error of an error record
func (r Record) ParseError() link.ParseError {
	return link.ParseError{Kind: link.ErrorKind(r.ErrorKind), Length: r.Length}
}

// Writer appends records to a capture stream
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter creates a capture writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// WriteFrame records a decoded frame
func (w *Writer) WriteFrame(ts time.Time, h link.Header, payload []byte) error {
	return w.write(Record{
		Time:        ts.UnixNano(),
		Kind:        KindFrame,
		Control:     h.Control().Byte(),
		Destination: h.Destination(),
		Source:      h.Source(),
		Payload:     payload,
	})
}

// WriteError records a framing error
func (w *Writer) WriteError(ts time.Time, err link.ParseError) error {
	return w.write(Record{
		Time:      ts.UnixNano(),
		Kind:      KindError,
		ErrorKind: uint8(err.Kind),
		Length:    err.Length,
	})
}

func (w *Writer) write(r Record) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	return nil
}

// Reader reads records from a capture stream
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a capture reader
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode capture record: %w", err)
	}

	switch rec.Kind {
	case KindFrame, KindError:
		return rec, nil
	default:
		return Record{}, fmt.Errorf("%w: kind %d", ErrInvalidRecord, rec.Kind)
	}
}
