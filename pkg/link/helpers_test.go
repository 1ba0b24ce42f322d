// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

// ============================================================
// Test Helpers
// ============================================================

// encodeFrame builds a wire frame with correct header and block CRCs
func encodeFrame(control byte, dest, src uint16, userData []byte) []byte {
	frame := []byte{
		Sync1, Sync2,
		byte(len(userData) + MinLength),
		control,
		byte(dest), byte(dest >> 8),
		byte(src), byte(src >> 8),
	}
	crc := CalculateCRC(frame)
	frame = append(frame, byte(crc), byte(crc>>8))

	for len(userData) > 0 {
		n := min(BlockSize, len(userData))
		block := userData[:n]
		crc := CalculateCRC(block)
		frame = append(frame, block...)
		frame = append(frame, byte(crc), byte(crc>>8))
		userData = userData[n:]
	}

	return frame
}

// event is one handler invocation
type event struct {
	frame   bool
	header  Header
	payload []byte
	err     ParseError
}

// recorder is a Handler that keeps every event, copying payloads
type recorder struct {
	events []event
}

func (r *recorder) OnFrame(h Header, payload []byte) {
	r.events = append(r.events, event{
		frame:   true,
		header:  h,
		payload: append([]byte{}, payload...),
	})
}

func (r *recorder) OnError(err ParseError) {
	r.events = append(r.events, event{err: err})
}

func (r *recorder) frames() []event {
	out := []event{}
	for _, e := range r.events {
		if e.frame {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) errors() []ParseError {
	out := []ParseError{}
	for _, e := range r.events {
		if !e.frame {
			out = append(out, e.err)
		}
	}
	return out
}

// decodeChunked feeds data to a fresh parser in chunks of the given size
func decodeChunked(data []byte, chunk int) *recorder {
	p := NewParser()
	r := &recorder{}
	for len(data) > 0 {
		n := min(chunk, len(data))
		p.Decode(data[:n], r)
		data = data[n:]
	}
	return r
}

// sequentialBytes returns n bytes counting up from start
func sequentialBytes(start byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = start + byte(i)
	}
	return data
}
