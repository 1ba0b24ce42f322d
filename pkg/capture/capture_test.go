// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func readAll(t *testing.T, r *Reader) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	h := link.NewHeader(link.DecodeControl(0xC4), 1024, 1)

	require.NoError(t, w.WriteFrame(ts, h, []byte{0xC0, 0xC1, 0x01}))
	require.NoError(t, w.WriteError(ts.Add(time.Second), link.ParseError{Kind: link.KindBadLength, Length: 4}))
	require.NoError(t, w.WriteFrame(ts, link.NewHeader(link.DecodeControl(0x00), 1, 1024), nil))

	recs := readAll(t, NewReader(&buf))
	require.Len(t, recs, 3)

	assert.Equal(t, KindFrame, recs[0].Kind)
	assert.Equal(t, h, recs[0].Header())
	assert.Equal(t, []byte{0xC0, 0xC1, 0x01}, recs[0].Payload)
	assert.True(t, ts.Equal(recs[0].Timestamp()))

	assert.Equal(t, KindError, recs[1].Kind)
	perr := recs[1].ParseError()
	assert.True(t, errors.Is(perr, link.ErrBadLength))
	assert.Equal(t, uint8(4), perr.Length)

	assert.Equal(t, link.FuncSecAck, recs[2].Header().Function().Code())
	assert.Empty(t, recs[2].Payload)
}

func TestReader_Empty(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil)).Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_InvalidKind(t *testing.T) {
	data, err := cbor.Marshal(map[int]interface{}{0: 1, 1: 9})
	require.NoError(t, err)

	_, err = NewReader(bytes.NewReader(data)).Next()
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestReader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteFrame(time.Now(), link.NewHeader(link.DecodeControl(0x44), 1, 2), []byte{1, 2, 3}))

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err := NewReader(bytes.NewReader(truncated)).Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestRecorder_CapturesParserEvents(t *testing.T) {
	var stream []byte
	stream = append(stream, encodeFrame(0xC4, 10, 1, []byte("hello, outstation"))...)
	bad := encodeFrame(0xC4, 10, 1, []byte{1, 2, 3})
	bad[len(bad)-1] ^= 0xFF
	stream = append(stream, bad...)

	var buf bytes.Buffer
	frames := 0
	rec := NewRecorder(NewWriter(&buf), link.HandlerFuncs{
		Frame: func(h link.Header, payload []byte) { frames++ },
	})

	link.NewParser().Decode(stream, rec)
	require.NoError(t, rec.Err())
	assert.Equal(t, 1, frames, "events should be forwarded to the next handler")

	recs := readAll(t, NewReader(&buf))
	require.Len(t, recs, 2)
	assert.Equal(t, []byte("hello, outstation"), recs[0].Payload)
	assert.Equal(t, uint16(10), recs[0].Destination)
	assert.True(t, errors.Is(recs[1].ParseError(), link.ErrBadBodyCRC))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	rec := NewRecorder(NewWriter(failingWriter{}), nil)
	rec.OnError(link.ErrBadHeaderCRC)
	rec.OnFrame(link.NewHeader(link.DecodeControl(0x44), 1, 2), nil)

	require.Error(t, rec.Err())
	assert.Contains(t, rec.Err().Error(), "disk full")
}
