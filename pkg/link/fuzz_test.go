// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"bytes"
	"math/rand"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFrame builds a valid frame with random fields and 0-250 bytes of user data
func randomFrame(rng *rand.Rand) (Header, []byte, []byte) {
	control := byte(rng.Intn(256))
	dest := uint16(rng.Intn(0x10000))
	src := uint16(rng.Intn(0x10000))
	userData := make([]byte, rng.Intn(MaxUserData+1))
	rng.Read(userData)

	h := NewHeader(DecodeControl(control), dest, src)
	return h, userData, encodeFrame(control, dest, src, userData)
}

// decodeRandomChunks feeds data to a fresh parser in random-sized chunks
func decodeRandomChunks(rng *rand.Rand, data []byte) *recorder {
	p := NewParser()
	r := &recorder{}
	for len(data) > 0 {
		n := min(rng.Intn(64)+1, len(data))
		p.Decode(data[:n], r)
		data = data[n:]
	}
	return r
}

// ============================================================
// Parser Fuzz Tests
// ============================================================

// TestFuzzParser_RandomBytes feeds random bytes to the parser
// and verifies it doesn't crash or panic
func TestFuzzParser_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(1024) + 1
		data := make([]byte, length)
		rng.Read(data)

		// Bias toward sync patterns so the header and body paths get exercised
		for j := 0; j+1 < len(data); j += rng.Intn(40) + 1 {
			data[j], data[j+1] = Sync1, Sync2
		}

		decodeRandomChunks(rng, data)
	}
}

// TestFuzzParser_RandomFrames generates random valid frames
func TestFuzzParser_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		h, userData, frame := randomFrame(rng)

		r := decodeRandomChunks(rng, frame)

		frames := r.frames()
		if len(frames) != 1 || len(r.errors()) != 0 {
			t.Errorf("Round %d: expected one frame, got %+v", i, r.events)
			continue
		}
		if frames[0].header != h {
			t.Errorf("Round %d: header mismatch: expected %v, got %v", i, h, frames[0].header)
		}
		if !bytes.Equal(frames[0].payload, userData) {
			t.Errorf("Round %d: payload mismatch (%d bytes)", i, len(userData))
		}
	}
}

// TestFuzzParser_CorruptedFrames corrupts one byte after the sync pattern
// and verifies the frame is never delivered
func TestFuzzParser_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		_, _, frame := randomFrame(rng)

		idx := rng.Intn(len(frame)-2) + 2
		if idx == offsetLength {
			// changing the length changes the framing, covered by RandomBytes
			idx = offsetControl
		}
		frame[idx] ^= byte(rng.Intn(255) + 1)

		want := ErrBadBodyCRC
		if idx < HeaderSize {
			want = ErrBadHeaderCRC
		}

		// After a header error the body bytes are rescanned as noise and may
		// report further errors; only the first one belongs to this frame
		r := decodeRandomChunks(rng, frame)
		if len(r.frames()) != 0 {
			t.Errorf("Round %d: corrupted byte %d produced a frame", i, idx)
		}
		errs := r.errors()
		if len(errs) == 0 || errs[0] != want {
			t.Errorf("Round %d: expected %v first, got %v", i, want.Kind, errs)
		}
	}
}

// TestFuzzParser_Chunking compares random chunking against a single call
// over streams of frames mixed with noise
func TestFuzzParser_Chunking(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds/10+1; i++ {
		var stream []byte
		for j := rng.Intn(8) + 1; j > 0; j-- {
			noise := make([]byte, rng.Intn(8))
			rng.Read(noise)
			stream = append(stream, noise...)
			_, _, frame := randomFrame(rng)
			stream = append(stream, frame...)
		}

		whole := decodeChunked(stream, len(stream))
		bytewise := decodeChunked(stream, 1)
		random := decodeRandomChunks(rng, stream)

		if !reflect.DeepEqual(whole.events, bytewise.events) {
			t.Errorf("Round %d: byte-at-a-time decode differs from single call", i)
		}
		if !reflect.DeepEqual(whole.events, random.events) {
			t.Errorf("Round %d: random chunk decode differs from single call", i)
		}
	}
}

// FuzzParser checks that any input decodes without panicking and that the
// events do not depend on how the input is split
func FuzzParser(f *testing.F) {
	f.Add(refHeader, 1)
	f.Add(mixedStream(), 3)
	f.Add(encodeFrame(0xC4, 1024, 1, sequentialBytes(0, 20)), 5)
	f.Add([]byte{0x05, 0x05, 0x64, 0x04}, 2)

	f.Fuzz(func(t *testing.T, data []byte, chunk int) {
		if chunk <= 0 || chunk > len(data)+1 {
			chunk = 1
		}
		whole := decodeChunked(data, len(data)+1)
		split := decodeChunked(data, chunk)
		if !reflect.DeepEqual(whole.events, split.events) {
			t.Errorf("chunk size %d changed the decoded events", chunk)
		}
	})
}
