// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

// parserState is the position of the parser within a frame.
// received/remaining/userData are only meaningful in phaseHeader and phaseBody.
type parserState struct {
	phase     int
	received  int // bytes buffered in the current phase
	remaining int // body bytes still expected
	userData  int // user data length decoded from the header
}

// Parser implements the DNP3 link frame decoder state machine.
//
// A Parser holds the partial frame of exactly one byte stream and is not safe
// for concurrent use. Use one Parser per link.
type Parser struct {
	state  parserState
	header Header // header of the frame whose body is being accumulated
	hdrBuf [HeaderSize]byte
	body   [MaxBodySize]byte
}

// NewParser creates a parser waiting for the first sync byte
func NewParser() *Parser {
	return &Parser{}
}

// Reset discards any partial frame and waits for the next sync byte
func (p *Parser) Reset() {
	p.state = parserState{phase: phaseSync1}
}

// InFrame reports whether a frame is partially buffered
func (p *Parser) InFrame() bool {
	return p.state.phase != phaseSync1
}

// Decode consumes all of data, calling h for every frame completed and every
// frame discarded. Partial frames are kept across calls, so a stream may be
// split at any byte boundary.
func (p *Parser) Decode(data []byte, h Handler) {
	for len(data) > 0 {
		n := p.step(data, h)
		if n == 0 {
			return
		}
		data = data[n:]
	}
}

// step advances the state machine and returns the number of bytes consumed.
// It consumes at least one byte whenever data is not empty.
func (p *Parser) step(data []byte, h Handler) int {
	switch p.state.phase {
	case phaseSync1:
		return p.waitSync1(data)
	case phaseSync2:
		return p.waitSync2(data)
	case phaseHeader:
		return p.decodeHeader(data, h)
	case phaseBody:
		return p.decodeBody(data, h)
	default:
		p.Reset()
		return 0
	}
}

// waitSync1 discards bytes up to and including the first sync byte
func (p *Parser) waitSync1(data []byte) int {
	for i, b := range data {
		if b == Sync1 {
			p.hdrBuf[0] = Sync1
			p.state = parserState{phase: phaseSync2}
			return i + 1
		}
	}
	return len(data)
}

// waitSync2 looks at exactly one byte
func (p *Parser) waitSync2(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	switch data[0] {
	case Sync2:
		p.hdrBuf[1] = Sync2
		p.state = parserState{phase: phaseHeader, received: 2}
	default:
		// discarded even when it is another sync-1 byte
		p.state = parserState{phase: phaseSync1}
	}
	return 1
}

func (p *Parser) decodeHeader(data []byte, h Handler) int {
	received := p.state.received
	n := copy(p.hdrBuf[received:], data)
	received += n

	if received < HeaderSize {
		p.state.received = received
		return n
	}

	// Full header buffered; whatever happens next, this header is done
	p.state = parserState{phase: phaseSync1}

	length := p.hdrBuf[offsetLength]
	if length < MinLength {
		h.OnError(badLength(length))
		return n
	}

	crc := readUint16(p.hdrBuf[offsetCRC:])
	if crc != CalculateCRC(p.hdrBuf[:offsetCRC]) {
		h.OnError(ErrBadHeaderCRC)
		return n
	}

	p.header = NewHeader(
		DecodeControl(p.hdrBuf[offsetControl]),
		readUint16(p.hdrBuf[offsetDestination:]),
		readUint16(p.hdrBuf[offsetSource:]),
	)

	userData := int(length) - MinLength
	if userData == 0 {
		h.OnFrame(p.header, p.body[:0])
		return n
	}

	p.state = parserState{
		phase:     phaseBody,
		remaining: BodySize(userData),
		userData:  userData,
	}
	return n
}

func (p *Parser) decodeBody(data []byte, h Handler) int {
	received := p.state.received
	remaining := p.state.remaining

	n := copy(p.body[received:received+remaining], data)
	received += n
	remaining -= n

	if remaining > 0 {
		p.state.received = received
		p.state.remaining = remaining
		return n
	}

	userData := p.state.userData
	p.state = parserState{phase: phaseSync1}

	body := p.body[:received]
	if !verifyBlocks(body) {
		h.OnError(ErrBadBodyCRC)
		return n
	}

	h.OnFrame(p.header, compactBlocks(body)[:userData])
	return n
}

// BodySize returns the number of wire bytes occupied by userData bytes of
// user data once split into CRC blocks
func BodySize(userData int) int {
	size := (userData / BlockSize) * FullBlockSize
	if rem := userData % BlockSize; rem != 0 {
		size += rem + BlockCRCSize
	}
	return size
}

// blockLen returns the data length of the block starting at the front of body
func blockLen(body []byte) int {
	n := len(body) - BlockCRCSize
	if n > BlockSize {
		n = BlockSize
	}
	return n
}

// verifyBlocks checks the CRC of every block, left to right
func verifyBlocks(body []byte) bool {
	for len(body) > 0 {
		n := blockLen(body)
		if n <= 0 {
			return false
		}
		if CalculateCRC(body[:n]) != readUint16(body[n:]) {
			return false
		}
		body = body[n+BlockCRCSize:]
	}
	return true
}

// compactBlocks strips the block CRCs in place and returns the user data,
// which shares storage with body
func compactBlocks(body []byte) []byte {
	write := 0
	for read := 0; read < len(body); {
		n := blockLen(body[read:])
		copy(body[write:], body[read:read+n])
		write += n
		read += n + BlockCRCSize
	}
	return body[:write]
}
