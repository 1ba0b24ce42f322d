// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

// Handler receives the results of Parser.Decode. Both methods are called
// synchronously from inside Decode.
//
// The payload passed to OnFrame aliases the parser's internal buffer and is
// only valid until OnFrame returns; copy it to keep it.
type Handler interface {
	OnFrame(header Header, payload []byte)
	OnError(err ParseError)
}

// HandlerFuncs adapts a pair of functions to the Handler interface.
// Nil fields ignore the corresponding event.
type HandlerFuncs struct {
	Frame func(header Header, payload []byte)
	Error func(err ParseError)
}

// OnFrame calls h.Frame
func (h HandlerFuncs) OnFrame(header Header, payload []byte) {
	if h.Frame != nil {
		h.Frame(header, payload)
	}
}

// OnError calls h.Error
func (h HandlerFuncs) OnError(err ParseError) {
	if h.Error != nil {
		h.Error(err)
	}
}
