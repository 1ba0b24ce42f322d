// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
)

// Recorder is a link.Handler that writes every event to a capture and then
// forwards it to Next. The first write error is kept and stops recording.
type Recorder struct {
	w    *Writer
	next link.Handler
	now  func() time.Time
	err  error
}

// NewRecorder creates a recorder. next may be nil.
func NewRecorder(w *Writer, next link.Handler) *Recorder {
	return &Recorder{w: w, next: next, now: time.Now}
}

// OnFrame records the frame. The payload is encoded before OnFrame returns,
// so the parser's buffer is not retained.
func (r *Recorder) OnFrame(h link.Header, payload []byte) {
	if r.err == nil {
		r.err = r.w.WriteFrame(r.now(), h, payload)
	}
	if r.next != nil {
		r.next.OnFrame(h, payload)
	}
}

// OnError records the framing error
func (r *Recorder) OnError(err link.ParseError) {
	if r.err == nil {
		r.err = r.w.WriteError(r.now(), err)
	}
	if r.next != nil {
		r.next.OnError(err)
	}
}

// Err returns the first write error, if any
func (r *Recorder) Err() error {
	return r.err
}
