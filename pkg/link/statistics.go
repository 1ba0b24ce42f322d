// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	ValidFrames    uint64
	PayloadBytes   uint64
	BadLength      uint64
	BadHeaderCRC   uint64
	BadBodyCRC     uint64
	AnomalousFrame uint64
	Anomalies      map[AnomalyType]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		Anomalies:      make(map[AnomalyType]uint64),
	}
}

// RecordFrame counts a frame that passed CRC checks together with the
// anomalies the validator found in it
func (s *Statistics) RecordFrame(h Header, payloadLen int, anomalies []ValidationError) {
	s.TotalFrames++
	s.PayloadBytes += uint64(payloadLen)

	if len(anomalies) > 0 {
		s.AnomalousFrame++
		for _, a := range anomalies {
			s.Anomalies[a.Type]++
		}
	} else {
		s.ValidFrames++
	}

	s.LastUpdateTime = time.Now()
}

// RecordError counts a discarded frame
func (s *Statistics) RecordError(err error) {
	s.TotalFrames++

	switch {
	case errors.Is(err, ErrBadLength):
		s.BadLength++
	case errors.Is(err, ErrBadHeaderCRC):
		s.BadHeaderCRC++
	case errors.Is(err, ErrBadBodyCRC):
		s.BadBodyCRC++
	}

	s.LastUpdateTime = time.Now()
}

// Errors returns the number of discarded frames
func (s *Statistics) Errors() uint64 {
	return s.BadLength + s.BadHeaderCRC + s.BadBodyCRC
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()+s.AnomalousFrame) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent, anomalousPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		errorPercent = float64(s.Errors()) * 100.0 / float64(s.TotalFrames)
		anomalousPercent = float64(s.AnomalousFrame) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)
	result += fmt.Sprintf("User Data:       %8d bytes\n", s.PayloadBytes)

	if s.Errors() > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d (%.1f%%)\n", s.Errors(), errorPercent)
		if s.BadLength > 0 {
			result += fmt.Sprintf("  Bad Length:       %5d\n", s.BadLength)
		}
		if s.BadHeaderCRC > 0 {
			result += fmt.Sprintf("  Header CRC:       %5d\n", s.BadHeaderCRC)
		}
		if s.BadBodyCRC > 0 {
			result += fmt.Sprintf("  Body CRC:         %5d\n", s.BadBodyCRC)
		}
	}
	if s.AnomalousFrame > 0 {
		result += fmt.Sprintf("Anomalous Frames:%8d (%.1f%%)\n", s.AnomalousFrame, anomalousPercent)
		for t := AnomalyUnknownFunction; t <= AnomalyReservedAddress; t++ {
			if n := s.Anomalies[t]; n > 0 {
				result += fmt.Sprintf("  %-18s%5d\n", t.String()+":", n)
			}
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
