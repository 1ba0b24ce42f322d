// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anomalyTypes(errs []ValidationError) []AnomalyType {
	types := []AnomalyType{}
	for _, e := range errs {
		types = append(types, e.Type)
	}
	return types
}

func TestValidateFrame_Valid(t *testing.T) {
	tests := []struct {
		name    string
		control byte
		payload []byte
	}{
		{"unconfirmed user data", 0xC4, []byte{0xC0, 0xC1, 0x01}},
		{"confirmed user data", 0xF3, []byte{0xC0}},
		{"reset link states", 0xC0, nil},
		{"test link states", 0xD2, nil},
		{"request link status", 0xC9, nil},
		{"ack", 0x00, nil},
		{"link status with DFC", 0x1B, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader(DecodeControl(tt.control), 10, 1)
			assert.Empty(t, ValidateFrame(h, tt.payload))
		})
	}
}

func TestValidateFrame_UnknownFunction(t *testing.T) {
	h := NewHeader(DecodeControl(0xC7), 10, 1)
	errs := ValidateFrame(h, []byte{0x01})

	require.Equal(t, []AnomalyType{AnomalyUnknownFunction}, anomalyTypes(errs))
	assert.Equal(t, uint8(0x47), errs[0].Details["function"])
	assert.Contains(t, errs[0].Error(), "0x47")
}

func TestValidateFrame_Payload(t *testing.T) {
	missing := ValidateFrame(NewHeader(DecodeControl(0xC4), 10, 1), nil)
	assert.Equal(t, []AnomalyType{AnomalyMissingPayload}, anomalyTypes(missing))

	unexpected := ValidateFrame(NewHeader(DecodeControl(0x00), 1, 10), []byte{1, 2, 3})
	require.Equal(t, []AnomalyType{AnomalyUnexpectedPayload}, anomalyTypes(unexpected))
	assert.Equal(t, 3, unexpected[0].Details["length"])
}

func TestValidateFrame_FrameCountValid(t *testing.T) {
	tests := []struct {
		name    string
		control byte
		payload []byte
	}{
		{"confirmed user data without FCV", 0xC3, []byte{0x01}},
		{"test link states without FCV", 0xC2, nil},
		{"reset link states with FCV", 0xD0, nil},
		{"unconfirmed user data with FCV", 0xD4, []byte{0x01}},
		{"request link status with FCV", 0xD9, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader(DecodeControl(tt.control), 10, 1)
			assert.Equal(t, []AnomalyType{AnomalyFrameCountValid}, anomalyTypes(ValidateFrame(h, tt.payload)))
		})
	}
}

func TestValidateFrame_ReservedAddresses(t *testing.T) {
	reservedDest := ValidateFrame(NewHeader(DecodeControl(0xC0), 0xFFF5, 1), nil)
	assert.Equal(t, []AnomalyType{AnomalyReservedAddress}, anomalyTypes(reservedDest))

	broadcastDest := ValidateFrame(NewHeader(DecodeControl(0xC0), 0xFFFF, 1), nil)
	assert.Empty(t, broadcastDest, "broadcast destinations are legal")

	broadcastSrc := ValidateFrame(NewHeader(DecodeControl(0x00), 1, 0xFFFF), nil)
	assert.Equal(t, []AnomalyType{AnomalyReservedAddress}, anomalyTypes(broadcastSrc))
}

func TestValidateFrame_MultipleAnomalies(t *testing.T) {
	h := NewHeader(DecodeControl(0xD0), 0xFFF0, 0xFFF0)
	errs := ValidateFrame(h, []byte{0x01})

	assert.ElementsMatch(t, []AnomalyType{
		AnomalyUnexpectedPayload,
		AnomalyFrameCountValid,
		AnomalyReservedAddress,
		AnomalyReservedAddress,
	}, anomalyTypes(errs))
}

func TestAnomalyType_String(t *testing.T) {
	assert.Equal(t, "unknown_function", AnomalyUnknownFunction.String())
	assert.Equal(t, "reserved_address", AnomalyReservedAddress.String())
	assert.Equal(t, "unknown", AnomalyType(99).String())
}
