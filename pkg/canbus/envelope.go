// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Envelope is the WebSocket bridge message: one CAN frame on one channel.
// Keys are encoded as small integers to keep messages compact.
type Envelope struct {
	Bus         int    `cbor:"0,keyasint"`
	ID          uint32 `cbor:"1,keyasint"`
	FD          bool   `cbor:"2,keyasint"`
	BRS         bool   `cbor:"3,keyasint"`
	Data        []byte `cbor:"4,keyasint"`
	TimestampUS uint64 `cbor:"5,keyasint,omitempty"`
}

// envelopeEncMode encodes deterministically so identical frames produce
// identical messages
var envelopeEncMode, _ = cbor.CoreDetEncOptions().EncMode()

// EncodeEnvelope serializes a frame for the bridge
func EncodeEnvelope(channel int, f Frame) ([]byte, error) {
	data, err := envelopeEncMode.Marshal(Envelope{
		Bus:         channel,
		ID:          f.ID,
		FD:          f.FD,
		BRS:         f.BRS,
		Data:        f.Data,
		TimestampUS: f.TimestampUS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses a bridge message into its channel and frame
func DecodeEnvelope(data []byte) (int, Frame, error) {
	if len(data) == 0 {
		return 0, Frame{}, fmt.Errorf("empty CBOR envelope")
	}
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return 0, Frame{}, fmt.Errorf("failed to decode CBOR envelope: %w", err)
	}
	if len(env.Data) > 64 {
		return 0, Frame{}, fmt.Errorf("envelope data too large: %d bytes", len(env.Data))
	}
	return env.Bus, Frame{
		ID:          env.ID,
		Data:        env.Data,
		FD:          env.FD,
		BRS:         env.BRS,
		TimestampUS: env.TimestampUS,
	}, nil
}
