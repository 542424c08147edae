// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"encoding/binary"
	"fmt"
)

// DecodeFrame parses a 64 byte wire frame. Checksums are not verified here;
// use ValidateFrame for that.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("invalid frame size: %d bytes (expected %d)", len(data), FrameSize)
	}

	f := &Frame{
		Header: Header{
			TimestampUS: binary.LittleEndian.Uint64(data[offTimestamp:]),
			CommIndex:   binary.LittleEndian.Uint16(data[offIndex:]),
			Length:      binary.LittleEndian.Uint16(data[offLength:]),
			Kind:        data[offKind],
			SideTag:     data[offSide],
		},
		Trailer: Trailer{
			CRCM: binary.LittleEndian.Uint32(data[offCRCM:]),
			CRC:  binary.LittleEndian.Uint32(data[offCRC:]),
		},
	}
	copy(f.Payload[:], data[offPayload:offCRCM])

	return f, nil
}

// FrameTimestamp reads the sender's header timestamp from raw frame data.
// Returns false if the data is too short to carry one.
func FrameTimestamp(data []byte) (uint64, bool) {
	if len(data) < 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[offTimestamp:]), true
}
