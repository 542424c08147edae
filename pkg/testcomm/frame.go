// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"encoding/binary"
	"fmt"
)

// Payload is the fixed 42 byte frame body
type Payload [PayloadSize]byte

// Header holds the frame header fields. Length is always FrameLength once
// assembled.
type Header struct {
	TimestampUS uint64
	CommIndex   uint16
	Length      uint16
	Kind        uint8
	SideTag     uint8
}

// Trailer holds the two checksum words
type Trailer struct {
	CRCM uint32
	CRC  uint32
}

// Frame is one assembled 64 byte wire frame. Frames are built fresh for each
// emission and are not modified afterwards.
type Frame struct {
	Header  Header
	Payload Payload
	Trailer Trailer
}

// Overrides replaces computed trailer words. A nil field means "compute".
type Overrides struct {
	CRCM *uint32
	CRC  *uint32
}

// encodeHeader serializes header fields little-endian
func encodeHeader(h Header) [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint64(buf[offTimestamp:], h.TimestampUS)
	binary.LittleEndian.PutUint16(buf[offIndex:], h.CommIndex)
	binary.LittleEndian.PutUint16(buf[offLength:], h.Length)
	buf[offKind] = h.Kind
	buf[offSide] = h.SideTag
	return buf
}

// Assemble builds a frame from header fields and payload.
//
// CRCM covers the payload. CRC is chained: header, then payload, then the
// four little-endian CRCM bytes, each stage seeded with the previous result.
// The length field is forced to FrameLength.
func Assemble(h Header, payload Payload, ov Overrides) *Frame {
	h.Length = FrameLength
	header := encodeHeader(h)

	var crcm uint32
	if ov.CRCM != nil {
		crcm = *ov.CRCM
	} else {
		crcm = CalculateCRCM(payload[:], CRCMSeed)
	}

	var crc uint32
	if ov.CRC != nil {
		crc = *ov.CRC
	} else {
		var crcmBytes [4]byte
		binary.LittleEndian.PutUint32(crcmBytes[:], crcm)
		crc = CalculateCRC(header[:], CRCSeed)
		crc = CalculateCRC(payload[:], crc)
		crc = CalculateCRC(crcmBytes[:], crc)
	}

	return &Frame{
		Header:  h,
		Payload: payload,
		Trailer: Trailer{CRCM: crcm, CRC: crc},
	}
}

// Bytes returns the 64 byte wire encoding
func (f *Frame) Bytes() []byte {
	data := make([]byte, FrameSize)
	header := encodeHeader(f.Header)
	copy(data, header[:])
	copy(data[offPayload:], f.Payload[:])
	binary.LittleEndian.PutUint32(data[offCRCM:], f.Trailer.CRCM)
	binary.LittleEndian.PutUint32(data[offCRC:], f.Trailer.CRC)
	return data
}

// RunCommand returns the run-command word at payload offset 20-21
func (f *Frame) RunCommand() uint16 {
	return binary.LittleEndian.Uint16(f.Payload[runCmdOffset:])
}

// String returns a one line summary of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("ts=%d idx=%d kind=%d side=0x%02X crcm=0x%08X crc=0x%08X",
		f.Header.TimestampUS, f.Header.CommIndex, f.Header.Kind, f.Header.SideTag,
		f.Trailer.CRCM, f.Trailer.CRC)
}
