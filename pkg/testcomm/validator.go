// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"encoding/binary"
	"fmt"
)

// AnomalyType represents different kinds of frame anomalies
type AnomalyType int

const (
	AnomalyLengthField AnomalyType = iota
	AnomalyUnknownKind
	AnomalyCRCMMismatch
	AnomalyCRCMismatch
	AnomalyIDRange
	AnomalyIDKindMismatch
	AnomalyUnknownBoard
)

// String returns a short name for the anomaly
func (a AnomalyType) String() string {
	switch a {
	case AnomalyLengthField:
		return "LENGTH"
	case AnomalyUnknownKind:
		return "KIND"
	case AnomalyCRCMMismatch:
		return "CRCM"
	case AnomalyCRCMismatch:
		return "CRC"
	case AnomalyIDRange:
		return "ID_RANGE"
	case AnomalyIDKindMismatch:
		return "ID_KIND"
	case AnomalyUnknownBoard:
		return "BOARD"
	default:
		return "UNKNOWN"
	}
}

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// knownKindCodes are the header package codes any board sends
var knownKindCodes = map[uint8]bool{1: true, 2: true, 3: true, 5: true, 6: true}

// SplitID unpacks an identifier into board type, side and package code
func SplitID(id uint32) (BoardType, Side, uint8) {
	return BoardType(id >> (idSideShift + idTypeShift)), Side((id >> idSideShift) & 1), uint8(id & idCodeMask)
}

// ValidateFrame recomputes both trailer words and checks the fixed header
// fields. Returns a slice of validation errors (empty if the frame is valid).
// Frames sent with checksum overrides are reported as mismatches.
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}

	if f.Header.Length != FrameLength {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthField,
			Message: fmt.Sprintf("Length field %d (expected %d)", f.Header.Length, FrameLength),
			Details: map[string]interface{}{"length": f.Header.Length, "expected": FrameLength},
		})
	}

	if !knownKindCodes[f.Header.Kind] {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownKind,
			Message: fmt.Sprintf("Unknown package kind %d", f.Header.Kind),
			Details: map[string]interface{}{"kind": f.Header.Kind},
		})
	}

	crcm := CalculateCRCM(f.Payload[:], CRCMSeed)
	if crcm != f.Trailer.CRCM {
		errors = append(errors, ValidationError{
			Type:    AnomalyCRCMMismatch,
			Message: fmt.Sprintf("CRCM mismatch: got 0x%08X, computed 0x%08X", f.Trailer.CRCM, crcm),
			Details: map[string]interface{}{"got": f.Trailer.CRCM, "computed": crcm},
		})
	}

	// CRC covers the CRCM word as sent, not as recomputed
	header := encodeHeader(f.Header)
	var crcmBytes [4]byte
	binary.LittleEndian.PutUint32(crcmBytes[:], f.Trailer.CRCM)
	crc := CalculateCRC(header[:], CRCSeed)
	crc = CalculateCRC(f.Payload[:], crc)
	crc = CalculateCRC(crcmBytes[:], crc)
	if crc != f.Trailer.CRC {
		errors = append(errors, ValidationError{
			Type:    AnomalyCRCMismatch,
			Message: fmt.Sprintf("CRC mismatch: got 0x%08X, computed 0x%08X", f.Trailer.CRC, crc),
			Details: map[string]interface{}{"got": f.Trailer.CRC, "computed": crc},
		})
	}

	return errors
}

// ValidateFrameID checks an identifier against the frame it carried
func ValidateFrameID(id uint32, f *Frame) []ValidationError {
	if id > idMax {
		return []ValidationError{{
			Type:    AnomalyIDRange,
			Message: fmt.Sprintf("Identifier 0x%X exceeds 11 bits", id),
			Details: map[string]interface{}{"id": id, "max": idMax},
		}}
	}

	errors := []ValidationError{}
	bt, _, code := SplitID(id)
	if _, err := BoardFor(bt); err != nil && bt != BoardREV {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownBoard,
			Message: fmt.Sprintf("Identifier 0x%03X names unknown board type %d", id, uint8(bt)),
			Details: map[string]interface{}{"id": id, "board_type": uint8(bt)},
		})
	}
	if code != f.Header.Kind {
		errors = append(errors, ValidationError{
			Type:    AnomalyIDKindMismatch,
			Message: fmt.Sprintf("Identifier package code %d, header kind %d", code, f.Header.Kind),
			Details: map[string]interface{}{"id_code": code, "kind": f.Header.Kind},
		})
	}
	return errors
}
