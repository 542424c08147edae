// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"fmt"
	"strconv"
	"strings"
)

// SLCAN line terminators
const (
	slcanOK    = '\r'
	slcanError = '\a'

	maxLineLength = 1 + 8 + 1 + 128 + 4 // cmd + ext id + dlc + 64 data bytes + timestamp
)

// Standard and extended identifier limits
const (
	maxStandardID = 0x7FF
	maxExtendedID = 0x1FFFFFFF
)

// fdLengths maps DLC codes 9-15 to CAN FD payload lengths
var fdLengths = [...]int{9: 12, 10: 16, 11: 20, 12: 24, 13: 32, 14: 48, 15: 64}

// dlcForLength returns the smallest DLC code holding n bytes
func dlcForLength(n int) (int, error) {
	if n <= 8 {
		return n, nil
	}
	for code := 9; code < len(fdLengths); code++ {
		if n <= fdLengths[code] {
			return code, nil
		}
	}
	return 0, fmt.Errorf("payload too large for CAN FD: %d bytes", n)
}

// lengthForDLC returns the payload length of a DLC code
func lengthForDLC(code int, fd bool) int {
	if code <= 8 {
		return code
	}
	if !fd {
		return 8
	}
	return fdLengths[code]
}

// EncodeSLCAN renders a frame as one SLCAN command line. FD frames use the
// 'd'/'D' commands, or 'b'/'B' with bit rate switch. Payloads are padded with
// zeros up to the next valid FD length.
func EncodeSLCAN(f Frame) (string, error) {
	if !f.FD && len(f.Data) > 8 {
		return "", fmt.Errorf("classic CAN frame with %d data bytes", len(f.Data))
	}
	code, err := dlcForLength(len(f.Data))
	if err != nil {
		return "", err
	}
	extended := f.ID > maxStandardID
	if f.ID > maxExtendedID {
		return "", fmt.Errorf("identifier out of range: 0x%X", f.ID)
	}

	var cmd byte
	switch {
	case f.FD && f.BRS:
		cmd = 'b'
	case f.FD:
		cmd = 'd'
	default:
		cmd = 't'
	}
	if extended {
		cmd -= 'a' - 'A'
	}

	var sb strings.Builder
	sb.WriteByte(cmd)
	if extended {
		fmt.Fprintf(&sb, "%08X", f.ID)
	} else {
		fmt.Fprintf(&sb, "%03X", f.ID)
	}
	fmt.Fprintf(&sb, "%X", code)

	length := lengthForDLC(code, f.FD)
	for i := 0; i < length; i++ {
		var b byte
		if i < len(f.Data) {
			b = f.Data[i]
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	sb.WriteByte(slcanOK)
	return sb.String(), nil
}

// ParseSLCAN parses one SLCAN frame line without its terminator.
// Returns false for lines that do not carry a frame (acks, status replies).
func ParseSLCAN(line string) (Frame, bool, error) {
	if len(line) == 0 {
		return Frame{}, false, nil
	}

	var f Frame
	var idLen int
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
	case 'd':
		idLen, f.FD = 3, true
	case 'D':
		idLen, f.FD = 8, true
	case 'b':
		idLen, f.FD, f.BRS = 3, true, true
	case 'B':
		idLen, f.FD, f.BRS = 8, true, true
	default:
		return Frame{}, false, nil
	}

	if len(line) < 1+idLen+1 {
		return Frame{}, false, fmt.Errorf("short SLCAN frame: %q", line)
	}
	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return Frame{}, false, fmt.Errorf("bad SLCAN identifier in %q: %w", line, err)
	}
	f.ID = uint32(id)

	code, err := strconv.ParseUint(line[1+idLen:2+idLen], 16, 8)
	if err != nil {
		return Frame{}, false, fmt.Errorf("bad SLCAN DLC in %q: %w", line, err)
	}
	length := lengthForDLC(int(code), f.FD)

	hexData := line[2+idLen:]
	if len(hexData) < length*2 {
		return Frame{}, false, fmt.Errorf("SLCAN frame %q too short for %d data bytes", line, length)
	}
	f.Data = make([]byte, length)
	for i := 0; i < length; i++ {
		b, err := strconv.ParseUint(hexData[i*2:i*2+2], 16, 8)
		if err != nil {
			return Frame{}, false, fmt.Errorf("bad SLCAN data in %q: %w", line, err)
		}
		f.Data[i] = byte(b)
	}

	return f, true, nil
}

// SLCANDecoder splits a serial byte stream into SLCAN lines
type SLCANDecoder struct {
	line []byte
}

// NewSLCANDecoder creates a line decoder
func NewSLCANDecoder() *SLCANDecoder {
	return &SLCANDecoder{line: make([]byte, 0, maxLineLength)}
}

// DecodeByte feeds one byte. A frame is returned when a complete frame line
// has been read; non-frame lines are skipped.
func (d *SLCANDecoder) DecodeByte(b byte) (*Frame, error) {
	switch b {
	case slcanOK:
		line := string(d.line)
		d.line = d.line[:0]
		f, ok, err := ParseSLCAN(line)
		if err != nil || !ok {
			return nil, err
		}
		return &f, nil
	case slcanError:
		d.line = d.line[:0]
		return nil, fmt.Errorf("adapter rejected command")
	}

	if len(d.line) >= maxLineLength {
		d.line = d.line[:0]
		return nil, fmt.Errorf("SLCAN line overflow")
	}
	d.line = append(d.line, b)
	return nil, nil
}
