// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%d) idx=%d ts=%s side=0x%02X len=%d\n",
		FormatKindCode(f.Header.Kind), f.Header.Kind, f.Header.CommIndex,
		formatTimestamp(f.Header.TimestampUS), f.Header.SideTag, f.Header.Length)
	fmt.Fprintf(&sb, "  board_tag=0x%02X run_cmd=0x%04X\n", f.Payload[0], f.RunCommand())
	fmt.Fprintf(&sb, "  crcm=0x%08X crc=0x%08X\n", f.Trailer.CRCM, f.Trailer.CRC)
	sb.WriteString(HexDump(f.Payload[:], "  "))

	return sb.String()
}

// FormatKindCode returns the human-readable name for a header package code
func FormatKindCode(code uint8) string {
	switch code {
	case 1:
		return "STATE"
	case 2:
		return "VERSION"
	case 3, 5:
		return "REQUEST"
	case 6:
		return "REQUEST_2"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", code)
	}
}

// FormatID returns an identifier with its unpacked fields
func FormatID(id uint32) string {
	bt, side, code := SplitID(id)
	return fmt.Sprintf("0x%03X [%s/%s code=%d]", id, bt, side, code)
}

// HexDump renders data as rows of 16 bytes with offsets
func HexDump(data []byte, indent string) string {
	var sb strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "%s%04X ", indent, off)
		for _, b := range data[off:end] {
			fmt.Fprintf(&sb, " %02X", b)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatTimestamp renders microseconds as seconds with microsecond precision
func formatTimestamp(us uint64) string {
	return fmt.Sprintf("%d.%06ds", us/1000000, us%1000000)
}
