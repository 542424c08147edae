// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package testcomm emulates the peripheral boards of a CAN FD backplane for
// communication conformance testing.
//
// Every frame on the wire is a fixed 64 byte record: a 14 byte header, a 42
// byte payload and two CRC-32 trailer words. A Controller board sends state,
// version and request packages on a fixed cadence; Peripheral boards answer
// the Controller's packages as they are observed on the bus. A TestPlan
// drives the communication index written into every header and lets each
// step override checksums, identifiers, repeat counts and channels.
package testcomm

// Frame layout
const (
	FrameSize   = 64
	HeaderSize  = 14 // 8 timestamp + 2 index + 2 length + 1 kind + 1 side
	PayloadSize = 42
	TrailerSize = 8 // crcm + crc

	// FrameLength is written into every header, never recomputed
	FrameLength = 64
)

// Header field offsets
const (
	offTimestamp = 0
	offIndex     = 8
	offLength    = 10
	offKind      = 12
	offSide      = 13
	offPayload   = HeaderSize
	offCRCM      = HeaderSize + PayloadSize
	offCRC       = offCRCM + 4
)

// Checksum seeds
const (
	CRCMSeed = 0xFFFFFFFF
	CRCSeed  = 0xC3C33C3C
)

// Run-command words written at payload offset 20-21 of state packages
const (
	RunCmdIdle    = 0x1111
	RunCmdRequest = 0x3333

	runCmdOffset = 20
)

// Identifier packing: 3 bit board type, 1 bit side, 7 bit package code
const (
	idSideShift = 7
	idTypeShift = 1
	idCodeMask  = 0x7F
	idMax       = 0x7FF
)

// Controller cadence. Send indexes start at 1.
const (
	stageState   = 1
	stageVersion = 6
	stageRequest = 11
)

// BoardType is the 3 bit board type code carried in identifiers and the
// board-type tag.
type BoardType uint8

// Board type codes
const (
	BoardMS  BoardType = 0 // main station, the Controller
	BoardDI  BoardType = 1
	BoardDO  BoardType = 2
	BoardFI  BoardType = 3
	BoardAI  BoardType = 4
	BoardREV BoardType = 6
)

// String returns the configuration name of the board type
func (b BoardType) String() string {
	switch b {
	case BoardMS:
		return "MS"
	case BoardDI:
		return "DI"
	case BoardDO:
		return "DO"
	case BoardFI:
		return "FI"
	case BoardAI:
		return "AI"
	case BoardREV:
		return "REV"
	default:
		return "UNKNOWN"
	}
}

// Side selects system A or B of a redundant pair
type Side uint8

// Sides
const (
	SideA Side = 0
	SideB Side = 1
)

// String returns "A" or "B"
func (s Side) String() string {
	if s == SideB {
		return "B"
	}
	return "A"
}

// Mode is the behavior of the emulated board
type Mode int

// Modes
const (
	ModeController Mode = iota // proactive, timer driven
	ModePeripheral             // reactive, trigger driven
)

// String returns the mode name
func (m Mode) String() string {
	if m == ModeController {
		return "controller"
	}
	return "peripheral"
}

// Channel indexes a physical CAN channel on the bus
type Channel int

// Physical channels
const (
	Channel1 Channel = 0
	Channel2 Channel = 1
)

// ChannelSelector picks the channels a frame is emitted on
type ChannelSelector int

// Channel selectors
const (
	ChannelA ChannelSelector = iota
	ChannelB
	ChannelBoth
)

// Channels resolves the selector to the static channel set
func (c ChannelSelector) Channels() []Channel {
	switch c {
	case ChannelB:
		return []Channel{Channel2}
	case ChannelBoth:
		return []Channel{Channel1, Channel2}
	default:
		return []Channel{Channel1}
	}
}

// String returns the configuration name of the selector
func (c ChannelSelector) String() string {
	switch c {
	case ChannelB:
		return "Cha2"
	case ChannelBoth:
		return "ChaAll"
	default:
		return "Cha1"
	}
}
