// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import "fmt"

// PackageKind is the logical purpose of a frame
type PackageKind int

// Package kinds
const (
	KindState PackageKind = iota
	KindVersion
	KindRequest
	KindRequestSecondary

	numKinds
)

// String returns the configuration name of the package kind
func (k PackageKind) String() string {
	switch k {
	case KindState:
		return "State"
	case KindVersion:
		return "Ver"
	case KindRequest:
		return "Req"
	case KindRequestSecondary:
		return "Req2"
	default:
		return "Unknown"
	}
}

// Default package codes, shared by the identifier and the header kind byte
var defaultCodes = [numKinds]uint8{
	KindState:            1,
	KindVersion:          2,
	KindRequest:          3,
	KindRequestSecondary: 6,
}

// Board describes one board variant: its identifier scheme, payload
// templates and reactive behavior. Boards are immutable and safe to share.
type Board struct {
	boardType  BoardType
	mode       Mode
	replyCount int
	codes      [numKinds]uint8
	templates  [numKinds]*Payload
	tagAll     bool // apply the board-type tag to every template
}

// Board variants
var (
	// Controller is the main station. It drives the bus on a timer.
	Controller = &Board{
		boardType: BoardMS,
		mode:      ModeController,
		codes:     defaultCodes,
		templates: [numKinds]*Payload{&msState, &msVersion, &msRequest, nil},
		tagAll:    true,
	}

	// PeripheralDI answers every trigger with one frame of the same kind
	PeripheralDI = &Board{
		boardType:  BoardDI,
		mode:       ModePeripheral,
		replyCount: 1,
		codes:      defaultCodes,
		templates:  [numKinds]*Payload{&diState, &diVersion, &diRequest, nil},
	}

	// PeripheralDO answers like DI but uses package code 5 for requests
	PeripheralDO = &Board{
		boardType:  BoardDO,
		mode:       ModePeripheral,
		replyCount: 1,
		codes:      [numKinds]uint8{1, 2, 5, 6},
		templates:  [numKinds]*Payload{&doState, &doVersion, &doRequest, nil},
	}

	// PeripheralFI answers requests with a request and a secondary request
	PeripheralFI = &Board{
		boardType:  BoardFI,
		mode:       ModePeripheral,
		replyCount: 2,
		codes:      defaultCodes,
		templates:  [numKinds]*Payload{&fiState, &fiVersion, &fiRequest, &fiRequestSecondary},
	}

	// PeripheralAI answers requests with a request and a secondary request
	PeripheralAI = &Board{
		boardType:  BoardAI,
		mode:       ModePeripheral,
		replyCount: 2,
		codes:      defaultCodes,
		templates:  [numKinds]*Payload{&aiState, &aiVersion, &aiRequest, &aiRequestSecondary},
	}
)

// BoardFor returns the variant emulating the given board type
func BoardFor(bt BoardType) (*Board, error) {
	switch bt {
	case BoardMS:
		return Controller, nil
	case BoardDI:
		return PeripheralDI, nil
	case BoardDO:
		return PeripheralDO, nil
	case BoardFI:
		return PeripheralFI, nil
	case BoardAI:
		return PeripheralAI, nil
	default:
		return nil, fmt.Errorf("no board profile for board type %s (%d)", bt, bt)
	}
}

// Type returns the board type code
func (b *Board) Type() BoardType {
	return b.boardType
}

// Mode returns whether the board is proactive or reactive
func (b *Board) Mode() Mode {
	return b.mode
}

// ReplyCount returns 1 or 2 for peripherals, 0 for the Controller
func (b *Board) ReplyCount() int {
	return b.replyCount
}

// Code returns the package code the board uses for kind
func (b *Board) Code(kind PackageKind) uint8 {
	if kind < 0 || kind >= numKinds {
		return 0
	}
	return b.codes[kind]
}

// Supports reports whether the board has a template for kind
func (b *Board) Supports(kind PackageKind) bool {
	return kind >= 0 && kind < numKinds && b.templates[kind] != nil
}

// MakeID packs board type, side and package code into an 11 bit identifier
func MakeID(bt BoardType, side Side, code uint8) uint32 {
	id := uint32(bt)<<idTypeShift | uint32(side)
	id = id<<idSideShift | uint32(code&idCodeMask)
	return id & idMax
}

// MakeID returns the identifier this board uses for kind on side
func (b *Board) MakeID(kind PackageKind, side Side) uint32 {
	return MakeID(b.boardType, side, b.Code(kind))
}

// BoardTag returns the board-type tag written at payload byte 0
func (b *Board) BoardTag(side Side) uint8 {
	return uint8(b.boardType)*2 + uint8(side)
}

// PayloadTemplate returns a fresh copy of the template for kind with the
// per-emission fields applied: the board-type tag at byte 0 and, for state
// packages, the run-command word at bytes 20-21 (little-endian).
//
// The Controller tags every package. Peripherals tag state and version
// packages only; their request bodies carry a fixed leading byte.
func (b *Board) PayloadTemplate(kind PackageKind, boardTag uint8, runCmd uint16) (Payload, error) {
	if !b.Supports(kind) {
		return Payload{}, fmt.Errorf("board %s has no %s template", b.boardType, kind)
	}

	p := *b.templates[kind]
	if b.tagAll || kind == KindState || kind == KindVersion {
		p[0] = boardTag
	}
	if kind == KindState {
		p[runCmdOffset] = byte(runCmd)
		p[runCmdOffset+1] = byte(runCmd >> 8)
	}
	return p, nil
}

// triggerKinds are the Controller packages peripherals react to
var triggerKinds = []PackageKind{KindState, KindVersion, KindRequest}

// ClassifyTrigger maps an inbound identifier to the Controller package kind
// it carries. Both sides of the Controller are recognized. The Controller
// itself reacts to nothing and always returns false.
func (b *Board) ClassifyTrigger(id uint32) (PackageKind, bool) {
	if b.mode != ModePeripheral {
		return 0, false
	}
	for _, kind := range triggerKinds {
		for _, side := range []Side{SideA, SideB} {
			if Controller.MakeID(kind, side) == id {
				return kind, true
			}
		}
	}
	return 0, false
}
