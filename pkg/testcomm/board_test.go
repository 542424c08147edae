// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"testing"
	"time"
)

// ============================================================
// Identifier Tests
// ============================================================

func TestMakeID(t *testing.T) {
	tests := []struct {
		name     string
		board    *Board
		kind     PackageKind
		side     Side
		expected uint32
	}{
		{"MS state A", Controller, KindState, SideA, 0x001},
		{"MS version A", Controller, KindVersion, SideA, 0x002},
		{"MS request B", Controller, KindRequest, SideB, 0x083},
		{"DI state A", PeripheralDI, KindState, SideA, 0x101},
		{"DO request A uses code 5", PeripheralDO, KindRequest, SideA, 0x205},
		{"FI secondary request B", PeripheralFI, KindRequestSecondary, SideB, 0x386},
		{"AI version A", PeripheralAI, KindVersion, SideA, 0x402},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.board.MakeID(tt.kind, tt.side); got != tt.expected {
				t.Errorf("expected 0x%03X, got 0x%03X", tt.expected, got)
			}
		})
	}
}

func TestMakeID_ElevenBits(t *testing.T) {
	for bt := BoardType(0); bt < 8; bt++ {
		for _, side := range []Side{SideA, SideB} {
			if id := MakeID(bt, side, 0xFF); id > 0x7FF {
				t.Errorf("MakeID(%d, %s) = 0x%X exceeds 11 bits", bt, side, id)
			}
		}
	}
}

func TestBoardTag(t *testing.T) {
	tests := []struct {
		board    *Board
		side     Side
		expected uint8
	}{
		{Controller, SideA, 0},
		{Controller, SideB, 1},
		{PeripheralDI, SideA, 2},
		{PeripheralDO, SideB, 5},
		{PeripheralFI, SideB, 7},
		{PeripheralAI, SideA, 8},
	}
	for _, tt := range tests {
		if got := tt.board.BoardTag(tt.side); got != tt.expected {
			t.Errorf("%s side %s: expected tag %d, got %d", tt.board.Type(), tt.side, tt.expected, got)
		}
	}
}

func TestBoardFor(t *testing.T) {
	for bt, want := range map[BoardType]*Board{
		BoardMS: Controller,
		BoardDI: PeripheralDI,
		BoardDO: PeripheralDO,
		BoardFI: PeripheralFI,
		BoardAI: PeripheralAI,
	} {
		got, err := BoardFor(bt)
		if err != nil {
			t.Fatalf("BoardFor(%s) failed: %v", bt, err)
		}
		if got != want {
			t.Errorf("BoardFor(%s) returned the %s profile", bt, got.Type())
		}
	}

	if _, err := BoardFor(BoardREV); err == nil {
		t.Errorf("REV has no profile and should fail")
	}
}

func TestReplyCount(t *testing.T) {
	for _, tt := range []struct {
		board *Board
		count int
	}{
		{Controller, 0},
		{PeripheralDI, 1},
		{PeripheralDO, 1},
		{PeripheralFI, 2},
		{PeripheralAI, 2},
	} {
		if tt.board.ReplyCount() != tt.count {
			t.Errorf("%s: expected reply count %d, got %d", tt.board.Type(), tt.count, tt.board.ReplyCount())
		}
	}
}

// ============================================================
// Payload Template Tests
// ============================================================

func TestPayloadTemplate_StateRunCommand(t *testing.T) {
	for _, cmd := range []uint16{RunCmdIdle, RunCmdRequest} {
		p, err := PeripheralFI.PayloadTemplate(KindState, 6, cmd)
		if err != nil {
			t.Fatalf("PayloadTemplate failed: %v", err)
		}
		if p[0] != 6 {
			t.Errorf("board tag: expected 6, got %d", p[0])
		}
		if got := uint16(p[20]) | uint16(p[21])<<8; got != cmd {
			t.Errorf("run command: expected 0x%04X, got 0x%04X", cmd, got)
		}
	}
}

func TestPayloadTemplate_RunCommandStateOnly(t *testing.T) {
	p, err := Controller.PayloadTemplate(KindVersion, 0, RunCmdRequest)
	if err != nil {
		t.Fatalf("PayloadTemplate failed: %v", err)
	}
	if p[20] != msVersion[20] || p[21] != msVersion[21] {
		t.Errorf("version template bytes 20-21 should be untouched: %02X %02X", p[20], p[21])
	}
}

func TestPayloadTemplate_Tagging(t *testing.T) {
	// Controller tags every template
	p, _ := Controller.PayloadTemplate(KindRequest, 1, 0)
	if p[0] != 1 {
		t.Errorf("Controller request should carry the board tag, got 0x%02X", p[0])
	}

	// Peripherals keep the leading byte of request templates
	p, _ = PeripheralDI.PayloadTemplate(KindRequest, 2, 0)
	if p[0] != diRequest[0] {
		t.Errorf("DI request leading byte changed: 0x%02X != 0x%02X", p[0], diRequest[0])
	}
	p, _ = PeripheralAI.PayloadTemplate(KindRequestSecondary, 8, 0)
	if p[0] != aiRequestSecondary[0] {
		t.Errorf("AI secondary request leading byte changed: 0x%02X", p[0])
	}

	// But tag state and version
	p, _ = PeripheralDI.PayloadTemplate(KindVersion, 3, 0)
	if p[0] != 3 {
		t.Errorf("DI version should carry the board tag, got 0x%02X", p[0])
	}
}

func TestPayloadTemplate_ReturnsCopy(t *testing.T) {
	first, _ := PeripheralAI.PayloadTemplate(KindState, 9, RunCmdRequest)
	first[1] = 0xEE
	first[30] = 0xEE

	second, _ := PeripheralAI.PayloadTemplate(KindState, 8, RunCmdIdle)
	if second[1] == 0xEE || second[30] == 0xEE {
		t.Errorf("template shared between calls")
	}
	if second[0] != 8 || second[20] != 0x11 {
		t.Errorf("second call should apply its own overrides")
	}
	if aiState[1] == 0xEE {
		t.Errorf("package template modified")
	}
}

func TestPayloadTemplate_Unsupported(t *testing.T) {
	if PeripheralDI.Supports(KindRequestSecondary) {
		t.Errorf("DI has no secondary request")
	}
	if _, err := PeripheralDI.PayloadTemplate(KindRequestSecondary, 0, 0); err == nil {
		t.Errorf("expected error for unsupported kind")
	}
	if _, err := Controller.PayloadTemplate(PackageKind(99), 0, 0); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}

func TestDORequestTemplateIsZero(t *testing.T) {
	p, err := PeripheralDO.PayloadTemplate(KindRequest, 4, 0)
	if err != nil {
		t.Fatalf("PayloadTemplate failed: %v", err)
	}
	if p != (Payload{}) {
		t.Errorf("DO request body should be all zero")
	}
	if PeripheralDO.Code(KindRequest) != 5 {
		t.Errorf("DO request code: expected 5, got %d", PeripheralDO.Code(KindRequest))
	}
}

// ============================================================
// Trigger Classification Tests
// ============================================================

func TestClassifyTrigger(t *testing.T) {
	tests := []struct {
		id   uint32
		kind PackageKind
		ok   bool
	}{
		{0x001, KindState, true},
		{0x002, KindVersion, true},
		{0x003, KindRequest, true},
		{0x081, KindState, true},
		{0x082, KindVersion, true},
		{0x083, KindRequest, true},
		{0x006, 0, false},
		{0x101, 0, false},
		{0x303, 0, false},
	}

	for _, tt := range tests {
		kind, ok := PeripheralFI.ClassifyTrigger(tt.id)
		if ok != tt.ok || (ok && kind != tt.kind) {
			t.Errorf("ClassifyTrigger(0x%03X) = %s,%v; want %s,%v", tt.id, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestClassifyTrigger_ControllerIgnoresAll(t *testing.T) {
	for _, id := range []uint32{0x001, 0x002, 0x003, 0x101} {
		if _, ok := Controller.ClassifyTrigger(id); ok {
			t.Errorf("Controller should not react to 0x%03X", id)
		}
	}
}

func TestResponseKinds(t *testing.T) {
	tests := []struct {
		board    *Board
		trigger  PackageKind
		expected []PackageKind
	}{
		{PeripheralDI, KindRequest, []PackageKind{KindRequest}},
		{PeripheralDO, KindState, []PackageKind{KindState}},
		{PeripheralFI, KindState, []PackageKind{KindState}},
		{PeripheralFI, KindVersion, []PackageKind{KindVersion}},
		{PeripheralFI, KindRequest, []PackageKind{KindRequest, KindRequestSecondary}},
		{PeripheralAI, KindRequest, []PackageKind{KindRequest, KindRequestSecondary}},
	}
	for _, tt := range tests {
		got := ResponseKinds(tt.board, tt.trigger)
		if len(got) != len(tt.expected) {
			t.Errorf("%s %s: expected %v, got %v", tt.board.Type(), tt.trigger, tt.expected, got)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("%s %s: expected %v, got %v", tt.board.Type(), tt.trigger, tt.expected, got)
			}
		}
	}
}

// ============================================================
// Controller Cadence Tests
// ============================================================

func TestCadenceAt(t *testing.T) {
	tests := []struct {
		index  uint64
		kind   PackageKind
		delay  time.Duration
		runCmd uint16
	}{
		{1, KindState, 100 * time.Millisecond, RunCmdIdle},
		{5, KindState, 100 * time.Millisecond, RunCmdIdle},
		{6, KindVersion, 100 * time.Millisecond, RunCmdIdle},
		{9, KindVersion, 100 * time.Millisecond, RunCmdIdle},
		{10, KindVersion, 78 * time.Millisecond, RunCmdIdle},
		{11, KindRequest, 22 * time.Millisecond, RunCmdRequest},
		{12, KindState, 78 * time.Millisecond, RunCmdRequest},
		{13, KindRequest, 22 * time.Millisecond, RunCmdRequest},
		{1000, KindState, 78 * time.Millisecond, RunCmdRequest},
	}

	for _, tt := range tests {
		c := CadenceAt(tt.index)
		if c.Kind != tt.kind || c.Delay != tt.delay || c.RunCmd != tt.runCmd {
			t.Errorf("CadenceAt(%d) = {%s %v 0x%04X}, want {%s %v 0x%04X}",
				tt.index, c.Kind, c.Delay, c.RunCmd, tt.kind, tt.delay, tt.runCmd)
		}
	}
}
