// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/boardsim/pkg/canbus"
	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

func validFrame() *testcomm.Frame {
	var payload testcomm.Payload
	payload[0] = 0xAA
	return testcomm.Assemble(testcomm.Header{TimestampUS: 1500, CommIndex: 7, Kind: 1, SideTag: 0xAA}, payload, testcomm.Overrides{})
}

// ============================================================
// Formatting Tests
// ============================================================

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{500 * time.Millisecond, "0 seconds"},
		{time.Second, "1 second"},
		{61 * time.Second, "1 minute and 1 second"},
		{2 * time.Hour, "2 hours"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1 day, 2 hours, 3 minutes, and 4 seconds"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total uint64
		want        string
	}{
		{0, 0, "░░░░"},
		{0, 8, "░░░░"},
		{4, 8, "██░░"},
		{8, 8, "████"},
		{9, 8, "████"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.done, tt.total, 4); got != tt.want {
			t.Errorf("progressBar(%d, %d) = %q, want %q", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestAppendLogEntry_KeepsNewest(t *testing.T) {
	var entries []logEntry
	for i := 0; i < 5; i++ {
		entries = appendLogEntry(entries, 3, string(rune('a'+i)), false)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].message != "c" || entries[2].message != "e" {
		t.Errorf("got %q..%q, want c..e", entries[0].message, entries[2].message)
	}
}

func TestPrintPlanSummary(t *testing.T) {
	offset := uint32(250)
	id := uint32(0x7AB)
	plan := &testcomm.Plan{
		Board:   testcomm.BoardMS,
		Side:    testcomm.SideA,
		SideTag: 0xBA,
		Mode:    testcomm.ModeController,
		Steps: []testcomm.TestStep{
			{StartIndex: 1, EndIndex: 10, SendRepeat: 2, Channels: testcomm.ChannelBoth, TimestampOffset: &offset, ID: &id},
		},
	}

	var buf bytes.Buffer
	printPlanSummary(&buf, "plan.ini", plan)
	out := buf.String()

	for _, want := range []string{"Plan: plan.ini", "Header side tag: 0xBA", "Steps: 1, indexes: 10", "1..10 x2", "offset=250us", "id=0x7AB"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

// ============================================================
// Decode Tests
// ============================================================

func TestParseHexFrame(t *testing.T) {
	data, err := parseHexFrame("0x01 02:0a\n\tFF")
	if err != nil {
		t.Fatalf("parseHexFrame failed: %v", err)
	}
	if !bytes.Equal(data, []byte{0x01, 0x02, 0x0A, 0xFF}) {
		t.Errorf("got % X", data)
	}

	if _, err := parseHexFrame("0g"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := parseHexFrame("abc"); err == nil {
		t.Error("expected error for odd digit count")
	}
}

func TestInspectFrame(t *testing.T) {
	f := validFrame()

	ev := inspectFrame(1, canbus.Frame{ID: 0x001, Data: f.Bytes()})
	if ev.decodeErr != nil || len(ev.validation) != 0 {
		t.Fatalf("valid frame reported decodeErr=%v validation=%v", ev.decodeErr, ev.validation)
	}
	if ev.channel != 1 || ev.frame.Header.CommIndex != 7 {
		t.Errorf("unexpected event %+v", ev)
	}

	// Identifier says Ver, header says State
	ev = inspectFrame(0, canbus.Frame{ID: 0x002, Data: f.Bytes()})
	if len(ev.validation) != 1 || ev.validation[0].Type != testcomm.AnomalyIDKindMismatch {
		t.Errorf("expected one ID kind mismatch, got %v", ev.validation)
	}

	data := f.Bytes()
	data[20] ^= 0xFF
	ev = inspectFrame(0, canbus.Frame{ID: 0x001, Data: data})
	if len(ev.validation) != 2 {
		t.Errorf("expected CRCM and CRC mismatches, got %v", ev.validation)
	}

	ev = inspectFrame(0, canbus.Frame{ID: 0x001, Data: data[:8]})
	if ev.decodeErr == nil {
		t.Error("expected decode error for short frame")
	}
}

// ============================================================
// Poll Loop Tests
// ============================================================

func TestPollFrames(t *testing.T) {
	bus := canbus.NewMemoryBus(2)
	data := validFrame().Bytes()
	if err := bus.Inject(0, canbus.Frame{ID: 0x001, Data: data}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Inject(1, canbus.Frame{ID: 0x001, Data: data[:10]}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var events []frameEvent
	err := pollFrames(ctx, bus, []int{0, 1}, func(ev frameEvent) {
		events = append(events, ev)
		if len(events) == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].channel != 0 || events[0].decodeErr != nil {
		t.Errorf("channel 0 event: %+v", events[0])
	}
	if events[1].channel != 1 || events[1].decodeErr == nil {
		t.Errorf("channel 1 event: %+v", events[1])
	}
}

func TestPollFrames_StopsWhenBusCloses(t *testing.T) {
	bus := canbus.NewMemoryBus(1)
	bus.Close()

	err := pollFrames(context.Background(), bus, []int{0}, func(frameEvent) {})
	if !errors.Is(err, canbus.ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestMonitoredChannels(t *testing.T) {
	bus := canbus.NewMemoryBus(2)
	defer func() { monitorChannel = 0 }()

	monitorChannel = 0
	if got, err := monitoredChannels(bus); err != nil || len(got) != 2 {
		t.Errorf("all channels: got %v, %v", got, err)
	}

	monitorChannel = 2
	if got, err := monitoredChannels(bus); err != nil || len(got) != 1 || got[0] != 1 {
		t.Errorf("channel 2: got %v, %v", got, err)
	}

	monitorChannel = 3
	if _, err := monitoredChannels(bus); err == nil {
		t.Error("expected error for channel 3 on a two channel bus")
	}
}
