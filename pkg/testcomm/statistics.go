// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Counters is a point-in-time copy of run statistics
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Outbound
	FramesEmitted uint64 // frames committed to the plan
	BusWrites     uint64 // frames put on the bus, counting repeats and channels
	EmitFailures  uint64
	PollFailures  uint64

	// Inbound, runner
	Triggers uint64
	Ignored  uint64 // frames that are not Controller triggers
	Dropped  uint64 // triggers or replies left after the plan finished

	// Inbound, validation
	Received     uint64
	ValidFrames  uint64
	DecodeErrors uint64
	CRCMErrors   uint64
	CRCErrors    uint64
	HeaderErrors uint64

	// Rates (calculated)
	EmitRate  float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// Statistics tracks a run. Safe for concurrent use: the runner updates it
// while a display reads snapshots.
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{c: Counters{StartTime: now, LastUpdateTime: now}}
}

// RecordEmit counts one emission attempt
func (s *Statistics) RecordEmit(em Emission, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.c.EmitFailures++
	} else {
		s.c.FramesEmitted++
		s.c.BusWrites += uint64(em.Repeat) * uint64(len(em.Channels))
	}
	s.c.LastUpdateTime = time.Now()
}

// RecordPollFailure counts a failed inbound poll
func (s *Statistics) RecordPollFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.PollFailures++
}

// RecordTrigger counts one classified trigger
func (s *Statistics) RecordTrigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Triggers++
}

// RecordIgnored counts one inbound frame that is not a trigger
func (s *Statistics) RecordIgnored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Ignored++
}

// RecordDropped counts n triggers or replies discarded after the plan ended
func (s *Statistics) RecordDropped(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Dropped += uint64(n)
}

// RecordReceived updates validation counters for one inbound frame
func (s *Statistics) RecordReceived(decodeErr error, validationErrors []ValidationError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.Received++
	s.c.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.c.DecodeErrors++
		return
	}
	if len(validationErrors) == 0 {
		s.c.ValidFrames++
		return
	}
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyCRCMMismatch:
			s.c.CRCMErrors++
		case AnomalyCRCMismatch:
			s.c.CRCErrors++
		default:
			s.c.HeaderErrors++
		}
	}
}

// Snapshot returns the current counters with rates calculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	c := s.c
	s.mu.Unlock()

	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed > 0 {
		c.EmitRate = float64(c.FramesEmitted) / elapsed
		errorCount := c.EmitFailures + c.PollFailures + c.DecodeErrors + c.CRCMErrors + c.CRCErrors + c.HeaderErrors
		c.ErrorRate = float64(errorCount) / elapsed
	}
	return c
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.c = Counters{StartTime: now, LastUpdateTime: now}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	return s.Snapshot().String()
}

// String returns a formatted statistics summary. Sections with no activity
// are left out.
func (c Counters) String() string {
	var sb strings.Builder
	elapsed := c.LastUpdateTime.Sub(c.StartTime)

	fmt.Fprintf(&sb, "=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())

	if c.FramesEmitted > 0 || c.EmitFailures > 0 {
		fmt.Fprintf(&sb, "Frames Emitted:  %8d\n", c.FramesEmitted)
		fmt.Fprintf(&sb, "Bus Writes:      %8d\n", c.BusWrites)
		if c.EmitFailures > 0 {
			fmt.Fprintf(&sb, "Emit Failures:   %8d\n", c.EmitFailures)
		}
	}
	if c.PollFailures > 0 {
		fmt.Fprintf(&sb, "Poll Failures:   %8d\n", c.PollFailures)
	}
	if c.Triggers > 0 || c.Ignored > 0 {
		fmt.Fprintf(&sb, "Triggers:        %8d\n", c.Triggers)
		fmt.Fprintf(&sb, "Ignored Frames:  %8d\n", c.Ignored)
	}
	if c.Dropped > 0 {
		fmt.Fprintf(&sb, "Dropped:         %8d\n", c.Dropped)
	}

	if c.Received > 0 {
		validPercent := float64(c.ValidFrames) * 100.0 / float64(c.Received)
		fmt.Fprintf(&sb, "Received:        %8d\n", c.Received)
		fmt.Fprintf(&sb, "Valid Frames:    %8d (%.1f%%)\n", c.ValidFrames, validPercent)
		if c.DecodeErrors > 0 {
			fmt.Fprintf(&sb, "Decode Errors:   %8d\n", c.DecodeErrors)
		}
		if c.CRCMErrors > 0 {
			fmt.Fprintf(&sb, "CRCM Errors:     %8d\n", c.CRCMErrors)
		}
		if c.CRCErrors > 0 {
			fmt.Fprintf(&sb, "CRC Errors:      %8d\n", c.CRCErrors)
		}
		if c.HeaderErrors > 0 {
			fmt.Fprintf(&sb, "Header Errors:   %8d\n", c.HeaderErrors)
		}
	}

	fmt.Fprintf(&sb, "Emit Rate:       %8.1f frames/sec\n", c.EmitRate)
	fmt.Fprintf(&sb, "Error Rate:      %8.1f errors/sec\n", c.ErrorRate)
	sb.WriteString("================================\n")
	return sb.String()
}
