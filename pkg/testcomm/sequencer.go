// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"errors"
	"fmt"
)

// ErrSequenceExhausted is the panic value of CurrentStep once the plan is done
var ErrSequenceExhausted = errors.New("test sequence exhausted")

// TestStep is one configured segment of the communication index range.
// Nil override fields mean the computed value is used.
type TestStep struct {
	StartIndex      uint32
	EndIndex        uint32
	TimestampOffset *uint32 // microseconds
	CRCM            *uint32
	CRC             *uint32
	SendRepeat      uint32
	Channels        ChannelSelector
	ID              *uint32
}

// Count returns the number of communication indexes the step covers
func (s *TestStep) Count() uint64 {
	return uint64(s.EndIndex) - uint64(s.StartIndex) + 1
}

// Overrides returns the step's trailer overrides
func (s *TestStep) Overrides() Overrides {
	return Overrides{CRCM: s.CRCM, CRC: s.CRC}
}

// Plan is a complete test script for one emulated board
type Plan struct {
	Board           BoardType
	Side            Side
	SideTag         uint8 // header side tag written by the Controller
	Mode            Mode
	DefaultChannels ChannelSelector
	Steps           []TestStep
}

// Validate checks the plan invariants
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	board, err := BoardFor(p.Board)
	if err != nil {
		return err
	}
	if board.Mode() != p.Mode {
		return fmt.Errorf("board %s runs in %s mode, plan requests %s", p.Board, board.Mode(), p.Mode)
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		if s.StartIndex > s.EndIndex {
			return fmt.Errorf("step %d: start index %d > end index %d", i+1, s.StartIndex, s.EndIndex)
		}
	}
	return nil
}

// TotalIndexes returns the number of communication indexes in the plan
func (p *Plan) TotalIndexes() uint64 {
	var total uint64
	for i := range p.Steps {
		total += p.Steps[i].Count()
	}
	return total
}

// Sequencer walks a plan. The cursor only moves forward and once finished
// stays finished.
type Sequencer struct {
	plan     *Plan
	stepIdx  int
	commIdx  uint32
	finished bool
	advanced uint64
}

// NewSequencer positions a cursor at the first index of the first step
func NewSequencer(plan *Plan) (*Sequencer, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid test plan: %w", err)
	}
	return &Sequencer{
		plan:    plan,
		commIdx: plan.Steps[0].StartIndex,
	}, nil
}

// Plan returns the plan being walked
func (s *Sequencer) Plan() *Plan {
	return s.plan
}

// CurrentStep returns the active step. Panics with ErrSequenceExhausted
// once the plan is finished.
func (s *Sequencer) CurrentStep() *TestStep {
	if s.finished {
		panic(ErrSequenceExhausted)
	}
	return &s.plan.Steps[s.stepIdx]
}

// CurrentIndex returns the communication index of the next frame
func (s *Sequencer) CurrentIndex() uint32 {
	return s.commIdx
}

// StepNumber returns the 1-based number of the active step
func (s *Sequencer) StepNumber() int {
	return s.stepIdx + 1
}

// Advance moves past the current communication index. Past the end of the
// step it moves to the next step's start index, or finishes the plan and
// leaves the index at its last value.
func (s *Sequencer) Advance() {
	if s.finished {
		return
	}
	s.advanced++
	s.commIdx++
	if s.commIdx <= s.plan.Steps[s.stepIdx].EndIndex && s.commIdx != 0 {
		return
	}
	if s.stepIdx+1 < len(s.plan.Steps) {
		s.stepIdx++
		s.commIdx = s.plan.Steps[s.stepIdx].StartIndex
		return
	}
	s.commIdx--
	s.finished = true
}

// IsFinished reports whether every step has been walked
func (s *Sequencer) IsFinished() bool {
	return s.finished
}

// Progress returns the number of indexes walked and the plan total
func (s *Sequencer) Progress() (done, total uint64) {
	return s.advanced, s.plan.TotalIndexes()
}
