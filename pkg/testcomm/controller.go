// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import "time"

// Cadence delays
const (
	delayStartup = 100 * time.Millisecond
	delayShort   = 78 * time.Millisecond
	delayRequest = 22 * time.Millisecond
)

// Cadence is the Controller's schedule entry for one send index
type Cadence struct {
	Kind   PackageKind
	Delay  time.Duration // wait after sending
	RunCmd uint16
}

// CadenceAt returns the schedule for send index i (1-based).
//
//	i < 6          state     100 ms
//	6 <= i <= 10   version   100 ms, 78 ms right before the request stage
//	i >= 11 odd    request   22 ms
//	i >= 11 even   state     78 ms
//
// The run-command word switches from idle to request once the request
// stage is reached.
func CadenceAt(i uint64) Cadence {
	switch {
	case i >= stageRequest:
		if i%2 == 1 {
			return Cadence{Kind: KindRequest, Delay: delayRequest, RunCmd: RunCmdRequest}
		}
		return Cadence{Kind: KindState, Delay: delayShort, RunCmd: RunCmdRequest}
	case i >= stageVersion:
		if i == stageRequest-1 {
			return Cadence{Kind: KindVersion, Delay: delayShort, RunCmd: RunCmdIdle}
		}
		return Cadence{Kind: KindVersion, Delay: delayStartup, RunCmd: RunCmdIdle}
	default:
		return Cadence{Kind: KindState, Delay: delayStartup, RunCmd: RunCmdIdle}
	}
}

// controllerState is the proactive side of the runner. Nothing is committed
// until the frame has been put on the bus, so a failed emission is retried
// with the same send index and timestamp.
type controllerState struct {
	board       *Board
	sendIndex   uint64
	timestampUS uint64
	lastDelay   time.Duration
}

func newControllerState(board *Board) *controllerState {
	return &controllerState{board: board, sendIndex: stageState}
}

// next builds the emission for the current send index
func (c *controllerState) next(plan *Plan, seq *Sequencer) (Emission, uint64, error) {
	step := seq.CurrentStep()
	cad := CadenceAt(c.sendIndex)

	ts := c.timestampUS
	if step.TimestampOffset != nil {
		ts += uint64(*step.TimestampOffset)
	} else {
		ts += uint64(c.lastDelay / time.Microsecond)
	}

	payload, err := c.board.PayloadTemplate(cad.Kind, c.board.BoardTag(plan.Side), cad.RunCmd)
	if err != nil {
		return Emission{}, 0, err
	}

	id := c.board.MakeID(cad.Kind, plan.Side)
	if step.ID != nil {
		id = *step.ID
	}

	frame := Assemble(Header{
		TimestampUS: ts,
		CommIndex:   uint16(seq.CurrentIndex()),
		Kind:        c.board.Code(cad.Kind),
		SideTag:     plan.SideTag,
	}, payload, step.Overrides())

	return Emission{
		Frame:     frame,
		ID:        id,
		Kind:      cad.Kind,
		Channels:  step.Channels.Channels(),
		Repeat:    step.SendRepeat,
		Step:      seq.StepNumber(),
		SendIndex: c.sendIndex,
		Delay:     cad.Delay,
	}, ts, nil
}

// commit records a successful emission
func (c *controllerState) commit(em Emission, ts uint64) {
	c.timestampUS = ts
	c.lastDelay = em.Delay
	c.sendIndex++
}
