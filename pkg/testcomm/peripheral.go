// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

// Trigger is an inbound Controller package observed on the bus
type Trigger struct {
	Kind        PackageKind
	ID          uint32
	TimestampUS uint64
}

// ResponseKinds returns the kinds a board answers a trigger with, in order.
// Two-reply boards chain a secondary request after each request.
func ResponseKinds(board *Board, kind PackageKind) []PackageKind {
	if board.ReplyCount() == 2 && kind == KindRequest {
		return []PackageKind{KindRequest, KindRequestSecondary}
	}
	return []PackageKind{kind}
}

// buildResponse builds one reply to t from the sequencer's current step.
//
// Each reply of a chain reads the step that is current when it is built. If
// a step boundary falls between the two replies of a request, the secondary
// request carries the next step's overrides.
func buildResponse(board *Board, plan *Plan, seq *Sequencer, t Trigger, kind PackageKind) (Emission, error) {
	step := seq.CurrentStep()

	ts := t.TimestampUS
	if step.TimestampOffset != nil {
		ts += uint64(*step.TimestampOffset)
	}

	payload, err := board.PayloadTemplate(kind, board.BoardTag(plan.Side), RunCmdRequest)
	if err != nil {
		return Emission{}, err
	}

	id := board.MakeID(kind, plan.Side)
	if step.ID != nil {
		id = *step.ID
	}

	frame := Assemble(Header{
		TimestampUS: ts,
		CommIndex:   uint16(seq.CurrentIndex()),
		Kind:        board.Code(kind),
	}, payload, step.Overrides())

	return Emission{
		Frame:    frame,
		ID:       id,
		Kind:     kind,
		Channels: step.Channels.Channels(),
		Repeat:   step.SendRepeat,
		Step:     seq.StepNumber(),
		Trigger:  &t,
	}, nil
}
