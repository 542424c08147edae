// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peripheralPlan(bt BoardType, steps ...TestStep) *Plan {
	return &Plan{
		Board:           bt,
		Side:            SideA,
		Mode:            ModePeripheral,
		DefaultChannels: ChannelA,
		Steps:           steps,
	}
}

func controllerPlan(steps ...TestStep) *Plan {
	return &Plan{
		Board:           BoardMS,
		Side:            SideA,
		SideTag:         0xAA,
		Mode:            ModeController,
		DefaultChannels: ChannelA,
		Steps:           steps,
	}
}

func step(start, end uint32) TestStep {
	return TestStep{StartIndex: start, EndIndex: end, SendRepeat: 1, Channels: ChannelA}
}

// ============================================================
// Plan Validation Tests
// ============================================================

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name string
		plan *Plan
		ok   bool
	}{
		{"valid peripheral", peripheralPlan(BoardDI, step(0, 10)), true},
		{"valid controller", controllerPlan(step(1, 1), step(5, 9)), true},
		{"no steps", peripheralPlan(BoardDI), false},
		{"start after end", peripheralPlan(BoardDI, step(0, 3), step(7, 6)), false},
		{"unknown board", peripheralPlan(BoardREV, step(0, 1)), false},
		{"controller in peripheral mode", peripheralPlan(BoardMS, step(0, 1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPlanTotalIndexes(t *testing.T) {
	plan := peripheralPlan(BoardDI, step(0, 9), step(100, 100), step(0, 0xFFFFFFFF))
	assert.Equal(t, uint64(10+1+0x100000000), plan.TotalIndexes())
}

// ============================================================
// Sequencer Tests
// ============================================================

func TestSequencer_WalksSteps(t *testing.T) {
	seq, err := NewSequencer(peripheralPlan(BoardDI, step(3, 5), step(10, 11)))
	require.NoError(t, err)

	var indexes []uint32
	var steps []int
	for !seq.IsFinished() {
		indexes = append(indexes, seq.CurrentIndex())
		steps = append(steps, seq.StepNumber())
		seq.Advance()
	}

	assert.Equal(t, []uint32{3, 4, 5, 10, 11}, indexes)
	assert.Equal(t, []int{1, 1, 1, 2, 2}, steps)
}

func TestSequencer_FinishesExactlyOnce(t *testing.T) {
	plan := peripheralPlan(BoardFI, step(0, 1), step(20, 24))
	seq, err := NewSequencer(plan)
	require.NoError(t, err)

	// Walk to the start of the last step
	seq.Advance()
	seq.Advance()
	require.Equal(t, uint32(20), seq.CurrentIndex())

	last := plan.Steps[1]
	n := int(last.EndIndex - last.StartIndex + 1)
	flips := 0
	for i := 0; i < n; i++ {
		before := seq.IsFinished()
		seq.Advance()
		if !before && seq.IsFinished() {
			flips++
		}
	}
	assert.Equal(t, 1, flips)
	assert.True(t, seq.IsFinished())
	assert.Equal(t, uint32(24), seq.CurrentIndex(), "index stays at its last value")

	// No resurrection
	for i := 0; i < 10; i++ {
		seq.Advance()
	}
	assert.True(t, seq.IsFinished())
	assert.Equal(t, uint32(24), seq.CurrentIndex())
}

func TestSequencer_CurrentStepPanicsWhenFinished(t *testing.T) {
	seq, err := NewSequencer(peripheralPlan(BoardDI, step(0, 0)))
	require.NoError(t, err)

	require.NotPanics(t, func() { seq.CurrentStep() })
	seq.Advance()
	require.True(t, seq.IsFinished())
	assert.PanicsWithValue(t, ErrSequenceExhausted, func() { seq.CurrentStep() })
}

func TestSequencer_SingleIndexSteps(t *testing.T) {
	seq, err := NewSequencer(peripheralPlan(BoardDI, step(7, 7), step(7, 7), step(2, 2)))
	require.NoError(t, err)

	var indexes []uint32
	for !seq.IsFinished() {
		indexes = append(indexes, seq.CurrentIndex())
		seq.Advance()
	}
	assert.Equal(t, []uint32{7, 7, 2}, indexes)
}

func TestSequencer_IndexRollover(t *testing.T) {
	seq, err := NewSequencer(peripheralPlan(BoardDI, step(0xFFFFFFFE, 0xFFFFFFFF), step(1, 1)))
	require.NoError(t, err)

	seq.Advance()
	assert.Equal(t, uint32(0xFFFFFFFF), seq.CurrentIndex())
	seq.Advance()
	assert.Equal(t, 2, seq.StepNumber())
	assert.Equal(t, uint32(1), seq.CurrentIndex())
	assert.False(t, seq.IsFinished())
}

func TestSequencer_RolloverOnLastStep(t *testing.T) {
	seq, err := NewSequencer(peripheralPlan(BoardDI, step(0xFFFFFFFF, 0xFFFFFFFF)))
	require.NoError(t, err)

	seq.Advance()
	assert.True(t, seq.IsFinished())
	assert.Equal(t, uint32(0xFFFFFFFF), seq.CurrentIndex())
}

func TestSequencer_Progress(t *testing.T) {
	seq, err := NewSequencer(peripheralPlan(BoardDI, step(0, 4), step(0, 4)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		seq.Advance()
	}
	done, total := seq.Progress()
	assert.Equal(t, uint64(3), done)
	assert.Equal(t, uint64(10), total)

	for i := 0; i < 20; i++ {
		seq.Advance()
	}
	done, _ = seq.Progress()
	assert.Equal(t, uint64(10), done, "advances after finishing are not counted")
}

func TestNewSequencer_InvalidPlan(t *testing.T) {
	_, err := NewSequencer(peripheralPlan(BoardDI))
	assert.Error(t, err)
}
