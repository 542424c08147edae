// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Thermoquad/boardsim/pkg/canbus"
)

// DefaultPollInterval is the peripheral wait between inbound polls
const DefaultPollInterval = time.Millisecond

// State is the runner lifecycle
type State int

// Runner states
const (
	StateRunning State = iota
	StateFinished
)

// String returns the state name
func (s State) String() string {
	if s == StateFinished {
		return "finished"
	}
	return "running"
}

// Emission is one assembled frame and where it goes. It is passed to the
// OnEmit observer after the frame has been put on the bus.
type Emission struct {
	Frame     *Frame
	ID        uint32
	Kind      PackageKind
	Channels  []Channel
	Repeat    uint32
	Step      int           // 1-based step number the frame was built from
	SendIndex uint64        // Controller cadence index, 0 for peripherals
	Delay     time.Duration // Controller wait after the frame
	Trigger   *Trigger      // inbound package answered, nil for the Controller
}

// RunnerConfig holds optional runner settings. Zero values select defaults.
type RunnerConfig struct {
	Logger       *log.Logger
	OnEmit       func(Emission)
	PollInterval time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
	Statistics   *Statistics
}

// Runner drives one emulated board through a test plan on a bus. A runner
// is not safe for concurrent use; its Statistics may be read from other
// goroutines.
type Runner struct {
	plan       *Plan
	board      *Board
	seq        *Sequencer
	bus        canbus.Bus
	cfg        RunnerConfig
	logger     *log.Logger
	stats      *Statistics
	controller *controllerState
	state      State
}

// NewRunner prepares a run. Every channel the plan emits on, and the inbound
// channel of a peripheral, must exist on the bus.
func NewRunner(plan *Plan, bus canbus.Bus, cfg RunnerConfig) (*Runner, error) {
	seq, err := NewSequencer(plan)
	if err != nil {
		return nil, err
	}
	board, err := BoardFor(plan.Board)
	if err != nil {
		return nil, err
	}

	available := bus.Channels()
	for i := range plan.Steps {
		for _, ch := range plan.Steps[i].Channels.Channels() {
			if int(ch) >= available {
				return nil, fmt.Errorf("step %d uses channel %d, bus has %d", i+1, int(ch)+1, available)
			}
		}
	}
	if available < 1 {
		return nil, fmt.Errorf("bus has no channels")
	}

	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Statistics == nil {
		cfg.Statistics = NewStatistics()
	}

	r := &Runner{
		plan:   plan,
		board:  board,
		seq:    seq,
		bus:    bus,
		cfg:    cfg,
		logger: cfg.Logger,
		stats:  cfg.Statistics,
	}
	if board.Mode() == ModeController {
		r.controller = newControllerState(board)
	}
	return r, nil
}

// Board returns the emulated board
func (r *Runner) Board() *Board {
	return r.board
}

// Plan returns the plan being run
func (r *Runner) Plan() *Plan {
	return r.plan
}

// State returns the lifecycle state
func (r *Runner) State() State {
	return r.state
}

// Sequencer returns the cursor over the plan
func (r *Runner) Sequencer() *Sequencer {
	return r.seq
}

// Statistics returns the run counters
func (r *Runner) Statistics() *Statistics {
	return r.stats
}

// Run steps until the plan is finished or ctx is cancelled. Cancellation is
// observed between ticks and during waits, never in the middle of an
// emission.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting %s run of %s, side %s, %d steps, %d indexes",
		r.board.Mode(), r.board.Type(), r.plan.Side, len(r.plan.Steps), r.plan.TotalIndexes())

	for {
		select {
		case <-ctx.Done():
			r.logger.Printf("Run stopped at step %d, index %d", r.seq.StepNumber(), r.seq.CurrentIndex())
			return ctx.Err()
		default:
		}

		if r.state == StateFinished {
			r.logger.Printf("Test plan finished after %d frames", r.stats.Snapshot().FramesEmitted)
			return nil
		}

		if err := r.Step(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Printf("Run stopped at step %d, index %d", r.seq.StepNumber(), r.seq.CurrentIndex())
				return ctx.Err()
			}
			return err
		}
	}
}

// Step runs one tick: a Controller emits its next cadence frame, a
// peripheral answers the triggers received since the previous tick.
// Transport failures are logged and counted, not returned.
func (r *Runner) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.state == StateFinished {
		return nil
	}
	if r.controller != nil {
		return r.controllerTick(ctx)
	}
	return r.peripheralTick(ctx)
}

func (r *Runner) controllerTick(ctx context.Context) error {
	em, ts, err := r.controller.next(r.plan, r.seq)
	if err != nil {
		return err
	}

	if err := r.emit(em); err != nil {
		// Nothing committed: the same frame is built again next tick
		r.logger.Printf("Send index %d (%s) failed at comm index %d: %v",
			em.SendIndex, em.Kind, em.Frame.Header.CommIndex, err)
		return r.cfg.Sleep(ctx, em.Delay)
	}

	r.controller.commit(em, ts)
	r.advance()
	return r.cfg.Sleep(ctx, em.Delay)
}

func (r *Runner) peripheralTick(ctx context.Context) error {
	frames, err := r.bus.Poll(int(Channel1))
	if err != nil {
		r.stats.RecordPollFailure()
		r.logger.Printf("Poll failed: %v", err)
		return r.cfg.Sleep(ctx, r.cfg.PollInterval)
	}

	var triggers []Trigger
	for _, f := range frames {
		t, ok := r.classify(f)
		if !ok {
			r.stats.RecordIgnored()
			continue
		}
		r.stats.RecordTrigger()
		triggers = append(triggers, t)
	}

	for i, t := range triggers {
		if r.seq.IsFinished() {
			r.stats.RecordDropped(len(triggers) - i)
			r.logger.Printf("Plan finished, dropping %d triggers", len(triggers)-i)
			break
		}
		if err := r.respond(t); err != nil {
			return err
		}
	}

	return r.cfg.Sleep(ctx, r.cfg.PollInterval)
}

// classify turns an inbound frame into a trigger. The timestamp comes from
// the sender's frame header when the data carries one.
func (r *Runner) classify(f canbus.Frame) (Trigger, bool) {
	kind, ok := r.board.ClassifyTrigger(f.ID)
	if !ok {
		return Trigger{}, false
	}
	ts, ok := FrameTimestamp(f.Data)
	if !ok {
		ts = f.TimestampUS
	}
	return Trigger{Kind: kind, ID: f.ID, TimestampUS: ts}, true
}

// respond emits the replies to one trigger. A failed emission ends the
// chain; replies left when the plan finishes are dropped.
func (r *Runner) respond(t Trigger) error {
	kinds := ResponseKinds(r.board, t.Kind)
	for i, kind := range kinds {
		if r.seq.IsFinished() {
			r.stats.RecordDropped(len(kinds) - i)
			return nil
		}

		em, err := buildResponse(r.board, r.plan, r.seq, t, kind)
		if err != nil {
			return err
		}
		if err := r.emit(em); err != nil {
			r.logger.Printf("Reply %s to %s failed at comm index %d: %v",
				kind, t.Kind, em.Frame.Header.CommIndex, err)
			return nil
		}
		r.advance()
	}
	return nil
}

// emit puts a frame on every selected channel, Repeat times. A zero repeat
// count sends nothing and still consumes the index.
func (r *Runner) emit(em Emission) error {
	data := em.Frame.Bytes()
	for n := uint32(0); n < em.Repeat; n++ {
		for _, ch := range em.Channels {
			if err := r.bus.Emit(int(ch), em.ID, data); err != nil {
				r.stats.RecordEmit(em, err)
				return err
			}
		}
	}
	r.stats.RecordEmit(em, nil)
	if r.cfg.OnEmit != nil {
		r.cfg.OnEmit(em)
	}
	return nil
}

// advance moves the cursor past a committed frame
func (r *Runner) advance() {
	step := r.seq.StepNumber()
	r.seq.Advance()

	switch {
	case r.seq.IsFinished():
		r.state = StateFinished
	case r.seq.StepNumber() != step:
		r.logger.Printf("Step %d complete, starting step %d at index %d",
			step, r.seq.StepNumber(), r.seq.CurrentIndex())
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
