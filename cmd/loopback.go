// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/boardsim/pkg/canbus"
	"github.com/Thermoquad/boardsim/pkg/testcomm"
	"github.com/Thermoquad/boardsim/pkg/testplan"
)

var (
	loopControllerPlan string
	loopPeripheralPlan string
	loopSettle         time.Duration
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Run a Controller and a peripheral against each other in memory",
	Long: `Run two plans on a virtual two channel bus: a Controller plan and a
peripheral plan. Every frame either side emits is validated.

The peripheral keeps answering for --settle after the Controller finishes,
then the run stops and statistics for both boards are printed.`,
	RunE: runLoopback,
}

func init() {
	rootCmd.AddCommand(loopbackCmd)
	loopbackCmd.Flags().StringVar(&loopControllerPlan, "controller", "", "Controller (MS) test plan")
	loopbackCmd.Flags().StringVar(&loopPeripheralPlan, "peripheral", "", "Peripheral test plan")
	loopbackCmd.Flags().DurationVar(&loopSettle, "settle", 100*time.Millisecond, "Time the peripheral keeps answering after the Controller finishes")
	_ = loopbackCmd.MarkFlagRequired("controller")
	_ = loopbackCmd.MarkFlagRequired("peripheral")
}

// loopbackSide is one board of a loopback run
type loopbackSide struct {
	name   string
	runner *testcomm.Runner
	wire   *testcomm.Statistics
}

func newLoopbackSide(path string, want testcomm.Mode, bus canbus.Bus, runID string) (*loopbackSide, error) {
	plan, err := testplan.Load(path)
	if err != nil {
		return nil, err
	}
	if plan.Mode != want {
		return nil, fmt.Errorf("%s: expected a %s plan, got %s", path, want, plan.Mode)
	}

	side := &loopbackSide{
		name: plan.Board.String(),
		wire: testcomm.NewStatistics(),
	}
	logger := log.New(os.Stderr, fmt.Sprintf("[%s %s] ", runID[:8], side.name), log.LstdFlags|log.Lmicroseconds)

	side.runner, err = testcomm.NewRunner(plan, bus, testcomm.RunnerConfig{
		Logger: logger,
		OnEmit: func(em testcomm.Emission) {
			issues := append(testcomm.ValidateFrame(em.Frame), testcomm.ValidateFrameID(em.ID, em.Frame)...)
			side.wire.RecordReceived(nil, issues)
			for _, issue := range issues {
				logger.Printf("Emitted 0x%03X idx=%d: %s", em.ID, em.Frame.Header.CommIndex, issue.Message)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return side, nil
}

func runLoopback(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()
	controllerBus, peripheralBus := canbus.NewPair(2)
	defer controllerBus.Close()
	defer peripheralBus.Close()

	controller, err := newLoopbackSide(loopControllerPlan, testcomm.ModeController, controllerBus, runID)
	if err != nil {
		return err
	}
	peripheral, err := newLoopbackSide(loopPeripheralPlan, testcomm.ModePeripheral, peripheralBus, runID)
	if err != nil {
		return err
	}

	fmt.Printf("Boardsim - Loopback %s\n", runID)
	fmt.Printf("Controller: %s\n", loopControllerPlan)
	fmt.Printf("Peripheral: %s (%s)\n\n", loopPeripheralPlan, peripheral.name)

	peripheralCtx, stopPeripheral := context.WithCancel(ctx)
	defer stopPeripheral()

	peripheralDone := make(chan error, 1)
	go func() {
		peripheralDone <- peripheral.runner.Run(peripheralCtx)
	}()

	controllerErr := controller.runner.Run(ctx)
	if controllerErr == nil {
		select {
		case <-time.After(loopSettle):
		case <-ctx.Done():
		}
	}
	stopPeripheral()
	peripheralErr := <-peripheralDone

	for _, side := range []*loopbackSide{controller, peripheral} {
		fmt.Printf("\n--- %s (%s) ---\n", side.name, side.runner.State())
		fmt.Print(side.runner.Statistics().String())
		c := side.wire.Snapshot()
		fmt.Printf("Emitted frames valid: %d/%d\n", c.ValidFrames, c.Received)
	}
	fmt.Println()

	if err := loopbackResult(controllerErr); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := loopbackResult(peripheralErr); err != nil {
		return fmt.Errorf("peripheral: %w", err)
	}
	if ctx.Err() != nil {
		fmt.Printf("Loopback interrupted\n")
		return nil
	}
	fmt.Printf("Loopback finished\n")
	return nil
}

// loopbackResult treats cancellation as a normal stop
func loopbackResult(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
