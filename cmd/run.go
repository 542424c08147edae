// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/boardsim/pkg/canbus"
	"github.com/Thermoquad/boardsim/pkg/testcomm"
	"github.com/Thermoquad/boardsim/pkg/testplan"
)

var (
	planPath         string
	runUseTUI        bool
	runStatsInterval int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a test plan as the emulated board",
	Long: `Load an INI test plan and emulate the board it describes.

As the Controller (BoardType = MS) boardsim emits State, Version and Request
frames on a fixed cadence. As a peripheral it waits for Controller frames on
channel 1 and answers each one with the board's replies.

The run ends when every communication index of the plan has been used, or on
Ctrl+C. A statistics summary is printed at the end.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&planPath, "plan", "", "Test plan INI file")
	runCmd.Flags().BoolVar(&runUseTUI, "tui", false, "Show progress in a terminal UI")
	runCmd.Flags().IntVar(&runStatsInterval, "stats-interval", 10, "Statistics update interval in text mode (seconds)")
	_ = runCmd.MarkFlagRequired("plan")
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := testplan.Load(planPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, connInfo, err := OpenBus(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	runID := uuid.New().String()

	if runUseTUI {
		return runPlanTUI(ctx, plan, bus, connInfo, runID)
	}
	return runPlanText(ctx, plan, bus, connInfo, runID)
}

// printPlanSummary prints the board and the steps of a plan
func printPlanSummary(w io.Writer, path string, plan *testcomm.Plan) {
	fmt.Fprintf(w, "Plan: %s\n", path)
	fmt.Fprintf(w, "Board: %s side %s (%s)\n", plan.Board, plan.Side, plan.Mode)
	if plan.Mode == testcomm.ModeController {
		fmt.Fprintf(w, "Header side tag: 0x%02X\n", plan.SideTag)
	}
	fmt.Fprintf(w, "Steps: %d, indexes: %d\n", len(plan.Steps), plan.TotalIndexes())
	for i := range plan.Steps {
		s := &plan.Steps[i]
		fmt.Fprintf(w, "  [%d] %d..%d x%d on %s", i+1, s.StartIndex, s.EndIndex, s.SendRepeat, s.Channels)
		if s.TimestampOffset != nil {
			fmt.Fprintf(w, " offset=%dus", *s.TimestampOffset)
		}
		if s.CRCM != nil {
			fmt.Fprintf(w, " crcm=0x%08X", *s.CRCM)
		}
		if s.CRC != nil {
			fmt.Fprintf(w, " crc=0x%08X", *s.CRC)
		}
		if s.ID != nil {
			fmt.Fprintf(w, " id=0x%03X", *s.ID)
		}
		fmt.Fprintln(w)
	}
}

// finishRun turns the runner result into the command result
func finishRun(err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Printf("Run interrupted\n")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Run finished\n")
	return nil
}

// runPlanText runs the plan with log output and periodic statistics
func runPlanText(ctx context.Context, plan *testcomm.Plan, bus canbus.Bus, connInfo, runID string) error {
	fmt.Printf("Boardsim - Test Run %s\n", runID)
	fmt.Printf("Connection: %s\n", connInfo)
	printPlanSummary(os.Stdout, planPath, plan)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	logger := log.New(os.Stderr, "["+runID[:8]+"] ", log.LstdFlags|log.Lmicroseconds)

	runner, err := testcomm.NewRunner(plan, bus, testcomm.RunnerConfig{Logger: logger})
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	statsTicker := time.NewTicker(time.Duration(runStatsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case err := <-done:
			fmt.Println()
			fmt.Print(runner.Statistics().String())
			return finishRun(err)

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(runner.Statistics().String())
			fmt.Println()
		}
	}
}

// runPlanTUI runs the plan behind a progress display. Runner log lines go to
// the event log of the display.
func runPlanTUI(ctx context.Context, plan *testcomm.Plan, bus canbus.Bus, connInfo, runID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats := testcomm.NewStatistics()
	m := newRunModel(runID, connInfo, plan, stats, cancel)
	p := tea.NewProgram(m)

	logger := log.New(programLogWriter{p: p}, "", 0)

	var runner *testcomm.Runner
	var err error
	runner, err = testcomm.NewRunner(plan, bus, testcomm.RunnerConfig{
		Logger:     logger,
		Statistics: stats,
		OnEmit: func(em testcomm.Emission) {
			done, total := runner.Sequencer().Progress()
			p.Send(emitMsg{emission: em, done: done, total: total})
		},
	})
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		err := runner.Run(ctx)
		p.Send(runDoneMsg{err: err})
		done <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("TUI error: %v", err)
	}

	// Leaving the display stops the run
	cancel()
	runErr := <-done

	fmt.Print(stats.String())
	return finishRun(runErr)
}
