// SPDX-License-Identifier: Apache-2.0
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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/boardsim/pkg/canbus"
	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

var (
	showAll        bool
	statsInterval  int
	useTUI         bool
	monitorChannel int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Validate frames on the bus and track errors",
	Long: `Receive frames on every channel and validate them.

Each frame is checked for:
  - Decode failures (payload shorter or longer than 64 bytes)
  - CRCM and CRC trailer mismatches
  - Header length field and package kind
  - Identifier range, board type and package code agreement with the header

By default, only errors are displayed. Use --show-all to display every frame.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().IntVar(&monitorChannel, "channel", 0, "Only monitor this channel (1-based, 0 for all)")
}

// frameEvent is one received frame with its decode and validation results
type frameEvent struct {
	channel    int
	raw        canbus.Frame
	frame      *testcomm.Frame
	decodeErr  error
	validation []testcomm.ValidationError
}

// inspectFrame decodes and validates a received frame
func inspectFrame(channel int, raw canbus.Frame) frameEvent {
	ev := frameEvent{channel: channel, raw: raw}
	f, err := testcomm.DecodeFrame(raw.Data)
	if err != nil {
		ev.decodeErr = err
		return ev
	}
	ev.frame = f
	ev.validation = append(testcomm.ValidateFrame(f), testcomm.ValidateFrameID(raw.ID, f)...)
	return ev
}

// monitoredChannels returns the channels to poll
func monitoredChannels(bus canbus.Bus) ([]int, error) {
	if monitorChannel == 0 {
		channels := make([]int, bus.Channels())
		for i := range channels {
			channels[i] = i
		}
		return channels, nil
	}
	if monitorChannel < 0 || monitorChannel > bus.Channels() {
		return nil, fmt.Errorf("--channel %d out of range (bus has %d)", monitorChannel, bus.Channels())
	}
	return []int{monitorChannel - 1}, nil
}

// pollFrames polls the channels until ctx is done or the bus closes,
// passing every received frame to handle
func pollFrames(ctx context.Context, bus canbus.Bus, channels []int, handle func(frameEvent)) error {
	ticker := time.NewTicker(testcomm.DefaultPollInterval)
	defer ticker.Stop()

	for {
		for _, ch := range channels {
			frames, err := bus.Poll(ch)
			if err != nil {
				if errors.Is(err, canbus.ErrClosed) {
					return err
				}
				log.Printf("Poll error: %v", err)
				continue
			}
			for _, raw := range frames {
				handle(inspectFrame(ch, raw))
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, connInfo, err := OpenBus(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	channels, err := monitoredChannels(bus)
	if err != nil {
		return err
	}

	if useTUI {
		return runTUIMode(ctx, bus, connInfo, channels)
	}
	return runTextMode(ctx, bus, connInfo, channels)
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(ev frameEvent) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m cha%d id=0x%03X %v\n", timestamp, ev.channel+1, ev.raw.ID, ev.decodeErr)
	fmt.Printf("  >>> DECODE FAILED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(ev frameEvent) {
	timestamp := time.Now().Format("15:04:05.000")
	f := ev.frame

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m cha%d %s %s (%d)\n",
		timestamp, ev.channel+1, testcomm.FormatID(ev.raw.ID), testcomm.FormatKindCode(f.Header.Kind), f.Header.Kind)

	for i, err := range ev.validation {
		switch err.Type {
		case testcomm.AnomalyCRCMMismatch, testcomm.AnomalyCRCMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if got, ok := err.Details["got"].(uint32); ok {
				if computed, ok := err.Details["computed"].(uint32); ok {
					fmt.Printf("    sent=0x%08X computed=0x%08X\n", got, computed)
				}
			}

		case testcomm.AnomalyLengthField:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if length, ok := err.Details["length"].(uint16); ok {
				fmt.Printf("    length=%d\n", length)
			}

		case testcomm.AnomalyIDRange, testcomm.AnomalyUnknownBoard, testcomm.AnomalyIDKindMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  idx=%d board_tag=0x%02X side=0x%02X\n", f.Header.CommIndex, f.Payload[0], f.Header.SideTag)
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(ctx context.Context, bus canbus.Bus, connInfo string, channels []int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	// Poll errors would tear the screen
	log.SetOutput(programLogWriter{p: p})
	defer log.SetOutput(os.Stderr)

	go func() {
		err := pollFrames(ctx, bus, channels, func(ev frameEvent) {
			p.Send(frameMsg(ev))
		})
		if errors.Is(err, canbus.ErrClosed) {
			p.Send(logMsg("Bus closed"))
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(ctx context.Context, bus canbus.Bus, connInfo string, channels []int) error {
	fmt.Printf("Boardsim - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := testcomm.NewStatistics()

	events := make(chan frameEvent, 256)
	pollErr := make(chan error, 1)
	go func() {
		pollErr <- pollFrames(ctx, bus, channels, func(ev frameEvent) {
			events <- ev
		})
	}()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case ev := <-events:
			stats.RecordReceived(ev.decodeErr, ev.validation)

			switch {
			case ev.decodeErr != nil:
				printDecodeError(ev)
			case len(ev.validation) > 0:
				printValidationErrors(ev)
			case showAll:
				fmt.Printf("[%s] cha%d %s\n", time.Now().Format("15:04:05.000"), ev.channel+1, testcomm.FormatID(ev.raw.ID))
				fmt.Print(testcomm.FormatFrame(ev.frame))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-pollErr:
			fmt.Println()
			fmt.Print(stats.String())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, canbus.ErrClosed) {
				log.Printf("Bus closed")
				return nil
			}
			return err
		}
	}
}
