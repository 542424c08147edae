// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

var (
	probeTimeout int
)

var errProbeDone = errors.New("probe done")

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test connection by waiting for a valid frame",
	Long: `Wait for a valid 64 byte frame on any channel until timeout.

This command opens the SLCAN adapters or the WebSocket bridge and waits for
any frame that decodes and passes both trailer checks. Invalid frames are
counted and skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for testing adapter wiring before starting a run.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(probeTimeout)*time.Second)
	defer cancel()

	bus, connInfo, err := OpenBus(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Boardsim - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	channels := make([]int, bus.Channels())
	for i := range channels {
		channels[i] = i
	}

	invalidFrames := 0
	var found *frameEvent
	pollCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	err = pollFrames(pollCtx, bus, channels, func(ev frameEvent) {
		if found != nil {
			return
		}
		if ev.decodeErr != nil || len(ev.validation) > 0 {
			invalidFrames++
			return
		}
		found = &ev
		stop(errProbeDone)
	})

	if found != nil {
		if invalidFrames > 0 {
			fmt.Printf("(skipped %d invalid frames)\n", invalidFrames)
		}
		f := found.frame
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Channel: %d\n", found.channel+1)
		fmt.Printf("  ID: %s\n", testcomm.FormatID(found.raw.ID))
		fmt.Printf("  Kind: %s (%d)\n", testcomm.FormatKindCode(f.Header.Kind), f.Header.Kind)
		fmt.Printf("  Index: %d\n", f.Header.CommIndex)
		fmt.Printf("  CRCM: 0x%08X CRC: 0x%08X\n", f.Trailer.CRCM, f.Trailer.CRC)
		bus.Close()
		os.Exit(0)
	}

	bus.Close()
	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds (%d invalid)\n", probeTimeout, invalidFrames)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
	os.Exit(2)
	return nil
}
