// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/boardsim/pkg/testcomm"
	"github.com/Thermoquad/boardsim/pkg/testplan"
)

var checkCmd = &cobra.Command{
	Use:   "check <plan.ini>",
	Short: "Validate a test plan without opening a bus",
	Long: `Load a test plan, report configuration errors and print what the run
would do: the emulated board, its identifiers and every step.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	plan, err := testplan.Load(args[0])
	if err != nil {
		return err
	}

	board, err := testcomm.BoardFor(plan.Board)
	if err != nil {
		return err
	}

	printPlanSummary(os.Stdout, args[0], plan)

	fmt.Printf("Identifiers:\n")
	for _, kind := range []testcomm.PackageKind{testcomm.KindState, testcomm.KindVersion, testcomm.KindRequest, testcomm.KindRequestSecondary} {
		if !board.Supports(kind) {
			continue
		}
		fmt.Printf("  %-5s %s\n", kind, testcomm.FormatID(board.MakeID(kind, plan.Side)))
	}
	if plan.Mode == testcomm.ModePeripheral {
		fmt.Printf("Replies per request: %d\n", board.ReplyCount())
	}
	fmt.Printf("OK\n")
	return nil
}
