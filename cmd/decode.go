// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

var decodeID string

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode and validate a captured frame",
	Long: `Decode a 64 byte frame given as hex and check its trailers and header.

Whitespace and ':' separators in the hex string are ignored. With --id the
CAN identifier the frame was received on is checked against the header too.

Exit status is non-zero if the frame fails validation.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeID, "id", "", "CAN identifier the frame was received on (hex)")
}

// parseHexFrame strips separators and decodes a hex string
func parseHexFrame(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %v", err)
	}
	return data, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := parseHexFrame(args[0])
	if err != nil {
		return err
	}

	f, err := testcomm.DecodeFrame(data)
	if err != nil {
		return err
	}

	issues := testcomm.ValidateFrame(f)
	if decodeID != "" {
		id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(decodeID), "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid --id %q: %v", decodeID, err)
		}
		fmt.Printf("ID: %s\n", testcomm.FormatID(uint32(id)))
		issues = append(issues, testcomm.ValidateFrameID(uint32(id), f)...)
	}

	fmt.Print(testcomm.FormatFrame(f))
	fmt.Println()

	if len(issues) == 0 {
		fmt.Printf("VALID\n")
		return nil
	}
	for i, issue := range issues {
		fmt.Printf("Issue %d [%s]: %s\n", i+1, issue.Type, issue.Message)
	}
	return fmt.Errorf("frame failed validation with %d issue(s)", len(issues))
}
