// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// SLCAN adapter flags
	portName  string
	port2Name string
	baudRate  int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
	wsChannels    int
)

var rootCmd = &cobra.Command{
	Use:   "boardsim",
	Short: "CAN FD Peripheral Board Emulator",
	Long: `Boardsim - A CLI tool that emulates the boards of a CAN FD control system.

Runs INI test plans as the Controller (MS) or as one of the peripheral boards
(DI, DO, FI, AI), emitting 64 byte frames with CRC and CRCM trailers, and
monitors a bus for malformed frames.

Connection modes:
  SLCAN:     --port /dev/ttyACM0 [--port2 /dev/ttyACM1] [--baud 115200]
  WebSocket: --url ws://host/path [--username user] [--channels 2]

Each SLCAN adapter carries one CAN channel: --port is channel 1, --port2 is
channel 2. For WebSocket authentication, the password is read from the
BOARDSIM_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	// SLCAN adapter flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "SLCAN adapter for channel 1")
	rootCmd.PersistentFlags().StringVar(&port2Name, "port2", "", "SLCAN adapter for channel 2")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	rootCmd.PersistentFlags().IntVar(&wsChannels, "channels", 2, "CAN channels carried by the bridge (WebSocket only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
