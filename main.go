// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Boardsim - CAN FD Peripheral Board Emulator
//
// A CLI tool that plays the Controller or a peripheral board of a CAN FD
// backplane from an INI test plan, and validates the frames on the bus.

package main

import (
	"os"

	"github.com/Thermoquad/boardsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
