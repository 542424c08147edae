// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/boardsim/pkg/canbus"
)

// PasswordEnv is the environment variable holding the bridge password
const PasswordEnv = "BOARDSIM_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// serialPorts returns the configured adapters in channel order
func serialPorts() []string {
	ports := []string{portName}
	if port2Name != "" {
		ports = append(ports, port2Name)
	}
	return ports
}

// OpenBus opens either SLCAN adapters or a WebSocket bridge based on flags
func OpenBus(ctx context.Context) (canbus.Bus, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		bus, err := canbus.DialWebSocket(ctx, canbus.WebSocketConfig{
			URL:           wsURL,
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
			Channels:      wsChannels,
		})
		if err != nil {
			return nil, "", err
		}

		return bus, fmt.Sprintf("WebSocket: %s (%d channels)", wsURL, bus.Channels()), nil
	}

	if portName != "" {
		ports := serialPorts()
		bus, err := canbus.OpenSerial(canbus.SerialConfig{
			Ports:    ports,
			BaudRate: baudRate,
		})
		if err != nil {
			return nil, "", err
		}

		return bus, fmt.Sprintf("SLCAN: %s @ %d baud", strings.Join(ports, ", "), baudRate), nil
	}

	if port2Name != "" {
		return nil, "", fmt.Errorf("--port2 requires --port")
	}
	return nil, "", fmt.Errorf("either --port or --url must be specified")
}
