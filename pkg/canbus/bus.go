// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package canbus provides the CAN FD transports boardsim runs on: an
// in-memory bus for tests and loopback runs, SLCAN adapters on serial ports
// and a WebSocket bridge carrying CBOR encoded frames.
package canbus

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed bus
var ErrClosed = errors.New("bus closed")

// Frame is one raw CAN frame as seen on a channel
type Frame struct {
	ID          uint32
	Data        []byte
	FD          bool
	BRS         bool
	TimestampUS uint64 // receive time, microseconds since the bus was opened
}

// Bus is a set of CAN channels. Poll never blocks: it returns the frames
// received since the previous call, possibly none.
type Bus interface {
	Channels() int
	Poll(channel int) ([]Frame, error)
	Emit(channel int, id uint32, data []byte) error
	Close() error
}

// TransportError reports a failed bus operation on one channel
type TransportError struct {
	Channel int
	Op      string
	Err     error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on channel %d: %v", e.Op, e.Channel, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// checkChannel validates a channel index against the bus size
func checkChannel(op string, channel, count int) error {
	if channel < 0 || channel >= count {
		return &TransportError{Channel: channel, Op: op, Err: fmt.Errorf("no such channel (bus has %d)", count)}
	}
	return nil
}
