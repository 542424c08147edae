// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"sync"
	"time"
)

// WriteRecord is one frame emitted on a MemoryBus
type WriteRecord struct {
	Channel int
	ID      uint32
	Data    []byte
	Time    time.Time
}

// MemoryBus is a virtual bus. Emitted frames are recorded and, when the bus
// is one half of a pair, delivered to the peer's inbound queue on the same
// channel.
type MemoryBus struct {
	mu       sync.Mutex
	channels int
	inbound  [][]Frame
	writes   []WriteRecord
	peer     *MemoryBus
	closed   bool
	start    time.Time

	failEmits int
	failErr   error
}

// NewMemoryBus creates a standalone virtual bus with the given channel count
func NewMemoryBus(channels int) *MemoryBus {
	return &MemoryBus{
		channels: channels,
		inbound:  make([][]Frame, channels),
		start:    time.Now(),
	}
}

// NewPair creates two virtual buses wired to each other
func NewPair(channels int) (*MemoryBus, *MemoryBus) {
	a := NewMemoryBus(channels)
	b := NewMemoryBus(channels)
	b.start = a.start
	a.peer = b
	b.peer = a
	return a, b
}

// Channels returns the channel count
func (m *MemoryBus) Channels() int {
	return m.channels
}

// Poll drains the inbound queue of a channel
func (m *MemoryBus) Poll(channel int) ([]Frame, error) {
	if err := checkChannel("poll", channel, m.channels); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &TransportError{Channel: channel, Op: "poll", Err: ErrClosed}
	}
	frames := m.inbound[channel]
	m.inbound[channel] = nil
	return frames, nil
}

// Emit records a frame and forwards it to the peer
func (m *MemoryBus) Emit(channel int, id uint32, data []byte) error {
	if err := checkChannel("emit", channel, m.channels); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return &TransportError{Channel: channel, Op: "emit", Err: ErrClosed}
	}
	if m.failEmits > 0 {
		m.failEmits--
		err := m.failErr
		m.mu.Unlock()
		return &TransportError{Channel: channel, Op: "emit", Err: err}
	}
	m.writes = append(m.writes, WriteRecord{
		Channel: channel,
		ID:      id,
		Data:    append([]byte{}, data...),
		Time:    time.Now(),
	})
	peer := m.peer
	m.mu.Unlock()

	// peer lock is taken without holding ours
	if peer != nil {
		peer.Inject(channel, Frame{ID: id, Data: append([]byte{}, data...), FD: true, BRS: true})
	}
	return nil
}

// Inject queues an inbound frame as if it had been received on channel.
// A zero timestamp is replaced by the time since the bus was created.
func (m *MemoryBus) Inject(channel int, f Frame) error {
	if err := checkChannel("inject", channel, m.channels); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &TransportError{Channel: channel, Op: "inject", Err: ErrClosed}
	}
	if f.TimestampUS == 0 {
		f.TimestampUS = uint64(time.Since(m.start) / time.Microsecond)
	}
	m.inbound[channel] = append(m.inbound[channel], f)
	return nil
}

// Writes returns a copy of every frame emitted so far
func (m *MemoryBus) Writes() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WriteRecord{}, m.writes...)
}

// FailEmits makes the next n emissions fail with err
func (m *MemoryBus) FailEmits(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failEmits = n
	m.failErr = err
}

// Close stops the bus. Further operations return ErrClosed.
func (m *MemoryBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.inbound = make([][]Frame, m.channels)
	return nil
}
