// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	rxQueueSize     = 1024
	serialReadPause = 50 * time.Millisecond
)

// DefaultSLCANSetup closes the channel, selects 500 kbit/s nominal and
// 2 Mbit/s data bit rate, then opens the channel.
var DefaultSLCANSetup = []string{"C", "S6", "Y2", "O"}

// SerialConfig describes SLCAN adapters, one serial port per CAN channel
type SerialConfig struct {
	Ports    []string
	BaudRate int
	Setup    []string // commands sent on open, DefaultSLCANSetup if nil
}

// SerialBus drives SLCAN FD adapters
type SerialBus struct {
	ports   []serial.Port
	names   []string
	queues  []chan Frame
	writeMu []sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
	start   time.Time
	once    sync.Once
}

// OpenSerial opens and initializes every adapter in cfg
func OpenSerial(cfg SerialConfig) (*SerialBus, error) {
	if len(cfg.Ports) == 0 {
		return nil, fmt.Errorf("no serial ports given")
	}
	setup := cfg.Setup
	if setup == nil {
		setup = DefaultSLCANSetup
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	b := &SerialBus{
		names:   cfg.Ports,
		queues:  make([]chan Frame, len(cfg.Ports)),
		writeMu: make([]sync.Mutex, len(cfg.Ports)),
		done:    make(chan struct{}),
		start:   time.Now(),
	}

	for i, name := range cfg.Ports {
		port, err := serial.Open(name, mode)
		if err != nil {
			b.closePorts()
			return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
		}
		b.ports = append(b.ports, port)

		if err := port.SetReadTimeout(serialReadPause); err != nil {
			b.closePorts()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
		}
		for _, cmd := range setup {
			if _, err := port.Write([]byte(cmd + "\r")); err != nil {
				b.closePorts()
				return nil, fmt.Errorf("failed to initialize adapter on %s: %w", name, err)
			}
		}
		b.queues[i] = make(chan Frame, rxQueueSize)
	}

	for i := range b.ports {
		b.wg.Add(1)
		go b.readerLoop(i)
	}

	return b, nil
}

// readerLoop decodes SLCAN lines from one port into its queue
func (b *SerialBus) readerLoop(channel int) {
	defer b.wg.Done()

	decoder := NewSLCANDecoder()
	port := b.ports[channel]
	buf := make([]byte, 256)

	for {
		select {
		case <-b.done:
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			select {
			case <-b.done:
				return
			default:
			}
			log.Printf("Read error on %s: %v", b.names[channel], err)
			time.Sleep(serialReadPause)
			continue
		}

		for i := 0; i < n; i++ {
			frame, err := decoder.DecodeByte(buf[i])
			if err != nil {
				log.Printf("SLCAN error on %s: %v", b.names[channel], err)
				continue
			}
			if frame == nil {
				continue
			}
			frame.TimestampUS = uint64(time.Since(b.start) / time.Microsecond)
			select {
			case b.queues[channel] <- *frame:
			default:
				log.Printf("Receive queue full on %s, frame 0x%03X dropped", b.names[channel], frame.ID)
			}
		}
	}
}

// Channels returns the number of adapters
func (b *SerialBus) Channels() int {
	return len(b.ports)
}

// Poll drains the frames received on channel
func (b *SerialBus) Poll(channel int) ([]Frame, error) {
	if err := checkChannel("poll", channel, len(b.ports)); err != nil {
		return nil, err
	}
	select {
	case <-b.done:
		return nil, &TransportError{Channel: channel, Op: "poll", Err: ErrClosed}
	default:
	}

	var frames []Frame
	for {
		select {
		case f := <-b.queues[channel]:
			frames = append(frames, f)
		default:
			return frames, nil
		}
	}
}

// Emit sends an FD frame with bit rate switch
func (b *SerialBus) Emit(channel int, id uint32, data []byte) error {
	if err := checkChannel("emit", channel, len(b.ports)); err != nil {
		return err
	}
	select {
	case <-b.done:
		return &TransportError{Channel: channel, Op: "emit", Err: ErrClosed}
	default:
	}

	line, err := EncodeSLCAN(Frame{ID: id, Data: data, FD: true, BRS: true})
	if err != nil {
		return &TransportError{Channel: channel, Op: "emit", Err: err}
	}

	b.writeMu[channel].Lock()
	defer b.writeMu[channel].Unlock()
	if _, err := b.ports[channel].Write([]byte(line)); err != nil {
		return &TransportError{Channel: channel, Op: "emit", Err: err}
	}
	return nil
}

// Close closes the CAN channels and the serial ports
func (b *SerialBus) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		b.wg.Wait()
		for _, port := range b.ports {
			port.Write([]byte("C\r"))
		}
		err = b.closePorts()
	})
	return err
}

func (b *SerialBus) closePorts() error {
	var firstErr error
	for _, port := range b.ports {
		if err := port.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
