// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig describes a connection to a CAN bridge
type WebSocketConfig struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
	Channels      int
}

// WebSocketBus exchanges CBOR envelopes with a remote CAN bridge. Each
// binary message carries one frame and the channel it belongs to.
type WebSocketBus struct {
	conn     *websocket.Conn
	channels int

	writeMu sync.Mutex

	mu      sync.Mutex
	inbound [][]Frame
	readErr error

	done chan struct{}
	once sync.Once
}

// DialWebSocket connects to a bridge with optional HTTP Basic auth
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (*WebSocketBus, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	channels := cfg.Channels
	if channels <= 0 {
		channels = 2
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if cfg.Username != "" && cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocketBus(conn, channels), nil
}

// NewWebSocketBus wraps an established connection and starts its reader
func NewWebSocketBus(conn *websocket.Conn, channels int) *WebSocketBus {
	b := &WebSocketBus{
		conn:     conn,
		channels: channels,
		inbound:  make([][]Frame, channels),
		done:     make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *WebSocketBus) readLoop() {
	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			// gorilla read errors are permanent
			b.mu.Lock()
			if b.readErr == nil {
				b.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
			}
			b.mu.Unlock()
			return
		}

		// Only binary messages carry frames
		if messageType != websocket.BinaryMessage {
			continue
		}

		channel, frame, err := DecodeEnvelope(data)
		if err != nil {
			log.Printf("Dropping bridge message: %v", err)
			continue
		}
		if channel < 0 || channel >= b.channels {
			log.Printf("Dropping frame 0x%03X for unknown channel %d", frame.ID, channel)
			continue
		}

		b.mu.Lock()
		b.inbound[channel] = append(b.inbound[channel], frame)
		b.mu.Unlock()
	}
}

// Channels returns the configured channel count
func (b *WebSocketBus) Channels() int {
	return b.channels
}

// Poll drains frames received on channel. Once the connection has failed
// the read error is returned.
func (b *WebSocketBus) Poll(channel int) ([]Frame, error) {
	if err := checkChannel("poll", channel, b.channels); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		return nil, &TransportError{Channel: channel, Op: "poll", Err: ErrClosed}
	}
	frames := b.inbound[channel]
	b.inbound[channel] = nil
	if len(frames) == 0 && b.readErr != nil {
		return nil, &TransportError{Channel: channel, Op: "poll", Err: b.readErr}
	}
	return frames, nil
}

// Emit sends one FD frame to the bridge
func (b *WebSocketBus) Emit(channel int, id uint32, data []byte) error {
	if err := checkChannel("emit", channel, b.channels); err != nil {
		return err
	}
	if b.isClosed() {
		return &TransportError{Channel: channel, Op: "emit", Err: ErrClosed}
	}

	msg, err := EncodeEnvelope(channel, Frame{ID: id, Data: data, FD: true, BRS: true})
	if err != nil {
		return &TransportError{Channel: channel, Op: "emit", Err: err}
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		return &TransportError{Channel: channel, Op: "emit", Err: err}
	}
	return nil
}

// Close sends a close message and closes the connection
func (b *WebSocketBus) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		b.writeMu.Lock()
		b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		b.writeMu.Unlock()
		err = b.conn.Close()
	})
	return err
}

func (b *WebSocketBus) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
