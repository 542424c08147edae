// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEchoBridge starts a bridge that sends every binary message back. When
// hangup is closed the bridge drops the connection.
func newEchoBridge(t *testing.T, hangup <-chan struct{}) (string, <-chan http.Header) {
	t.Helper()
	headers := make(chan http.Header, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			<-hangup
			conn.Close()
		}()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), headers
}

// pollUntil polls channel until a frame arrives or a second passes
func pollUntil(t *testing.T, bus Bus, channel int) []Frame {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		frames, err := bus.Poll(channel)
		require.NoError(t, err)
		if len(frames) > 0 {
			return frames
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no frame on channel %d", channel)
	return nil
}

// ============================================================
// WebSocketBus Tests
// ============================================================

func TestWebSocketBus_EmitAndReceive(t *testing.T) {
	hangup := make(chan struct{})
	url, headers := newEchoBridge(t, hangup)
	defer close(hangup)

	bus, err := DialWebSocket(context.Background(), WebSocketConfig{
		URL:      url,
		Username: "tester",
		Password: "secret",
	})
	require.NoError(t, err)
	defer bus.Close()

	assert.Equal(t, 2, bus.Channels(), "default channel count")
	h := <-headers
	assert.Equal(t, "Basic dGVzdGVyOnNlY3JldA==", h.Get("Authorization"))

	data := make([]byte, 64)
	data[0] = 0x5A
	require.NoError(t, bus.Emit(1, 0x306, data))

	frames := pollUntil(t, bus, 1)
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(0x306), frames[0].ID)
	assert.Equal(t, data, frames[0].Data)
	assert.True(t, frames[0].FD)
	assert.True(t, frames[0].BRS)

	// Nothing was sent on channel 0
	frames, err = bus.Poll(0)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestWebSocketBus_BridgeHangupClosesBus(t *testing.T) {
	hangup := make(chan struct{})
	url, _ := newEchoBridge(t, hangup)

	bus, err := DialWebSocket(context.Background(), WebSocketConfig{URL: url, Channels: 1})
	require.NoError(t, err)
	defer bus.Close()

	close(hangup)

	deadline := time.Now().Add(time.Second)
	for {
		_, err = bus.Poll(0)
		if err != nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
}

func TestWebSocketBus_ClosedBus(t *testing.T) {
	hangup := make(chan struct{})
	url, _ := newEchoBridge(t, hangup)
	defer close(hangup)

	bus, err := DialWebSocket(context.Background(), WebSocketConfig{URL: url})
	require.NoError(t, err)
	require.NoError(t, bus.Close())
	assert.NoError(t, bus.Close(), "second close is a no-op")

	assert.ErrorIs(t, bus.Emit(0, 0x1, []byte{1, 2}), ErrClosed)
	_, err = bus.Poll(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDialWebSocket_BadURL(t *testing.T) {
	_, err := DialWebSocket(context.Background(), WebSocketConfig{URL: "http://example.invalid/can"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}
