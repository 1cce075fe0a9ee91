// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package status

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounters struct{ rx, tx, dropped uint64 }

func (f fixedCounters) FramesReceived() uint64 { return f.rx }
func (f fixedCounters) FramesSent() uint64     { return f.tx }
func (f fixedCounters) FramesDropped() uint64  { return f.dropped }

func dialWatcher(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServer_PushesSnapshots(t *testing.T) {
	block := NewBlock()
	block.IncSent()
	block.SetDevices(4)
	srv := httptest.NewServer(NewServer(block, fixedCounters{rx: 7, tx: 3}, 10*time.Millisecond, zerolog.Nop()))
	defer srv.Close()

	conn := dialWatcher(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, messageType)

	snap, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Sent)
	assert.Equal(t, 4, snap.Devices)
	assert.Equal(t, uint64(7), snap.CANRx)
	assert.Equal(t, uint64(3), snap.CANTx)

	block.SetMaintenance(true)
	for {
		_, data, err = conn.ReadMessage()
		require.NoError(t, err)
		snap, err = UnmarshalSnapshot(data)
		require.NoError(t, err)
		if snap.Maintenance {
			break
		}
	}
}

func TestReadSnapshots(t *testing.T) {
	block := NewBlock()
	srv := httptest.NewServer(NewServer(block, nil, 5*time.Millisecond, zerolog.Nop()))
	defer srv.Close()

	conn := dialWatcher(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Snapshot, 64)
	done := make(chan error, 1)
	go func() {
		done <- ReadSnapshots(ctx, conn, func(s Snapshot) {
			select {
			case got <- s:
			default:
			}
		})
	}()

	select {
	case s := <-got:
		assert.Equal(t, 0, s.Devices)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadSnapshots did not return after cancel")
	}
}

func TestServer_KeepsIdleWatcherAlive(t *testing.T) {
	s := NewServer(NewBlock(), nil, 5*time.Millisecond, zerolog.Nop())
	s.pongWait = 60 * time.Millisecond
	s.pingPeriod = 20 * time.Millisecond
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dialWatcher(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*s.pongWait)
	defer cancel()

	var count int
	var last time.Time
	err := ReadSnapshots(ctx, conn, func(Snapshot) {
		count++
		last = time.Now()
	})

	require.NoError(t, err, "stream must outlive the read deadline")
	assert.Greater(t, count, 0)
	assert.WithinDuration(t, time.Now(), last, s.pongWait)
}

func TestServer_DropsSilentWatcher(t *testing.T) {
	s := NewServer(NewBlock(), nil, 5*time.Millisecond, zerolog.Nop())
	s.pongWait = 30 * time.Millisecond
	s.pingPeriod = time.Hour
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dialWatcher(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseAbnormalClosure), "dropped by the server, got %v", err)
}
