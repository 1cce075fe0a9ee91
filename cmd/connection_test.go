// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bridgeServer plays a WebSocket serial bridge: it sends msgs, reports the
// request's Basic auth, then closes
func bridgeServer(t *testing.T, msgs []wsMessage, auth chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth != nil {
			user, pass, _ := r.BasicAuth()
			auth <- user + ":" + pass
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteMessage(m.kind, m.data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type wsMessage struct {
	kind int
	data []byte
}

func wsAddr(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketStream_ReadsAcrossMessages(t *testing.T) {
	srv := bridgeServer(t, []wsMessage{
		{websocket.BinaryMessage, []byte{0x10, 0x02, 0x93}},
		{websocket.TextMessage, []byte("ignored")},
		{websocket.BinaryMessage, []byte{}},
		{websocket.BinaryMessage, []byte{0x05, 0x10, 0x03}},
	}, nil)

	conn, err := DialWebSocket(context.Background(), wsEndpoint{URL: wsAddr(srv)})
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 6)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x02, 0x93, 0x05, 0x10, 0x03}, buf)

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed, "error is sticky")
}

func TestWebSocketEndpoint_BasicAuth(t *testing.T) {
	t.Setenv(passwordEnv, "secret")
	auth := make(chan string, 1)
	srv := bridgeServer(t, nil, auth)

	conn, err := wsEndpoint{URL: wsAddr(srv), Username: "helm"}.dial(context.Background())
	require.NoError(t, err)
	conn.Close()

	assert.Equal(t, "helm:secret", <-auth)
}

func TestWebSocketEndpoint_RejectsScheme(t *testing.T) {
	_, err := wsEndpoint{URL: "http://localhost/ws"}.dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}
