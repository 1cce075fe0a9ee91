// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection is an Actisense byte stream: a serial port or a WebSocket
// serial bridge
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// passwordEnv holds the WebSocket password
const passwordEnv = "N2KBRIDGE_PASSWORD"

const (
	handshakeTimeout = 10 * time.Second
	dialTimeout      = 15 * time.Second
)

// ErrConnectionClosed is returned by every read after the WebSocket failed
var ErrConnectionClosed = errors.New("websocket connection closed")

// OpenSerialConnection opens a serial port at 8N1
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}

// wsEndpoint is a WebSocket serial bridge or status server
type wsEndpoint struct {
	URL        string
	Username   string
	SkipVerify bool
}

// flagEndpoint returns the endpoint given by --url, --username and
// --no-ssl-verify
func flagEndpoint() wsEndpoint {
	return wsEndpoint{URL: wsURL, Username: wsUsername, SkipVerify: wsNoSSLVerify}
}

// dial connects to the endpoint. With a username set, the password comes
// from N2KBRIDGE_PASSWORD or a prompt and is sent as HTTP Basic auth.
func (e wsEndpoint) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(e.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	switch u.Scheme {
	case "ws":
	case "wss":
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: e.SkipVerify}
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	headers := http.Header{}
	if e.Username != "" {
		password, err := readPassword()
		if err != nil {
			return nil, err
		}
		credentials := base64.StdEncoding.EncodeToString([]byte(e.Username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, e.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return conn, nil
}

// DialWebSocket opens an Actisense byte stream carried in binary WebSocket
// messages
func DialWebSocket(ctx context.Context, e wsEndpoint) (Connection, error) {
	conn, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	return &wsStream{conn: conn}, nil
}

// wsStream reads across message boundaries; frames may be split over
// several binary messages. Text messages are skipped.
type wsStream struct {
	conn *websocket.Conn
	msg  io.Reader
	err  error
}

func (s *wsStream) Read(p []byte) (int, error) {
	for s.err == nil {
		if s.msg == nil {
			kind, r, err := s.conn.NextReader()
			if err != nil {
				s.err = fmt.Errorf("%w: %w", ErrConnectionClosed, err)
				break
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			s.msg = r
		}

		n, err := s.msg.Read(p)
		if errors.Is(err, io.EOF) {
			s.msg = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
	return 0, s.err
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

// readPassword reads the password from the environment or prompts for it
// on stderr without echo
func readPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	if pw, err := term.ReadPassword(int(syscall.Stdin)); err == nil {
		return string(pw), nil
	}

	// stdin is not a terminal
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenConnection opens the connection named by --url or --port
func OpenConnection() (Connection, string, error) {
	switch {
	case wsURL != "":
		conn, err := DialWebSocket(context.Background(), flagEndpoint())
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil

	case portName != "":
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}
	return nil, "", errors.New("either --port or --url must be specified")
}
