// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

// Server pushes CBOR snapshots of a status block to WebSocket watchers.
// Each watcher gets one binary message per refresh period and a ping every
// pingPeriod; a watcher that stops answering pings is dropped.
type Server struct {
	block      *Block
	driver     DriverCounters
	refresh    time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewServer creates a snapshot server. driver may be nil.
func NewServer(block *Block, driver DriverCounters, refresh time.Duration, log zerolog.Logger) *Server {
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}
	return &Server{
		block:      block,
		driver:     driver,
		refresh:    refresh,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		log:        log.With().Str("component", "status_server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeHTTP upgrades the request and streams snapshots until the watcher
// goes away
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	s.log.Info().Str("remote_addr", r.RemoteAddr).Msg("Watcher connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Watchers only answer pings; a read error means they left
	conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.stream(ctx, conn); err != nil {
		s.log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Watcher stream ended")
	}
	s.log.Info().Str("remote_addr", r.RemoteAddr).Msg("Watcher disconnected")
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	ping := time.NewTicker(s.pingPeriod)
	defer ping.Stop()

	if err := s.writeSnapshot(conn); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return fmt.Errorf("failed to write ping: %w", err)
			}
		case <-ticker.C:
			if err := s.writeSnapshot(conn); err != nil {
				return err
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	data, err := MarshalSnapshot(s.block.Snapshot(s.driver))
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ListenAndServe serves snapshots on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves snapshots on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("Status server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ReadSnapshots delivers every snapshot received on conn to fn until the
// connection fails or ctx is cancelled
func ReadSnapshots(ctx context.Context, conn *websocket.Conn, fn func(Snapshot)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		snap, err := UnmarshalSnapshot(data)
		if err != nil {
			return err
		}
		fn(snap)
	}
}
