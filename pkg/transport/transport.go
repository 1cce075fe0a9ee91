// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the two I/O boundaries of the bridge: a frame
// oriented field bus and a byte oriented serial link. Both are non-blocking
// so a single goroutine can service them in a poll loop.
package transport

import (
	"errors"
	"sync/atomic"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

var (
	// ErrBusBusy is returned by Send when the bus send buffer is full
	ErrBusBusy = errors.New("transport: bus busy")

	// ErrClosed indicates the transport has been closed
	ErrClosed = errors.New("transport: closed")
)

// Bus is a field bus connection that sends and receives N2K frames
// without blocking.
type Bus interface {
	// Send queues a frame for transmission. Returns ErrBusBusy when the
	// send buffer is full; the frame is not queued in that case.
	Send(frame n2k.Frame) error

	// TryReceive returns the next received frame, or false if none is waiting.
	TryReceive() (n2k.Frame, bool)

	// Stats returns the driver-level counters
	Stats() *Stats

	// Err returns the error that stopped the bus receiving, if any
	Err() error

	Close() error
}

// Stats are frame counters maintained at the driver boundary
type Stats struct {
	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
}

func (s *Stats) FramesSent() uint64     { return s.sent.Load() }
func (s *Stats) FramesReceived() uint64 { return s.received.Load() }
func (s *Stats) FramesDropped() uint64  { return s.dropped.Load() }
