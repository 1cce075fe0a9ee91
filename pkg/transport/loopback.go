// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"sync"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// Default buffer sizes, matching the firmware's CAN frame buffers
const (
	DefaultSendBuffer    = 500
	DefaultReceiveBuffer = 500
)

// Loopback is an in-memory bus. Sent frames wait in a bounded send queue
// until drained by the other side of the bus; injected frames wait in a
// bounded receive queue. With Echo set, every sent frame is also delivered
// to the receive queue, the way a CAN controller in loopback mode behaves.
type Loopback struct {
	mu      sync.Mutex
	send    []n2k.Frame
	recv    []n2k.Frame
	sendCap int
	recvCap int
	echo    bool
	closed  bool
	stats   Stats
}

// NewLoopback creates an in-memory bus with the given queue capacities
func NewLoopback(sendBuffer, receiveBuffer int, echo bool) *Loopback {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	if receiveBuffer <= 0 {
		receiveBuffer = DefaultReceiveBuffer
	}
	return &Loopback{
		send:    make([]n2k.Frame, 0, sendBuffer),
		recv:    make([]n2k.Frame, 0, receiveBuffer),
		sendCap: sendBuffer,
		recvCap: receiveBuffer,
		echo:    echo,
	}
}

// Send queues a frame for transmission
func (l *Loopback) Send(frame n2k.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if len(l.send) >= l.sendCap {
		l.stats.dropped.Add(1)
		return ErrBusBusy
	}
	l.send = append(l.send, frame)
	l.stats.sent.Add(1)

	if l.echo {
		l.deliver(frame)
	}
	return nil
}

// TryReceive returns the oldest received frame, if any
func (l *Loopback) TryReceive() (n2k.Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.recv) == 0 {
		return n2k.Frame{}, false
	}
	frame := l.recv[0]
	l.recv = l.recv[1:]
	l.stats.received.Add(1)
	return frame, true
}

// Inject places a frame on the receive queue as if another device sent it.
// Returns false when the receive queue is full.
func (l *Loopback) Inject(frame n2k.Frame) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	return l.deliver(frame)
}

// Drain removes and returns every frame waiting in the send queue
func (l *Loopback) Drain() []n2k.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.send
	l.send = make([]n2k.Frame, 0, l.sendCap)
	return out
}

// Pending returns the number of frames waiting in the send queue
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.send)
}

// Echoes reports whether sent frames are delivered back to the receive queue
func (l *Loopback) Echoes() bool {
	return l.echo
}

// Err returns ErrClosed once the loopback is closed
func (l *Loopback) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

// Stats returns the loopback's frame counters
func (l *Loopback) Stats() *Stats {
	return &l.stats
}

// Close rejects further sends and injections
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// deliver appends to the receive queue; the caller holds mu
func (l *Loopback) deliver(frame n2k.Frame) bool {
	if len(l.recv) >= l.recvCap {
		return false
	}
	l.recv = append(l.recv, frame)
	return true
}
