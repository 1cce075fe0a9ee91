// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"golang.org/x/sys/unix"
)

// SocketCAN is a bus over a Linux raw CAN socket (e.g. can0, vcan0).
// The socket is non-blocking; a full kernel transmit queue is reported
// as ErrBusBusy.
type SocketCAN struct {
	fd      int
	iface   string
	start   time.Time
	stats   Stats
	rxBuf   [canFrameSize]byte
	txBuf   [canFrameSize]byte
	lastErr error
}

// OpenSocketCAN opens a raw CAN socket bound to the named interface.
// sendBuffer and receiveBuffer size the kernel socket buffers in frames.
func OpenSocketCAN(iface string, sendBuffer, receiveBuffer int) (*SocketCAN, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("failed to find CAN interface %s: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to open CAN socket: %w", err)
	}

	if sendBuffer > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sendBuffer*canFrameSize); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set CAN send buffer: %w", err)
		}
	}
	if receiveBuffer > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, receiveBuffer*canFrameSize); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set CAN receive buffer: %w", err)
		}
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind CAN socket to %s: %w", iface, err)
	}

	return &SocketCAN{fd: fd, iface: iface, start: time.Now()}, nil
}

// Send writes one frame to the socket
func (s *SocketCAN) Send(frame n2k.Frame) error {
	if s.fd < 0 {
		return ErrClosed
	}
	marshalCANFrame(frame, s.txBuf[:])
	_, err := unix.Write(s.fd, s.txBuf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENOBUFS) {
			s.stats.dropped.Add(1)
			return ErrBusBusy
		}
		return fmt.Errorf("CAN write on %s: %w", s.iface, err)
	}
	s.stats.sent.Add(1)
	return nil
}

// TryReceive reads one frame if the socket has one waiting. Frames that are
// not N2K (standard IDs, RTR, error frames) are skipped.
func (s *SocketCAN) TryReceive() (n2k.Frame, bool) {
	for s.fd >= 0 {
		n, err := unix.Read(s.fd, s.rxBuf[:])
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
				s.lastErr = fmt.Errorf("CAN read on %s: %w", s.iface, err)
			}
			return n2k.Frame{}, false
		}
		if n < canFrameSize {
			return n2k.Frame{}, false
		}
		frame, err := unmarshalCANFrame(s.rxBuf[:n])
		if err != nil {
			continue
		}
		s.stats.received.Add(1)
		return frame.WithTimestamp(uint32(time.Since(s.start).Milliseconds())), true
	}
	return n2k.Frame{}, false
}

// Err returns the last non-transient read error, or ErrClosed after Close
func (s *SocketCAN) Err() error {
	if s.lastErr == nil && s.fd < 0 {
		return ErrClosed
	}
	return s.lastErr
}

// Stats returns the socket's frame counters
func (s *SocketCAN) Stats() *Stats {
	return &s.stats
}

// Close closes the socket
func (s *SocketCAN) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
