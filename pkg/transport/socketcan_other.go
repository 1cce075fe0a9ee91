// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !linux

package transport

import (
	"errors"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// SocketCAN is only available on Linux
type SocketCAN struct{}

// OpenSocketCAN always fails on this platform
func OpenSocketCAN(iface string, sendBuffer, receiveBuffer int) (*SocketCAN, error) {
	return nil, errors.New("socketcan: only supported on linux")
}

func (s *SocketCAN) Send(frame n2k.Frame) error    { return ErrClosed }
func (s *SocketCAN) TryReceive() (n2k.Frame, bool) { return n2k.Frame{}, false }
func (s *SocketCAN) Err() error                    { return nil }
func (s *SocketCAN) Stats() *Stats                 { return &Stats{} }
func (s *SocketCAN) Close() error                  { return nil }
