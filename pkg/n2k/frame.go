// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package n2k models NMEA 2000 bus frames and the parts of the protocol the
// bridge needs to route them: 29-bit CAN identifiers, source addresses and
// the ISO NAME carried by address claims.
package n2k

import (
	"errors"
	"fmt"
)

// Frame size limits
const (
	MaxDataLen  = 8
	MaxPGN      = 0x3FFFF
	MaxPriority = 7
)

// Special addresses
const (
	MaxDeviceAddress = 251  // Highest address a device may claim
	AddressNull      = 254  // Used by devices that failed to claim
	AddressGlobal    = 255  // Broadcast destination
	AddressUnset     = 0xFF // Source not specified by the encoding
)

var (
	ErrInvalidPGN      = errors.New("n2k: invalid PGN")
	ErrInvalidPriority = errors.New("n2k: invalid priority")
	ErrInvalidLen      = errors.New("n2k: invalid data length")
)

// Frame is a single NMEA 2000 bus frame. It is a value type; once built with
// NewFrame it is never modified in place.
type Frame struct {
	Priority    uint8
	PGN         uint32
	Source      uint8
	Destination uint8
	Timestamp   uint32 // milliseconds
	Len         uint8
	Data        [MaxDataLen]byte
}

// NewFrame builds a validated frame with the given identifier fields and data.
func NewFrame(priority uint8, pgn uint32, source, destination uint8, data []byte) (Frame, error) {
	var f Frame
	if pgn > MaxPGN {
		return f, fmt.Errorf("%w: 0x%X", ErrInvalidPGN, pgn)
	}
	if priority > MaxPriority {
		return f, fmt.Errorf("%w: %d", ErrInvalidPriority, priority)
	}
	if len(data) > MaxDataLen {
		return f, fmt.Errorf("%w: %d", ErrInvalidLen, len(data))
	}
	f.Priority = priority
	f.PGN = pgn
	f.Source = source
	f.Destination = destination
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	return f, nil
}

// MustFrame is NewFrame that panics on invalid input. Intended for tests and
// fixed tables.
func MustFrame(priority uint8, pgn uint32, source, destination uint8, data []byte) Frame {
	f, err := NewFrame(priority, pgn, source, destination, data)
	if err != nil {
		panic(err)
	}
	return f
}

// Payload returns a copy of the frame's data bytes
func (f Frame) Payload() []byte {
	out := make([]byte, f.Len)
	copy(out, f.Data[:f.Len])
	return out
}

// WithSource returns a copy of the frame with the source address replaced
func (f Frame) WithSource(source uint8) Frame {
	f.Source = source
	return f
}

// WithTimestamp returns a copy of the frame with the timestamp replaced
func (f Frame) WithTimestamp(ms uint32) Frame {
	f.Timestamp = ms
	return f
}

// HasSource reports whether the source address was specified
func (f Frame) HasSource() bool {
	return f.Source != AddressUnset
}

// IsPDU1 reports whether the PGN is destination-specific (PF < 240)
func IsPDU1(pgn uint32) bool {
	return (pgn>>8)&0xFF < 0xF0
}

// ID returns the 29-bit CAN identifier for the frame.
// PDU1 PGNs carry the destination address in the PS byte.
func (f Frame) ID() uint32 {
	pgn := f.PGN & MaxPGN
	if IsPDU1(pgn) {
		pgn = (pgn &^ 0xFF) | uint32(f.Destination)
	}
	return uint32(f.Priority&MaxPriority)<<26 | pgn<<8 | uint32(f.Source)
}

// FromCANID builds a frame from a 29-bit CAN identifier and its data bytes.
func FromCANID(id uint32, data []byte) (Frame, error) {
	id &= 0x1FFFFFFF
	priority := uint8(id >> 26 & 0x7)
	source := uint8(id)
	pgn := (id >> 8) & MaxPGN
	destination := uint8(AddressGlobal)
	if IsPDU1(pgn) {
		destination = uint8(pgn)
		pgn &^= 0xFF
	}
	return NewFrame(priority, pgn, source, destination, data)
}

// String returns a compact description of the frame
func (f Frame) String() string {
	return fmt.Sprintf("pgn=%d prio=%d src=%d dst=%d len=%d data=% X",
		f.PGN, f.Priority, f.Source, f.Destination, f.Len, f.Data[:f.Len])
}
