// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package actisense implements the Actisense NGT-1 binary serial format used
// to carry NMEA 2000 frames between the bridge and a host.
//
// A message on the wire is DLE STX <cmd> <len> <payload> <checksum> DLE ETX.
// DLE bytes inside the body are doubled. The checksum makes the byte sum of
// cmd, len, payload and checksum zero modulo 256.
package actisense

// Framing bytes
const (
	DLE = 0x10
	STX = 0x02
	ETX = 0x03
)

// Commands
const (
	CmdN2KReceived = 0x93 // Bus to host, carries source and timestamp
	CmdN2KSend     = 0x94 // Host to bus, source chosen by the receiver
)

// Body layout sizes
const (
	MaxBodySize        = 258 // cmd + len + 255 payload + checksum
	receivedHeaderSize = 11  // prio, pgn(3), dst, src, time(4), len
	sendHeaderSize     = 6   // prio, pgn(3), dst, len
)

// Raw bytes kept for diagnostics are capped at a fully escaped maximum frame
const maxRawSize = MaxBodySize*2 + 4

// Decoder states
const (
	stateIdle = iota
	stateCollecting
	stateEscaping
)
