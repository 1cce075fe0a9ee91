// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actisense

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// Decode errors. The decoder has already discarded the partial frame and
// resumed hunting for DLE STX when any of these is returned.
var (
	ErrChecksum       = errors.New("actisense: checksum mismatch")
	ErrBadEscape      = errors.New("actisense: malformed escape sequence")
	ErrOverflow       = errors.New("actisense: frame exceeds maximum size")
	ErrLength         = errors.New("actisense: inconsistent length")
	ErrUnknownCommand = errors.New("actisense: unknown command")
	ErrInvalidFrame   = errors.New("actisense: invalid N2K frame")
)

// Decoder implements the Actisense frame decoder state machine
type Decoder struct {
	state     int
	open      bool   // A frame body is being collected
	buffer    []byte // Unescaped body: cmd, len, payload, checksum
	rawBuffer []byte // Accumulate raw bytes including framing
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, MaxBodySize),
		rawBuffer: make([]byte, 0, maxRawSize),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.open = false
	d.buffer = d.buffer[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the accumulated raw bytes since the last frame start
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns an error if the current frame was discarded as corrupt.
func (d *Decoder) DecodeByte(b byte) (*n2k.Frame, error) {
	if len(d.rawBuffer) >= maxRawSize {
		d.rawBuffer = d.rawBuffer[:0]
	}
	d.rawBuffer = append(d.rawBuffer, b)

	switch d.state {
	case stateIdle:
		// Waiting for DLE STX
		if b == DLE {
			d.state = stateEscaping
		}
		return nil, nil

	case stateCollecting:
		if b == DLE {
			d.state = stateEscaping
			return nil, nil
		}
		return nil, d.push(b)

	case stateEscaping:
		return d.escaped(b)

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// escaped handles the byte following a DLE
func (d *Decoder) escaped(b byte) (*n2k.Frame, error) {
	switch b {
	case STX:
		// Start of frame; also resynchronizes a frame that never ended
		d.begin()
		return nil, nil

	case DLE:
		if !d.open {
			// DLE DLE outside a frame; the second may still start one
			return nil, nil
		}
		d.state = stateCollecting
		return nil, d.push(DLE)

	case ETX:
		if !d.open {
			d.Reset()
			return nil, nil
		}
		return d.finish()

	default:
		if !d.open {
			d.Reset()
			return nil, nil
		}
		d.Reset()
		return nil, fmt.Errorf("%w: DLE 0x%02X", ErrBadEscape, b)
	}
}

func (d *Decoder) begin() {
	d.buffer = d.buffer[:0]
	d.rawBuffer = append(d.rawBuffer[:0], DLE, STX)
	d.open = true
	d.state = stateCollecting
}

func (d *Decoder) push(b byte) error {
	if len(d.buffer) >= MaxBodySize {
		d.Reset()
		return fmt.Errorf("%w: more than %d body bytes", ErrOverflow, MaxBodySize)
	}
	d.buffer = append(d.buffer, b)
	return nil
}

// finish validates the collected body and returns the decoded frame
func (d *Decoder) finish() (*n2k.Frame, error) {
	body := d.buffer
	defer d.Reset()

	if len(body) < 3 {
		return nil, fmt.Errorf("%w: body of %d bytes", ErrLength, len(body))
	}
	if int(body[1]) != len(body)-3 {
		return nil, fmt.Errorf("%w: length byte %d, payload %d", ErrLength, body[1], len(body)-3)
	}
	if !checksumValid(body) {
		return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X",
			ErrChecksum, Checksum(body[:len(body)-1]), body[len(body)-1])
	}

	frame, err := parseMessage(body[0], body[2:len(body)-1])
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// parseMessage decodes an N2K message payload for the given command
func parseMessage(cmd byte, payload []byte) (n2k.Frame, error) {
	var (
		headerSize int
		source     uint8 = n2k.AddressUnset
		timestamp  uint32
	)

	switch cmd {
	case CmdN2KReceived:
		headerSize = receivedHeaderSize
	case CmdN2KSend:
		headerSize = sendHeaderSize
	default:
		return n2k.Frame{}, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, cmd)
	}

	if len(payload) < headerSize {
		return n2k.Frame{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrLength, headerSize, len(payload))
	}

	priority := payload[0]
	pgn := uint32(payload[1]) | uint32(payload[2])<<8 | uint32(payload[3])<<16
	destination := payload[4]
	if cmd == CmdN2KReceived {
		source = payload[5]
		timestamp = binary.LittleEndian.Uint32(payload[6:10])
	}

	dataLen := int(payload[headerSize-1])
	data := payload[headerSize:]
	if dataLen != len(data) {
		return n2k.Frame{}, fmt.Errorf("%w: data length %d, have %d", ErrLength, dataLen, len(data))
	}

	frame, err := n2k.NewFrame(priority, pgn, source, destination, data)
	if err != nil {
		return n2k.Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return frame.WithTimestamp(timestamp), nil
}
