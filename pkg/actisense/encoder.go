// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actisense

import (
	"encoding/binary"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// Encode encodes a bus frame as an N2K received message (0x93) for the host.
// The frame's source and timestamp are carried on the wire.
func Encode(f n2k.Frame) []byte {
	data := frameData(f)
	payload := make([]byte, receivedHeaderSize, receivedHeaderSize+len(data))
	putHeader(payload, f)
	payload[5] = f.Source
	binary.LittleEndian.PutUint32(payload[6:10], f.Timestamp)
	payload[10] = byte(len(data))
	payload = append(payload, data...)
	return encodeMessage(CmdN2KReceived, payload)
}

// EncodeSend encodes a frame as an N2K send request (0x94), the form a host
// uses to inject frames. Source and timestamp are not carried.
func EncodeSend(f n2k.Frame) []byte {
	data := frameData(f)
	payload := make([]byte, sendHeaderSize, sendHeaderSize+len(data))
	putHeader(payload, f)
	payload[5] = byte(len(data))
	payload = append(payload, data...)
	return encodeMessage(CmdN2KSend, payload)
}

// frameData returns the frame's data bytes, clamped to the classic CAN maximum
func frameData(f n2k.Frame) []byte {
	return f.Data[:min(int(f.Len), n2k.MaxDataLen)]
}

func putHeader(payload []byte, f n2k.Frame) {
	payload[0] = f.Priority
	payload[1] = byte(f.PGN)
	payload[2] = byte(f.PGN >> 8)
	payload[3] = byte(f.PGN >> 16)
	payload[4] = f.Destination
}

// encodeMessage frames a command payload: checksum, byte stuffing and DLE STX / DLE ETX
func encodeMessage(cmd byte, payload []byte) []byte {
	body := make([]byte, 0, len(payload)+3)
	body = append(body, cmd, byte(len(payload)))
	body = append(body, payload...)
	body = append(body, Checksum(body))

	packet := make([]byte, 0, len(body)*2+4)
	packet = append(packet, DLE, STX)
	packet = stuffBytes(packet, body)
	packet = append(packet, DLE, ETX)
	return packet
}

// stuffBytes appends data to dst, doubling every DLE
func stuffBytes(dst, data []byte) []byte {
	for _, b := range data {
		if b == DLE {
			dst = append(dst, DLE, DLE)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}
