// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// Linux SocketCAN struct can_frame layout (16 bytes, little-endian):
//
//	0..3  can_id (with EFF/RTR/ERR flags)
//	4     can_dlc
//	5..7  padding
//	8..15 data
const (
	canFrameSize = 16
	canEffFlag   = 0x80000000
	canRtrFlag   = 0x40000000
	canErrFlag   = 0x20000000
	canEffMask   = 0x1FFFFFFF
)

// ErrNotN2K is returned for CAN frames that cannot carry an N2K message
// (standard 11-bit IDs, remote and error frames)
var ErrNotN2K = errors.New("transport: not an N2K frame")

// marshalCANFrame encodes an N2K frame into the SocketCAN can_frame layout
func marshalCANFrame(f n2k.Frame, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], f.ID()|canEffFlag)
	n := min(int(f.Len), n2k.MaxDataLen)
	buf[4] = byte(n)
	buf[5], buf[6], buf[7] = 0, 0, 0
	copy(buf[8:16], f.Data[:n])
	clear(buf[8+n : 16])
}

// unmarshalCANFrame decodes a SocketCAN can_frame into an N2K frame
func unmarshalCANFrame(buf []byte) (n2k.Frame, error) {
	if len(buf) < canFrameSize {
		return n2k.Frame{}, fmt.Errorf("transport: need %d bytes, got %d", canFrameSize, len(buf))
	}
	id := binary.LittleEndian.Uint32(buf[0:4])
	if id&canEffFlag == 0 || id&(canRtrFlag|canErrFlag) != 0 {
		return n2k.Frame{}, fmt.Errorf("%w: can_id 0x%08X", ErrNotN2K, id)
	}
	dlc := int(buf[4])
	if dlc > n2k.MaxDataLen {
		return n2k.Frame{}, fmt.Errorf("%w: dlc %d", n2k.ErrInvalidLen, dlc)
	}
	return n2k.FromCANID(id&canEffMask, buf[8:8+dlc])
}
