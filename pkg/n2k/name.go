// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package n2k

import (
	"encoding/binary"
	"fmt"
)

// Name is the 64-bit ISO 11783 NAME a device announces in its address claim
type Name uint64

// ParseName decodes the NAME from an address claim payload (8 bytes, little-endian)
func ParseName(data []byte) (Name, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: address claim needs 8 bytes, got %d", ErrInvalidLen, len(data))
	}
	return Name(binary.LittleEndian.Uint64(data)), nil
}

// UniqueNumber returns the 21-bit identity number
func (n Name) UniqueNumber() uint32 {
	return uint32(n & 0x1FFFFF)
}

// ManufacturerCode returns the 11-bit manufacturer code
func (n Name) ManufacturerCode() uint16 {
	return uint16(n>>21) & 0x7FF
}

// DeviceInstance returns the combined 8-bit device instance (lower 3 bits, upper 5 bits)
func (n Name) DeviceInstance() uint8 {
	return uint8(n>>32) & 0xFF
}

// DeviceFunction returns the device function code
func (n Name) DeviceFunction() uint8 {
	return uint8(n >> 40)
}

// DeviceClass returns the 7-bit device class
func (n Name) DeviceClass() uint8 {
	return uint8(n>>49) & 0x7F
}

// SystemInstance returns the 4-bit system instance
func (n Name) SystemInstance() uint8 {
	return uint8(n>>56) & 0x0F
}

// IndustryGroup returns the 3-bit industry group (4 = marine)
func (n Name) IndustryGroup() uint8 {
	return uint8(n>>60) & 0x07
}

// ArbitraryAddressCapable reports whether the device can pick a new address itself
func (n Name) ArbitraryAddressCapable() bool {
	return n>>63 == 1
}

func (n Name) String() string {
	return fmt.Sprintf("%016X (mfr=%d unique=%d class=%d func=%d inst=%d)",
		uint64(n), n.ManufacturerCode(), n.UniqueNumber(), n.DeviceClass(), n.DeviceFunction(), n.DeviceInstance())
}
