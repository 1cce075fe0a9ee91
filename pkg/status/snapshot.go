// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package status

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a reader-side copy of the status block plus the bus driver
// counters. Each field was loaded independently; fields may be one refresh
// cycle apart from each other.
type Snapshot struct {
	Sent          uint64 `cbor:"0,keyasint"`
	Received      uint64 `cbor:"1,keyasint"`
	Forwarded     uint64 `cbor:"2,keyasint"`
	Dropped       uint64 `cbor:"3,keyasint"`
	FramingErrors uint64 `cbor:"4,keyasint"`
	Devices       int    `cbor:"5,keyasint"`
	Maintenance   bool   `cbor:"6,keyasint"`

	// Driver-level counters kept by the bus transport
	CANRx      uint64 `cbor:"7,keyasint"`
	CANTx      uint64 `cbor:"8,keyasint"`
	CANDropped uint64 `cbor:"9,keyasint"`

	Taken time.Time `cbor:"10,keyasint"`
}

// DriverCounters is implemented by bus transports that keep their own counters
type DriverCounters interface {
	FramesReceived() uint64
	FramesSent() uint64
	FramesDropped() uint64
}

// Snapshot reads every field once. driver may be nil.
func (b *Block) Snapshot(driver DriverCounters) Snapshot {
	s := Snapshot{
		Sent:          b.Sent(),
		Received:      b.Received(),
		Forwarded:     b.Forwarded(),
		Dropped:       b.Dropped(),
		FramingErrors: b.FramingErrors(),
		Devices:       b.Devices(),
		Maintenance:   b.Maintenance(),
		Taken:         time.Now(),
	}
	if driver != nil {
		s.CANRx = driver.FramesReceived()
		s.CANTx = driver.FramesSent()
		s.CANDropped = driver.FramesDropped()
	}
	return s
}

// Watchers compute rates from Taken, so keep sub-second precision
var snapshotEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalSnapshot encodes a snapshot as CBOR for remote watchers
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := snapshotEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a CBOR snapshot
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}
