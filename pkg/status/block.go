// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package status holds the counters shared between the bridge goroutine and
// status consumers. Every field is an independent atomic scalar; a reader
// never sees a partial update and never blocks a writer.
package status

import "sync/atomic"

// Block is the shared status surface. The zero value is ready to use.
// It must not be copied after first use.
type Block struct {
	sent          atomic.Uint64 // Frames injected onto the bus
	received      atomic.Uint64 // Frames received from the bus
	forwarded     atomic.Uint64 // Frames written to the serial forward endpoint
	dropped       atomic.Uint64 // Frames dropped on bus saturation
	framingErrors atomic.Uint64 // Serial frames discarded by the decoder
	devices       atomic.Uint32 // Live devices in the registry
	maintenance   atomic.Bool   // Set outside the core to suppress rendering
}

// NewBlock returns an empty status block
func NewBlock() *Block {
	return &Block{}
}

// IncSent records one frame sent to the bus
func (b *Block) IncSent() { b.sent.Add(1) }

// IncReceived records one frame received from the bus
func (b *Block) IncReceived() { b.received.Add(1) }

// IncForwarded records one frame written to the serial side
func (b *Block) IncForwarded() { b.forwarded.Add(1) }

// IncDropped records one frame dropped because the bus was saturated
func (b *Block) IncDropped() { b.dropped.Add(1) }

// IncFramingErrors records one corrupt serial frame
func (b *Block) IncFramingErrors() { b.framingErrors.Add(1) }

// SetDevices publishes the registry's live device count
func (b *Block) SetDevices(n int) {
	if n < 0 {
		n = 0
	}
	b.devices.Store(uint32(n))
}

// SetMaintenance sets the externally owned maintenance flag
func (b *Block) SetMaintenance(on bool) { b.maintenance.Store(on) }

// ToggleMaintenance flips the maintenance flag and returns the new value
func (b *Block) ToggleMaintenance() bool {
	for {
		old := b.maintenance.Load()
		if b.maintenance.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (b *Block) Sent() uint64          { return b.sent.Load() }
func (b *Block) Received() uint64      { return b.received.Load() }
func (b *Block) Forwarded() uint64     { return b.forwarded.Load() }
func (b *Block) Dropped() uint64       { return b.dropped.Load() }
func (b *Block) FramingErrors() uint64 { return b.framingErrors.Load() }
func (b *Block) Devices() int          { return int(b.devices.Load()) }
func (b *Block) Maintenance() bool     { return b.maintenance.Load() }

// Reset zeroes every counter. Only valid at boot, before the bridge runs.
func (b *Block) Reset() {
	b.sent.Store(0)
	b.received.Store(0)
	b.forwarded.Store(0)
	b.dropped.Store(0)
	b.framingErrors.Store(0)
	b.devices.Store(0)
	b.maintenance.Store(false)
}
