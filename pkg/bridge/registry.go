// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"slices"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// DefaultEvictionThreshold is how long a silent device stays in the registry
const DefaultEvictionThreshold = 120 * time.Second

// DeviceRecord describes one device seen on the bus
type DeviceRecord struct {
	Address   uint8
	FirstSeen time.Time
	LastSeen  time.Time
	Name      n2k.Name // Valid only when HasName is set
	HasName   bool
	Messages  uint64
}

// Registry tracks devices by source address. It is not safe for
// concurrent use; it belongs to the bridge goroutine.
type Registry struct {
	devices   map[uint8]*DeviceRecord
	threshold time.Duration
}

// NewRegistry creates an empty registry. A non-positive threshold selects
// DefaultEvictionThreshold.
func NewRegistry(threshold time.Duration) *Registry {
	if threshold <= 0 {
		threshold = DefaultEvictionThreshold
	}
	return &Registry{
		devices:   make(map[uint8]*DeviceRecord),
		threshold: threshold,
	}
}

// Threshold returns the eviction threshold
func (r *Registry) Threshold() time.Duration {
	return r.threshold
}

// Observe records a frame from the bus. Returns true when the frame's
// source address was not in the registry before.
func (r *Registry) Observe(f n2k.Frame, now time.Time) bool {
	if f.Source > n2k.MaxDeviceAddress {
		return false
	}

	rec, ok := r.devices[f.Source]
	if !ok {
		rec = &DeviceRecord{Address: f.Source, FirstSeen: now}
		r.devices[f.Source] = rec
	}
	rec.LastSeen = now
	rec.Messages++

	if f.PGN == n2k.PGNAddressClaim && f.Len == 8 {
		if name, err := n2k.ParseName(f.Payload()); err == nil {
			rec.Name = name
			rec.HasName = true
			r.dropStaleName(f.Source, name)
		}
	}

	return !ok
}

// dropStaleName removes records at other addresses still holding name
func (r *Registry) dropStaleName(addr uint8, name n2k.Name) {
	for other, rec := range r.devices {
		if other != addr && rec.HasName && rec.Name == name {
			delete(r.devices, other)
		}
	}
}

// Count returns the number of devices heard from within the threshold
func (r *Registry) Count(now time.Time) int {
	n := 0
	for _, rec := range r.devices {
		if r.live(rec, now) {
			n++
		}
	}
	return n
}

// Sweep removes devices silent for at least the threshold and returns how
// many were removed
func (r *Registry) Sweep(now time.Time) int {
	removed := 0
	for addr, rec := range r.devices {
		if !r.live(rec, now) {
			delete(r.devices, addr)
			removed++
		}
	}
	return removed
}

// Len returns the number of records, live or not
func (r *Registry) Len() int {
	return len(r.devices)
}

// Lookup returns a copy of the record for addr
func (r *Registry) Lookup(addr uint8) (DeviceRecord, bool) {
	rec, ok := r.devices[addr]
	if !ok {
		return DeviceRecord{}, false
	}
	return *rec, true
}

// Devices returns copies of all records ordered by address
func (r *Registry) Devices() []DeviceRecord {
	out := make([]DeviceRecord, 0, len(r.devices))
	for _, rec := range r.devices {
		out = append(out, *rec)
	}
	slices.SortFunc(out, func(a, b DeviceRecord) int {
		return int(a.Address) - int(b.Address)
	})
	return out
}

func (r *Registry) live(rec *DeviceRecord, now time.Time) bool {
	return now.Sub(rec.LastSeen) < r.threshold
}
