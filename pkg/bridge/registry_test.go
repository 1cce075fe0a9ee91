// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1700000000, 0)

func claimFrame(t *testing.T, source uint8, name uint64) n2k.Frame {
	t.Helper()
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, name)
	f, err := n2k.NewFrame(6, n2k.PGNAddressClaim, source, n2k.AddressGlobal, data)
	require.NoError(t, err)
	return f
}

func heading(source uint8) n2k.Frame {
	return n2k.MustFrame(2, n2k.PGNVesselHeading, source, n2k.AddressGlobal, []byte{0xFF, 0x10, 0x27})
}

func TestRegistry_ObserveNewAndKnown(t *testing.T) {
	r := NewRegistry(time.Minute)

	assert.True(t, r.Observe(heading(10), t0))
	assert.False(t, r.Observe(heading(10), t0.Add(time.Second)))

	rec, ok := r.Lookup(10)
	require.True(t, ok)
	assert.Equal(t, uint8(10), rec.Address)
	assert.Equal(t, t0, rec.FirstSeen)
	assert.Equal(t, t0.Add(time.Second), rec.LastSeen)
	assert.Equal(t, uint64(2), rec.Messages)
	assert.False(t, rec.HasName)
}

func TestRegistry_IgnoresReservedSources(t *testing.T) {
	r := NewRegistry(time.Minute)

	for _, src := range []uint8{252, n2k.AddressNull, n2k.AddressGlobal} {
		assert.False(t, r.Observe(heading(src), t0), "source %d", src)
	}
	assert.True(t, r.Observe(heading(n2k.MaxDeviceAddress), t0))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_EvictionBoundary(t *testing.T) {
	const threshold = 120 * time.Second
	r := NewRegistry(threshold)
	r.Observe(heading(10), t0)

	assert.Equal(t, 1, r.Count(t0.Add(threshold-time.Nanosecond)))
	assert.Equal(t, 0, r.Count(t0.Add(threshold)))

	assert.Equal(t, 0, r.Sweep(t0.Add(threshold-time.Nanosecond)))
	_, ok := r.Lookup(10)
	assert.True(t, ok, "present just before the threshold")

	assert.Equal(t, 1, r.Sweep(t0.Add(threshold)))
	_, ok = r.Lookup(10)
	assert.False(t, ok, "absent at the threshold")
}

func TestRegistry_SweepKeepsRecentDevices(t *testing.T) {
	r := NewRegistry(10 * time.Second)
	r.Observe(heading(1), t0)
	r.Observe(heading(2), t0.Add(5*time.Second))

	assert.Equal(t, 1, r.Sweep(t0.Add(12*time.Second)))
	assert.Equal(t, 1, r.Len())
	_, ok := r.Lookup(2)
	assert.True(t, ok)
}

func TestRegistry_AddressClaimOverwritesName(t *testing.T) {
	r := NewRegistry(time.Minute)

	r.Observe(claimFrame(t, 10, 0x1111), t0)
	rec, _ := r.Lookup(10)
	require.True(t, rec.HasName)
	assert.Equal(t, n2k.Name(0x1111), rec.Name)

	r.Observe(claimFrame(t, 10, 0x2222), t0.Add(time.Second))
	rec, _ = r.Lookup(10)
	assert.Equal(t, n2k.Name(0x2222), rec.Name, "latest claim wins")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ShortClaimIgnored(t *testing.T) {
	r := NewRegistry(time.Minute)
	f := n2k.MustFrame(6, n2k.PGNAddressClaim, 10, n2k.AddressGlobal, []byte{1, 2, 3})

	assert.True(t, r.Observe(f, t0))
	rec, _ := r.Lookup(10)
	assert.False(t, rec.HasName)
}

func TestRegistry_NameMovesAddress(t *testing.T) {
	r := NewRegistry(time.Minute)
	const name = 0xC0FFEE0012345678

	r.Observe(claimFrame(t, 10, name), t0)
	r.Observe(heading(11), t0)
	assert.True(t, r.Observe(claimFrame(t, 20, name), t0.Add(time.Second)))

	_, ok := r.Lookup(10)
	assert.False(t, ok, "stale address removed")
	rec, ok := r.Lookup(20)
	require.True(t, ok)
	assert.Equal(t, n2k.Name(name), rec.Name)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_DevicesSortedCopies(t *testing.T) {
	r := NewRegistry(time.Minute)
	for _, src := range []uint8{30, 4, 17} {
		r.Observe(heading(src), t0)
	}

	devices := r.Devices()
	require.Len(t, devices, 3)
	assert.Equal(t, uint8(4), devices[0].Address)
	assert.Equal(t, uint8(17), devices[1].Address)
	assert.Equal(t, uint8(30), devices[2].Address)

	devices[0].Messages = 99
	rec, _ := r.Lookup(4)
	assert.Equal(t, uint64(1), rec.Messages)
}

func TestNewRegistry_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultEvictionThreshold, NewRegistry(0).Threshold())
}
