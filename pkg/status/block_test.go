// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package status

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct{ rx, tx, dropped uint64 }

func (f fakeDriver) FramesReceived() uint64 { return f.rx }
func (f fakeDriver) FramesSent() uint64     { return f.tx }
func (f fakeDriver) FramesDropped() uint64  { return f.dropped }

func TestBlock_Counters(t *testing.T) {
	b := NewBlock()
	b.IncSent()
	b.IncSent()
	b.IncReceived()
	b.IncForwarded()
	b.IncDropped()
	b.IncFramingErrors()
	b.SetDevices(4)

	assert.Equal(t, uint64(2), b.Sent())
	assert.Equal(t, uint64(1), b.Received())
	assert.Equal(t, uint64(1), b.Forwarded())
	assert.Equal(t, uint64(1), b.Dropped())
	assert.Equal(t, uint64(1), b.FramingErrors())
	assert.Equal(t, 4, b.Devices())

	b.SetDevices(-3)
	assert.Equal(t, 0, b.Devices())
}

func TestBlock_Maintenance(t *testing.T) {
	b := NewBlock()
	assert.False(t, b.Maintenance())
	assert.True(t, b.ToggleMaintenance())
	assert.True(t, b.Maintenance())
	assert.False(t, b.ToggleMaintenance())
	b.SetMaintenance(true)
	assert.True(t, b.Maintenance())
}

func TestBlock_Reset(t *testing.T) {
	b := NewBlock()
	b.IncSent()
	b.IncReceived()
	b.SetDevices(9)
	b.SetMaintenance(true)
	b.Reset()

	s := b.Snapshot(nil)
	assert.Zero(t, s.Sent)
	assert.Zero(t, s.Received)
	assert.Zero(t, s.Devices)
	assert.False(t, s.Maintenance)
}

// TestBlock_ConcurrentWritersAndReaders increments sent and received from
// one goroutine while others read. Run with -race to check field atomicity.
func TestBlock_ConcurrentWritersAndReaders(t *testing.T) {
	const increments = 10000
	b := NewBlock()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < increments; i++ {
			b.IncSent()
			b.IncReceived()
			b.SetDevices(i % 50)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastSent, lastReceived uint64
			for {
				s := b.Snapshot(nil)
				// Counters never go backwards for any reader
				if s.Sent < lastSent || s.Received < lastReceived {
					t.Errorf("counter decreased: sent %d->%d received %d->%d",
						lastSent, s.Sent, lastReceived, s.Received)
					return
				}
				lastSent, lastReceived = s.Sent, s.Received
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, uint64(increments), b.Sent())
	assert.Equal(t, uint64(increments), b.Received())
}

func TestSnapshot_IncludesDriverCounters(t *testing.T) {
	b := NewBlock()
	s := b.Snapshot(fakeDriver{rx: 10, tx: 20, dropped: 3})
	assert.Equal(t, uint64(10), s.CANRx)
	assert.Equal(t, uint64(20), s.CANTx)
	assert.Equal(t, uint64(3), s.CANDropped)
}

func TestSnapshot_CBOR(t *testing.T) {
	in := Snapshot{
		Sent:          1,
		Received:      2,
		Forwarded:     3,
		Dropped:       4,
		FramingErrors: 5,
		Devices:       6,
		Maintenance:   true,
		CANRx:         7,
		CANTx:         8,
		CANDropped:    9,
		Taken:         time.Unix(1700000000, 250000000),
	}

	data, err := MarshalSnapshot(in)
	require.NoError(t, err)

	out, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	assert.True(t, in.Taken.Equal(out.Taken), "taken %v != %v", in.Taken, out.Taken)
	out.Taken = in.Taken
	assert.Equal(t, in, out)
}

func TestUnmarshalSnapshot_Invalid(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte{0xFF, 0x00})
	assert.Error(t, err)
}
