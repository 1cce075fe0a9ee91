// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actisense

import (
	"bytes"
	"testing"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame n2k.Frame
	}{
		{
			name:  "heading broadcast",
			frame: n2k.MustFrame(2, n2k.PGNVesselHeading, 0x23, n2k.AddressGlobal, []byte{0xFF, 0x10, 0x27, 0x00, 0x00, 0xFF, 0x7F, 0xFD}),
		},
		{
			name:  "empty payload",
			frame: n2k.MustFrame(6, n2k.PGNISORequest, 1, 2, nil),
		},
		{
			name:  "every byte is DLE",
			frame: n2k.MustFrame(0, 0x1010, 0x10, 0x10, bytes.Repeat([]byte{DLE}, 8)).WithTimestamp(0x10101010),
		},
		{
			name:  "max PGN and timestamp",
			frame: n2k.MustFrame(7, n2k.MaxPGN, n2k.MaxDeviceAddress, n2k.AddressGlobal, []byte{0x03, 0x02}).WithTimestamp(0xFFFFFFFF),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, errs := decodeAll(NewDecoder(), Encode(tt.frame))
			if len(errs) != 0 {
				t.Fatalf("decode errors: %v", errs)
			}
			if len(frames) != 1 {
				t.Fatalf("expected 1 frame, got %d", len(frames))
			}
			if frames[0] != tt.frame {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", frames[0], tt.frame)
			}
		})
	}
}

func TestEncodeSend_DropsSourceAndTimestamp(t *testing.T) {
	f := n2k.MustFrame(3, n2k.PGNWindData, 77, n2k.AddressGlobal, []byte{1, 2, 3}).WithTimestamp(999)

	frames, errs := decodeAll(NewDecoder(), EncodeSend(f))
	if len(errs) != 0 {
		t.Fatalf("decode errors: %v", errs)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}

	want := f.WithSource(n2k.AddressUnset).WithTimestamp(0)
	if frames[0] != want {
		t.Errorf("got %+v, want %+v", frames[0], want)
	}
}

func TestEncodeSend_KnownBytes(t *testing.T) {
	f := n2k.MustFrame(2, 0x1234, n2k.AddressUnset, n2k.AddressGlobal, []byte{0x01, 0x02})
	want := []byte{0x10, 0x02, 0x94, 0x08, 0x02, 0x34, 0x12, 0x00, 0xFF, 0x02, 0x01, 0x02, 0x18, 0x10, 0x03}
	if got := EncodeSend(f); !bytes.Equal(got, want) {
		t.Errorf("EncodeSend() = % X\nwant          % X", got, want)
	}
}

func TestEncode_Framing(t *testing.T) {
	wire := Encode(n2k.MustFrame(2, n2k.PGNRateOfTurn, 1, n2k.AddressGlobal, []byte{0x10}))

	if !bytes.HasPrefix(wire, []byte{DLE, STX}) {
		t.Errorf("missing DLE STX prefix: % X", wire)
	}
	if !bytes.HasSuffix(wire, []byte{DLE, ETX}) {
		t.Errorf("missing DLE ETX suffix: % X", wire)
	}
	if wire[2] != CmdN2KReceived {
		t.Errorf("command = 0x%02X, want 0x93", wire[2])
	}

	// Inside the frame every DLE must be doubled
	inner := wire[2 : len(wire)-2]
	for i := 0; i < len(inner); i++ {
		if inner[i] == DLE {
			if i+1 >= len(inner) || inner[i+1] != DLE {
				t.Fatalf("unescaped DLE at offset %d: % X", i, inner)
			}
			i++
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	f := n2k.MustFrame(2, n2k.PGNAttitude, 9, n2k.AddressGlobal, []byte{5, 6, 7})
	if !bytes.Equal(Encode(f), Encode(f)) {
		t.Error("Encode should be deterministic")
	}
}

func TestEncode_ClampsOversizedLen(t *testing.T) {
	f := n2k.MustFrame(2, n2k.PGNAttitude, 9, n2k.AddressGlobal, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	f.Len = 200

	frames, errs := decodeAll(NewDecoder(), Encode(f))
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("frames=%v errs=%v", frames, errs)
	}
	if frames[0].Len != n2k.MaxDataLen {
		t.Errorf("Len = %d, want %d", frames[0].Len, n2k.MaxDataLen)
	}
}
