// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package n2k

import (
	"errors"
	"testing"
)

func TestNewFrame_Validation(t *testing.T) {
	tests := []struct {
		name     string
		priority uint8
		pgn      uint32
		data     []byte
		wantErr  error
	}{
		{name: "valid", priority: 2, pgn: PGNVesselHeading, data: []byte{1, 2, 3}},
		{name: "empty data", priority: 6, pgn: PGNISORequest, data: nil},
		{name: "max data", priority: 3, pgn: PGNPositionRapid, data: make([]byte, 8)},
		{name: "pgn too large", priority: 3, pgn: 0x40000, wantErr: ErrInvalidPGN},
		{name: "priority too large", priority: 8, pgn: PGNHeartbeat, wantErr: ErrInvalidPriority},
		{name: "data too long", priority: 3, pgn: PGNHeartbeat, data: make([]byte, 9), wantErr: ErrInvalidLen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFrame(tt.priority, tt.pgn, 10, AddressGlobal, tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFrame() unexpected error: %v", err)
			}
			if int(f.Len) != len(tt.data) {
				t.Errorf("Len = %d, want %d", f.Len, len(tt.data))
			}
		})
	}
}

func TestFrame_PayloadIsCopy(t *testing.T) {
	f := MustFrame(2, PGNRateOfTurn, 5, AddressGlobal, []byte{0xAA, 0xBB})
	p := f.Payload()
	p[0] = 0x00
	if f.Data[0] != 0xAA {
		t.Error("Payload() must not alias frame data")
	}
	if len(p) != 2 {
		t.Errorf("Payload() length = %d, want 2", len(p))
	}
}

func TestFrame_CANIDRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		id    uint32
	}{
		{
			name:  "PDU2 broadcast",
			frame: MustFrame(2, PGNVesselHeading, 0x23, AddressGlobal, []byte{1}),
			id:    0x09F11223,
		},
		{
			name:  "PDU1 addressed",
			frame: MustFrame(6, PGNISORequest, 0x2B, 0x0A, []byte{0x00, 0xEE, 0x00}),
			id:    0x18EA0A2B,
		},
		{
			name:  "address claim to global",
			frame: MustFrame(6, PGNAddressClaim, 0x01, AddressGlobal, make([]byte, 8)),
			id:    0x18EEFF01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.ID(); got != tt.id {
				t.Fatalf("ID() = 0x%08X, want 0x%08X", got, tt.id)
			}
			back, err := FromCANID(tt.id, tt.frame.Payload())
			if err != nil {
				t.Fatalf("FromCANID() error: %v", err)
			}
			if back != tt.frame {
				t.Errorf("FromCANID() = %+v, want %+v", back, tt.frame)
			}
		})
	}
}

func TestFrame_HasSource(t *testing.T) {
	f := MustFrame(2, PGNVesselHeading, AddressUnset, AddressGlobal, nil)
	if f.HasSource() {
		t.Error("frame with unset source reports HasSource")
	}
	if !f.WithSource(43).HasSource() {
		t.Error("WithSource(43) should report HasSource")
	}
	if f.Source != AddressUnset {
		t.Error("WithSource must not modify the receiver")
	}
}

func TestPGNName(t *testing.T) {
	if got := PGNName(PGNAddressClaim); got != "ADDRESS_CLAIM" {
		t.Errorf("PGNName(60928) = %q", got)
	}
	if got := PGNName(0x1234); got != "UNKNOWN" {
		t.Errorf("PGNName(0x1234) = %q, want UNKNOWN", got)
	}
}
