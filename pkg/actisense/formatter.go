// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actisense

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
)

// FormatFrame formats a frame into a human-readable line
func FormatFrame(f n2k.Frame) string {
	source := fmt.Sprintf("%d", f.Source)
	if !f.HasSource() {
		source = "-"
	}

	result := fmt.Sprintf("[%10d] %s (%d) prio=%d src=%s dst=%d len=%d",
		f.Timestamp, n2k.PGNName(f.PGN), f.PGN, f.Priority, source, f.Destination, f.Len)

	if f.PGN == n2k.PGNAddressClaim && f.Len == 8 {
		if name, err := n2k.ParseName(f.Payload()); err == nil {
			result += fmt.Sprintf(" name=%s", name)
		}
	}

	if f.Len > 0 {
		result += " data=" + FormatHex(f.Payload())
	}
	return result + "\n"
}

// FormatCommand returns the human-readable name for an Actisense command
func FormatCommand(cmd byte) string {
	switch cmd {
	case CmdN2KReceived:
		return "N2K_MSG_RECEIVED"
	case CmdN2KSend:
		return "N2K_MSG_SEND"
	default:
		return "UNKNOWN"
	}
}

// FormatHex returns bytes as space separated hex pairs
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
