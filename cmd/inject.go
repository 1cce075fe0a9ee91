// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"github.com/spf13/cobra"
)

var (
	injectPGN         uint32
	injectPriority    uint8
	injectDestination uint8
	injectData        string
	injectCount       int
	injectInterval    int
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Send an N2K frame through the bridge",
	Long: `Encode an Actisense N2K send request and write it to the connection.

The bridge puts the frame on the bus from its default source address, the way
an NGT-1 does for frames sent by a chart plotter.

Examples:
  # Send PGN 0x1234 with two data bytes to all devices
  n2kbridge inject --port /dev/ttyUSB0 --pgn 0x1234 --data "01 02"

  # Request address claims from every device
  n2kbridge inject --port /dev/ttyUSB0 --pgn 59904 --priority 6 --data "00 EE 00"`,
	RunE: runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)
	injectCmd.Flags().Uint32Var(&injectPGN, "pgn", 0, "Parameter Group Number (decimal or 0x hex)")
	injectCmd.Flags().Uint8Var(&injectPriority, "priority", 2, "Priority (0-7)")
	injectCmd.Flags().Uint8Var(&injectDestination, "dst", n2k.AddressGlobal, "Destination address")
	injectCmd.Flags().StringVar(&injectData, "data", "", "Data bytes as hex (up to 8), e.g. \"01 02 FF\"")
	injectCmd.Flags().IntVar(&injectCount, "count", 1, "Number of frames to send")
	injectCmd.Flags().IntVar(&injectInterval, "interval", 100, "Milliseconds between frames")
	injectCmd.MarkFlagRequired("pgn")
}

// parseHexData accepts hex bytes separated by spaces, colons or nothing
func parseHexData(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", ",", "", "0x", "", "0X", "").Replace(s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid data %q: %w", s, err)
	}
	return data, nil
}

func runInject(cmd *cobra.Command, args []string) error {
	data, err := parseHexData(injectData)
	if err != nil {
		return err
	}

	frame, err := n2k.NewFrame(injectPriority, injectPGN, n2k.AddressUnset, injectDestination, data)
	if err != nil {
		return err
	}
	wire := actisense.EncodeSend(frame)

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("n2kbridge - Inject\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Frame: %s\n", formatInjected(frame))
	fmt.Printf("Wire: %s\n\n", actisense.FormatHex(wire))

	for i := 1; i <= injectCount; i++ {
		if _, err := conn.Write(wire); err != nil {
			return fmt.Errorf("send %d/%d failed: %w", i, injectCount, err)
		}
		fmt.Printf("Sent %d/%d\n", i, injectCount)

		if i < injectCount {
			time.Sleep(time.Duration(injectInterval) * time.Millisecond)
		}
	}
	return nil
}

// formatInjected describes a frame that has no source yet
func formatInjected(f n2k.Frame) string {
	return fmt.Sprintf("%s (%d) prio=%d dst=%d len=%d",
		n2k.PGNName(f.PGN), f.PGN, f.Priority, f.Destination, f.Len)
}
