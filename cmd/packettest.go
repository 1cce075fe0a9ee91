// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid Actisense frame",
	Long: `Wait for a valid Actisense N2K frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
Actisense frame. It ignores invalid bytes and waits for a complete frame that
passes the checksum.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking that a bridge or NGT-1 is forwarding bus traffic.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("n2kbridge - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid Actisense frame...\n\n")

	decoder := actisense.NewDecoder()
	buf := make([]byte, 256)

	// Channel for frame reception
	frameChan := make(chan n2k.Frame, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		invalidFrames := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					// Ignore decode errors, just count discarded frames
					invalidFrames++
					continue
				}
				if frame != nil {
					if invalidFrames > 0 {
						fmt.Printf("(discarded %d invalid frames before sync)\n", invalidFrames)
					}
					frameChan <- *frame
					return
				}
			}
		}
	}()

	// Wait for frame or timeout
	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  PGN: %s (%d)\n", n2k.PGNName(frame.PGN), frame.PGN)
		fmt.Printf("  Priority: %d\n", frame.Priority)
		fmt.Printf("  Source: %d\n", frame.Source)
		fmt.Printf("  Destination: %d\n", frame.Destination)
		fmt.Printf("  Length: %d bytes\n", frame.Len)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
