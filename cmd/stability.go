// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/spf13/cobra"
)

var stabilityCmd = &cobra.Command{
	Use:   "stability",
	Short: "Test connection stability and frame integrity",
	Long: `Listen on the connection for a fixed duration, counting valid and corrupt
Actisense frames.

Prints a heartbeat every second with the frames seen so far, then a summary.
Useful for finding a flaky cable, a wrong baud rate or a WebSocket bridge
that drops the connection.

Exit codes:
  0 - Test completed, connection stayed up
  1 - Connection error during the test
  2 - Connection error at start`,
	RunE: runStability,
}

var stabilityDuration int

func init() {
	rootCmd.AddCommand(stabilityCmd)
	stabilityCmd.Flags().IntVar(&stabilityDuration, "duration", 30, "Test duration in seconds")
}

func runStability(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("n2kbridge - Connection Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", stabilityDuration)

	// Start a goroutine to read from the connection
	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
		}
	}()

	decoder := actisense.NewDecoder()
	start := time.Now()
	endTime := start.Add(time.Duration(stabilityDuration) * time.Second)
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	bytesReceived := 0
	framesReceived := 0
	framesCorrupt := 0

	results := func(result string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Frames received: %d\n", framesReceived)
		fmt.Printf("Frames corrupt: %d\n", framesCorrupt)
		fmt.Printf("Bytes received: %d\n", bytesReceived)
		fmt.Printf("Result: %s\n", result)
	}

	fmt.Printf("Listening for frames...\n\n")

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			for _, b := range data {
				frame, err := decoder.DecodeByte(b)
				if err != nil {
					framesCorrupt++
					continue
				}
				if frame != nil {
					framesReceived++
				}
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			results("FAILED (connection error)")
			os.Exit(1)

		case <-heartbeat.C:
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... %d frames, %d corrupt (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), framesReceived, framesCorrupt, remaining)
		}
	}

	results("PASSED (connection stable)")
	return nil
}
