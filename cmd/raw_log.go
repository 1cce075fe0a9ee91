// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/spf13/cobra"
)

var rawLogShowErrors bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display Actisense frames in human-readable format",
	Long: `Continuously decode and display Actisense N2K frames as they arrive.

Each frame is shown with its timestamp, PGN, priority, source, destination
and data bytes. Address claims also show the decoded ISO NAME.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogShowErrors, "errors", true, "Show discarded frames")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("n2kbridge - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := actisense.NewDecoder()
	buf := make([]byte, 256)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			frame, err := decoder.DecodeByte(buf[i])
			if err != nil {
				if rawLogShowErrors {
					fmt.Printf("[ERROR] %v\n", err)
				}
				continue
			}
			if frame != nil {
				fmt.Print(actisense.FormatFrame(*frame))
			}
		}
	}
}
