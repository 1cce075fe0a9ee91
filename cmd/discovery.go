// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"github.com/spf13/cobra"
)

var (
	discoveryTimeout int
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover devices on the bus through the bridge",
	Long: `Send an ISO Request for the Address Claim PGN and list the devices that answer.

Every NMEA2000 device responds to a global ISO Request (PGN 59904) for PGN
60928 with its address claim, carrying its 64-bit ISO NAME. The request is
sent through the bridge, which assigns its default source address.

Examples:
  n2kbridge discovery --port /dev/ttyUSB0
  n2kbridge discovery --url ws://bridge.local/serial --timeout 3

Exit codes:
  0 - Discovery successful (at least one device found)
  1 - Discovery failed (no devices before timeout)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Timeout in seconds for discovery")
}

// addressClaimRequest builds the global ISO Request for address claims
func addressClaimRequest() n2k.Frame {
	pgn := uint32(n2k.PGNAddressClaim)
	data := []byte{byte(pgn), byte(pgn >> 8), byte(pgn >> 16)}
	return n2k.MustFrame(6, n2k.PGNISORequest, n2k.AddressUnset, n2k.AddressGlobal, data)
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("n2kbridge - Device Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	decoder := actisense.NewDecoder()

	// Send ISO Request
	fmt.Printf("Sending ISO Request for PGN %d...\n", n2k.PGNAddressClaim)
	if _, err := conn.Write(actisense.EncodeSend(addressClaimRequest())); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	// Collect address claims
	claims := make(chan n2k.Frame, 16)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for j := 0; j < n; j++ {
				frame, decodeErr := decoder.DecodeByte(buf[j])
				if decodeErr != nil || frame == nil {
					continue
				}
				if frame.PGN == n2k.PGNAddressClaim && frame.Len == 8 {
					claims <- *frame
				}
			}
		}
	}()

	devices := make(map[uint8]n2k.Name)
	deadline := time.After(time.Duration(discoveryTimeout) * time.Second)

collect:
	for {
		select {
		case frame := <-claims:
			name, err := n2k.ParseName(frame.Payload())
			if err != nil {
				continue
			}
			if _, seen := devices[frame.Source]; !seen {
				fmt.Printf("\nDevice found:\n")
				fmt.Printf("  Address: %d\n", frame.Source)
				fmt.Printf("  NAME: %s\n", name)
			}
			devices[frame.Source] = name

		case err := <-errChan:
			fmt.Printf("READ FAILED: %v\n", err)
			os.Exit(2)

		case <-deadline:
			break collect
		}
	}

	// Summary
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Devices found: %d\n", len(devices))

	if len(devices) == 0 {
		fmt.Printf("No devices discovered. Check the bridge and bus power.\n")
		os.Exit(1)
	}

	addrs := make([]int, 0, len(devices))
	for addr := range devices {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)
	for _, addr := range addrs {
		name := devices[uint8(addr)]
		fmt.Printf("  %3d  mfr=%-5d func=%-3d class=%-3d unique=%d\n",
			addr, name.ManufacturerCode(), name.DeviceFunction(), name.DeviceClass(), name.UniqueNumber())
	}

	return nil
}
