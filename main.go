// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// n2kbridge - NMEA2000 to Actisense serial bridge
//
// Bridges a CAN bus carrying NMEA2000 to a serial stream speaking the
// Actisense NGT-1 framing.

package main

import (
	"os"

	"github.com/Thermoquad/n2kbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
