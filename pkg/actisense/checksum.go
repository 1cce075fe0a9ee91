// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actisense

// Checksum returns the byte that brings the sum of body plus the checksum to zero
func Checksum(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return -sum
}

// checksumValid reports whether a body that ends with its checksum byte sums to zero
func checksumValid(body []byte) bool {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return sum == 0
}
