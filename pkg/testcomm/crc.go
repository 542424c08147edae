// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import "hash/crc32"

// The frame trailer carries two reflected CRC-32 words. CRC uses the IEEE
// polynomial, CRCM uses the Castagnoli polynomial. Neither applies the usual
// pre/post inversion, so the seed is used as given and the register is
// returned as is.
var (
	crcTable  = crc32.MakeTable(crc32.IEEE)
	crcmTable = crc32.MakeTable(crc32.Castagnoli)
)

// UpdateCRC folds one byte into crc using table
func UpdateCRC(table *crc32.Table, crc uint32, b byte) uint32 {
	return table[byte(crc)^b] ^ (crc >> 8)
}

// ComputeCRC folds data into seed using table.
//
// Buffers with an odd length always yield 0. Boards on the bus compute the
// same value, so trailers built over odd buffers must keep it.
func ComputeCRC(table *crc32.Table, data []byte, seed uint32) uint32 {
	if len(data)%2 == 1 {
		return 0
	}
	// crc32.Update inverts on entry and exit
	return ^crc32.Update(^seed, table, data)
}

// CalculateCRC computes the frame CRC over data starting from seed
func CalculateCRC(data []byte, seed uint32) uint32 {
	return ComputeCRC(crcTable, data, seed)
}

// CalculateCRCM computes the frame CRCM over data starting from seed
func CalculateCRCM(data []byte, seed uint32) uint32 {
	return ComputeCRC(crcmTable, data, seed)
}
