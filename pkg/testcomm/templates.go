// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

// Payload templates per board. Templates are values: PayloadTemplate returns
// a copy and applies per-emission fields to that copy only.

// MS (Controller)
var (
	msState = Payload{
		0x00, 0x00, 0x11, 0x11, 0x00, 0x00, 0x00, 0x00, 0xfc, 0xff,
		0xff, 0x07, 0xff, 0xff, 0xff, 0xff, 0xb2, 0x0c, 0xb2, 0x0c,
		0x00, 0x00, 0x00, 0x00, 0x11, 0x11, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	msVersion = Payload{
		0x00, 0x00, 0x01, 0x00, 0x07, 0x20, 0x20, 0x00, 0x56, 0x34,
		0x12, 0x00, 0x00, 0x00, 0x00, 0x00, 0x70, 0x20, 0x01, 0x10,
		0x71, 0x20, 0x01, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x19, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	msRequest = Payload{
		0x14, 0x00, 0x00, 0x03, 0x08, 0x00, 0x55, 0x55, 0x55, 0x55,
		0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
		0x55, 0x55, 0x69, 0x05, 0xeb, 0x13, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
)

// DI
var (
	diState = Payload{
		0x03, 0x00, 0x33, 0x33, 0x00, 0x00, 0x00, 0x00, 0x7f, 0xff,
		0xff, 0x00, 0xff, 0xff, 0xff, 0xff, 0xc1, 0x0c, 0x50, 0x0c,
		0x7c, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	diVersion = Payload{
		0x03, 0x00, 0x01, 0x00, 0x78, 0x56, 0x34, 0x12, 0x44, 0x44,
		0x33, 0x33, 0x22, 0x22, 0x11, 0x11, 0x74, 0x20, 0x01, 0x10,
		0x75, 0x20, 0x01, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x4f, 0x03, 0x7c, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	diRequest = Payload{
		0x28, 0x00, 0x00, 0xb2, 0x10, 0x00, 0x55, 0x55, 0x55, 0x55,
		0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
		0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
		0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x86, 0xad,
		0x10, 0x46,
	}
)

// DO
var (
	doState = Payload{
		0x04, 0x00, 0x33, 0x33, 0x00, 0x00, 0x00, 0x00, 0x7f, 0xff,
		0x03, 0x00, 0xff, 0xff, 0xff, 0xff, 0xcd, 0x0d, 0x29, 0x0b,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	doVersion = Payload{
		0x04, 0x00, 0x01, 0x00, 0x78, 0x56, 0x34, 0x12, 0x44, 0x44,
		0x33, 0x33, 0x22, 0x22, 0x11, 0x11, 0x76, 0x20, 0x01, 0x10,
		0x77, 0x20, 0x01, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x33, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	doRequest = Payload{} // DO answers requests with an all-zero body
)

// FI
var (
	fiState = Payload{
		0x06, 0x00, 0x33, 0x33, 0x00, 0x00, 0x00, 0x00, 0x7f, 0x03,
		0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0x02, 0x0d, 0xb6, 0x0c,
		0x13, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	fiVersion = Payload{
		0x06, 0x00, 0x01, 0x00, 0x78, 0x56, 0x34, 0x12, 0x44, 0x44,
		0x33, 0x33, 0x22, 0x22, 0x11, 0x11, 0x78, 0x20, 0x01, 0x10,
		0x79, 0x20, 0x01, 0x10, 0x60, 0x20, 0x00, 0x00, 0x60, 0x20,
		0x00, 0x00, 0x93, 0x1d, 0x13, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	fiRequest = Payload{
		0x24, 0x00, 0x01, 0xa4, 0x0e, 0x00, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff,
		0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xff, 0xff, 0x00, 0x00, 0x66, 0xa7, 0x6b, 0x27, 0x00, 0x00,
		0x00, 0x00,
	}
	fiRequestSecondary = Payload{
		0x24, 0x00, 0x02, 0xa4, 0x0e, 0x00, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff,
		0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xff, 0xff, 0x00, 0x00, 0x42, 0x76, 0xdc, 0x4c, 0x00, 0x00,
		0x00, 0x00,
	}
)

// AI
var (
	aiState = Payload{
		0x08, 0x00, 0x33, 0x33, 0x00, 0x00, 0x00, 0x00, 0x7f, 0x00,
		0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00,
		0x61, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	aiVersion = Payload{
		0x08, 0x00, 0x01, 0x00, 0x78, 0x56, 0x34, 0x12, 0x44, 0x44,
		0x33, 0x33, 0x22, 0x22, 0x11, 0x11, 0x73, 0x20, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x64, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	aiRequest = Payload{
		0x1c, 0x00, 0x00, 0xa6, 0x0a, 0x00, 0x55, 0x55, 0x00, 0x00,
		0x55, 0x55, 0x00, 0x00, 0x55, 0x55, 0x00, 0x00, 0x55, 0x55,
		0x00, 0x00, 0x55, 0x55, 0x00, 0x00, 0xac, 0xaa, 0x79, 0xbd,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
	aiRequestSecondary = Payload{
		0x18, 0x00, 0x00, 0xa5, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x23, 0x4e, 0xf4, 0xcc, 0x00, 0xa1, 0x02, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x87, 0xdd, 0xa2, 0xa1, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}
)
