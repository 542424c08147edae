// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package testcomm

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomFrame(rng *rand.Rand) *Frame {
	var payload Payload
	rng.Read(payload[:])
	return Assemble(Header{
		TimestampUS: rng.Uint64(),
		CommIndex:   uint16(rng.Intn(1 << 16)),
		Kind:        uint8(rng.Intn(256)),
		SideTag:     uint8(rng.Intn(256)),
	}, payload, Overrides{})
}

// ============================================================
// Checksum Mutation Tests
// ============================================================

// TestFuzzAssemble_PayloadMutationChangesCRC flips single payload bits and
// verifies the CRC trailer word follows
func TestFuzzAssemble_PayloadMutationChangesCRC(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)

		mutated := f.Payload
		pos := rng.Intn(PayloadSize)
		mutated[pos] ^= 1 << uint(rng.Intn(8))

		g := Assemble(f.Header, mutated, Overrides{})
		if g.Trailer.CRC == f.Trailer.CRC {
			t.Fatalf("round %d: flipping payload byte %d left CRC at 0x%08X", i, pos, f.Trailer.CRC)
		}
		if g.Trailer.CRCM == f.Trailer.CRCM {
			t.Fatalf("round %d: flipping payload byte %d left CRCM at 0x%08X", i, pos, f.Trailer.CRCM)
		}
	}
}

// TestFuzzAssemble_HeaderMutationChangesCRC verifies the header is covered
// by CRC and not by CRCM
func TestFuzzAssemble_HeaderMutationChangesCRC(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)

		h := f.Header
		h.TimestampUS ^= 1 << uint(rng.Intn(64))

		g := Assemble(h, f.Payload, Overrides{})
		if g.Trailer.CRC == f.Trailer.CRC {
			t.Fatalf("round %d: header change left CRC at 0x%08X", i, f.Trailer.CRC)
		}
		if g.Trailer.CRCM != f.Trailer.CRCM {
			t.Fatalf("round %d: header change altered CRCM", i)
		}
	}
}

// TestFuzzDecode_RoundTrip decodes random assembled frames and validates them
func TestFuzzDecode_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)
		data := f.Bytes()
		if len(data) != FrameSize {
			t.Fatalf("round %d: %d bytes", i, len(data))
		}

		g, err := DecodeFrame(data)
		if err != nil {
			t.Fatalf("round %d: decode failed: %v", i, err)
		}
		if *g != *f {
			t.Fatalf("round %d: round trip mismatch", i)
		}
		for _, v := range ValidateFrame(g) {
			if v.Type == AnomalyCRCMMismatch || v.Type == AnomalyCRCMismatch || v.Type == AnomalyLengthField {
				t.Fatalf("round %d: assembled frame failed validation: %s", i, v.Message)
			}
		}
	}
}

// TestFuzzDecode_RandomBytes feeds random 64 byte records to the decoder and
// validator and verifies neither panics
func TestFuzzDecode_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		data := make([]byte, FrameSize)
		rng.Read(data)

		f, err := DecodeFrame(data)
		if err != nil {
			t.Fatalf("round %d: decode failed: %v", i, err)
		}
		ValidateFrame(f)
		ValidateFrameID(rng.Uint32()&0xFFF, f)
		FormatFrame(f)
	}
}

// TestFuzzCRC_OddLength checks the odd length rule against random data
func TestFuzzCRC_OddLength(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(64)*2+1)
		rng.Read(data)
		seed := rng.Uint32()
		if CalculateCRC(data, seed) != 0 || CalculateCRCM(data, seed) != 0 {
			t.Fatalf("round %d: odd length %d produced a non-zero checksum", i, len(data))
		}
	}
}
