package pow

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

const (
	workParStart217a = 185
	workParEnd217a   = 217
)

// matmulWork is the ASIC-resistant core shared by both formats: hash the
// input, then repeatedly rehash that digest to generate 32 pseudo-random
// columns and accumulate a multiply-add of each column against the original
// digest. The 32 accumulators are serialized big-endian and hashed once more.
func matmulWork(input []byte) [HashSize]byte {
	matrixARow1 := blake3.Sum256(input)

	working := matrixARow1
	var matrixCRow1 [HashSize]uint32
	for i := 0; i < HashSize; i++ {
		working = blake3.Sum256(working[:])
		for j := 0; j < HashSize; j++ {
			matrixCRow1[i] += uint32(matrixARow1[j]) * uint32(working[j])
		}
	}

	var preHash [HashSize * 4]byte
	for i, x := range matrixCRow1 {
		binary.BigEndian.PutUint32(preHash[i*4:], x)
	}
	return blake3.Sum256(preHash[:])
}

// hash64b double-hashes the matmul result; the header is used as-is.
func hash64b(header []byte) [HashSize]byte {
	work := matmulWork(header)
	h1 := blake3.Sum256(work[:])
	return blake3.Sum256(h1[:])
}

// hash217a computes the work-par, splices it into the header's work-par
// region, then double-hashes the patched header.
func hash217a(header []byte) [HashSize]byte {
	workPar := matmulWork(header)

	working := append([]byte(nil), header...)
	copy(working[workParStart217a:workParEnd217a], workPar[:])

	h1 := blake3.Sum256(working)
	return blake3.Sum256(h1[:])
}
