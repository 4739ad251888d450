package pow

import (
	"bytes"
	"math/big"
)

// MaxDifficulty bounds the right shift so the target never collapses to an
// unsatisfiable all-zero threshold by accident.
const MaxDifficulty = 255

var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TargetFromDifficulty maps a difficulty to a 32-byte big-endian threshold:
// (2^256 - 1) >> difficulty. Each unit of difficulty halves the share of
// hashes that qualify, so the expected work doubles.
func TargetFromDifficulty(difficulty uint32) [HashSize]byte {
	if difficulty > MaxDifficulty {
		difficulty = MaxDifficulty
	}
	t := new(big.Int).Rsh(maxTarget, uint(difficulty))
	var out [HashSize]byte
	t.FillBytes(out[:])
	return out
}

// MeetsTarget reports whether the hash, read as a big-endian integer, is
// numerically at or below the target. For equal-length big-endian buffers
// lexicographic comparison is numeric comparison.
func MeetsTarget(hash, target []byte) bool {
	return len(hash) == HashSize && len(target) == HashSize && bytes.Compare(hash, target) <= 0
}
