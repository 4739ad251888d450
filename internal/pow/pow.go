// Package pow implements the proof-of-work puzzle formats. The header layout
// and the BLAKE3 matmul mixing construction follow the pow5 family; which
// algorithm a challenge uses travels with the challenge row, and everything
// algorithm-specific is resolved once through the Algorithm union below.
package pow

import (
	"encoding/binary"
	"fmt"
)

// Algorithm is a closed union of the supported puzzle formats.
type Algorithm int

const (
	// Pow64b uses a 64-byte header: a 32-byte nonce region (bytes 0-31,
	// solvers typically iterate only the last 4 bytes) followed by a 32-byte
	// server challenge region.
	Pow64b Algorithm = iota + 1
	// Pow217a uses the 217-byte block-header format with a 4-byte nonce at
	// bytes 117-120 and a 32-byte work-par region at bytes 185-216 that is
	// recomputed during hashing.
	Pow217a
)

const HashSize = 32

type layout struct {
	headerSize int
	nonceStart int
	nonceEnd   int
}

func (a Algorithm) layout() layout {
	switch a {
	case Pow64b:
		return layout{headerSize: 64, nonceStart: 0, nonceEnd: 32}
	case Pow217a:
		return layout{headerSize: 217, nonceStart: 117, nonceEnd: 121}
	default:
		panic(fmt.Sprintf("pow: unknown algorithm %d", a))
	}
}

func (a Algorithm) String() string {
	switch a {
	case Pow64b:
		return "pow5-64b"
	case Pow217a:
		return "pow5-217a"
	default:
		return fmt.Sprintf("pow(%d)", a)
	}
}

// ParseAlgorithm resolves a stored algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "pow5-64b":
		return Pow64b, nil
	case "pow5-217a":
		return Pow217a, nil
	}
	return 0, fmt.Errorf("pow: unknown algorithm %q", name)
}

func (a Algorithm) HeaderSize() int { return a.layout().headerSize }

// NonceRange returns the [start, end) byte range solvers may freely change.
func (a Algorithm) NonceRange() (int, int) {
	l := a.layout()
	return l.nonceStart, l.nonceEnd
}

func (a Algorithm) checkSize(header []byte) error {
	if len(header) != a.layout().headerSize {
		return fmt.Errorf("pow: header is not the correct size: expected %d, got %d", a.layout().headerSize, len(header))
	}
	return nil
}

// Hash runs one full puzzle evaluation over the header.
func (a Algorithm) Hash(header []byte) ([HashSize]byte, error) {
	if err := a.checkSize(header); err != nil {
		return [HashSize]byte{}, err
	}
	switch a {
	case Pow64b:
		return hash64b(header), nil
	case Pow217a:
		return hash217a(header), nil
	default:
		panic(fmt.Sprintf("pow: unknown algorithm %d", a))
	}
}

// InsertNonce writes a big-endian uint32 into the last four bytes of the
// nonce region, matching how GPU and CPU miners iterate.
func (a Algorithm) InsertNonce(header []byte, nonce uint32) error {
	if err := a.checkSize(header); err != nil {
		return err
	}
	_, end := a.NonceRange()
	binary.BigEndian.PutUint32(header[end-4:end], nonce)
	return nil
}

// ZeroNonce returns a copy of the header with the nonce region zeroed.
// Comparing zero-nonced originals against zero-nonced solutions detects
// tampering with the challenge content itself.
func (a Algorithm) ZeroNonce(header []byte) []byte {
	out := append([]byte(nil), header...)
	start, end := a.NonceRange()
	for i := start; i < end; i++ {
		out[i] = 0
	}
	return out
}
