package pow

// Mine brute-forces nonces 0..maxNonce over a copy of the header until the
// puzzle hash meets the target. It exists for tests and reference clients;
// the server only ever verifies.
func Mine(alg Algorithm, header, target []byte, maxNonce uint32) (solved []byte, hash [HashSize]byte, ok bool) {
	work := append([]byte(nil), header...)
	for nonce := uint32(0); ; nonce++ {
		if err := alg.InsertNonce(work, nonce); err != nil {
			return nil, [HashSize]byte{}, false
		}
		h, err := alg.Hash(work)
		if err != nil {
			return nil, [HashSize]byte{}, false
		}
		if MeetsTarget(h[:], target) {
			return work, h, true
		}
		if nonce == maxNonce {
			return nil, [HashSize]byte{}, false
		}
	}
}
