// Package cryptocore wraps the secp256k1 operations the derivation protocol
// needs: key generation, point addition, scalar addition mod the curve order,
// the keyed-BLAKE3 derivation scalar, and detached ECDSA signatures. The
// non-custodial property rests on the split implemented here: the server can
// compute a derivation scalar from its entropy plus a per-key salt, but a
// usable engagement private key additionally needs the vault private scalar,
// which only the owner holds.
package cryptocore

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"lukechampine.com/blake3"
)

// CompressedPubKeySize is the wire size of a serialized public key.
const CompressedPubKeySize = 33

// GenerateVaultKeypair creates a fresh secp256k1 keypair from the active
// randomness source.
func GenerateVaultKeypair() (*secp256k1.PrivateKey, error) {
	var seed [32]byte
	for {
		if err := ReadRandom(seed[:]); err != nil {
			return nil, err
		}
		var k secp256k1.ModNScalar
		overflow := k.SetBytes(&seed)
		if overflow == 0 && !k.IsZero() {
			return secp256k1.NewPrivateKey(&k), nil
		}
	}
}

// DerivationScalar computes KDF(serverEntropy, dbEntropy): a keyed BLAKE3
// hash of the per-key salt under the server secret, reduced mod the curve
// order. A zero result is rejected rather than silently reduced again.
func DerivationScalar(serverEntropy, dbEntropy []byte) (*secp256k1.ModNScalar, error) {
	if len(serverEntropy) != 32 || len(dbEntropy) != 32 {
		return nil, ErrBadEntropySize
	}
	h := blake3.New(32, serverEntropy)
	h.Write(dbEntropy)
	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	var k secp256k1.ModNScalar
	k.SetBytes(&digest) // reduces mod N on overflow
	if k.IsZero() {
		return nil, ErrZeroScalar
	}
	return &k, nil
}

// ScalarPubKey returns k·G.
func ScalarPubKey(k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &p)
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y)
}

// AddPubKeys returns the affine sum a + b on the curve.
func AddPubKeys(a, b *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var ja, jb, sum secp256k1.JacobianPoint
	a.AsJacobian(&ja)
	b.AsJacobian(&jb)
	secp256k1.AddNonConst(&ja, &jb, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, ErrPointAtInfinity
	}
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}

// AddScalars returns a + b mod the curve order.
func AddScalars(a, b *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	var sum secp256k1.ModNScalar
	sum.Set(a)
	sum.Add(b)
	return &sum
}

// SignHash produces a DER-encoded ECDSA signature over a 32-byte digest.
func SignHash(priv *secp256k1.PrivateKey, hash []byte) []byte {
	return ecdsa.Sign(priv, hash).Serialize()
}

// VerifyHash checks a DER-encoded ECDSA signature over a 32-byte digest.
func VerifyHash(sigDER, hash []byte, pub *secp256k1.PublicKey) bool {
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pub)
}

// ParsePubKeyHex decodes and validates a hex-encoded compressed public key.
func ParsePubKeyHex(s string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != CompressedPubKeySize {
		return nil, ErrInvalidPubKey
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, ErrInvalidPubKey
	}
	return pub, nil
}

// PubKeyHex is the canonical wire encoding: lowercase hex of the compressed
// serialization.
func PubKeyHex(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}
