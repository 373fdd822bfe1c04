// Package crypto implements the Blind Diffie-Hellman Key Exchange (BDHKE)
// primitives that back BlindedMessage/BlindSignature/Proof in api/cashu:
// hash-to-curve, blinding, blind signing, unblinding and verification.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// domainSeparator is prepended to every message before hashing to curve, per
// NUT-00, so hash-to-curve points can never collide with points derived for
// an unrelated purpose.
const domainSeparator = "Secp256k1_HashToCurve_Cashu_"

var ErrNoValidPoint = errors.New("crypto: no valid curve point found for message")

// HashToCurve deterministically maps secret to a point on secp256k1. It
// hashes the domain-separated secret, then probes sequential counters until
// the 0x02-prefixed candidate parses as a valid compressed point.
func HashToCurve(secret []byte) (*secp256k1.PublicKey, error) {
	msgHash := sha256.Sum256(append([]byte(domainSeparator), secret...))

	counter := make([]byte, 4)
	for i := 0; i < math.MaxUint16; i++ {
		binary.LittleEndian.PutUint32(counter, uint32(i))

		hash := sha256.Sum256(append(msgHash[:], counter...))
		candidate := append([]byte{0x02}, hash[:]...)

		if point, err := secp256k1.ParsePubKey(candidate); err == nil {
			return point, nil
		}
	}

	return nil, ErrNoValidPoint
}

// BlindMessage computes B_ = Y + r*G for Y = HashToCurve(secret), returning
// the blinding factor r unchanged so callers can thread it through to
// UnblindSignature later.
func BlindMessage(secret string, r *secp256k1.PrivateKey) (*secp256k1.PublicKey, *secp256k1.PrivateKey, error) {
	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return nil, nil, err
	}

	var yPoint, rPoint, blinded secp256k1.JacobianPoint
	Y.AsJacobian(&yPoint)
	r.PubKey().AsJacobian(&rPoint)

	secp256k1.AddNonConst(&yPoint, &rPoint, &blinded)
	blinded.ToAffine()

	B_ := secp256k1.NewPublicKey(&blinded.X, &blinded.Y)
	return B_, r, nil
}

// SignBlindedMessage computes C_ = k*B_, the mint's blind signature over a
// client-supplied blinded point. It uses ScalarMultNonConst, which, as its
// name says, is not constant-time with respect to k.
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	var bPoint, result secp256k1.JacobianPoint
	B_.AsJacobian(&bPoint)

	secp256k1.ScalarMultNonConst(&k.Key, &bPoint, &result)
	result.ToAffine()

	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// UnblindSignature computes C = C_ - r*K, recovering the wallet's usable
// signature on the unblinded secret.
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, K *secp256k1.PublicKey) *secp256k1.PublicKey {
	var kPoint, rKPoint, cPoint, cBlindedPoint secp256k1.JacobianPoint
	K.AsJacobian(&kPoint)

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)
	secp256k1.ScalarMultNonConst(&rNeg, &kPoint, &rKPoint)

	C_.AsJacobian(&cBlindedPoint)
	secp256k1.AddNonConst(&cBlindedPoint, &rKPoint, &cPoint)
	cPoint.ToAffine()

	return secp256k1.NewPublicKey(&cPoint.X, &cPoint.Y)
}

// Verify checks k*HashToCurve(secret) == C, the mint-side acceptance test
// for an unblinded proof.
func Verify(secret string, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) bool {
	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return false
	}

	var yPoint, result secp256k1.JacobianPoint
	Y.AsJacobian(&yPoint)

	secp256k1.ScalarMultNonConst(&k.Key, &yPoint, &result)
	result.ToAffine()

	candidate := secp256k1.NewPublicKey(&result.X, &result.Y)
	return C.IsEqual(candidate)
}

// Hash_e hashes the concatenated compressed serialization of keys, the
// Fiat-Shamir challenge used by NUT-12's DLEQ proofs.
func Hash_e(keys []*secp256k1.PublicKey) [32]byte {
	var concat []byte
	for _, key := range keys {
		concat = append(concat, key.SerializeCompressed()...)
	}
	return sha256.Sum256(concat)
}
