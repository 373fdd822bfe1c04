package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex.DecodeString(%q): %v", s, err)
	}
	return b
}

func TestHashToCurveVectors(t *testing.T) {
	vectors := []struct {
		msg  string
		want string
	}{
		{"0000000000000000000000000000000000000000000000000000000000000000",
			"0266687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"},
		{"0000000000000000000000000000000000000000000000000000000000000001",
			"02ec4916dd28fc4c10d78e287ca5d9cc51ee1ae73cbfde08c6b37324cbfaac8bc5"},
		{"0000000000000000000000000000000000000000000000000000000000000002",
			"02076c988b353fcbb748178ecb286bc9d0b4acf474d4ba31ba62334e46c97c416a"},
	}

	for _, v := range vectors {
		point, err := HashToCurve(mustDecode(t, v.msg))
		if err != nil {
			t.Fatalf("HashToCurve(%s): %v", v.msg, err)
		}
		got := hex.EncodeToString(point.SerializeCompressed())
		if got != v.want {
			t.Errorf("HashToCurve(%s) = %s, want %s", v.msg, got, v.want)
		}
	}
}

func TestBlindSignUnblindRoundTrip(t *testing.T) {
	secret := "test_message"

	rBytes := mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000002")
	r := secp256k1.PrivKeyFromBytes(rBytes)

	kBytes := mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000001")
	k := secp256k1.PrivKeyFromBytes(kBytes)
	K := k.PubKey()

	B_, r, err := BlindMessage(secret, r)
	if err != nil {
		t.Fatalf("BlindMessage: %v", err)
	}

	C_ := SignBlindedMessage(B_, k)
	C := UnblindSignature(C_, r, K)

	if !Verify(secret, k, C) {
		t.Fatal("verification failed for honestly blinded/signed/unblinded token")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	secret := "test_message"

	r := secp256k1.PrivKeyFromBytes(mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000002"))
	k := secp256k1.PrivKeyFromBytes(mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000001"))
	otherK := secp256k1.PrivKeyFromBytes(mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000003"))

	B_, r, err := BlindMessage(secret, r)
	if err != nil {
		t.Fatalf("BlindMessage: %v", err)
	}

	C_ := SignBlindedMessage(B_, k)
	C := UnblindSignature(C_, r, k.PubKey())

	if Verify(secret, otherK, C) {
		t.Fatal("verification succeeded with the wrong private key")
	}
}

func TestHashEDeterministic(t *testing.T) {
	k1 := secp256k1.PrivKeyFromBytes(mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000001"))
	k2 := secp256k1.PrivKeyFromBytes(mustDecode(t, "0000000000000000000000000000000000000000000000000000000000000002"))
	pub1 := k1.PubKey()
	pub2 := k2.PubKey()

	a := Hash_e([]*secp256k1.PublicKey{pub1, pub2})
	b := Hash_e([]*secp256k1.PublicKey{pub1, pub2})
	if a != b {
		t.Fatal("Hash_e is not deterministic over the same input")
	}

	c := Hash_e([]*secp256k1.PublicKey{pub2, pub1})
	if a == c {
		t.Fatal("Hash_e should be order-sensitive")
	}
}
