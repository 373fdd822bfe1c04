package cashu

import (
	"crypto/rand"
	"encoding/hex"
	"math"
)

// LegacyMaxKeysetAmount is the number of power-of-two denominations derived
// for a keyset, covering amounts 1 through 2^63.
const LegacyMaxKeysetAmount int = 64

func GetAmountsForKeysets(max int) []uint64 {
	keys := make([]uint64, 0)

	for i := 0; i < max; i++ {
		keys = append(keys, uint64(math.Pow(2, float64(i))))
	}
	return keys
}

// AmountSplit returns the list of denominations needed to make up amount,
// e.g 13 -> [1, 4, 8], used to build blinded messages or split operations.
func AmountSplit(amount uint64) []uint64 {
	rv := make([]uint64, 0)
	for pos := 0; amount > 0; pos++ {
		if amount&1 == 1 {
			rv = append(rv, 1<<pos)
		}
		amount >>= 1
	}
	return rv
}

func GenerateNonceHex() (string, error) {

	// generate random Nonce
	nonce := make([]byte, 32)  // create a slice with length 32 for the nonce
	_, err := rand.Read(nonce) // read random bytes into the nonce slice
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(nonce), nil
}

func Fees(proofs []Proof, keysets []BasicKeysetResponse) (int, error) {
	totalFees := 0

	var keysetToUse BasicKeysetResponse
	for _, proof := range proofs {
		// find keyset to compare to fees if keyset id is not found throw error
		// only check for new keyset if proofs id is different
		if keysetToUse.Id != proof.Id {
			for _, keyset := range keysets {
				if keyset.Id == proof.Id {

					keysetToUse = keyset
				}
			}
			if keysetToUse.Id != proof.Id {
				return 0, ErrKeysetForProofNotFound

			}

		}

		totalFees += int(keysetToUse.InputFeePpk)

	}

	totalFees = (totalFees + 999) / 1000

	return totalFees, nil

}
