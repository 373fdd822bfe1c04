package localsigner

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/tyler-smith/go-bip32"
)

// legacyGetMintPrivateKey reconstructs the master key the way keysets
// predating hdkeychain-based derivation were seeded: from a single raw
// private key in MINT_PRIVATE_KEY, rather than a BIP39 mnemonic.
func legacyGetMintPrivateKey() (*bip32.Key, error) {
	rawKey := os.Getenv("MINT_PRIVATE_KEY")
	if rawKey == "" {
		return nil, fmt.Errorf(`os.Getenv("MINT_PRIVATE_KEY") is empty`)
	}
	defer func() { rawKey = "" }()

	keyBytes, err := hex.DecodeString(rawKey)
	if err != nil {
		return nil, fmt.Errorf("hex.DecodeString(MINT_PRIVATE_KEY): %w", err)
	}

	master, err := bip32.NewMasterKey(secp256k1.PrivKeyFromBytes(keyBytes).Serialize())
	if err != nil {
		return nil, fmt.Errorf("bip32.NewMasterKey: %w", err)
	}
	return master, nil
}

// legacyDeriveKeyset walks the legacy master key down unit/version and
// derives a denomination key per seed.Amounts, using go-bip32's
// non-hardened child derivation exactly as the keysets created before
// hdkeychain adoption did.
func legacyDeriveKeyset(mintKey *bip32.Key, seed cashu.Seed) ([]cashu.MintKey, error) {
	unit, err := cashu.UnitFromString(seed.Unit)
	if err != nil {
		return nil, fmt.Errorf("cashu.UnitFromString(seed.Unit): %w", err)
	}

	unitKey, err := mintKey.NewChildKey(uint32(unit.EnumIndex()))
	if err != nil {
		return nil, fmt.Errorf("mintKey.NewChildKey(unit index): %w", err)
	}

	versionKey, err := unitKey.NewChildKey(seed.Version)
	if err != nil {
		return nil, fmt.Errorf("unitKey.NewChildKey(seed.Version): %w", err)
	}

	return legacyGenerateKeysets(versionKey, seed)
}

// legacyGenerateKeysets derives one denomination key per seed.Amounts from
// versionKey, at plain (non-hardened) child index i.
func legacyGenerateKeysets(versionKey *bip32.Key, seed cashu.Seed) ([]cashu.MintKey, error) {
	derivedAt := time.Now().Unix()
	keysets := make([]cashu.MintKey, 0, len(seed.Amounts))

	for i, amount := range seed.Amounts {
		childKey, err := versionKey.NewChildKey(uint32(i))
		if err != nil {
			return nil, fmt.Errorf("versionKey.NewChildKey(%d): %w", i, err)
		}

		keysets = append(keysets, cashu.MintKey{
			Id:          seed.Id,
			Active:      seed.Active,
			Unit:        seed.Unit,
			Amount:      amount,
			PrivKey:     secp256k1.PrivKeyFromBytes(childKey.Key),
			CreatedAt:   derivedAt,
			InputFeePpk: seed.InputFeePpk,
		})
	}

	return keysets, nil
}
