package localsigner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/SparrowTek/cashu-mint/api/cashu"
)

// GenerateKeysets derives one child key per denomination in seed.Amounts,
// indexed from the seed's already-walked derivation key. The index of
// amounts[i] within the keyset must stay stable across restarts since
// wallets address each denomination's public key by that index when
// building a keyset ID, so this can never reorder seed.Amounts.
func GenerateKeysets(versionKey *hdkeychain.ExtendedKey, seed cashu.Seed) ([]cashu.MintKey, error) {
	keysets := make([]cashu.MintKey, 0, len(seed.Amounts))
	derivedAt := time.Now().Unix()

	for i, amount := range seed.Amounts {
		childKey, err := versionKey.Derive(amountDerivationIndex(i, seed.Legacy))
		if err != nil {
			return nil, fmt.Errorf("versionKey.Derive: %w", err)
		}
		privKey, err := childKey.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("childKey.ECPrivKey: %w", err)
		}

		keysets = append(keysets, cashu.MintKey{
			Id:          seed.Id,
			Active:      seed.Active,
			Unit:        seed.Unit,
			Amount:      amount,
			PrivKey:     privKey,
			CreatedAt:   derivedAt,
			InputFeePpk: seed.InputFeePpk,
		})
	}

	return keysets, nil
}

// amountDerivationIndex picks the BIP32 child index for the i-th
// denomination. Legacy keysets derive with plain (non-hardened) indexes to
// stay compatible with keysets minted before hardened derivation was
// adopted; every seed created since then is hardened.
func amountDerivationIndex(i int, legacy bool) uint32 {
	if legacy {
		return uint32(i)
	}
	return hdkeychain.HardenedKeyStart + uint32(i)
}

// concatPubkeys serializes each compressed pubkey in order and concatenates
// them, the shared first step of both keyset ID algorithms below. Wallets
// recompute this from the keyset's published public keys, so the ordering
// must match the order the keys are advertised in.
func concatPubkeys(pubkeys []*btcec.PublicKey) []byte {
	var out []byte
	for _, pubkey := range pubkeys {
		if pubkey == nil {
			panic("pubkey should have never been nil at this time")
		}
		out = append(out, pubkey.SerializeCompressed()...)
	}
	return out
}

// DeriveKeysetId computes the v1 keyset ID: "00" followed by the first 14
// hex characters of sha256 over the concatenated compressed pubkeys.
func DeriveKeysetId(keysets []*btcec.PublicKey) (string, error) {
	hashed := sha256.Sum256(concatPubkeys(keysets))
	return "00" + hex.EncodeToString(hashed[:])[:14], nil
}

// DeriveKeysetIdV2 computes the v2 keyset ID, which additionally binds the
// unit and an optional final expiry into the hashed preimage so two keysets
// with identical pubkeys but different units/expiries never collide.
func DeriveKeysetIdV2(pubKeysArray []*btcec.PublicKey, unit cashu.Unit, finalExpiry *time.Time) string {
	preimage := concatPubkeys(pubKeysArray)
	preimage = append(preimage, []byte("unit:"+unit.String())...)
	if finalExpiry != nil {
		preimage = append(preimage, []byte("final_expiry:"+strconv.Itoa(int(finalExpiry.Unix())))...)
	}
	hash := sha256.Sum256(preimage)
	return "01" + hex.EncodeToString(hash[:])
}

// DeriveKeyset walks mintKey down seed.DerivationPath and derives the
// denomination keys at the resulting node.
func DeriveKeyset(mintKey *hdkeychain.ExtendedKey, seed cashu.Seed) ([]cashu.MintKey, error) {
	steps, err := getDerivationSteps(seed.DerivationPath)
	if err != nil {
		return nil, fmt.Errorf("getDerivationSteps(seed.DerivationPath). %w", err)
	}

	derivedKey := mintKey
	for _, step := range steps {
		derivedKey, err = derivedKey.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("derivedKey.Derive(step). %w", err)
		}
	}

	keyset, err := GenerateKeysets(derivedKey, seed)
	if err != nil {
		return nil, fmt.Errorf("GenerateKeysets(derivedKey, seed): %w", err)
	}

	return keyset, nil
}

// getDerivationSteps parses a "/"-separated BIP32 path such as "0'/1/2'"
// into its numeric indexes, translating a trailing "'" into the hardened
// offset.
func getDerivationSteps(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	steps := make([]uint32, len(segments))

	for i, segment := range segments {
		hardened := strings.HasSuffix(segment, "'")
		segment = strings.TrimSuffix(segment, "'")

		index, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("could not convert derivation path segment %q: %w", segment, err)
		}

		if hardened {
			steps[i] = hdkeychain.HardenedKeyStart + uint32(index)
		} else {
			steps[i] = uint32(index)
		}
	}

	return steps, nil
}

// deriveSeed dispatches to the legacy flat-index derivation or the
// standard BIP32-path derivation depending on how the seed was created.
func deriveSeed(seed cashu.Seed, mintKey *hdkeychain.ExtendedKey) ([]cashu.MintKey, error) {
	if !seed.Legacy {
		return DeriveKeyset(mintKey, seed)
	}

	legacyKey, err := legacyGetMintPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("legacyGetMintPrivateKey(). %w", err)
	}
	defer func() { legacyKey = nil }()

	return legacyDeriveKeyset(legacyKey, seed)
}

func GetKeysetsFromSeeds(seeds []cashu.Seed, mintKey *hdkeychain.ExtendedKey) (map[string]cashu.MintKeysMap, map[string]cashu.MintKeysMap, error) {
	newKeysets := make(map[string]cashu.MintKeysMap)
	newActiveKeysets := make(map[string]cashu.MintKeysMap)

	for _, seed := range seeds {
		keysets, err := deriveSeed(seed, mintKey)
		if err != nil {
			return newKeysets, newActiveKeysets, fmt.Errorf("deriveSeed(seed, mintKey) %w", err)
		}

		justPubkeys := []*btcec.PublicKey{}
		for i := range keysets {
			justPubkeys = append(justPubkeys, keysets[i].GetPubKey())
		}
		newSeedId, err := DeriveKeysetId(justPubkeys)
		if err != nil {
			return nil, nil, fmt.Errorf("cashu.DeriveKeysetId(justPubkeys) %w", err)
		}

		if newSeedId != seed.Id {
			log.Panicf("seed Id generated is not the same as the stored one. \n Stored: %v. \n Generated: %v", seed.Id, newSeedId)
		}

		mintkeyMap := make(cashu.MintKeysMap)
		for _, keyset := range keysets {
			mintkeyMap[keyset.Amount] = keyset
		}

		if seed.Active {
			newActiveKeysets[seed.Id] = mintkeyMap
		}

		newKeysets[seed.Id] = mintkeyMap
	}
	return newKeysets, newActiveKeysets, nil

}
