package main

import (
	"testing"

	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/mint"
)

// activeKeysByUnit indexes a mint's active keys for a unit by amount, mirroring
// the shape the pre-Signer test helpers expected from a keyset map.
func activeKeysByUnit(t *testing.T, m *mint.Mint, unit cashu.Unit) map[uint64]cashu.MintKey {
	keys, err := m.Signer.GetKeysByUnit(unit)
	if err != nil {
		t.Fatalf("m.Signer.GetKeysByUnit(unit): %+v", err)
	}

	byAmount := make(map[uint64]cashu.MintKey, len(keys))
	for _, key := range keys {
		byAmount[key.Amount] = key
	}
	return byAmount
}

func activeKeyByAmount(t *testing.T, m *mint.Mint, unit cashu.Unit, amount uint64) cashu.MintKey {
	key, ok := activeKeysByUnit(t, m, unit)[amount]
	if !ok {
		t.Fatalf("no active key for unit %s amount %d", unit.String(), amount)
	}
	return key
}

func activeKeysetsMap(t *testing.T, m *mint.Mint) map[string]map[uint64]cashu.MintKey {
	return map[string]map[uint64]cashu.MintKey{
		cashu.Sat.String(): activeKeysByUnit(t, m, cashu.Sat),
	}
}
