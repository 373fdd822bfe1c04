package localsigner

import (
	"context"
	"testing"

	"github.com/SparrowTek/cashu-mint/api/cashu"
	mockdb "github.com/SparrowTek/cashu-mint/internal/database/mock_db"
)

const MintPrivateKey string = "0000000000000000000000000000000000000000000000000000000000000001"

// newTestSigner wires a LocalSigner against a fresh mock DB with
// MINT_PRIVATE_KEY pinned to a fixed test key, returning both so callers can
// reach into the backing store for assertions the signer's own API doesn't
// expose.
func newTestSigner(t *testing.T) (*LocalSigner, *mockdb.MockDB) {
	t.Helper()
	db := &mockdb.MockDB{}
	t.Setenv("MINT_PRIVATE_KEY", MintPrivateKey)
	signer, err := SetupLocalSigner(db)
	if err != nil {
		t.Fatalf("SetupLocalSigner(db): %+v", err)
	}
	return signer, db
}

func TestRotateUnexistingSeedUnit(t *testing.T) {
	signer, db := newTestSigner(t)

	if err := signer.RotateKeyset(cashu.Msat, uint(100), 0); err != nil {
		t.Fatalf("signer.RotateKeyset(cashu.Msat, 100, 0): %+v", err)
	}
	if err := signer.RotateKeyset(cashu.Sat, uint(100), 0); err != nil {
		t.Fatalf("signer.RotateKeyset(cashu.Sat, 100, 0): %+v", err)
	}

	keys, err := signer.GetKeys()
	if err != nil {
		t.Fatalf("signer.GetKeys(): %+v", err)
	}
	if len(keys.Keysets) != 3 {
		t.Errorf("expected 3 keysets, got %v", len(keys.Keysets))
	}

	ctx := context.Background()
	tx, err := signer.db.GetTx(ctx)
	if err != nil {
		t.Fatalf("signer.db.GetTx(ctx): %+v", err)
	}

	msatSeeds, err := db.GetSeedsByUnit(tx, cashu.Msat)
	if err != nil {
		t.Fatalf("db.GetSeedsByUnit(cashu.Msat): %+v", err)
	}
	if msatSeeds[0].Version != 1 {
		t.Errorf("expected msat seed version 1, got %v", msatSeeds[0].Version)
	}
	if msatSeeds[0].InputFeePpk != uint(100) {
		t.Errorf("expected input fee 100, got %v", msatSeeds[0].InputFeePpk)
	}

	satSeeds, err := db.GetSeedsByUnit(tx, cashu.Sat)
	if err != nil {
		t.Fatalf("db.GetSeedsByUnit(cashu.Sat): %+v", err)
	}
	if len(satSeeds) != 2 {
		t.Fatalf("expected 2 sat seeds, got %v", len(satSeeds))
	}
	if satSeeds[1].Version != 2 {
		t.Errorf("expected sat seed version 2, got %v", satSeeds[1].Version)
	}
	if satSeeds[1].InputFeePpk != uint(100) {
		t.Errorf("expected input fee 100, got %v", satSeeds[1].InputFeePpk)
	}
}

func TestCreateNewSeed(t *testing.T) {
	signer, _ := newTestSigner(t)

	keys, err := signer.GetActiveKeys()
	if err != nil {
		t.Fatalf("signer.GetActiveKeys(): %+v", err)
	}

	const wantId = "00bfa73302d12ffd"
	if keys.Keysets[0].Id != wantId {
		t.Errorf("seed id incorrect: got %v, want %v", keys.Keysets[0].Id, wantId)
	}
}

func TestRotateAuthSeedUnit(t *testing.T) {
	signer, _ := newTestSigner(t)

	if err := signer.RotateKeyset(cashu.AUTH, uint(100), 0); err != nil {
		t.Fatalf("signer.RotateKeyset(cashu.AUTH, 100, 0): %+v", err)
	}

	keys, err := signer.GetAuthActiveKeys()
	if err != nil {
		t.Fatalf("signer.GetAuthActiveKeys(): %+v", err)
	}
	if len(keys.Keysets) != 1 {
		t.Fatalf("expected a single auth keyset, got %v", len(keys.Keysets))
	}
	if keys.Keysets[0].Unit != cashu.AUTH.String() {
		t.Errorf("expected auth unit, got %v", keys.Keysets[0].Unit)
	}
	if _, ok := keys.Keysets[0].Keys["1"]; !ok {
		t.Errorf("expected a denomination-1 key, got %+v", keys.Keysets[0])
	}
}
