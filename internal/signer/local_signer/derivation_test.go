package localsigner

import (
	"encoding/hex"
	"reflect"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/SparrowTek/cashu-mint/api/cashu"
)

// masterKeyFromHex decodes a raw hex private key into an hdkeychain master
// key, failing the test on any error.
func masterKeyFromHex(t *testing.T, rawKey string, params *chaincfg.Params) *hdkeychain.ExtendedKey {
	t.Helper()
	keyBytes, err := hex.DecodeString(rawKey)
	if err != nil {
		t.Fatalf("hex.DecodeString: %+v", err)
	}
	key, err := hdkeychain.NewMaster(keyBytes, params)
	if err != nil {
		t.Fatalf("hdkeychain.NewMaster: %+v", err)
	}
	return key
}

func TestGenerateKeysetsAndIdGeneration(t *testing.T) {
	key := masterKeyFromHex(t, "0000000000000000000000000000000000000000000000000000000000000001", &chaincfg.MainNetParams)

	seed := cashu.Seed{
		Id:          "id",
		Unit:        cashu.Sat.String(),
		Version:     0,
		InputFeePpk: 0,
		Amounts:     cashu.GetAmountsForKeysets(cashu.LegacyMaxKeysetAmount),
		Legacy:      true,
	}

	generatedKeysets, err := GenerateKeysets(key, seed)
	if err != nil {
		t.Fatalf("GenerateKeysets: %+v", err)
	}

	if want := len(cashu.GetAmountsForKeysets(cashu.LegacyMaxKeysetAmount)); len(generatedKeysets) != want {
		t.Errorf("keyset length is %v, want %v", len(generatedKeysets), want)
	}

	first := generatedKeysets[0]
	if first.Amount != 1 {
		t.Errorf("expected first keyset amount 1, got %v", first.Amount)
	}
	if first.Unit != cashu.Sat.String() {
		t.Errorf("expected unit Sat, got %v", first.Unit)
	}

	const wantPubKey = "03a524f43d6166ad3567f18b0a5c769c6ab4dc02149f4d5095ccf4e8ffa293e785"
	if got := hex.EncodeToString(first.PrivKey.PubKey().SerializeCompressed()); got != wantPubKey {
		t.Errorf("keyset pubkey is incorrect: got %v, want %v", got, wantPubKey)
	}

	justPubkeys := make([]*btcec.PublicKey, len(generatedKeysets))
	for i := range generatedKeysets {
		justPubkeys[i] = generatedKeysets[i].GetPubKey()
	}

	keysetId, err := DeriveKeysetId(justPubkeys)
	if err != nil {
		t.Fatalf("DeriveKeysetId: %+v", err)
	}

	const wantKeysetId = "000fc082ba6bd376"
	if keysetId != wantKeysetId {
		t.Errorf("keyset id is incorrect: got %v, want %v", keysetId, wantKeysetId)
	}
}

func TestGeneratingAuthKeyset(t *testing.T) {
	key := masterKeyFromHex(t, hex.EncodeToString(make([]byte, 32)), &chaincfg.MainNetParams)
	seedConfig := cashu.Seed{Version: 1, Legacy: true, Unit: cashu.AUTH.String(), DerivationPath: "0/0/0/0", Amounts: []uint64{1}}

	generatedKeysets, err := DeriveKeyset(key, seedConfig)
	if err != nil {
		t.Fatalf("DeriveKeyset: %+v", err)
	}

	if len(generatedKeysets) != 1 {
		t.Fatalf("expected a single auth keyset, got %v", len(generatedKeysets))
	}
	if generatedKeysets[0].Amount != 1 {
		t.Errorf("expected amount 1, got %v", generatedKeysets[0].Amount)
	}
}

func TestGetDerivationSteps(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []uint32
		wantErr bool
	}{
		{
			name:    "Simple unhardened path",
			path:    "0/0",
			want:    []uint32{0, 0},
			wantErr: false,
		},
		{
			name:    "Hardened path",
			path:    "44'/0'",
			want:    []uint32{hdkeychain.HardenedKeyStart + 44, hdkeychain.HardenedKeyStart + 0},
			wantErr: false,
		},
		{
			name:    "Mixed path",
			path:    "44'/0/1'",
			want:    []uint32{hdkeychain.HardenedKeyStart + 44, 0, hdkeychain.HardenedKeyStart + 1},
			wantErr: false,
		},
		{
			name:    "Invalid path with m prefix",
			path:    "m/44'/0'",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "Invalid path format",
			path:    "invalid",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "Empty path",
			path:    "",
			want:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getDerivationSteps(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("getDerivationSteps() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getDerivationSteps() = %v, want %v", got, tt.want)
			}
		})
	}
}
