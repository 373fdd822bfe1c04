package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gin-gonic/gin"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/database"
	"github.com/SparrowTek/cashu-mint/internal/mint"
	"github.com/SparrowTek/cashu-mint/pkg/crypto"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupP2PKMint spins up a postgres-backed mint wired to FakeWallet, the
// way setupFakeWalletMint does, but through its own container so P2PK tests
// stay independent of the melt-focused fixtures in main_test.go.
func setupP2PKMint(t *testing.T, ctx context.Context) (*gin.Engine, *mint.Mint) {
	t.Helper()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16.2"),
		postgres.WithDatabase("postgres"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("postgresContainer.Terminate: %s", err)
		}
	})

	connUri, err := postgresContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatal(fmt.Errorf("postgresContainer.ConnectionString: %w", err))
	}

	os.Setenv(database.DATABASE_URL_ENV, connUri)
	os.Setenv(MINT_PRIVATE_KEY_ENV, MintPrivateKey)
	os.Setenv(mint.MINT_LIGHTNING_BACKEND_ENV, "FakeWallet")
	os.Setenv(mint.NETWORK_ENV, "regtest")

	ctx = context.WithValue(ctx, mint.NETWORK_ENV, os.Getenv(mint.NETWORK_ENV))
	ctx = context.WithValue(ctx, mint.MINT_LIGHTNING_BACKEND_ENV, os.Getenv(mint.MINT_LIGHTNING_BACKEND_ENV))
	ctx = context.WithValue(ctx, database.DATABASE_URL_ENV, os.Getenv(database.DATABASE_URL_ENV))

	return SetupRoutingForTesting(ctx, false)
}

func TestRoutesP2PKSwapMelt(t *testing.T) {
	ctx := context.Background()
	router, m := setupP2PKMint(t, ctx)

	lockingPrivKey := secp256k1.PrivKeyFromBytes([]byte{0x01, 0x02, 0x03, 0x04})
	wrongPrivKey := secp256k1.PrivKeyFromBytes([]byte{0x01, 0x02, 0x03, 0x05})

	quote := requestMintQuoteSats(t, router, 1000)
	referenceKeyset := activeKeyByAmount(t, m, cashu.Sat, 1)

	outputs, secrets, secretKeys, err := CreateP2PKBlindedMessages(1000, referenceKeyset, lockingPrivKey.PubKey(), 1, []*secp256k1.PublicKey{lockingPrivKey.PubKey()}, nil, 0, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}

	signatures := mintLockedTokens(t, router, quote, outputs)

	swapProofs, err := GenerateProofsP2PK(signatures, activeKeysetsMap(t, m), secrets, secretKeys, []*secp256k1.PrivateKey{lockingPrivKey})
	if err != nil {
		t.Fatalf("GenerateProofsP2PK: %v", err)
	}

	swapOutputs, swapSecrets, swapSecretKeys, err := CreateP2PKBlindedMessages(1000, activeKeyByAmount(t, m, cashu.Sat, 1), lockingPrivKey.PubKey(), 1, []*secp256k1.PublicKey{lockingPrivKey.PubKey()}, nil, 0, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}

	swapSignatures := swapLockedProofsOK(t, router, swapProofs, swapOutputs)

	swapProofsWrongSigs, err := GenerateProofsP2PK(swapSignatures, activeKeysetsMap(t, m), swapSecrets, swapSecretKeys, []*secp256k1.PrivateKey{wrongPrivKey})
	if err != nil {
		t.Fatalf("GenerateProofsP2PK: %v", err)
	}
	rejectOutputs, _, _, err := CreateP2PKBlindedMessages(1000, activeKeyByAmount(t, m, cashu.Sat, 1), lockingPrivKey.PubKey(), 1, []*secp256k1.PublicKey{lockingPrivKey.PubKey()}, nil, 0, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}

	assertSwapRejected(t, router, swapProofsWrongSigs, rejectOutputs, 400, `{"code":10003,"error":"Proof could not be verified"}`)
}

func TestP2PKMultisigSigning(t *testing.T) {
	ctx := context.Background()
	router, m := setupP2PKMint(t, ctx)

	lockingPrivKeyOne := secp256k1.PrivKeyFromBytes([]byte{0x01, 0x02, 0x03, 0x04})
	lockingPrivKeyTwo := secp256k1.PrivKeyFromBytes([]byte{0x01, 0x02, 0x03, 0x05})
	wrongPrivKey := secp256k1.PrivKeyFromBytes([]byte{0x01, 0x02, 0x03, 0x08})
	refundPrivKey := secp256k1.PrivKeyFromBytes([]byte{0x01, 0x02, 0x03, 0x06})

	quote := requestMintQuoteSats(t, router, 1000)
	referenceKeyset := activeKeyByAmount(t, m, cashu.Sat, 1)

	// multisig token requiring both locking keys
	outputs, secrets, secretKeys, err := CreateP2PKBlindedMessages(1000, referenceKeyset, lockingPrivKeyOne.PubKey(), 2, []*secp256k1.PublicKey{lockingPrivKeyTwo.PubKey()}, nil, 0, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}
	signatures := mintLockedTokens(t, router, quote, outputs)

	swapProofs, err := GenerateProofsP2PK(signatures, activeKeysetsMap(t, m), secrets, secretKeys, []*secp256k1.PrivateKey{lockingPrivKeyOne, lockingPrivKeyTwo})
	if err != nil {
		t.Fatalf("GenerateProofsP2PK: %v", err)
	}

	swapOutputs, swapSecrets, swapSecretKeys, err := CreateP2PKBlindedMessages(1000, activeKeyByAmount(t, m, cashu.Sat, 1), lockingPrivKeyOne.PubKey(), 2, []*secp256k1.PublicKey{lockingPrivKeyTwo.PubKey()}, []*secp256k1.PublicKey{refundPrivKey.PubKey()}, 100, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}
	swapSignatures := swapLockedProofsOK(t, router, swapProofs, swapOutputs)

	// locktime (100) has passed, and neither signature is by the refund key
	timelockedProofs, err := GenerateProofsP2PK(swapSignatures, activeKeysetsMap(t, m), swapSecrets, swapSecretKeys, []*secp256k1.PrivateKey{lockingPrivKeyTwo, wrongPrivKey})
	if err != nil {
		t.Fatalf("GenerateProofsP2PK: %v", err)
	}
	rejectOutputs, _, _, err := CreateP2PKBlindedMessages(1000, activeKeyByAmount(t, m, cashu.Sat, 1), lockingPrivKeyOne.PubKey(), 2, []*secp256k1.PublicKey{lockingPrivKeyTwo.PubKey()}, []*secp256k1.PublicKey{refundPrivKey.PubKey()}, 100, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}
	assertSwapRejected(t, router, timelockedProofs, rejectOutputs, 400, `{"code":10003,"error":"Proof could not be verified"}`)

	// spend through the refund path instead
	refundProofs, err := GenerateProofsP2PK(swapSignatures, activeKeysetsMap(t, m), swapSecrets, swapSecretKeys, []*secp256k1.PrivateKey{lockingPrivKeyTwo, refundPrivKey})
	if err != nil {
		t.Fatalf("GenerateProofsP2PK: %v", err)
	}
	futureLocktime := int(time.Now().Add(15 * time.Minute).Unix())
	refundOutputs, refundSecrets, refundSecretKeys, err := CreateP2PKBlindedMessages(1000, activeKeyByAmount(t, m, cashu.Sat, 1), lockingPrivKeyOne.PubKey(), 2, []*secp256k1.PublicKey{lockingPrivKeyTwo.PubKey()}, []*secp256k1.PublicKey{refundPrivKey.PubKey()}, futureLocktime, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}
	refundSignatures := swapLockedProofsOK(t, router, refundProofs, refundOutputs)

	// with the locktime still in the future, the wrong key is rejected again
	wrongSigProofs, err := GenerateProofsP2PK(refundSignatures, activeKeysetsMap(t, m), refundSecrets, refundSecretKeys, []*secp256k1.PrivateKey{lockingPrivKeyTwo, wrongPrivKey})
	if err != nil {
		t.Fatalf("GenerateProofsP2PK: %v", err)
	}
	finalRejectOutputs, _, _, err := CreateP2PKBlindedMessages(1000, activeKeyByAmount(t, m, cashu.Sat, 1), lockingPrivKeyOne.PubKey(), 2, []*secp256k1.PublicKey{lockingPrivKeyTwo.PubKey()}, []*secp256k1.PublicKey{refundPrivKey.PubKey()}, 100, cashu.SigInputs)
	if err != nil {
		t.Fatalf("CreateP2PKBlindedMessages: %v", err)
	}
	assertSwapRejected(t, router, wrongSigProofs, finalRejectOutputs, 400, `{"code":10003,"error":"Proof could not be verified"}`)
}

func CreateP2PKBlindedMessages(amount uint64, keyset cashu.MintKey, pubkey *secp256k1.PublicKey, nSigs int, pubkeys []*secp256k1.PublicKey, refundPubkey []*secp256k1.PublicKey, locktime int, sigflag cashu.SigFlag) ([]cashu.BlindedMessage, []string, []*secp256k1.PrivateKey, error) {
	splitAmounts := cashu.AmountSplit(amount)

	blindedMessages := make([]cashu.BlindedMessage, len(splitAmounts))
	secrets := make([]string, len(splitAmounts))
	rs := make([]*secp256k1.PrivateKey, len(splitAmounts))

	for i, amt := range splitAmounts {
		spendCond, err := makeP2PKSpendCondition(pubkey, nSigs, pubkeys, refundPubkey, locktime, sigflag)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("makeP2PKSpendCondition: %w", err)
		}
		secret, err := spendCond.String()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("spendCond.String(): %w", err)
		}

		r, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, nil, nil, err
		}

		var B_ *secp256k1.PublicKey
		for {
			B_, r, err = crypto.BlindMessage(secret, r)
			if err == nil {
				break
			}
		}

		blindedMessages[i] = newBlindedMessage(keyset.Id, amt, B_)
		secrets[i] = secret
		rs[i] = r
	}

	return blindedMessages, secrets, rs, nil
}

func makeP2PKSpendCondition(pubkey *secp256k1.PublicKey, nSigs int, pubkeys []*secp256k1.PublicKey, refundPubkey []*secp256k1.PublicKey, locktime int, sigflag cashu.SigFlag) (cashu.SpendCondition, error) {
	var spendCondition cashu.SpendCondition
	spendCondition.Type = cashu.P2PK
	spendCondition.Data.Data = hex.EncodeToString(pubkey.SerializeCompressed())
	spendCondition.Data.Tags.Pubkeys = pubkeys
	spendCondition.Data.Tags.NSigs = nSigs
	spendCondition.Data.Tags.Locktime = locktime
	spendCondition.Data.Tags.Sigflag = sigflag
	spendCondition.Data.Tags.Refund = refundPubkey

	nonce, err := cashu.GenerateNonceHex()
	if err != nil {
		return spendCondition, err
	}
	spendCondition.Data.Nonce = nonce

	return spendCondition, nil
}

func GenerateProofsP2PK(signatures []cashu.BlindSignature, keysets map[string]map[uint64]cashu.MintKey, secrets []string, secretsKey []*secp256k1.PrivateKey, privkeys []*secp256k1.PrivateKey) ([]cashu.Proof, error) {
	var proofs []cashu.Proof
	for i, output := range signatures {
		mintPublicKey := keysets[cashu.Sat.String()][output.Amount].PrivKey.PubKey()
		C := crypto.UnblindSignature(output.C_.PublicKey, secretsKey[i], mintPublicKey)

		proof := cashu.Proof{Id: output.Id, Amount: output.Amount, C: cashu.WrappedPublicKey{PublicKey: C}, Secret: secrets[i]}
		for _, privkey := range privkeys {
			if err := proof.Sign(privkey); err != nil {
				return nil, fmt.Errorf("proof.Sign: %w", err)
			}
		}

		proofs = append(proofs, proof)
	}

	return proofs, nil
}
