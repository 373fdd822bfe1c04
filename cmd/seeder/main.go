package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/joho/godotenv"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/database/postgresql"
	localsigner "github.com/SparrowTek/cashu-mint/internal/signer/local_signer"
	"github.com/SparrowTek/cashu-mint/pkg/crypto"
)

const (
	DefaultMintPrivateKey = "0000000000000000000000000000000000000000000000000000000000000001"
)

func main() {
	log.Println("Starting database seeder...")

	// get variables from env file
	err := godotenv.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}
	// 1. Setup
	mintPrivateKeyHex := os.Getenv("MINT_PRIVATE_KEY")
	if mintPrivateKeyHex == "" {
		mintPrivateKeyHex = DefaultMintPrivateKey
	}

	decodedPrivKey, err := hex.DecodeString(mintPrivateKeyHex)
	if err != nil {
		log.Fatalf("Failed to decode mint private key: %v", err)
	}
	mintPrivKey := secp256k1.PrivKeyFromBytes(decodedPrivKey)
	masterKey, err := hdkeychain.NewMaster(mintPrivKey.Serialize(), &chaincfg.MainNetParams)
	if err != nil {
		log.Fatalf("Failed to create master key: %v", err)
	}

	db, err := postgresql.DatabaseSetup(context.Background(), "migrations")
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// 2. Main loop: 24 months, one mint or melt request per day.
	// availableProofs only ever holds unspent proofs minted during this run.
	now := time.Now()
	startTime := now.AddDate(0, -24, 0)

	availableProofs := make([]cashu.Proof, 0)
	var currentKeyset map[uint64]cashu.MintKey
	var currentKeysetId string
	var currentMonth int = -1

	// Calculate total days: 24 months of 30 days = 720 days
	// Generate requests once per day (multiple times per week)
	totalDays := 24 * 30 // Approximate 30 days per month

	for day := 0; day < totalDays; day++ {
		currentDayTime := startTime.AddDate(0, 0, day)
		currentDayMonth := int(currentDayTime.Month()) - 1 + (currentDayTime.Year()-startTime.Year())*12

		// Rotate keyset monthly
		if currentDayMonth != currentMonth {
			currentMonth = currentDayMonth
			log.Printf("Processing month: %s", currentDayTime.Format("2006-01"))

			// --- Keyset Rotation ---
			fee := uint((currentMonth + 1) * 100)

			// Start Transaction for Keyset Rotation
			tx, err := db.GetTx(ctx)
			if err != nil {
				log.Fatalf("Failed to begin transaction: %v", err)
			}

			// Deactivate existing Sat seeds
			seeds, err := db.GetSeedsByUnit(tx, cashu.Sat)
			if err != nil {
				log.Fatalf("Failed to get seeds: %v", err)
			}

			highestVersion := 0
			for idx, s := range seeds {
				if s.Version > highestVersion {
					highestVersion = s.Version
				}
				seeds[idx].Active = false
			}

			if len(seeds) > 0 {
				if err := db.UpdateSeedsActiveStatus(tx, seeds); err != nil {
					log.Fatalf("Failed to update seeds status: %v", err)
				}
			}

			// Create New Seed
			newSeed := cashu.Seed{
				CreatedAt:      currentDayTime.Unix(),
				Active:         true,
				Version:        highestVersion + 1,
				Unit:           cashu.Sat.String(),
				InputFeePpk:    fee,
				Amounts:        cashu.GetAmountsForKeysets(cashu.LegacyMaxKeysetAmount),
				DerivationPath: fmt.Sprintf("%d'/%d'", cashu.Sat.EnumIndex(), highestVersion+1),
			}

			// Derive keys for the new seed
			keysets, err := localsigner.DeriveKeyset(masterKey, newSeed)
			if err != nil {
				log.Fatalf("Failed to derive keyset: %v", err)
			}

			// Calculate ID
			pubkeys := make([]*secp256k1.PublicKey, 0)
			for _, k := range keysets {
				pubkeys = append(pubkeys, k.GetPubKey())
			}
			keysetId, err := localsigner.DeriveKeysetId(pubkeys)
			if err != nil {
				log.Fatalf("Failed to derive keyset ID: %v", err)
			}
			newSeed.Id = keysetId

			// Save new seed
			if err := db.SaveNewSeed(tx, newSeed); err != nil {
				log.Fatalf("Failed to save new seed: %v", err)
			}

			if err := db.Commit(ctx, tx); err != nil {
				log.Fatalf("Failed to commit keyset rotation: %v", err)
			}

			// Update current keyset map for signing
			currentKeyset = make(map[uint64]cashu.MintKey)
			for _, k := range keysets {
				// Ensure private key is set correctly from derivation
				k.Id = keysetId // Ensure ID is set
				currentKeyset[k.Amount] = k
			}
			currentKeysetId = keysetId
		}

		isMint := coinFlip()

		if isMint {
			processMint(ctx, db, currentDayTime, currentKeyset, currentKeysetId, &availableProofs)
		} else {
			processMelt(ctx, db, currentDayTime, &availableProofs)
		}
	}

	log.Println("Database seeding completed successfully.")
}

func coinFlip() bool {
	n, _ := rand.Int(rand.Reader, big.NewInt(2))
	return n.Int64() == 0
}

func randomInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

func processMint(ctx context.Context, db postgresql.Postgresql, timestamp time.Time, keyset map[uint64]cashu.MintKey, keysetId string, availableProofs *[]cashu.Proof) {
	// Create Mint Request
	quoteId, _ := generateRandomHex(16)
	amount := uint64((randomInt(100) + 1) * 1000) // 1000 - 100000 sats

	stateChoice := randomInt(3) // 0: UNPAID, 1: PAID, 2: ISSUED
	var state cashu.ACTION_STATE
	var minted bool
	var paid bool

	switch stateChoice {
	case 0:
		state = cashu.UNPAID
		minted = false
		paid = false
	case 1:
		state = cashu.PAID // Assuming PAID means paid but not yet minted/issued
		minted = false
		paid = true
	case 2:
		state = cashu.ISSUED
		minted = true
		paid = true
	}

	req := cashu.MintRequestDB{
		Quote:       quoteId,
		Request:     "lnbcrt" + quoteId, // Fake bolt11
		RequestPaid: paid,
		Expiry:      timestamp.Add(time.Hour * 24).Unix(),
		Unit:        cashu.Sat.String(),
		Minted:      minted,
		State:       state,
		SeenAt:      timestamp.Unix(),
		Amount:      &amount,
		CheckingId:  quoteId,
		// Pubkey not strictly needed for this simulation
	}

	tx, err := db.GetTx(ctx)
	if err != nil {
		log.Printf("Mint: Failed to get tx: %v", err)
		return
	}
	defer db.Rollback(ctx, tx)

	if err := db.SaveMintRequest(tx, req); err != nil {
		log.Printf("Mint: Failed to save request: %v", err)
		return
	}

	if state == cashu.ISSUED {
		// Generate Blinded Messages
		blindedMessages, secrets, rs, err := createBlindedMessages(amount, keysetId)
		if err != nil {
			log.Printf("Mint: Failed to create blinded messages: %v", err)
			return
		}

		// Validate that blinded messages sum equals invoice amount
		var blindedMessagesSum uint64
		for _, msg := range blindedMessages {
			blindedMessagesSum += msg.Amount
		}
		if blindedMessagesSum != amount {
			log.Printf("Mint: Blinded messages sum (%d) does not match invoice amount (%d)", blindedMessagesSum, amount)
			return
		}

		var signatures []cashu.BlindSignature
		var recoverSigs []cashu.RecoverSigDB
		proofsBeforeMint := len(*availableProofs)

		for i, msg := range blindedMessages {
			key, ok := keyset[msg.Amount]
			if !ok {
				log.Printf("Mint: Key not found for amount %d", msg.Amount)
				return
			}

			C_ := crypto.SignBlindedMessage(msg.B_.PublicKey, key.PrivKey)

			blindSig := cashu.BlindSignature{
				Amount: msg.Amount,
				Id:     keysetId,
				C_:     cashu.WrappedPublicKey{PublicKey: C_},
			}

			// Generate DLEQ
			if err := blindSig.GenerateDLEQ(msg.B_.PublicKey, key.PrivKey); err != nil {
				log.Printf("Mint: Failed to generate DLEQ: %v", err)
				return
			}

			signatures = append(signatures, blindSig)

			recoverSigs = append(recoverSigs, cashu.RecoverSigDB{
				Amount:    msg.Amount,
				Id:        keysetId,
				B_:        msg.B_,
				C_:        blindSig.C_,
				CreatedAt: timestamp.Unix(),
				Dleq:      blindSig.Dleq,
				MeltQuote: "", // Not relevant for mint
			})

			C := crypto.UnblindSignature(C_, rs[i], key.PrivKey.PubKey())
			*availableProofs = append(*availableProofs, cashu.Proof{
				Amount: msg.Amount,
				Id:     keysetId,
				Secret: secrets[i],
				C:      cashu.WrappedPublicKey{PublicKey: C},
			})

			// Calculate Y for the proof (needed for DB SaveProof)
			Y, err := crypto.HashToCurve([]byte(secrets[i]))
			if err == nil {
				(*availableProofs)[len(*availableProofs)-1].Y = cashu.WrappedPublicKey{PublicKey: Y}
			}
			(*availableProofs)[len(*availableProofs)-1].SeenAt = timestamp.Unix()
			(*availableProofs)[len(*availableProofs)-1].State = cashu.PROOF_UNSPENT
			(*availableProofs)[len(*availableProofs)-1].Quote = &quoteId
		}

		if len(signatures) != len(blindedMessages) {
			log.Printf("Mint: Number of blind signatures (%d) does not match blinded messages (%d)", len(signatures), len(blindedMessages))
			return
		}
		if proofsCreated := len(*availableProofs) - proofsBeforeMint; proofsCreated != len(signatures) {
			log.Printf("Mint: Number of proofs created (%d) does not match blind signatures (%d)", proofsCreated, len(signatures))
			return
		}

		if err := db.SaveRestoreSigs(tx, recoverSigs); err != nil {
			log.Printf("Mint: Failed to save restore sigs: %v", err)
			return
		}

		// proofs table only tracks spent nullifiers; nothing to insert on mint.
	}

	if err := db.Commit(ctx, tx); err != nil {
		log.Printf("Mint: Failed to commit: %v", err)
	}
}

func processMelt(ctx context.Context, db postgresql.Postgresql, timestamp time.Time, availableProofs *[]cashu.Proof) {
	if len(*availableProofs) == 0 {
		return
	}

	quoteId, _ := generateRandomHex(16)
	targetAmount := uint64((randomInt(50) + 1) * 1000)

	stateChoice := randomInt(2) // 0: UNPAID, 1: PAID
	var state cashu.ACTION_STATE
	var paid bool
	var feePaid uint64
	var preimage string

	switch stateChoice {
	case 0:
		state = cashu.UNPAID
		paid = false
	case 1:
		state = cashu.PAID
		paid = true
		feePaid = 100 // Dummy fee
		preimage = "preimage_" + quoteId
	}

	// Greedily pick proofs until they cover targetAmount+feePaid; denominations
	// are binary so some overshoot is unavoidable.
	var selectedProofs []cashu.Proof
	var selectedAmount uint64
	var indicesToRemove []int
	requiredAmount := targetAmount + feePaid

	for i, p := range *availableProofs {
		if selectedAmount >= requiredAmount {
			break
		}
		newAmount := selectedAmount + p.Amount
		if newAmount <= requiredAmount || (selectedAmount < requiredAmount && newAmount-requiredAmount <= requiredAmount/10) {
			selectedProofs = append(selectedProofs, p)
			selectedAmount += p.Amount
			indicesToRemove = append(indicesToRemove, i)
		}
	}

	if paid && selectedAmount < requiredAmount {
		state = cashu.UNPAID
		paid = false
		selectedProofs = nil
		indicesToRemove = nil
		selectedAmount = 0
	}

	if len(selectedProofs) > len(*availableProofs) {
		log.Printf("Melt: Selected proofs (%d) exceed available proofs (%d)", len(selectedProofs), len(*availableProofs))
		return
	}

	req := cashu.MeltRequestDB{
		Quote:           quoteId,
		Request:         "lnbcrt" + quoteId,
		Amount:          targetAmount,
		FeeReserve:      feePaid * 2, // Dummy reserve
		Expiry:          timestamp.Add(time.Hour * 24).Unix(),
		Unit:            cashu.Sat.String(),
		RequestPaid:     paid,
		Melted:          paid,
		State:           state,
		PaymentPreimage: preimage,
		SeenAt:          timestamp.Unix(),
		FeePaid:         feePaid,
	}

	tx, err := db.GetTx(ctx)
	if err != nil {
		log.Printf("Melt: Failed to get tx: %v", err)
		return
	}
	defer db.Rollback(ctx, tx)

	if err := db.SaveMeltRequest(tx, req); err != nil {
		log.Printf("Melt: Failed to save request: %v", err)
		return
	}

	if paid {
		for i := range selectedProofs {
			selectedProofs[i].SeenAt = timestamp.Unix()
			selectedProofs[i].Quote = &quoteId
			selectedProofs[i].State = cashu.PROOF_SPENT
		}

		if selectedAmount < requiredAmount {
			log.Printf("Melt: Selected proofs amount (%d) is less than required (%d)", selectedAmount, requiredAmount)
			return
		}

		if err := db.SaveProof(tx, selectedProofs); err != nil {
			log.Printf("Melt: Failed to save proofs (spend): %v", err)
			return
		}

		// remove spent proofs in reverse order so earlier indices stay valid
		for i := len(indicesToRemove) - 1; i >= 0; i-- {
			idx := indicesToRemove[i]
			*availableProofs = append((*availableProofs)[:idx], (*availableProofs)[idx+1:]...)
		}
	}

	if err := db.Commit(ctx, tx); err != nil {
		log.Printf("Melt: Failed to commit: %v", err)
	}
}

// Helpers

func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func createBlindedMessages(amount uint64, keysetId string) ([]cashu.BlindedMessage, []string, []*secp256k1.PrivateKey, error) {
	splitAmounts := cashu.AmountSplit(amount)
	splitLen := len(splitAmounts)

	blindedMessages := make([]cashu.BlindedMessage, splitLen)
	secrets := make([]string, splitLen)
	rs := make([]*secp256k1.PrivateKey, splitLen)

	for i, amt := range splitAmounts {
		// generate new private key r
		r, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, nil, nil, err
		}

		var B_ *secp256k1.PublicKey
		var secret string
		// generate random secret until it finds valid point
		for {
			secretBytes := make([]byte, 32)
			_, err = rand.Read(secretBytes)
			if err != nil {
				return nil, nil, nil, err
			}
			secret = hex.EncodeToString(secretBytes)
			B_, r, err = crypto.BlindMessage(secret, r)
			if err == nil {
				break
			}
		}

		blindedMessage := cashu.BlindedMessage{
			Amount: amt,
			B_:     cashu.WrappedPublicKey{PublicKey: B_},
			Id:     keysetId,
		}
		blindedMessages[i] = blindedMessage
		secrets[i] = secret
		rs[i] = r
	}

	return blindedMessages, secrets, rs, nil
}
