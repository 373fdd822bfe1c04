package mint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/database"
	"github.com/SparrowTek/cashu-mint/internal/lightning"
	"github.com/SparrowTek/cashu-mint/internal/signer"
	"github.com/SparrowTek/cashu-mint/internal/utils"
)

// Mint ties together everything a running mint needs: the lightning
// backend it settles melts through, its database, its signer, and the
// Observer that fans out websocket notifications.
type Mint struct {
	LightningBackend lightning.LightningBackend
	Config           utils.Config
	MintPubkey       string
	MintDB           database.MintDB
	Signer           signer.Signer
	Observer         *Observer
}

var (
	NETWORK_ENV                = "NETWORK"
	MINT_LIGHTNING_BACKEND_ENV = "MINT_LIGHTNING_BACKEND"
)

// CheckProofsAreSameUnit resolves the shared unit across proofs, by looking
// each one's keyset id up in keys. Mixed units are rejected; proofs whose
// keyset is not in keys are skipped, and ErrUnitNotSupported is returned only
// when no proof's keyset is known.
func (m *Mint) CheckProofsAreSameUnit(proofs []cashu.Proof, keys []cashu.BasicKeysetResponse) (cashu.Unit, error) {
	keysetUnitById := make(map[string]string, len(keys))
	for _, keyset := range keys {
		keysetUnitById[keyset.Id] = keyset.Unit
	}

	unitsSeen := make(map[string]bool)
	for _, proof := range proofs {
		if unit, known := keysetUnitById[proof.Id]; known {
			unitsSeen[unit] = true
		}
		if len(unitsSeen) > 1 {
			return cashu.Sat, cashu.ErrNotSameUnits
		}
	}

	if len(unitsSeen) == 0 {
		return cashu.Sat, cashu.ErrUnitNotSupported
	}

	for unit := range unitsSeen {
		return cashu.UnitFromString(unit)
	}
	return cashu.Sat, cashu.ErrUnitNotSupported
}

// CheckChainParams maps a NETWORK config string to the matching btcd chain
// params. An unrecognized value returns mainnet params together with an
// error.
func CheckChainParams(network string) (chaincfg.Params, error) {
	switch network {
	case lightning.Testnet3, lightning.Testnet:
		return chaincfg.TestNet3Params, nil
	case lightning.Mainnet:
		return chaincfg.MainNetParams, nil
	case lightning.Regtest:
		return chaincfg.RegressionNetParams, nil
	case lightning.Signet:
		return chaincfg.SigNetParams, nil
	default:
		return chaincfg.MainNetParams, fmt.Errorf("Invalid network: %s", network)
	}
}

// buildLightningBackend constructs the configured lightning backend. It
// does not dial out for LNBITS (the HTTP client is lazy) but does for
// LNDGRPC, since setting up the gRPC connection can fail fast.
func buildLightningBackend(config utils.Config, chainparam chaincfg.Params) (lightning.LightningBackend, error) {
	switch config.MINT_LIGHTNING_BACKEND {
	case utils.FAKE_WALLET:
		return lightning.FakeWallet{Network: chainparam}, nil

	case utils.LNDGRPC:
		lndWallet := lightning.LndGrpcWallet{Network: chainparam}
		if err := lndWallet.SetupGrpc(config.LND_GRPC_HOST, config.LND_MACAROON, config.LND_TLS_CERT); err != nil {
			return nil, fmt.Errorf("lndWallet.SetupGrpc %w", err)
		}
		return lndWallet, nil

	case utils.LNBITS:
		if len(config.MINT_LNBITS_ENDPOINT) == 0 {
			return nil, fmt.Errorf("MINT_LNBITS_ENDPOINT not set")
		}
		if len(config.MINT_LNBITS_KEY) == 0 {
			return nil, fmt.Errorf("MINT_LNBITS_KEY not set")
		}
		return lightning.LnbitsWallet{
			Endpoint: config.MINT_LNBITS_ENDPOINT,
			Key:      config.MINT_LNBITS_KEY,
			Network:  chainparam,
		}, nil

	default:
		return nil, fmt.Errorf("Unknown lightning backend: %s", config.MINT_LIGHTNING_BACKEND)
	}
}

// warnAboutInactiveSeeds logs every unit whose newest seed version isn't
// active, which usually means a rotation was started but never finished.
func warnAboutInactiveSeeds(db database.MintDB) {
	seeds, err := db.GetAllSeeds()
	if err != nil {
		slog.Warn("could not load seeds to check for inactive rotations", slog.Any("error", err))
		return
	}

	inactive, err := FindInactiveLatestSeeds(seeds)
	if err != nil {
		slog.Warn("FindInactiveLatestSeeds(seeds)", slog.Any("error", err))
		return
	}

	for _, entry := range inactive {
		slog.Warn("latest seed for unit is not active", slog.String("unit", entry.Unit.String()), slog.Int("version", entry.Version))
	}
}

// SetUpMint assembles a Mint from its config, database, and signer: it
// resolves the chain network, brings up the configured lightning backend,
// fetches the signer's pubkey, and wires the observer used for websocket
// subscriptions.
func SetUpMint(ctx context.Context, config utils.Config, db database.MintDB, sig signer.Signer) (*Mint, error) {
	mint := Mint{
		Config: config,
		MintDB: db,
		Signer: sig,
	}

	chainparam, err := CheckChainParams(config.NETWORK)
	if err != nil {
		return &mint, fmt.Errorf("CheckChainParams(config.NETWORK) %w", err)
	}

	backend, err := buildLightningBackend(config, chainparam)
	if err != nil {
		return &mint, err
	}
	mint.LightningBackend = backend

	pubkey, err := sig.GetSignerPubkey()
	if err != nil {
		return &mint, fmt.Errorf("sig.GetSignerPubkey() %w", err)
	}
	mint.MintPubkey = pubkey

	mint.Observer = &Observer{
		Proofs:    make(map[string][]ProofWatchChannel),
		MeltQuote: make(map[string][]MeltQuoteChannel),
		MintQuote: make(map[string][]MintQuoteChannel),
	}

	warnAboutInactiveSeeds(db)

	return &mint, nil
}
