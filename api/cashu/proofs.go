package cashu

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/SparrowTek/cashu-mint/pkg/crypto"
)

type ProofState string

const PROOF_UNSPENT ProofState = "UNSPENT"
const PROOF_SPENT ProofState = "SPENT"
const PROOF_PENDING ProofState = "PENDING"

type Proofs []Proof

func (p *Proofs) SetPendingAndQuoteRef(quote string) {
	for i := 0; i < len(*p); i++ {
		(*p)[i].State = PROOF_PENDING
		(*p)[i].Quote = &quote
	}
}
func (p *Proofs) Amount() uint64 {
	amount := uint64(0)
	for i := 0; i < len(*p); i++ {
		amount += (*p)[i].Amount
	}
	return amount
}

func (p *Proofs) SetProofsState(state ProofState) {
	for i := 0; i < len(*p); i++ {
		(*p)[i].State = state
	}
}

func (p *Proofs) SetQuoteReference(quote string) {
	for i := 0; i < len(*p); i++ {
		(*p)[i].Quote = &quote
	}
}

type Proof struct {
	Amount  uint64           `json:"amount"`
	Id      string           `json:"id"`
	Secret  string           `json:"secret"`
	C       WrappedPublicKey `json:"C" db:"c"`
	Y       WrappedPublicKey `json:"Y" db:"y"`
	Witness string           `json:"witness" db:"witness"`
	SeenAt  int64            `json:"seen_at"`
	State   ProofState       `json:"state"`
	Quote   *string          `json:"quote" db:"quote"`
}

// verifySpendCondition is the shared core of VerifyP2PK and VerifyHTLC: if
// the locktime has passed and refund keys are tagged, only those refund
// signatures matter; if it has passed with no refund keys, the proof is
// spendable without a signature; otherwise (and for HTLC, only after the
// preimage checks out) the normal pubkeys/n_sigs requirement applies.
func (p Proof) verifySpendCondition(spendCondition *SpendCondition, requirePreimage bool) (bool, error) {
	hashMessage := sha256.Sum256([]byte(p.Secret))
	witness, err := p.parseWitness()
	if err != nil {
		return false, fmt.Errorf("p.parseWitness(). %+v", err)
	}
	pubkeys, err := p.Pubkeys()
	if err != nil {
		return false, fmt.Errorf("p.Pubkeys(). %+v", err)
	}

	locktimePassed := spendCondition.Data.Tags.Locktime != 0 &&
		time.Now().Unix() > int64(spendCondition.Data.Tags.Locktime)
	if locktimePassed {
		if len(spendCondition.Data.Tags.Refund) == 0 {
			return true, nil
		}
		refundPubkeys := pubkeySet(spendCondition.Data.Tags.Refund)
		validRefunds := countValidSignatures(hashMessage, witness.Signatures, refundPubkeys)
		return meetsSignatureThreshold(validRefunds, spendCondition.Data.Tags.NSigRefund, ErrLocktimePassed)
	}

	if requirePreimage {
		if err := spendCondition.VerifyPreimage(witness); err != nil {
			return false, fmt.Errorf("spendCondition.VerifyPreimage  %w ", err)
		}
	}

	validSigs := countValidSignatures(hashMessage, witness.Signatures, pubkeys)
	return meetsSignatureThreshold(validSigs, spendCondition.Data.Tags.NSigs, nil)
}

func (p Proof) VerifyP2PK(spendCondition *SpendCondition) (bool, error) {
	return p.verifySpendCondition(spendCondition, false)
}

func (p Proof) VerifyHTLC(spendCondition *SpendCondition) (bool, error) {
	return p.verifySpendCondition(spendCondition, true)
}

func (p Proof) Pubkeys() (map[*btcec.PublicKey]bool, error) {
	spendCondition, err := p.parseSpendCondition()
	if err != nil {
		return nil, err
	}

	pubkeysMap := pubkeySet(spendCondition.Data.Tags.Pubkeys)

	// P2PK also accepts the key embedded directly in the condition's data
	// field, not just the tagged pubkeys; HTLC only honors the tagged ones.
	if spendCondition.Type == P2PK {
		spendConditionDataBytes, err := hex.DecodeString(spendCondition.Data.Data)
		if err != nil {
			return nil, fmt.Errorf("hex.DecodeString(spendCondition.Data.Data). %w", err)
		}

		dataPubkey, err := btcec.ParsePubKey(spendConditionDataBytes)
		if err != nil {
			return nil, fmt.Errorf("btcec.ParsePubKey(spendConditionDataBytes). %w", err)
		}
		pubkeysMap[dataPubkey] = true
	}

	return pubkeysMap, nil
}

func (p Proof) parseSpendCondition() (*SpendCondition, error) {
	var spendCondition SpendCondition
	err := json.Unmarshal([]byte(p.Secret), &spendCondition)

	if err != nil {
		return nil, fmt.Errorf("json.Unmarshal([]byte(p.Secret), &spendCondition)  %w, %w", ErrCouldNotParseSpendCondition, err)
	}
	return &spendCondition, nil
}
func (p Proof) parseWitness() (*Witness, error) {
	var witness Witness
	err := json.Unmarshal([]byte(p.Witness), &witness)
	if err != nil {
		return nil, fmt.Errorf("json.Unmarshal([]byte(p.Witness), &witness)  %w, %w", ErrCouldNotParseWitness, err)
	}

	return &witness, nil
}

func (p Proof) IsProofSpendConditioned() (bool, *SpendCondition, error) {
	var rawJsonSecret []json.RawMessage
	if err := json.Unmarshal([]byte(p.Secret), &rawJsonSecret); err != nil {
		return false, nil, nil
	}

	// Well-known secret should have a length of at least 2
	if len(rawJsonSecret) < 2 {
		return false, nil, errors.New("invalid secret: length < 2")
	}

	var kind string
	if err := json.Unmarshal(rawJsonSecret[0], &kind); err != nil {
		return false, nil, fmt.Errorf("json.Unmarshal(rawJsonSecret[0], &kind);%w", err)
	}

	if kind != "P2PK" && kind != "HTLC" {
		return false, nil, nil
	}

	spendCondition, err := p.parseSpendCondition()
	if err != nil {
		return false, nil, fmt.Errorf("p.parseSpendCondition(). %w", err)
	}

	return true, spendCondition, nil
}

func (p Proof) HashSecretToCurve() (Proof, error) {

	// Get Hash to curve of secret
	parsedProof := []byte(p.Secret)

	y, err := crypto.HashToCurve(parsedProof)

	if err != nil {
		return p, fmt.Errorf("crypto.HashToCurve: %+v", err)
	}

	p.Y = WrappedPublicKey{PublicKey: y}
	return p, nil
}
func (p *Proof) Sign(privkey *secp256k1.PrivateKey) error {
	hash := sha256.Sum256([]byte(p.Secret))

	sig, err := schnorr.Sign(privkey, hash[:])
	if err != nil {
		return fmt.Errorf("schnorr.Sign: %w", err)
	}

	var witness Witness
	if p.Witness == "" {
		witness = Witness{}
	} else {
		err = json.Unmarshal([]byte(p.Witness), &witness)
		if err != nil {
			return fmt.Errorf("json.Unmarshal([]byte(p.Witness), &witness)  %w, %w", ErrCouldNotParseWitness, err)
		}
	}

	witness.Signatures = append(witness.Signatures, sig)

	witnessStr, err := witness.String()

	if err != nil {
		return fmt.Errorf("witness.String: %w", err)
	}

	p.Witness = witnessStr
	return nil
}
func (p *Proof) AddPreimage(preimage string) error {

	var witness Witness
	if p.Witness == "" {
		witness = Witness{}
	} else {
		err := json.Unmarshal([]byte(p.Witness), &witness)
		if err != nil {
			return fmt.Errorf("json.Unmarshal([]byte(p.Witness), &witness)  %w, %w", ErrCouldNotParseWitness, err)
		}
	}

	witness.Preimage = preimage

	witnessStr, err := witness.String()

	if err != nil {
		return fmt.Errorf("witness.String: %w", err)
	}

	p.Witness = witnessStr
	return nil
}
