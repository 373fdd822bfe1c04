package cashu

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

var (
	ErrInvalidSpendCondition         = errors.New("Invalid spend condition")
	ErrConvertSpendConditionToString = errors.New("Failed to convert spend condition to string")
	ErrInvalidTagName                = errors.New("Invalid tag name")
	ErrConvertTagToString            = errors.New("Failed to convert tag to string")
	ErrInvalidTagValue               = errors.New("Invalid tag value")
	ErrInvalidSigFlag                = errors.New("Invalid sig flag")
	ErrConvertSigFlagToString        = errors.New("Failed to convert sig flag to string")
	ErrMalformedTag                  = errors.New("Malformed tag")
	ErrCouldNotParseSpendCondition   = errors.New("Could not parse spend condition")
	ErrCouldNotParseWitness          = errors.New("Could not parse witness")
	ErrEmptyWitness                  = errors.New("Witness is empty")
	ErrNoValidSignatures             = errors.New("No valid signatures found")
	ErrNotEnoughSignatures           = errors.New("Not enough signatures")
	ErrLocktimePassed                = errors.New("Locktime has passed and no refund key was found")
	ErrInvalidHexPreimage            = errors.New("Preimage is not a valid hex string")
	ErrInvalidPreimage               = errors.New("Invalid preimage")
)

// SpendCondition is the parsed form of a NUT-10 well-known secret: a kind
// (P2PK or HTLC) plus the nonce/data/tags payload that constrains who can
// sign a proof spending it.
type SpendCondition struct {
	Type SpendConditionType
	Data SpendConditionData
}

func (s *SpendCondition) UnmarshalJSON(b []byte) error {
	a := []interface{}{&s.Type, &s.Data}
	return json.Unmarshal(b, &a)
}

// MarshalJSON only emits the nonce field; callers that need the full
// well-known secret encoding use String instead.
func (sc *SpendCondition) MarshalJSON() ([]byte, error) {
	typestr, err := sc.Type.String()
	if err != nil {
		return nil, err
	}

	str := fmt.Sprintf("[\"%s\",{\"%s\",", typestr, sc.Data.Nonce)
	return []byte(str), nil
}

// String renders the spend condition back into the NUT-10/NUT-11 well-known
// secret wire format: ["P2PK",{"nonce":...,"data":...,"tags":[...]}].
func (sc *SpendCondition) String() (string, error) {
	typestr, err := sc.Type.String()
	if err != nil {
		return "", err
	}

	var b []byte
	b = fmt.Appendf(b, `["%s",{"nonce":"%s","data":"%s","tags":[`, typestr, sc.Data.Nonce, sc.Data.Data)
	b = fmt.Appendf(b, `["sigflag","%s"],`, sc.Data.Tags.Sigflag.String())
	b = fmt.Appendf(b, `["n_sigs","%s"],`, strconv.Itoa(sc.Data.Tags.NSigs))
	b = fmt.Appendf(b, `["locktime","%s"],`, strconv.Itoa(sc.Data.Tags.Locktime))

	if len(sc.Data.Tags.Refund) > 0 {
		b = fmt.Append(b, `["refund"`)
		for _, pubkey := range sc.Data.Tags.Refund {
			b = fmt.Appendf(b, `,"%s"`, hex.EncodeToString(pubkey.SerializeCompressed()))
		}
		b = fmt.Append(b, `],`)
	}

	if len(sc.Data.Tags.Pubkeys) > 0 {
		b = fmt.Append(b, `["pubkeys"`)
		for _, pubkey := range sc.Data.Tags.Pubkeys {
			b = fmt.Appendf(b, `,"%s"`, hex.EncodeToString(pubkey.SerializeCompressed()))
		}
		b = fmt.Append(b, `]`)
	}

	b = fmt.Append(b, `]}]`)
	return string(b), nil
}

func (sc *SpendCondition) CheckValid() error {
	if len(sc.Data.Tags.Pubkeys)+len(sc.Data.Tags.Pubkeys) > 10 {
		return ErrInvalidSpendCondition
	}
	return nil
}

// VerifyPreimage checks an HTLC witness's preimage hashes to the condition's
// locked hash.
func (sc *SpendCondition) VerifyPreimage(witness *Witness) error {
	preimage, err := hex.DecodeString(witness.Preimage)
	if err != nil {
		return errors.Join(ErrInvalidHexPreimage, err)
	}
	if len(preimage) != 32 {
		return ErrInvalidPreimage
	}

	sum := sha256.Sum256(preimage)
	if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(sc.Data.Data)) != 1 {
		return ErrInvalidPreimage
	}
	return nil
}

type SpendConditionType int

const (
	P2PK SpendConditionType = iota + 1
	HTLC SpendConditionType = iota + 2
)

func (sc *SpendConditionType) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"P2PK"`, "P2PK":
		*sc = P2PK
	case `"HTLC"`, "HTLC":
		*sc = HTLC
	default:
		return ErrInvalidSpendCondition
	}
	return nil
}

func (sc SpendConditionType) String() (string, error) {
	switch sc {
	case P2PK:
		return "P2PK", nil
	case HTLC:
		return "HTLC", nil
	default:
		return "", ErrConvertSpendConditionToString
	}
}

// TagsInfo holds the decoded contents of a spend condition's "tags" array.
// originalTag keeps the raw JSON around so multi-proof SIG_ALL checks can
// compare tags for byte-equality without re-marshaling.
type TagsInfo struct {
	originalTag string
	Sigflag     SigFlag
	Pubkeys     []*btcec.PublicKey
	NSigs       int
	Locktime    int
	Refund      []*btcec.PublicKey
	NSigRefund  int
}

func (tags *TagsInfo) UnmarshalJSON(b []byte) error {
	var rawTags [][]string
	if err := json.Unmarshal(b, &rawTags); err != nil {
		return fmt.Errorf("json.Unmarshal(b, &rawTags): %w", err)
	}

	for _, tag := range rawTags {
		if len(tag) < 2 {
			return fmt.Errorf("%w: %s", ErrMalformedTag, tag)
		}

		tagName, err := TagFromString(tag[0])
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTagName, tag[0])
		}

		if err := tags.applyTag(tagName, tag[1:]); err != nil {
			return err
		}
	}

	tags.originalTag = string(b)
	return nil
}

// applyTag decodes a single tag's values and stores them on tags, dispatched
// by which of the six known tag kinds it is.
func (tags *TagsInfo) applyTag(tagName Tags, values []string) error {
	switch tagName {
	case Sigflag:
		if len(values) != 1 {
			return fmt.Errorf("%w: %v", ErrMalformedTag, values)
		}
		sigFlag, err := SigFlagFromString(values[0])
		if err != nil {
			return errors.Join(ErrInvalidSigFlag, err)
		}
		tags.Sigflag = sigFlag

	case Pubkeys, Refund:
		if len(values) < 1 {
			return fmt.Errorf("%w: %v", ErrMalformedTag, values)
		}
		for _, raw := range values {
			pubkey, err := parseHexPubkey(raw)
			if err != nil {
				return err
			}
			if tagName == Pubkeys {
				tags.Pubkeys = append(tags.Pubkeys, pubkey)
			} else {
				tags.Refund = append(tags.Refund, pubkey)
			}
		}

	case NSigs:
		n, err := parseSingleInt(values)
		if err != nil {
			return err
		}
		tags.NSigs = n

	case Locktime:
		n, err := parseSingleInt(values)
		if err != nil {
			return err
		}
		tags.Locktime = n

	case NSigRefund:
		n, err := parseSingleInt(values)
		if err != nil {
			return err
		}
		tags.NSigRefund = n
	}

	return nil
}

func parseHexPubkey(raw string) (*btcec.PublicKey, error) {
	bytesPubkey, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("hex.DecodeString: %w", err)
	}
	pubkey, err := btcec.ParsePubKey(bytesPubkey)
	if err != nil {
		return nil, fmt.Errorf("secp256k1.ParsePubKey: %w", err)
	}
	return pubkey, nil
}

func parseSingleInt(values []string) (int, error) {
	if len(values) != 1 {
		return 0, fmt.Errorf("%w: %v", ErrMalformedTag, values)
	}
	n, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, fmt.Errorf("strconv.Atoi: %w", err)
	}
	return n, nil
}

type SpendConditionData struct {
	Nonce string
	Data  string
	Tags  TagsInfo
}

type Tags int

const (
	Sigflag    Tags = iota + 1
	Pubkeys    Tags = iota + 2
	NSigs      Tags = iota + 3
	Locktime   Tags = iota + 4
	Refund     Tags = iota + 5
	NSigRefund Tags = iota + 6
)

func (t Tags) String() string {
	switch t {
	case Sigflag:
		return "sigflag"
	case Pubkeys:
		return "pubkeys"
	case NSigs:
		return "n_sigs"
	case Locktime:
		return "locktime"
	case Refund:
		return "refund"
	case NSigRefund:
		return "n_sigs_refund"
	}
	return ""
}

func TagFromString(s string) (Tags, error) {
	switch s {
	case "sigflag":
		return Sigflag, nil
	case "pubkeys":
		return Pubkeys, nil
	case "n_sigs":
		return NSigs, nil
	case "locktime":
		return Locktime, nil
	case "refund":
		return Refund, nil
	case "n_sigs_refund":
		return NSigRefund, nil
	default:
		return 0, ErrInvalidTagName
	}
}

type SigFlag int

const (
	SigAll    SigFlag = iota + 1
	SigInputs SigFlag = iota + 2
)

func (sf SigFlag) String() string {
	switch sf {
	case SigAll:
		return "SIG_ALL"
	case SigInputs:
		return "SIG_INPUTS"
	}
	return ""
}

func SigFlagFromString(s string) (SigFlag, error) {
	switch s {
	case "SIG_ALL":
		return SigAll, nil
	case "SIG_INPUTS":
		return SigInputs, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidTagValue, s)
	}
}

type Witness struct {
	Preimage   string `json:"preimage,omitempty"`
	Signatures []*schnorr.Signature
}

func (wit *Witness) String() (string, error) {
	encoded := struct {
		Preimage   string
		Signatures []string
	}{Preimage: wit.Preimage}

	for _, sig := range wit.Signatures {
		encoded.Signatures = append(encoded.Signatures, hex.EncodeToString(sig.Serialize()))
	}

	b, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("json.Marshal(encoded): %w", err)
	}
	return string(b), nil
}

func (wit *Witness) UnmarshalJSON(b []byte) error {
	var raw struct {
		Preimage   string
		Signatures []string
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("json.Unmarshal(b, &raw): %w", err)
	}

	witness := Witness{
		Preimage:   raw.Preimage,
		Signatures: make([]*schnorr.Signature, 0, len(raw.Signatures)),
	}

	for _, sig := range raw.Signatures {
		sigBytes, err := hex.DecodeString(sig)
		if err != nil {
			return fmt.Errorf("hex.DecodeString: %w", err)
		}
		signature, err := schnorr.ParseSignature(sigBytes)
		if err != nil {
			return fmt.Errorf("schnorr.ParseSignature(sigBytes): %w", err)
		}
		witness.Signatures = append(witness.Signatures, signature)
	}

	*wit = witness
	return nil
}

// SigflagValidation is the outcome of scanning a set of inputs for SIG_ALL:
// which sigflag governs the batch, how many signatures it demands, and the
// union of pubkeys any of those inputs would accept.
type SigflagValidation struct {
	sigFlag            SigFlag
	signaturesRequired uint
	pubkeys            map[*btcec.PublicKey]bool
}

// resolveSigAllRequirement scans proofs' spend conditions and folds them
// into a single SigflagValidation: the strictest sigflag present wins, the
// largest n_sigs across inputs is required, and every tagged pubkey is
// accepted.
func resolveSigAllRequirement(proofs Proofs) (SigflagValidation, error) {
	result := SigflagValidation{
		sigFlag: SigInputs,
		pubkeys: make(map[*btcec.PublicKey]bool),
	}

	for _, proof := range proofs {
		isLocked, spendCondition, err := proof.IsProofSpendConditioned()
		if err != nil {
			return result, fmt.Errorf("proof.IsProofSpendConditioned(). %w", err)
		}
		if !isLocked || spendCondition == nil {
			continue
		}

		if spendCondition.Data.Tags.Sigflag == SigAll {
			result.sigFlag = SigAll
		}
		if result.signaturesRequired < uint(spendCondition.Data.Tags.NSigs) {
			result.signaturesRequired = uint(spendCondition.Data.Tags.NSigs)
		}
		for _, pubkey := range spendCondition.Data.Tags.Pubkeys {
			result.pubkeys[pubkey] = true
		}
	}

	return result, nil
}

// ProofsHaveSigAll reports whether any input proof carries a P2PK/HTLC
// spending condition with the SIG_ALL flag, meaning the swap/melt request
// must be verified as a single signed message rather than proof by proof.
func ProofsHaveSigAll(proofs Proofs) (bool, error) {
	validation, err := resolveSigAllRequirement(proofs)
	if err != nil {
		return false, fmt.Errorf("resolveSigAllRequirement(proofs). %w", err)
	}
	return validation.sigFlag == SigAll, nil
}

// pubkeySet builds a lookup set from a slice of pubkeys, skipping nils.
func pubkeySet(keys []*btcec.PublicKey) map[*btcec.PublicKey]bool {
	set := make(map[*btcec.PublicKey]bool, len(keys))
	for _, key := range keys {
		if key != nil {
			set[key] = true
		}
	}
	return set
}

// countValidSignatures verifies each signature against the remaining
// candidate pubkeys, removing a pubkey from the set the first time it
// matches so the same key cannot be counted twice.
func countValidSignatures(hashMessage [32]byte, signatures []*schnorr.Signature, pubkeys map[*btcec.PublicKey]bool) int {
	valid := 0
	// the set is keyed by pointer, so the same key can sit in it twice
	// (e.g. the data key repeated in the pubkeys tag); track it by value too
	counted := make(map[string]bool)
	for _, sig := range signatures {
		for pubkey := range pubkeys {
			serialized := string(pubkey.SerializeCompressed())
			if counted[serialized] {
				continue
			}
			if sig.Verify(hashMessage[:], pubkey) {
				valid++
				counted[serialized] = true
				delete(pubkeys, pubkey)
				break
			}
		}
	}
	return valid
}

// meetsSignatureThreshold turns a valid-signature count into a pass/fail
// verdict: zero is always a failure with ErrNoValidSignatures, an explicit
// n_sigs requirement must be met or exceeded, and otherwise a single valid
// signature suffices. onExhausted is returned only from the final default
// branch, which no non-negative validCount reaches, so a locktime-passed
// proof with no valid refund signature also fails with ErrNoValidSignatures.
func meetsSignatureThreshold(validCount int, required int, onExhausted error) (bool, error) {
	switch {
	case validCount == 0:
		return false, ErrNoValidSignatures
	case required > 0 && validCount < required:
		return false, ErrNotEnoughSignatures
	case required > 0 && validCount >= required:
		return true, nil
	case validCount >= 1:
		return true, nil
	default:
		return false, onExhausted
	}
}

// checkValidSignature is the SIG_ALL entry point: it hashes msg once and
// counts how many of the given signatures are valid against pubkeys.
func checkValidSignature(msg string, pubkeys map[*btcec.PublicKey]bool, signatures []*schnorr.Signature) (uint, error) {
	hashMessage := sha256.Sum256([]byte(msg))
	return uint(countValidSignatures(hashMessage, signatures, pubkeys)), nil
}
