package cashu

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// WrappedPublicKey carries a secp256k1 point through JSON and Postgres as a
// hex string while keeping the parsed key available to the curve math that
// every wire message (B_, C_, C, Y) eventually needs.
type WrappedPublicKey struct {
	PublicKey *secp256k1.PublicKey
}

func ParseWrappedPublicKey(hexKey string) (WrappedPublicKey, error) {
	if hexKey == "" {
		return WrappedPublicKey{}, nil
	}
	decoded, err := hex.DecodeString(hexKey)
	if err != nil {
		return WrappedPublicKey{}, fmt.Errorf("hex.DecodeString(hexKey): %w", err)
	}
	pubkey, err := secp256k1.ParsePubKey(decoded)
	if err != nil {
		return WrappedPublicKey{}, fmt.Errorf("secp256k1.ParsePubKey: %w", err)
	}
	return WrappedPublicKey{PublicKey: pubkey}, nil
}

func (w WrappedPublicKey) ToHex() string {
	if w.PublicKey == nil {
		return ""
	}
	return hex.EncodeToString(w.PublicKey.SerializeCompressed())
}

func (w WrappedPublicKey) String() string {
	return w.ToHex()
}

func (w WrappedPublicKey) SerializeCompressed() []byte {
	if w.PublicKey == nil {
		return nil
	}
	return w.PublicKey.SerializeCompressed()
}

func (w WrappedPublicKey) IsEmpty() bool {
	return w.PublicKey == nil
}

func (w WrappedPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.ToHex())
}

func (w *WrappedPublicKey) UnmarshalJSON(data []byte) error {
	var hexKey string
	if err := json.Unmarshal(data, &hexKey); err != nil {
		return fmt.Errorf("json.Unmarshal(data, &hexKey): %w", err)
	}
	parsed, err := ParseWrappedPublicKey(hexKey)
	if err != nil {
		return fmt.Errorf("ParseWrappedPublicKey(hexKey): %w", err)
	}
	*w = parsed
	return nil
}

// Value implements driver.Valuer so a WrappedPublicKey column stores its hex
// encoding directly. Some insert paths need to write the compressed bytes to
// a bytea column instead; those bypass Value and call SerializeCompressed.
func (w WrappedPublicKey) Value() (driver.Value, error) {
	if w.PublicKey == nil {
		return nil, nil
	}
	return w.ToHex(), nil
}

func (w *WrappedPublicKey) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*w = WrappedPublicKey{}
		return nil
	case string:
		parsed, err := ParseWrappedPublicKey(v)
		if err != nil {
			return err
		}
		*w = parsed
		return nil
	case []byte:
		parsed, err := ParseWrappedPublicKey(string(v))
		if err != nil {
			return err
		}
		*w = parsed
		return nil
	default:
		return fmt.Errorf("unsupported Scan source %T for WrappedPublicKey", src)
	}
}
