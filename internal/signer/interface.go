package signer

import "github.com/SparrowTek/cashu-mint/api/cashu"

type Signer interface {
	GetKeysets() (GetKeysetsResponse, error)
	GetKeysById(id string) (GetKeysResponse, error)
	GetActiveKeys() (GetKeysResponse, error)
	GetKeysByUnit(unit cashu.Unit) ([]cashu.MintKey, error)

	RotateKeyset(unit cashu.Unit, fee uint, expiry_limit uint) error
	GetSignerPubkey() (string, error)

	VerifyProofs(proofs []cashu.Proof) error
	SignBlindMessages(messages []cashu.BlindedMessage) ([]cashu.BlindSignature, []cashu.RecoverSigDB, error)
}
