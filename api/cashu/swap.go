package cashu

import (
	"encoding/hex"
	"strings"
)

type PostSwapRequest struct {
	Inputs  Proofs           `json:"inputs"`
	Outputs []BlindedMessage `json:"outputs"`
}

// ValidateSigflag enforces NUT-11 SIG_ALL for a swap: unlike melt, a swap's
// SIG_ALL message isn't bound to anything beyond the inputs/outputs
// themselves, since a swap has no quote id to replay against.
func (p *PostSwapRequest) ValidateSigflag() error {
	return validateSigAllInputs(p.Inputs, p.makeSigAllMsg())
}

func (p *PostSwapRequest) makeSigAllMsg() string {
	var msg strings.Builder
	for _, proof := range p.Inputs {
		msg.WriteString(proof.Secret)
	}
	for _, blindMessage := range p.Outputs {
		B_Hex := hex.EncodeToString(blindMessage.B_.SerializeCompressed())
		msg.WriteString(B_Hex)
	}
	return msg.String()
}

type PostSwapResponse struct {
	Signatures []BlindSignature `json:"signatures"`
}
