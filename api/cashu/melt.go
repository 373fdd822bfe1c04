package cashu

import (
	"strings"
)

type ACTION_STATE string

const (
	UNPAID  ACTION_STATE = "UNPAID"
	PAID    ACTION_STATE = "PAID"
	PENDING ACTION_STATE = "PENDING"
	ISSUED  ACTION_STATE = "ISSUED"
)

type MeltRequestDB struct {
	Quote      string `json:"quote"`
	Unit       string `json:"unit"`
	Expiry     int64  `json:"expiry"`
	Amount     uint64 `json:"amount"`
	FeeReserve uint64 `json:"fee_reserve" db:"fee_reserve"`
	FeePaid    uint64 `json:"paid_fee" db:"fee_paid"`
	// Deprecated: Should be removed after all main wallets change to the new State format
	RequestPaid     bool         `json:"paid" db:"request_paid"`
	Request         string       `json:"request"`
	Melted          bool         `json:"melted"`
	State           ACTION_STATE `json:"state"`
	PaymentPreimage string       `json:"payment_preimage"`
	SeenAt          int64        `json:"seen_at"`
	Mpp             bool         `json:"mpp"`
	CheckingId      string       `json:"checking_id"`
}

func (meltRequest *MeltRequestDB) GetPostMeltQuoteResponse() PostMeltQuoteBolt11Response {
	return PostMeltQuoteBolt11Response{
		Quote:           meltRequest.Quote,
		Amount:          meltRequest.Amount,
		FeeReserve:      meltRequest.FeeReserve,
		Paid:            meltRequest.RequestPaid,
		Expiry:          meltRequest.Expiry,
		State:           meltRequest.State,
		PaymentPreimage: meltRequest.PaymentPreimage,
		Request:         meltRequest.Request,
		Unit:            meltRequest.Unit,
	}

}

type PostMeltQuoteBolt11Options struct {
	Mpp map[string]uint64 `json:"mpp"`
}

type PostMeltQuoteBolt11Request struct {
	Request string                     `json:"request"`
	Unit    string                     `json:"unit"`
	Options PostMeltQuoteBolt11Options `json:"options"`
}

func (p PostMeltQuoteBolt11Request) IsMpp() uint64 {
	if p.Options.Mpp["amount"] != 0 {
		return p.Options.Mpp["amount"]
	}
	return 0
}

type PostMeltQuoteBolt11Response struct {
	Quote      string `json:"quote"`
	Amount     uint64 `json:"amount"`
	FeeReserve uint64 `json:"fee_reserve"`
	// Deprecated: Should be removed after all main wallets change to the new State format
	Paid            bool             `json:"paid"`
	Expiry          int64            `json:"expiry"`
	State           ACTION_STATE     `json:"state"`
	Change          []BlindSignature `json:"change"`
	Unit            string           `json:"unit"`
	Request         string           `json:"request"`
	PaymentPreimage string           `json:"payment_preimage"`
}

type PostMeltBolt11Request struct {
	Quote   string           `json:"quote"`
	Inputs  Proofs           `json:"inputs"`
	Outputs []BlindedMessage `json:"outputs"`
}

// ValidateSigflag enforces NUT-11 SIG_ALL for a melt: the SIG_ALL message
// binds the quote id so a signature collected for one melt can't be
// replayed against a different quote over the same inputs/outputs.
func (p *PostMeltBolt11Request) ValidateSigflag() error {
	return validateSigAllInputs(p.Inputs, p.makeSigAllMsg())
}

func (p *PostMeltBolt11Request) makeSigAllMsg() string {
	var msg strings.Builder
	for _, proof := range p.Inputs {
		msg.WriteString(proof.Secret)
	}
	for _, blindMessage := range p.Outputs {
		msg.WriteString(blindMessage.B_.String())
	}
	msg.WriteString(p.Quote)
	return msg.String()
}
