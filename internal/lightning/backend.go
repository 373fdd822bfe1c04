package lightning

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/lightningnetwork/lnd/zpay32"
)

type Backend uint

const (
	FAKEWALLET Backend = iota + 1
	LNDGRPC
	LNBITS
)

type PaymentStatus uint

const (
	UNKNOWN PaymentStatus = iota
	PENDING
	FAILED
	SETTLED
)

type PaymentResponse struct {
	Preimage       string
	PaymentError   error
	PaymentRequest string
	Rhash          string
	PaidFeeSat     int64
	PaymentState   PaymentStatus
	CheckingId     string
}

type InvoiceResponse struct {
	PaymentRequest string
	Rhash          string
	CheckingId     string
}

type FeesResponse struct {
	Fees         cashu.Amount `json:"fees"`
	AmountToSend cashu.Amount `json:"amount_to_send"`
	CheckingId   string
}

// LightningBackend abstracts the custodial wallet a mint pays out of and
// receives into. Every money-movement call carries the quote it belongs to
// so a backend can derive a deterministic checking id for later polling.
type LightningBackend interface {
	PayInvoice(meltQuote cashu.MeltRequestDB, zpayInvoice *zpay32.Invoice, feeReserve uint64, mpp bool, amount cashu.Amount) (PaymentResponse, error)
	CheckPayed(quote string, invoice *zpay32.Invoice, checkingId string) (PaymentStatus, string, uint64, error)
	CheckReceived(quote cashu.MintRequestDB, invoice *zpay32.Invoice) (PaymentStatus, string, error)
	QueryFees(invoice string, zpayInvoice *zpay32.Invoice, mpp bool, amount cashu.Amount) (FeesResponse, error)
	RequestInvoice(quote cashu.MintRequestDB, amount cashu.Amount) (InvoiceResponse, error)
	WalletBalance() (uint64, error)
	LightningType() Backend
	GetNetwork() *chaincfg.Params
	ActiveMPP() bool
	VerifyUnitSupport(unit cashu.Unit) bool
	DescriptionSupport() bool
}
