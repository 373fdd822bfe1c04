package lightning

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/lightningnetwork/lnd/zpay32"
)

// FakeWallet settles every payment instantly against a fixed preimage. It
// exists so the mint can run end to end (mint quote -> pay -> melt quote ->
// pay) without a real node attached, for local development and tests.
type FakeWallet struct {
	Network chaincfg.Params
	// UnpurposeErrors forces otherwise-successful calls to misbehave, so
	// tests can drive the mint's payment-failure and pending-payment
	// paths without a real lightning node to provoke them.
	UnpurposeErrors []FakeWalletError
}

// FakeWalletError names a specific way a FakeWallet call can be told to
// misbehave via UnpurposeErrors.
type FakeWalletError int

const (
	// FailPaymentFailed makes PayInvoice report that the payment attempt
	// itself failed, forcing the caller down the CheckPayed fallback path.
	FailPaymentFailed FakeWalletError = iota
	// FailQueryPending makes CheckPayed report the payment as still
	// pending instead of settled.
	FailQueryPending
)

func (f FakeWallet) hasUnpurposeError(target FakeWalletError) bool {
	for _, err := range f.UnpurposeErrors {
		if err == target {
			return true
		}
	}
	return false
}

const fakePreimage = "0000000000000000000000000000000000000000000000000000000000000000"

func (f FakeWallet) PayInvoice(meltQuote cashu.MeltRequestDB, zpayInvoice *zpay32.Invoice, feeReserve uint64, mpp bool, amount cashu.Amount) (PaymentResponse, error) {
	checkingId := hex.EncodeToString(zpayInvoice.PaymentHash[:])

	if f.hasUnpurposeError(FailPaymentFailed) {
		return PaymentResponse{
			PaymentRequest: meltQuote.Request,
			CheckingId:     checkingId,
			PaymentState:   FAILED,
		}, fmt.Errorf("fake wallet: forced payment failure")
	}

	return PaymentResponse{
		Preimage:       fakePreimage,
		PaymentRequest: meltQuote.Request,
		Rhash:          checkingId,
		PaidFeeSat:     0,
		PaymentState:   SETTLED,
		CheckingId:     checkingId,
	}, nil
}

func (f FakeWallet) CheckPayed(quote string, invoice *zpay32.Invoice, checkingId string) (PaymentStatus, string, uint64, error) {
	if f.hasUnpurposeError(FailQueryPending) {
		return PENDING, "", 0, nil
	}
	return SETTLED, fakePreimage, 0, nil
}

func (f FakeWallet) CheckReceived(quote cashu.MintRequestDB, invoice *zpay32.Invoice) (PaymentStatus, string, error) {
	return SETTLED, fakePreimage, nil
}

func (f FakeWallet) QueryFees(invoice string, zpayInvoice *zpay32.Invoice, mpp bool, amount cashu.Amount) (FeesResponse, error) {
	return FeesResponse{
		Fees:         cashu.Amount{Unit: amount.Unit, Amount: 0},
		AmountToSend: amount,
	}, nil
}

func (f FakeWallet) RequestInvoice(quote cashu.MintRequestDB, amount cashu.Amount) (InvoiceResponse, error) {
	expireTime := cashu.ExpiryTimeMinUnit(15)

	payReq, err := CreateMockInvoice(amount, "fake wallet invoice", f.Network, expireTime)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("CreateMockInvoice: %w", err)
	}

	var checkingId [32]byte
	if _, err := rand.Read(checkingId[:]); err != nil {
		return InvoiceResponse{}, fmt.Errorf("rand.Read: %w", err)
	}

	hexId := hex.EncodeToString(checkingId[:])

	return InvoiceResponse{
		PaymentRequest: payReq,
		Rhash:          hexId,
		CheckingId:     hexId,
	}, nil
}

func (f FakeWallet) WalletBalance() (uint64, error) {
	return 0, nil
}

func (f FakeWallet) LightningType() Backend {
	return FAKEWALLET
}

func (f FakeWallet) GetNetwork() *chaincfg.Params {
	return &f.Network
}

func (f FakeWallet) ActiveMPP() bool {
	return false
}

func (f FakeWallet) VerifyUnitSupport(unit cashu.Unit) bool {
	return unit == cashu.Sat || unit == cashu.Msat
}

func (f FakeWallet) DescriptionSupport() bool {
	return true
}
