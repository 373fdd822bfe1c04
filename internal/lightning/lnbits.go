package lightning

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/lightningnetwork/lnd/zpay32"
)

// LnbitsWallet drives a custodial LNbits account over its REST API. It is a
// thinner backend than the lnd/fake wallets: every lifecycle check is a
// lookup against LNbits' own payment record rather than a channel query.
type LnbitsWallet struct {
	Endpoint string
	Key      string
	Network  chaincfg.Params
}

type lnbitsDetailErrorData struct {
	Detail string
	Status string
}

type lnbitsInvoiceRequest struct {
	Memo   string `json:"memo"`
	Bolt11 string `json:"bolt11,omitempty"`
	Amount uint64 `json:"amount"`
	Expiry int64  `json:"expiry,omitempty"`
	Out    bool   `json:"out"`
}

type lnbitsPaymentStatusDetail struct {
	Fee     int64 `json:"fee"`
	Pending bool  `json:"pending"`
}

type lnbitsPaymentStatus struct {
	Preimage string                    `json:"preimage"`
	Details  lnbitsPaymentStatusDetail `json:"details"`
	Paid     bool                      `json:"paid"`
	Pending  bool                      `json:"pending"`
}

type lnbitsFeeResponse struct {
	FeeReserve uint64 `json:"fee_reserve"`
}

var ErrLnbitsFailedPayment = errors.New("lnbits: payment failed")

func (l LnbitsWallet) lnbitsRequest(method string, endpoint string, reqBody any, responseType any) error {
	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequest(method, l.Endpoint+endpoint, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("X-Api-Key", l.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http.DefaultClient.Do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("io.ReadAll: %w", err)
	}

	var detail lnbitsDetailErrorData
	if err := json.Unmarshal(body, &detail); err == nil {
		switch {
		case detail.Status == "failed":
			return fmt.Errorf("lnbits response %s: %w", body, ErrLnbitsFailedPayment)
		case len(detail.Detail) > 0 && detail.Detail != "Payment does not exist.":
			return fmt.Errorf("lnbits error %q: %w", detail.Detail, ErrLnbitsFailedPayment)
		}
	}

	if err := json.Unmarshal(body, responseType); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return nil
}

func (l LnbitsWallet) PayInvoice(meltQuote cashu.MeltRequestDB, zpayInvoice *zpay32.Invoice, feeReserve uint64, mpp bool, amount cashu.Amount) (PaymentResponse, error) {
	var response PaymentResponse

	var paid struct {
		PaymentHash string `json:"payment_hash"`
	}

	reqInvoice := lnbitsInvoiceRequest{Out: true, Bolt11: meltQuote.Request}
	if err := l.lnbitsRequest("POST", "/api/v1/payments", reqInvoice, &paid); err != nil {
		if errors.Is(err, ErrLnbitsFailedPayment) {
			response.PaymentState = FAILED
		}
		return response, fmt.Errorf(`l.lnbitsRequest("POST", "/api/v1/payments"): %w`, err)
	}

	var status lnbitsPaymentStatus
	if err := l.lnbitsRequest("GET", "/api/v1/payments/"+paid.PaymentHash, nil, &status); err != nil {
		return response, fmt.Errorf(`l.lnbitsRequest("GET", "/api/v1/payments/"+paid.PaymentHash): %w`, err)
	}

	response.PaymentRequest = meltQuote.Request
	response.Rhash = paid.PaymentHash
	response.Preimage = status.Preimage
	response.PaidFeeSat = status.Details.Fee
	response.PaymentState = SETTLED
	response.CheckingId = paid.PaymentHash

	return response, nil
}

func (l LnbitsWallet) CheckPayed(quote string, invoice *zpay32.Invoice, checkingId string) (PaymentStatus, string, uint64, error) {
	var status lnbitsPaymentStatus

	if err := l.lnbitsRequest("GET", "/api/v1/payments/"+checkingId, nil, &status); err != nil {
		return FAILED, "", 0, fmt.Errorf(`l.lnbitsRequest("GET", "/api/v1/payments/"+checkingId): %w`, err)
	}

	fee := uint64(0)
	if status.Details.Fee > 0 {
		fee = uint64(status.Details.Fee)
	}

	switch {
	case status.Paid:
		return SETTLED, status.Preimage, fee, nil
	case status.Pending, status.Details.Pending:
		return PENDING, status.Preimage, fee, nil
	default:
		return FAILED, status.Preimage, fee, nil
	}
}

func (l LnbitsWallet) CheckReceived(quote cashu.MintRequestDB, invoice *zpay32.Invoice) (PaymentStatus, string, error) {
	hash := hex.EncodeToString(invoice.PaymentHash[:])

	var status lnbitsPaymentStatus
	if err := l.lnbitsRequest("GET", "/api/v1/payments/"+hash, nil, &status); err != nil {
		return FAILED, "", fmt.Errorf(`l.lnbitsRequest("GET", "/api/v1/payments/"+hash): %w`, err)
	}

	switch {
	case status.Paid:
		return SETTLED, status.Preimage, nil
	case status.Pending, status.Details.Pending:
		return PENDING, status.Preimage, nil
	default:
		return FAILED, status.Preimage, nil
	}
}

func (l LnbitsWallet) QueryFees(invoice string, zpayInvoice *zpay32.Invoice, mpp bool, amount cashu.Amount) (FeesResponse, error) {
	var feesResponse FeesResponse

	var queryResponse lnbitsFeeResponse
	if err := l.lnbitsRequest("GET", "/api/v1/payments/fee-reserve?invoice="+invoice, nil, &queryResponse); err != nil {
		return feesResponse, fmt.Errorf(`l.lnbitsRequest("GET", "/api/v1/payments/fee-reserve"): %w`, err)
	}

	// lnbits reports the fee reserve in msat
	feeMsat := cashu.Amount{Unit: cashu.Msat, Amount: queryResponse.FeeReserve}
	if err := feeMsat.To(amount.Unit); err != nil {
		return feesResponse, fmt.Errorf("feeMsat.To(amount.Unit): %w", err)
	}

	fee := FeeReserve(amount.Amount, feeMsat.Amount)
	hash := zpayInvoice.PaymentHash[:]

	feesResponse.Fees = cashu.Amount{Unit: amount.Unit, Amount: fee}
	feesResponse.AmountToSend = amount
	feesResponse.CheckingId = hex.EncodeToString(hash)

	return feesResponse, nil
}

func (l LnbitsWallet) RequestInvoice(quote cashu.MintRequestDB, amount cashu.Amount) (InvoiceResponse, error) {
	var response InvoiceResponse

	if !l.VerifyUnitSupport(amount.Unit) {
		return response, fmt.Errorf("l.VerifyUnitSupport(amount.Unit): %w", cashu.ErrUnitNotSupported)
	}

	satAmount := amount
	if err := satAmount.To(cashu.Sat); err != nil {
		return response, fmt.Errorf("satAmount.To(cashu.Sat): %w", err)
	}

	reqInvoice := lnbitsInvoiceRequest{Amount: satAmount.Amount, Out: false, Expiry: 900}
	if quote.Description != nil {
		reqInvoice.Memo = *quote.Description
	}

	var lnbitsInvoice struct {
		PaymentHash    string `json:"payment_hash"`
		PaymentRequest string `json:"payment_request"`
		Bolt11         string `json:"bolt11"`
	}
	if err := l.lnbitsRequest("POST", "/api/v1/payments", reqInvoice, &lnbitsInvoice); err != nil {
		return response, fmt.Errorf(`l.lnbitsRequest("POST", "/api/v1/payments"): %w`, err)
	}

	if lnbitsInvoice.Bolt11 != "" {
		response.PaymentRequest = lnbitsInvoice.Bolt11
	} else {
		response.PaymentRequest = lnbitsInvoice.PaymentRequest
	}
	response.Rhash = lnbitsInvoice.PaymentHash
	response.CheckingId = lnbitsInvoice.PaymentHash

	return response, nil
}

func (l LnbitsWallet) WalletBalance() (uint64, error) {
	var wallet struct {
		Balance int64 `json:"balance"`
	}
	if err := l.lnbitsRequest("GET", "/api/v1/wallet", nil, &wallet); err != nil {
		return 0, fmt.Errorf(`l.lnbitsRequest("GET", "/api/v1/wallet"): %w`, err)
	}

	// lnbits reports the wallet balance in msat
	return uint64(wallet.Balance) / 1000, nil
}

func (l LnbitsWallet) LightningType() Backend {
	return LNBITS
}

func (l LnbitsWallet) GetNetwork() *chaincfg.Params {
	return &l.Network
}

func (l LnbitsWallet) ActiveMPP() bool {
	return false
}

func (l LnbitsWallet) VerifyUnitSupport(unit cashu.Unit) bool {
	return unit == cashu.Sat
}

func (l LnbitsWallet) DescriptionSupport() bool {
	return true
}
