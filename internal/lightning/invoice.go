package lightning

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/zpay32"
)

// paymentHashForInvoice picks the hash a mock invoice should be keyed under.
// d.Hash and d.Preimage are mutually exclusive: supplying neither draws a
// fresh random preimage and hashes it, supplying a hash alone builds a hold
// invoice whose preimage is still unknown, and supplying a preimage alone
// derives the hash from it.
func paymentHashForInvoice(d *invoicesrpc.AddInvoiceData) (*lntypes.Preimage, lntypes.Hash, error) {
	if d.Preimage != nil && d.Hash != nil {
		return nil, lntypes.Hash{}, errors.New("preimage and hash both set")
	}

	if d.Hash != nil {
		return nil, *d.Hash, nil
	}

	if d.Preimage != nil {
		preimage := *d.Preimage
		return &preimage, preimage.Hash(), nil
	}

	var preimage lntypes.Preimage
	if _, err := rand.Read(preimage[:]); err != nil {
		return nil, lntypes.Hash{}, fmt.Errorf("rand.Read(preimage): %w", err)
	}
	return &preimage, preimage.Hash(), nil
}

// randomPaymentAddr draws a fresh BOLT11 payment address so a sender that
// understands the field can't be used to correlate probes against this
// invoice and a real one from the same node.
func randomPaymentAddr() ([32]byte, error) {
	var addr [32]byte
	if _, err := rand.Read(addr[:]); err != nil {
		return addr, fmt.Errorf("rand.Read(paymentAddr): %w", err)
	}
	return addr, nil
}

// signWithEphemeralKey satisfies zpay32.MessageSigner with a throwaway key
// generated on the spot, since a mock invoice's signature is never verified
// against a known node pubkey.
func signWithEphemeralKey(msg []byte) ([]byte, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("secp256k1.GeneratePrivateKey: %w", err)
	}
	return ecdsa.SignCompact(key, msg, true), nil
}

// CreateMockInvoice builds a BOLT11 invoice for amountSats signed by a
// throwaway key, for lightning backends (FakeWallet, test harnesses) that
// need a well-formed invoice string without a real node behind it.
func CreateMockInvoice(amountSats cashu.Amount, description string, network chaincfg.Params, expiry int64) (string, error) {
	if err := amountSats.To(cashu.Msat); err != nil {
		return "", fmt.Errorf("amountSats.To(cashu.Msat): %w", err)
	}

	milsats, err := lnrpc.UnmarshallAmt(0, int64(amountSats.Amount))
	if err != nil {
		return "", fmt.Errorf("lnrpc.UnmarshallAmt: %w", err)
	}

	_, paymentHash, err := paymentHashForInvoice(&invoicesrpc.AddInvoiceData{
		Memo:   description,
		Value:  milsats,
		Expiry: expiry,
	})
	if err != nil {
		return "", fmt.Errorf("paymentHashForInvoice: %w", err)
	}

	paymentAddr, err := randomPaymentAddr()
	if err != nil {
		return "", err
	}

	options := []func(*zpay32.Invoice){
		zpay32.Description(description),
		zpay32.Amount(milsats),
		zpay32.CLTVExpiry(64000),
		zpay32.PaymentAddr(paymentAddr),
	}

	invoice, err := zpay32.NewInvoice(&network, paymentHash, time.Now(), options...)
	if err != nil {
		return "", fmt.Errorf("zpay32.NewInvoice: %w", err)
	}

	encoded, err := invoice.Encode(zpay32.MessageSigner{SignCompact: signWithEphemeralKey})
	if err != nil {
		return "", fmt.Errorf("invoice.Encode: %w", err)
	}

	return encoded, nil
}
