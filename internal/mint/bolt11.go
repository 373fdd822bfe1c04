package mint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/lightning"
	"github.com/lightningnetwork/lnd/invoices"
	"github.com/lightningnetwork/lnd/zpay32"
)

func CheckMintRequest(mint *Mint, quote cashu.MintRequestDB, invoice *zpay32.Invoice) (cashu.MintRequestDB, error) {

	if quote.State == cashu.PAID || quote.State == cashu.ISSUED {
		return quote, nil
	}

	status, _, err := mint.LightningBackend.CheckReceived(quote, invoice)
	if err != nil {
		return quote, fmt.Errorf("mint.LightningBackend.CheckReceived(quote, invoice). %w", err)
	}
	switch {
	case status == lightning.SETTLED:
		quote.State = cashu.PAID
		quote.RequestPaid = true

	case status == lightning.PENDING:
		quote.State = cashu.PENDING
	case status == lightning.FAILED:
		quote.State = cashu.UNPAID

	}
	return quote, nil

}

// CheckMintRequestById looks up a mint quote by id and refreshes its payment
// state against the lightning backend, for callers that only hold the quote
// id (e.g. websocket subscriptions).
func CheckMintRequestById(mint *Mint, quoteId string) (cashu.PostMintQuoteBolt11Response, error) {
	ctx := context.Background()
	tx, err := mint.MintDB.GetTx(ctx)
	if err != nil {
		return cashu.PostMintQuoteBolt11Response{}, fmt.Errorf("mint.MintDB.GetTx(ctx). %w", err)
	}
	defer mint.MintDB.Rollback(ctx, tx)

	quote, err := mint.MintDB.GetMintRequestById(tx, quoteId)
	if err != nil {
		return quote.PostMintQuoteBolt11Response(), fmt.Errorf("mint.MintDB.GetMintRequestById(tx, quoteId). %w", err)
	}

	if quote.State == cashu.PAID || quote.State == cashu.ISSUED {
		return quote.PostMintQuoteBolt11Response(), nil
	}

	invoice, err := zpay32.Decode(quote.Request, mint.LightningBackend.GetNetwork())
	if err != nil {
		return quote.PostMintQuoteBolt11Response(), fmt.Errorf("zpay32.Decode(quote.Request, mint.LightningBackend.GetNetwork()). %w", err)
	}

	quote, err = CheckMintRequest(mint, quote, invoice)
	if err != nil {
		return quote.PostMintQuoteBolt11Response(), fmt.Errorf("CheckMintRequest(mint, quote, invoice). %w", err)
	}

	err = mint.MintDB.ChangeMintRequestState(tx, quote.Quote, quote.RequestPaid, quote.State, quote.Minted)
	if err != nil {
		return quote.PostMintQuoteBolt11Response(), fmt.Errorf("mint.MintDB.ChangeMintRequestState(tx, quote.Quote, quote.RequestPaid, quote.State, quote.Minted). %w", err)
	}

	if err := mint.MintDB.Commit(ctx, tx); err != nil {
		return quote.PostMintQuoteBolt11Response(), fmt.Errorf("mint.MintDB.Commit(ctx, tx). %w", err)
	}

	return quote.PostMintQuoteBolt11Response(), nil
}

func CheckMeltRequest(mint *Mint, quoteId string) (cashu.PostMeltQuoteBolt11Response, error) {
	ctx := context.Background()
	tx, err := mint.MintDB.GetTx(ctx)
	if err != nil {
		return cashu.PostMeltQuoteBolt11Response{}, fmt.Errorf("mint.MintDB.GetTx(ctx). %w", err)
	}
	defer mint.MintDB.Rollback(ctx, tx)

	quote, err := mint.MintDB.GetMeltRequestById(tx, quoteId)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("mint.MintDB.GetMeltRequestById(tx, quoteId). %w", err)
	}

	if quote.State == cashu.PAID || quote.State == cashu.ISSUED {
		return quote.GetPostMeltQuoteResponse(), nil
	}

	invoice, err := zpay32.Decode(quote.Request, mint.LightningBackend.GetNetwork())
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("zpay32.Decode(quote.Request, mint.LightningBackend.GetNetwork()). %w", err)
	}

	status, preimage, fees, err := mint.LightningBackend.CheckPayed(quote.Quote, invoice, quote.CheckingId)
	if err != nil {
		if errors.Is(err, invoices.ErrInvoiceNotFound) || strings.Contains(err.Error(), "NotFound") {
			return quote.GetPostMeltQuoteResponse(), nil
		}
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("mint.LightningBackend.CheckPayed(quote.Quote, invoice, quote.CheckingId). %w", err)
	}

	switch {
	case status == lightning.SETTLED:
		quote.PaymentPreimage = preimage
		quote.State = cashu.PAID
		quote.FeePaid = fees
		quote.RequestPaid = true

	case status == lightning.PENDING:
		quote.State = cashu.PENDING
	case status == lightning.FAILED:
		quote.State = cashu.UNPAID

	}

	err = mint.MintDB.AddPreimageMeltRequest(tx, quote.Quote, preimage)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("mint.MintDB.AddPreimageMeltRequest(tx, quote.Quote, preimage) %w", err)
	}

	err = mint.MintDB.ChangeMeltRequestState(tx, quote.Quote, quote.RequestPaid, quote.State, quote.Melted, quote.FeePaid)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("mint.MintDB.ChangeMeltRequestState(tx, quote.Quote, quote.RequestPaid, quote.State, quote.Melted, quote.FeePaid) %w", err)
	}

	if err := mint.MintDB.Commit(ctx, tx); err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("mint.MintDB.Commit(ctx, tx). %w", err)
	}

	return quote.GetPostMeltQuoteResponse(), nil

}
