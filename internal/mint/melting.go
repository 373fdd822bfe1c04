package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/lightning"
	"github.com/SparrowTek/cashu-mint/internal/utils"
	"github.com/lightningnetwork/lnd/zpay32"
)

// syncMeltRequestState persists quote's paid/state/melted/fee fields, the
// set of columns every melt step below mutates together.
func (m *Mint) syncMeltRequestState(tx pgx.Tx, quote cashu.MeltRequestDB) error {
	return m.MintDB.ChangeMeltRequestState(tx, quote.Quote, quote.RequestPaid, quote.State, quote.Melted, quote.FeePaid)
}

// settleIfInternalMelt checks whether the invoice being melted is one this
// mint itself issued a mint quote for. If so it settles both quotes in the
// same transaction instead of going out to the lightning backend, since
// paying yourself over a real channel would just burn routing fees.
func (m *Mint) settleIfInternalMelt(tx pgx.Tx, meltQuote cashu.MeltRequestDB) (cashu.MeltRequestDB, error) {
	mintRequest, err := m.MintDB.GetMintRequestByRequest(tx, meltQuote.Request)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return meltQuote, nil
		}
		return cashu.MeltRequestDB{}, fmt.Errorf("m.MintDB.GetMintRequestById() %w", err)
	}

	if mintRequest.Request != meltQuote.Request {
		return meltQuote, nil
	}
	if meltQuote.State == cashu.PAID {
		return meltQuote, cashu.ErrMeltAlreadyPaid
	}
	if meltQuote.Unit != mintRequest.Unit {
		return meltQuote, fmt.Errorf("Unit for internal mint are not the same. %w", cashu.ErrUnitNotSupported)
	}
	if mintRequest.State != cashu.UNPAID {
		return meltQuote, fmt.Errorf("Mint request has already been paid. Mint State: %v", mintRequest.State)
	}

	meltQuote.FeePaid = 0
	meltQuote.State = cashu.PAID
	meltQuote.Melted = true

	mintRequest.State = cashu.PAID
	mintRequest.RequestPaid = true

	slog.Info("Settling bolt11 payment internally", slog.String("quote", meltQuote.Quote), slog.String("mint_request", mintRequest.Quote), slog.Uint64("amount", meltQuote.Amount), slog.String("unit", meltQuote.Unit))

	if err := m.syncMeltRequestState(tx, meltQuote); err != nil {
		return meltQuote, fmt.Errorf("m.syncMeltRequestState(tx, meltQuote) %w", err)
	}
	if err := m.MintDB.ChangeMintRequestState(tx, mintRequest.Quote, mintRequest.RequestPaid, mintRequest.State, mintRequest.Minted); err != nil {
		return meltQuote, fmt.Errorf("mint.MintDB.ChangeMintRequestState(): %w", err)
	}

	return meltQuote, nil
}

// CheckMeltQuoteState resolves a quote's stored state against the world:
// pending quotes get their invoice re-checked against the lightning backend
// and settled one way or the other; anything already terminal is returned
// as-is.
func (m *Mint) CheckMeltQuoteState(quoteId string) (cashu.MeltRequestDB, error) {
	ctx := context.Background()
	tx, err := m.MintDB.GetTx(ctx)
	if err != nil {
		return cashu.MeltRequestDB{}, fmt.Errorf("m.MintDB.GetTx(ctx). %w", err)
	}
	defer m.MintDB.Rollback(ctx, tx)

	quote, err := m.MintDB.GetMeltRequestById(tx, quoteId)
	if err != nil {
		return quote, fmt.Errorf("m.MintDB.GetMeltRequestById(quoteId). %w", err)
	}

	if quote.State == cashu.PENDING {
		quote, err = m.resolvePendingMeltQuote(tx, quote)
		if err != nil {
			return quote, err
		}
	}

	if err := m.MintDB.Commit(context.Background(), tx); err != nil {
		return quote, fmt.Errorf("m.MintDB.Commit(context.Background(), tx). %w", err)
	}
	return quote, nil
}

// resolvePendingMeltQuote re-checks a pending quote's invoice against the
// lightning backend and dispatches to the settle path matching whatever the
// backend reports. A status that is neither settled nor failed leaves the
// quote pending and is a no-op.
func (m *Mint) resolvePendingMeltQuote(tx pgx.Tx, quote cashu.MeltRequestDB) (cashu.MeltRequestDB, error) {
	if err := m.VerifyUnitSupport(quote.Unit); err != nil {
		return quote, fmt.Errorf("m.VerifyUnitSupport(quote.Unit). %w", err)
	}

	invoice, err := zpay32.Decode(quote.Request, m.LightningBackend.GetNetwork())
	if err != nil {
		return quote, fmt.Errorf("zpay32.Decode(quote.Request, m.LightningBackend.GetNetwork()). %w", err)
	}

	pendingProofs, err := m.MintDB.GetProofsFromQuote(tx, quote.Quote)
	if err != nil {
		return quote, fmt.Errorf("m.MintDB.GetProofsFromQuote(quote.Quote). %w", err)
	}

	status, preimage, fee, err := m.LightningBackend.CheckPayed(quote.Quote, invoice, quote.CheckingId)
	if err != nil {
		return quote, fmt.Errorf("m.LightningBackend.CheckPayed(quote.Quote). %w", err)
	}

	switch status {
	case lightning.SETTLED:
		quote.State = cashu.PAID
		quote.FeePaid = fee
		quote.PaymentPreimage = preimage
		return m.settlePaidMeltQuote(tx, quote, pendingProofs)
	case lightning.FAILED:
		quote.State = cashu.UNPAID
		return m.settleFailedMeltQuote(tx, quote, pendingProofs)
	default:
		return quote, nil
	}
}

// settlePaidMeltQuote marks the reserved proofs spent, signs any leftover
// change from an overpaid fee reserve, and records the payment preimage.
func (m *Mint) settlePaidMeltQuote(tx pgx.Tx, quote cashu.MeltRequestDB, pendingProofs cashu.Proofs) (cashu.MeltRequestDB, error) {
	changeMessages, err := m.MintDB.GetMeltChangeByQuote(tx, quote.Quote)
	if err != nil {
		return quote, fmt.Errorf("m.MintDB.GetMeltChangeByQuote(tx, quote.Quote). %w", err)
	}

	keysets, err := m.Signer.GetKeysets()
	if err != nil {
		return quote, fmt.Errorf("m.Signer.GetKeys(). %w", err)
	}

	fee, err := cashu.Fees(pendingProofs, keysets.Keysets)
	if err != nil {
		return quote, fmt.Errorf("cashu.Fees(pending_proofs, m.Keysets[quote.Unit]). %w", err)
	}

	totalSpent := quote.Amount + quote.FeePaid + uint64(fee)
	overpaidFees := pendingProofs.Amount() - totalSpent

	if len(changeMessages) > 0 && overpaidFees > 0 {
		blindMessages := make([]cashu.BlindedMessage, 0, len(changeMessages))
		for _, v := range changeMessages {
			blindMessages = append(blindMessages, cashu.BlindedMessage{Id: v.Id, B_: v.B_})
		}

		sigs, err := m.GetChangeOutput(blindMessages, overpaidFees, quote.Unit)
		if err != nil {
			return quote, fmt.Errorf("m.GetChangeOutput(changeMessages, quote.Unit). %w", err)
		}
		if err := m.MintDB.SaveRestoreSigs(tx, sigs); err != nil {
			return quote, fmt.Errorf("m.MintDB.SaveRestoreSigs(sigs) %w", err)
		}
		if err := m.MintDB.DeleteChangeByQuote(tx, quote.Quote); err != nil {
			return quote, fmt.Errorf("m.MintDB.DeleteChangeByQuote(quote.Quote) %w", err)
		}
	}

	if err := m.MintDB.SetProofsState(tx, pendingProofs, cashu.PROOF_SPENT); err != nil {
		return quote, fmt.Errorf("m.MintDB.SetProofsState(pending_proofs, cashu.PROOF_SPENT) %w", err)
	}
	if err := m.syncMeltRequestState(tx, quote); err != nil {
		return quote, fmt.Errorf("m.syncMeltRequestState(tx, quote) %w", err)
	}
	if err := m.MintDB.AddPreimageMeltRequest(tx, quote.Quote, quote.PaymentPreimage); err != nil {
		return quote, fmt.Errorf("m.MintDB.AddPreimageMeltRequest(tx, quote.Quote, quote.PaymentPreimage) %w", err)
	}

	return quote, nil
}

// settleFailedMeltQuote releases the reserved proofs and pending change so
// they become spendable again.
func (m *Mint) settleFailedMeltQuote(tx pgx.Tx, quote cashu.MeltRequestDB, pendingProofs cashu.Proofs) (cashu.MeltRequestDB, error) {
	if err := m.syncMeltRequestState(tx, quote); err != nil {
		return quote, fmt.Errorf("m.syncMeltRequestState(tx, quote) %w", err)
	}
	if err := m.MintDB.DeleteChangeByQuote(tx, quote.Quote); err != nil {
		return quote, fmt.Errorf("m.MintDB.DeleteChangeByQuote(quote.Quote) %w", err)
	}
	if len(pendingProofs) > 0 {
		if err := m.MintDB.DeleteProofs(tx, pendingProofs); err != nil {
			return quote, fmt.Errorf("m.MintDB.DeleteProofs(tx, pending_proofs). %w", err)
		}
	}
	return quote, nil
}

// CheckPendingQuoteAndProofs sweeps every melt quote left in PENDING and
// asks CheckMeltQuoteState to try to resolve each one, typically run on a
// timer to catch payments that settled while the mint was down.
func (m *Mint) CheckPendingQuoteAndProofs() error {
	quotes, err := m.MintDB.GetMeltQuotesByState(cashu.PENDING)
	if err != nil {
		return fmt.Errorf("m.MintDB.GetMeltQuotesByState(cashu.PENDING). %w", err)
	}

	for _, quote := range quotes {
		slog.Info("Attempting to solve pending quote for", slog.Any("quote", quote))
		resolved, err := m.CheckMeltQuoteState(quote.Quote)
		if err != nil {
			return fmt.Errorf("m.CheckMeltQuoteState(quote.Quote). %w", err)
		}
		slog.Info("Melt quote state", slog.String("quote", resolved.Quote), slog.String("state", string(resolved.State)))
	}

	return nil
}

// validateMeltProofs checks that the melt request's inputs cover the quote's
// amount plus fees, are unspent, and carry valid signatures, and that the
// quote's invoice still decodes. It does not mutate any state.
func (m *Mint) validateMeltProofs(tx pgx.Tx, meltRequest cashu.PostMeltBolt11Request, quote cashu.MeltRequestDB) (cashu.Unit, int, uint64, *zpay32.Invoice, error) {
	keysets, err := m.Signer.GetKeysets()
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("m.Signer.GetKeys(). %w", err)
	}

	unit, err := m.CheckProofsAreSameUnit(meltRequest.Inputs, keysets.Keysets)
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("%w. m.CheckProofsAreSameUnit(meltRequest.Inputs): %w", cashu.ErrUnitNotSupported, err)
	}

	// change outputs, if any, must carry the same unit as the melted inputs
	if len(meltRequest.Outputs) > 0 {
		outputUnit, err := m.VerifyOutputs(meltRequest.Outputs, keysets.Keysets)
		if err != nil {
			return 0, 0, 0, nil, fmt.Errorf("%w. m.VerifyOutputs(meltRequest.Outputs): %w", cashu.ErrUnitNotSupported, err)
		}
		if outputUnit != unit {
			return 0, 0, 0, nil, fmt.Errorf("%w. Change output unit is different: ", cashu.ErrDifferentInputOutputUnit)
		}
	}

	if err := m.VerifyUnitSupport(quote.Unit); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("m.VerifyUnitSupport(quote.Unit). %w", err)
	}

	fee, err := cashu.Fees(meltRequest.Inputs, keysets.Keysets)
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("cashu.Fees(meltRequest.Inputs, mint.Keysets[unit.String()]): %w", err)
	}

	amountProofs, secretsList, err := utils.GetAndCalculateProofsValues(&meltRequest.Inputs)
	if err != nil {
		slog.Warn("utils.GetProofsValues(&meltRequest.Inputs)", slog.Any("error", err))
		return 0, 0, 0, nil, fmt.Errorf("utils.GetAndCalculateProofsValues(&meltRequest.Inputs) %w", err)
	}

	if amountProofs < (quote.Amount + quote.FeeReserve + uint64(fee)) {
		slog.Info("Not enough proofs to expend", slog.Uint64("needs", quote.Amount))
		return 0, 0, 0, nil, fmt.Errorf("%w. AmountProofs < (quote.Amount + quote.FeeReserve + uint64(fee))", cashu.ErrNotEnoughtProofs)
	}

	knownProofs, err := m.MintDB.GetProofsFromSecretCurve(tx, secretsList)
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("m.MintDB.GetProofsFromSecretCurve(tx, SecretsList) %w", err)
	}
	if len(knownProofs) != 0 {
		slog.Info("Proofs already used", slog.Any("known_proofs", knownProofs))
		return 0, 0, 0, nil, fmt.Errorf("%w len(knownProofs) != 0", cashu.ErrProofSpent)
	}

	if err := m.Signer.VerifyProofs(meltRequest.Inputs); err != nil {
		slog.Debug("Could not verify Proofs", slog.Any("error", err))
		return 0, 0, 0, nil, fmt.Errorf("m.Signer.VerifyProofs(meltRequest.Inputs) %w", err)
	}

	invoice, err := zpay32.Decode(quote.Request, m.LightningBackend.GetNetwork())
	if err != nil {
		slog.Info("zpay32.Decode", slog.Any("error", err))
		return 0, 0, 0, nil, fmt.Errorf("zpay32.Decode(quote.Request, m.LightningBackend.GetNetwork()) %w", err)
	}

	return unit, fee, amountProofs, invoice, nil
}

// reserveMeltProofs marks the melt's inputs pending against the quote and
// persists them in a sub-transaction, so a crash between here and the
// lightning payment leaves the proofs recoverable instead of silently lost.
func (m *Mint) reserveMeltProofs(ctx context.Context, tx pgx.Tx, meltRequest cashu.PostMeltBolt11Request, quote *cashu.MeltRequestDB) error {
	setUpTx, err := m.MintDB.SubTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("m.MintDB.SubTx(ctx, tx) %w", err)
	}
	defer m.MintDB.Rollback(ctx, setUpTx)

	meltRequest.Inputs.SetPendingAndQuoteRef(quote.Quote)
	quote.State = cashu.PENDING

	if err := m.MintDB.SaveProof(setUpTx, meltRequest.Inputs); err != nil {
		return fmt.Errorf("m.MintDB.SaveProof(setUpTx, meltRequest.Inputs) %w", err)
	}
	if err := m.syncMeltRequestState(setUpTx, *quote); err != nil {
		return fmt.Errorf("m.syncMeltRequestState(setUpTx, quote) %w", err)
	}
	if err := m.MintDB.SaveMeltChange(setUpTx, meltRequest.Outputs, quote.Quote); err != nil {
		return fmt.Errorf("m.MintDB.SaveMeltChange(setUpTx, meltRequest.Outputs, quote.Quote) %w", err)
	}
	if err := m.MintDB.Commit(context.Background(), setUpTx); err != nil {
		return fmt.Errorf("m.MintDB.Commit(context.Background(), setUpTx). %w", err)
	}

	return nil
}

// payMeltInvoice pays the quote's invoice through the lightning backend. On
// a clean success it updates quote in place (preimage, fee, PAID/Melted)
// and returns handled=false so Melt continues on to signing change. Any
// outcome that already produced a terminal response — payment left pending,
// confirmed failure, or an error while re-checking status — is returned
// with handled=true and Melt should return the given response as-is.
func (m *Mint) payMeltInvoice(tx pgx.Tx, quote *cashu.MeltRequestDB, meltRequest cashu.PostMeltBolt11Request, invoice *zpay32.Invoice, amount cashu.Amount) (cashu.PostMeltQuoteBolt11Response, bool, error) {
	payment, err := m.LightningBackend.PayInvoice(*quote, invoice, quote.FeeReserve, quote.Mpp, amount)

	if err == nil && payment.PaymentState != lightning.FAILED && payment.PaymentState != lightning.UNKNOWN && payment.PaymentState != lightning.PENDING {
		quote.PaymentPreimage = payment.Preimage
		quote.FeePaid = uint64(payment.PaidFeeSat)
		quote.RequestPaid = true
		quote.State = cashu.PAID
		quote.Melted = true
		return cashu.PostMeltQuoteBolt11Response{}, false, nil
	}

	slog.Warn("Possible payment failure", slog.Any("error", err), slog.Any("payment", payment))
	slog.Debug("changing checking Id to payment checking Id", slog.String("quote.CheckingId", quote.CheckingId), slog.String("payment.CheckingId", payment.CheckingId))
	quote.CheckingId = payment.CheckingId
	if err := m.MintDB.ChangeCheckingId(tx, quote.Quote, quote.CheckingId); err != nil {
		slog.Error("ModifyQuoteMeltPayStatusAndMelted", slog.Any("error", err))
	}

	status, _, feePaid, checkErr := m.LightningBackend.CheckPayed(quote.Quote, invoice, quote.CheckingId)
	if checkErr != nil {
		slog.Warn("Something happened while paying the invoice. Keeping proofs and quote as pending ")
		if commitErr := m.MintDB.Commit(context.Background(), tx); commitErr != nil {
			return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.MintDB.Commit(context.Background(), tx). %w", commitErr)
		}
		return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.LightningBackend.CheckPayed(quote.Quote) %w", checkErr)
	}

	slog.Info("after check payed verification")
	quote.FeePaid = feePaid

	switch status {
	case lightning.PENDING, lightning.SETTLED:
		quote.State = cashu.PENDING
		if syncErr := m.syncMeltRequestState(tx, *quote); syncErr != nil {
			slog.Error("ModifyQuoteMeltPayStatusAndMelted", slog.Any("error", syncErr))
		}
		if commitErr := m.MintDB.Commit(context.Background(), tx); commitErr != nil {
			return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.MintDB.Commit(context.Background(), tx). %w", commitErr)
		}
		return quote.GetPostMeltQuoteResponse(), true, nil

	case lightning.FAILED, lightning.UNKNOWN:
		quote.State = cashu.UNPAID
		if errDb := m.syncMeltRequestState(tx, *quote); errDb != nil {
			return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.syncMeltRequestState(tx, quote) %w", errDb)
		}
		if errDb := m.MintDB.DeleteProofs(tx, meltRequest.Inputs); errDb != nil {
			return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.MintDB.DeleteProofs(tx, meltRequest.Inputs) %w", errDb)
		}
		errDb := m.MintDB.DeleteChangeByQuote(tx, quote.Quote)
		if errDb != nil {
			return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.MintDB.DeleteChangeByQuote(tx, quote.Quote) %w", errDb)
		}
		if commitErr := m.MintDB.Commit(context.Background(), tx); commitErr != nil {
			return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("m.MintDB.Commit(context.Background(), tx). %w", commitErr)
		}
		return quote.GetPostMeltQuoteResponse(), true, fmt.Errorf("%w %w", err, cashu.ErrPaymentFailed)
	}

	// Neither a recognized settlement nor failure status: treat the original
	// payment attempt's own result as authoritative, same as a clean success.
	quote.PaymentPreimage = payment.Preimage
	quote.FeePaid = uint64(payment.PaidFeeSat)
	quote.RequestPaid = true
	quote.State = cashu.PAID
	quote.Melted = true
	return cashu.PostMeltQuoteBolt11Response{}, false, nil
}

// issueMeltChange signs and returns blind signatures for whatever the
// melted proofs overpaid versus the quote amount plus fees, or nil if there
// was nothing left over (or no outputs to pay it into).
func (m *Mint) issueMeltChange(tx pgx.Tx, quote *cashu.MeltRequestDB, meltRequest cashu.PostMeltBolt11Request, amountProofs uint64, paidLightningFeeSat uint64, fee int) ([]cashu.BlindSignature, error) {
	totalSpent := quote.Amount + paidLightningFeeSat + uint64(fee)
	if amountProofs <= totalSpent || len(meltRequest.Outputs) == 0 {
		return nil, nil
	}

	overpaidFees := amountProofs - totalSpent
	change := utils.GetChangeOutput(overpaidFees, meltRequest.Outputs)

	blindSignatures, recoverySigsDb, err := m.Signer.SignBlindMessages(change)
	if err != nil {
		return nil, fmt.Errorf("m.Signer.SignBlindMessages(change) %w", err)
	}

	if err := m.MintDB.SaveRestoreSigs(tx, recoverySigsDb); err != nil {
		slog.Error("recoverySigsDb", slog.Any("recovery_sigs", recoverySigsDb))
		return nil, fmt.Errorf("m.MintDB.SaveRestoreSigs(tx, recoverySigsDb) %w", err)
	}
	if err := m.MintDB.DeleteChangeByQuote(tx, quote.Quote); err != nil {
		return nil, fmt.Errorf("m.MintDB.DeleteChangeByQuote(tx, quote.Quote) %w", err)
	}

	return blindSignatures, nil
}

// finalizeMeltProofs records the payment preimage, marks the melted inputs
// spent, and clears any leftover change bookkeeping. Callers still owe the
// enclosing transaction a Commit.
func (m *Mint) finalizeMeltProofs(tx pgx.Tx, quote *cashu.MeltRequestDB, meltRequest cashu.PostMeltBolt11Request) error {
	if err := m.syncMeltRequestState(tx, *quote); err != nil {
		return fmt.Errorf("m.syncMeltRequestState(tx, quote) %w", err)
	}
	if err := m.MintDB.AddPreimageMeltRequest(tx, quote.Quote, quote.PaymentPreimage); err != nil {
		return fmt.Errorf("m.MintDB.AddPreimageMeltRequest(tx, quote.Quote, quote.PaymentPreimage) %w", err)
	}

	meltRequest.Inputs.SetProofsState(cashu.PROOF_SPENT)
	if err := m.MintDB.SetProofsState(tx, meltRequest.Inputs, cashu.PROOF_SPENT); err != nil {
		slog.Error("Proofs", slog.Any("proofs", meltRequest.Inputs))
		return fmt.Errorf("m.MintDB.SetProofsState(tx, meltRequest.Inputs, cashu.PROOF_SPENT) %w", err)
	}
	if err := m.MintDB.DeleteChangeByQuote(tx, quote.Quote); err != nil {
		slog.Info("mint.MintDB.SaveMeltChange(meltRequest.Outputs, quote.Quote)", slog.Any("error", err))
		return fmt.Errorf("m.MintDB.DeleteChangeByQuote(tx, quote.Quote) %w", err)
	}

	return nil
}

// Melt spends meltRequest's inputs to pay the lightning invoice behind its
// quote, in four stages: validate the inputs cover the quote, reserve them
// as pending, pay the invoice (or reuse an internal mint-quote settlement),
// and finalize by signing leftover change and marking everything spent.
func (m *Mint) Melt(meltRequest cashu.PostMeltBolt11Request) (cashu.PostMeltQuoteBolt11Response, error) {
	if len(meltRequest.Inputs) == 0 {
		return cashu.PostMeltQuoteBolt11Response{}, fmt.Errorf("Outputs are empty")
	}

	quote, err := m.CheckMeltQuoteState(meltRequest.Quote)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("mint.CheckMeltQuoteState(quoteId): %w", err)
	}
	if quote.State != cashu.UNPAID {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("%w mint.CheckMeltQuoteState(quoteId)", cashu.ErrMeltAlreadyPaid)
	}

	ctx := context.Background()
	tx, err := m.MintDB.GetTx(ctx)
	if err != nil {
		return cashu.PostMeltQuoteBolt11Response{}, fmt.Errorf("mint.MintDB.GetTx(ctx): %w", err)
	}
	defer m.MintDB.Rollback(ctx, tx)

	quote, err = m.MintDB.GetMeltRequestById(tx, meltRequest.Quote)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("m.MintDB.GetMeltRequestById(tx, meltRequest.Quote): %w", err)
	}
	if quote.State == cashu.PENDING {
		slog.Warn("Quote is pending")
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("%w m.MintDB.GetMeltRequestById(tx, meltRequest.Quote)", cashu.ErrQuoteIsPending)
	}
	if quote.Melted {
		slog.Info("Quote already melted", slog.String(utils.LogExtraInfo, quote.Quote))
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("%w quote.Melted", cashu.ErrMeltAlreadyPaid)
	}

	unit, fee, amountProofs, invoice, err := m.validateMeltProofs(tx, meltRequest, quote)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), err
	}

	if err := m.reserveMeltProofs(ctx, tx, meltRequest, &quote); err != nil {
		return quote.GetPostMeltQuoteResponse(), err
	}

	quote, err = m.settleIfInternalMelt(tx, quote)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("m.settleIfInternalMelt(tx, quote): %w", err)
	}

	var paidLightningFeeSat uint64
	if !quote.RequestPaid {
		amount := cashu.Amount{Unit: unit, Amount: quote.Amount}
		response, handled, err := m.payMeltInvoice(tx, &quote, meltRequest, invoice, amount)
		if handled {
			return response, err
		}
		if err != nil {
			return quote.GetPostMeltQuoteResponse(), err
		}
		paidLightningFeeSat = quote.FeePaid
	}

	response := quote.GetPostMeltQuoteResponse()

	change, err := m.issueMeltChange(tx, &quote, meltRequest, amountProofs, paidLightningFeeSat, fee)
	if err != nil {
		return quote.GetPostMeltQuoteResponse(), err
	}
	response.Change = change

	if err := m.finalizeMeltProofs(tx, &quote, meltRequest); err != nil {
		return quote.GetPostMeltQuoteResponse(), err
	}

	if err := m.MintDB.Commit(context.Background(), tx); err != nil {
		return quote.GetPostMeltQuoteResponse(), fmt.Errorf("m.MintDB.Commit(context.Background(), tx). %w", err)
	}

	m.Observer.SendMeltEvent(quote)
	return response, nil
}
