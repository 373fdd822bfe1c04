package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	m "github.com/SparrowTek/cashu-mint/internal/mint"
	"github.com/SparrowTek/cashu-mint/internal/utils"
)

func v1MintRoutes(r *gin.Engine, mint *m.Mint) {
	v1 := r.Group("/v1")

	v1.GET("/keys", handleGetActiveKeys(mint))
	v1.GET("/keys/:id", handleGetKeysById(mint))
	v1.GET("/keysets", handleGetKeysets(mint))
	v1.GET("/info", handleGetInfo(mint))
	v1.POST("/swap", handleSwap(mint))
	v1.POST("/checkstate", handleCheckState(mint))
	v1.POST("/restore", handleRestore(mint))
}

func handleGetActiveKeys(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		keys, err := mint.Signer.GetActiveKeys()
		if err != nil {
			slog.Error("mint.Signer.GetActiveKeys()", slog.Any("error", err))
			c.JSON(400, cashu.ErrorCodeToResponse(cashu.KEYSET_NOT_KNOW, nil))
			return
		}
		c.JSON(200, keys)
	}
}

func handleGetKeysById(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		keysets, err := mint.Signer.GetKeysById(id)
		if err != nil {
			slog.Error("mint.Signer.GetKeysById(id)", slog.Any("error", err))
			c.JSON(400, cashu.ErrorCodeToResponse(cashu.KEYSET_NOT_KNOW, nil))
			return
		}
		c.JSON(200, keysets)
	}
}

func handleGetKeysets(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		keys, err := mint.Signer.GetKeysets()
		if err != nil {
			slog.Error("mint.Signer.GetKeys()", slog.Any("error", err))
			c.JSON(500, "Server side error")
			return
		}
		c.JSON(200, keys)
	}
}

func mintContacts(mint *m.Mint) []cashu.ContactInfo {
	contacts := []cashu.ContactInfo{}
	if email := mint.Config.EMAIL; len(email) > 0 {
		contacts = append(contacts, cashu.ContactInfo{Method: "email", Info: email})
	}
	if nostr := mint.Config.NOSTR; len(nostr) > 0 {
		contacts = append(contacts, cashu.ContactInfo{Method: "nostr", Info: nostr})
	}
	return contacts
}

var baseNuts = []string{"1", "2", "3", "4", "5", "6"}

// optionalNutsFor returns the optional NUTs this mint's backend actually
// supports; NUT-15 (MPP) only appears when the lightning backend can do it.
func optionalNutsFor(mint *m.Mint) []string {
	optional := []string{"7", "8", "9", "10", "11", "12", "17", "20"}
	if mint.LightningBackend.ActiveMPP() {
		optional = append(optional, "15")
	}
	return optional
}

func buildBaseNutInfo(mint *m.Mint, nut string) any {
	disabled := false

	switch nut {
	case "4":
		bolt11Method := cashu.SwapMintMethod{
			Method:    cashu.MethodBolt11,
			Unit:      cashu.Sat.String(),
			MinAmount: 0,
		}
		if mint.Config.PEG_IN_LIMIT_SATS != nil {
			bolt11Method.MaxAmount = *mint.Config.PEG_IN_LIMIT_SATS
		}
		descriptionEnabled := mint.LightningBackend.DescriptionSupport()
		bolt11Method.Options = &cashu.SwapMintMethodOptions{Description: &descriptionEnabled}

		return cashu.SwapMintInfo{
			Methods:  &[]cashu.SwapMintMethod{bolt11Method},
			Disabled: &mint.Config.PEG_OUT_ONLY,
		}

	case "5":
		bolt11Method := cashu.SwapMintMethod{
			Method:    cashu.MethodBolt11,
			Unit:      cashu.Sat.String(),
			MinAmount: 0,
		}
		if mint.Config.PEG_OUT_LIMIT_SATS != nil {
			bolt11Method.MaxAmount = *mint.Config.PEG_OUT_LIMIT_SATS
		}
		return cashu.SwapMintInfo{
			Methods:  &[]cashu.SwapMintMethod{bolt11Method},
			Disabled: &disabled,
		}

	default:
		return cashu.SwapMintInfo{Disabled: &disabled}
	}
}

func buildOptionalNutInfo(nut string) any {
	supported := true

	switch nut {
	case "15":
		return cashu.SwapMintInfo{
			Methods: &[]cashu.SwapMintMethod{{
				Method: cashu.MethodBolt11,
				Unit:   cashu.Sat.String(),
			}},
		}

	case "17":
		bolt11Method := cashu.SwapMintMethod{
			Method: cashu.MethodBolt11,
			Unit:   cashu.Sat.String(),
			Commands: []cashu.SubscriptionKind{
				cashu.Bolt11MeltQuote,
				cashu.Bolt11MintQuote,
				cashu.ProofStateWs,
			},
		}
		return map[string][]cashu.SwapMintMethod{"supported": {bolt11Method}}

	case "20":
		return map[string]bool{"supported": true}

	default:
		return cashu.SwapMintInfo{Supported: &supported}
	}
}

func buildNutsInfo(mint *m.Mint) map[string]any {
	nuts := make(map[string]any)
	for _, nut := range baseNuts {
		nuts[nut] = buildBaseNutInfo(mint, nut)
	}
	for _, nut := range optionalNutsFor(mint) {
		nuts[nut] = buildOptionalNutInfo(nut)
	}
	return nuts
}

func handleGetInfo(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := cashu.GetInfoResponse{
			Name:            mint.Config.NAME,
			Version:         "nutmix/" + utils.Version().Version,
			Pubkey:          mint.MintPubkey,
			Description:     mint.Config.DESCRIPTION,
			DescriptionLong: mint.Config.DESCRIPTION_LONG,
			Motd:            mint.Config.MOTD,
			Contact:         mintContacts(mint),
			Nuts:            buildNutsInfo(mint),
		}
		c.JSON(200, response)
	}
}

// verifySwapSpendConditions checks P2PK/HTLC conditions on swapRequest's
// inputs: as a single SIG_ALL message when any input asks for it, or proof
// by proof otherwise.
func verifySwapSpendConditions(mint *m.Mint, swapRequest cashu.PostSwapRequest) error {
	hasSigAll, err := cashu.ProofsHaveSigAll(swapRequest.Inputs)
	if err != nil {
		return fmt.Errorf("cashu.ProofsHaveSigAll(swapRequest.Inputs). %w", err)
	}
	if hasSigAll {
		return swapRequest.ValidateSigflag()
	}
	return mint.VerifyProofsSpendConditions(swapRequest.Inputs)
}

func handleSwap(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var swapRequest cashu.PostSwapRequest
		if err := c.BindJSON(&swapRequest); err != nil {
			slog.Info("Incorrect body", slog.Any("error", err))
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(400, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}

		if len(swapRequest.Inputs) == 0 || len(swapRequest.Outputs) == 0 {
			slog.Info("Inputs or Outputs are empty")
			c.JSON(400, "Inputs or Outputs are empty")
			return
		}

		_, secretsList, err := utils.GetAndCalculateProofsValues(&swapRequest.Inputs)
		if err != nil {
			slog.Warn("utils.GetAndCalculateProofsValues(&swapRequest.Inputs)", slog.Any("error", err))
			c.JSON(400, "Problem processing proofs")
			return
		}

		if err := verifySwapSpendConditions(mint, swapRequest); err != nil {
			slog.Error(fmt.Errorf("verifySwapSpendConditions(mint, swapRequest). %w", err).Error())
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(400, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}

		if err := mint.VerifyProofsBDHKE(swapRequest.Inputs); err != nil {
			slog.Error(fmt.Errorf("mint.VerifyProofsBDHKE(swapRequest.Inputs). %w", err).Error())
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(400, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}

		ctx := context.Background()
		preparationTx, err := mint.MintDB.GetTx(ctx)
		if err != nil {
			_ = c.Error(fmt.Errorf("mint.MintDB.GetTx(ctx): %w", err))
			return
		}
		defer func() {
			if err := mint.MintDB.Rollback(ctx, preparationTx); err != nil {
				slog.Warn("rollback error", slog.Any("error", err))
			}
		}()

		if err := mint.VerifyInputsAndOutputs(preparationTx, swapRequest.Inputs, swapRequest.Outputs); err != nil {
			slog.Error(fmt.Errorf("mint.VerifyInputsAndOutputs(swapRequest.Inputs, swapRequest.Outputs). %w", err).Error())
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(400, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}

		knownProofs, err := mint.MintDB.GetProofsFromSecretCurve(preparationTx, secretsList)
		if err != nil {
			slog.Error("mint.MintDB.GetProofsFromSecretCurve(tx, SecretsList)", slog.String(utils.LogExtraInfo, err.Error()))
			c.JSON(400, cashu.ErrorCodeToResponse(cashu.UNKNOWN, nil))
			return
		}

		if len(knownProofs) != 0 {
			slog.Debug("Proofs already spent", slog.Any("known_proofs", knownProofs))
			for _, p := range knownProofs {
				if p.State == cashu.PROOF_PENDING {
					c.JSON(400, cashu.ErrorCodeToResponse(cashu.PROOFS_PENDING, nil))
					return
				}
			}
			c.JSON(400, cashu.ErrorCodeToResponse(cashu.PROOF_ALREADY_SPENT, nil))
			return
		}

		swapRequest.Inputs.SetProofsState(cashu.PROOF_PENDING)
		if err := mint.MintDB.SaveProof(preparationTx, swapRequest.Inputs); err != nil {
			slog.Error("mint.MintDB.SaveProof(tx, swapRequest.Inputs)", slog.String(utils.LogExtraInfo, err.Error()))
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(403, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}
		if err := mint.MintDB.Commit(ctx, preparationTx); err != nil {
			_ = c.Error(fmt.Errorf("mint.MintDB.Commit(ctx tx). %w", err))
			return
		}

		blindedSignatures, recoverySigsDb, err := mint.Signer.SignBlindMessages(swapRequest.Outputs)
		if err != nil {
			slog.Error("mint.Signer.SignBlindMessages(swapRequest.Outputs)", slog.String(utils.LogExtraInfo, err.Error()))
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(400, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}
		response := cashu.PostSwapResponse{Signatures: blindedSignatures}

		afterSigningTx, err := mint.MintDB.GetTx(ctx)
		if err != nil {
			_ = c.Error(fmt.Errorf("mint.MintDB.GetTx(ctx): %w", err))
			return
		}
		defer func() {
			if err := mint.MintDB.Rollback(ctx, afterSigningTx); err != nil {
				slog.Warn("rollback error", slog.Any("error", err))
			}
		}()

		swapRequest.Inputs.SetProofsState(cashu.PROOF_SPENT)
		if err := mint.MintDB.SetProofsState(afterSigningTx, swapRequest.Inputs, cashu.PROOF_SPENT); err != nil {
			slog.Warn("mint.MintDB.SetProofsState(tx,swapRequest.Inputs , cashu.PROOF_SPENT)", slog.Any("error", err))
			errorCode, details := utils.ParseErrorToCashuErrorCode(err)
			c.JSON(403, cashu.ErrorCodeToResponse(errorCode, details))
			return
		}

		if err := mint.MintDB.SaveRestoreSigs(afterSigningTx, recoverySigsDb); err != nil {
			slog.Error("database.SetRestoreSigs", slog.String(utils.LogExtraInfo, err.Error()))
			slog.Error("recoverySigsDb", slog.Any("recovery_sigs", recoverySigsDb))
			c.JSON(200, response)
			return
		}
		if err := mint.MintDB.Commit(ctx, afterSigningTx); err != nil {
			_ = c.Error(fmt.Errorf("mint.MintDB.Commit(ctx, afterSigningTx). %w", err))
			return
		}

		go mint.Observer.SendProofsEvent(swapRequest.Inputs)
		c.JSON(200, response)
	}
}

func handleCheckState(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var checkStateRequest cashu.PostCheckStateRequest
		if err := c.BindJSON(&checkStateRequest); err != nil {
			slog.Info("c.BindJSON(&checkStateRequest)", slog.Any("error", err))
			c.JSON(400, "Malformed Body")
			return
		}

		states, err := m.CheckProofState(mint, checkStateRequest.Ys)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}

		c.JSON(200, cashu.PostCheckStateResponse{States: states})
	}
}

func handleRestore(mint *m.Mint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var restoreRequest cashu.PostRestoreRequest
		if err := c.BindJSON(&restoreRequest); err != nil {
			slog.Info("c.BindJSON(&restoreRequest)", slog.Any("error", err))
			c.JSON(400, "Malformed body request")
			return
		}

		blindingFactors := make([]string, 0, len(restoreRequest.Outputs))
		for _, output := range restoreRequest.Outputs {
			blindingFactors = append(blindingFactors, output.B_.String())
		}

		ctx := context.Background()
		tx, err := mint.MintDB.GetTx(ctx)
		if err != nil {
			_ = c.Error(fmt.Errorf("mint.MintDB.GetTx(ctx): %w", err))
			return
		}

		blindRecoverySigs, err := mint.MintDB.GetRestoreSigsFromBlindedMessages(tx, blindingFactors)
		if err != nil {
			slog.Error("mint.MintDB.GetRestoreSigsFromBlindedMessages(tx, blindingFactors)", slog.String(utils.LogExtraInfo, err.Error()))
			c.JSON(500, "Opps!, something went wrong")
			return
		}
		if err := mint.MintDB.Commit(ctx, tx); err != nil {
			_ = c.Error(fmt.Errorf("mint.MintDB.Commit(ctx tx). %w", err))
			return
		}

		restoredBlindSigs := make([]cashu.BlindSignature, 0, len(blindRecoverySigs))
		restoredBlindMessage := make([]cashu.BlindedMessage, 0, len(blindRecoverySigs))
		for _, sigRecover := range blindRecoverySigs {
			restoredSig, restoredMessage := sigRecover.GetSigAndMessage()
			restoredBlindSigs = append(restoredBlindSigs, restoredSig)
			restoredBlindMessage = append(restoredBlindMessage, restoredMessage)
		}

		c.JSON(200, cashu.PostRestoreResponse{
			Outputs:    restoredBlindMessage,
			Signatures: restoredBlindSigs,
			Promises:   restoredBlindSigs,
		})
	}
}
