package main

import (
	"net/http/httptest"
	"testing"

	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/gin-gonic/gin"
)

// requestMintQuoteSats posts a sat mint quote request for amount and returns
// the quote id, failing the test on any non-200 response.
func requestMintQuoteSats(t *testing.T, router *gin.Engine, amount uint64) string {
	t.Helper()
	w := serveJSON(router, "POST", "/v1/mint/quote/bolt11", cashu.PostMintQuoteBolt11Request{
		Amount: amount,
		Unit:   cashu.Sat.String(),
	})
	if w.Code != 200 {
		t.Fatalf("mint quote: expected status code 200, got %d", w.Code)
	}
	return decodeBody[cashu.PostMintQuoteBolt11Response](t, w).Quote
}

// mintLockedTokens redeems quote against outputs and returns the resulting
// blind signatures, failing the test on any non-200 response.
func mintLockedTokens(t *testing.T, router *gin.Engine, quote string, outputs []cashu.BlindedMessage) []cashu.BlindSignature {
	t.Helper()
	w := serveJSON(router, "POST", "/v1/mint/bolt11", cashu.PostMintBolt11Request{
		Quote:   quote,
		Outputs: outputs,
	})
	if w.Code != 200 {
		t.Fatalf("mint bolt11: expected status code 200, got %d", w.Code)
	}
	return decodeBody[cashu.PostMintBolt11Response](t, w).Signatures
}

// swapLockedProofs posts a swap request and returns the raw recorder so
// callers can assert either a successful swap or a specific rejection.
func swapLockedProofs(router *gin.Engine, inputs []cashu.Proof, outputs []cashu.BlindedMessage) *httptest.ResponseRecorder {
	return serveJSON(router, "POST", "/v1/swap", cashu.PostSwapRequest{
		Inputs:  inputs,
		Outputs: outputs,
	})
}

// swapLockedProofsOK swaps and asserts success, returning the blind signatures.
func swapLockedProofsOK(t *testing.T, router *gin.Engine, inputs []cashu.Proof, outputs []cashu.BlindedMessage) []cashu.BlindSignature {
	t.Helper()
	w := swapLockedProofs(router, inputs, outputs)
	if w.Code != 200 {
		t.Fatalf("swap: expected status code 200, got %d", w.Code)
	}
	return decodeBody[cashu.PostSwapResponse](t, w).Signatures
}

// assertSwapRejected swaps and asserts it failed with wantCode and the exact
// JSON error body the mint writes for locked-token spend failures.
func assertSwapRejected(t *testing.T, router *gin.Engine, inputs []cashu.Proof, outputs []cashu.BlindedMessage, wantCode int, wantBody string) {
	t.Helper()
	w := swapLockedProofs(router, inputs, outputs)
	if w.Code != wantCode {
		t.Fatalf("swap: expected status code %d, got %d", wantCode, w.Code)
	}
	if w.Body.String() != wantBody {
		t.Fatalf("swap: expected body %s, got %s", wantBody, w.Body.String())
	}
}
