package cashu

// WebRequestMethod names the JSON-RPC method carried by a websocket frame.
type WebRequestMethod string

const (
	Subcribe   WebRequestMethod = "subscribe"
	Unsubcribe WebRequestMethod = "unsubscribe"
)

// SubscriptionKind identifies what a client wants pushed to it: state
// changes on a melt quote, a mint quote, or a proof's spend state.
type SubscriptionKind string

const (
	Bolt11MintQuote SubscriptionKind = "bolt11_mint_quote"
	Bolt11MeltQuote SubscriptionKind = "bolt11_melt_quote"
	ProofStateWs    SubscriptionKind = "proof_state"
)

// WebRequestParams is shared between subscribe/unsubscribe requests and the
// notifications pushed back for them; Payload is only populated on the
// latter.
type WebRequestParams struct {
	Kind    SubscriptionKind `json:"kind,omitempty"`
	SubId   string           `json:"subId"`
	Filters []string         `json:"filters,omitempty"`
	Payload any              `json:"payload,omitempty"`
}

type WsRequest struct {
	JsonRpc string           `json:"jsonrpc"`
	Id      int              `json:"id"`
	Method  WebRequestMethod `json:"method"`
	Params  WebRequestParams `json:"params"`
}

type WsResponseResult struct {
	Status string `json:"status"`
	SubId  string `json:"subId"`
}

type WsResponse struct {
	JsonRpc string           `json:"jsonrpc"`
	Id      int              `json:"id"`
	Result  WsResponseResult `json:"result"`
}

type WsNotification struct {
	JsonRpc string           `json:"jsonrpc"`
	Id      int              `json:"id"`
	Method  WebRequestMethod `json:"method"`
	Params  WebRequestParams `json:"params"`
}

// ErrorMsg is the JSON-RPC error object embedded in WsError.
type ErrorMsg struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type WsError struct {
	JsonRpc string   `json:"jsonrpc"`
	Id      int      `json:"id"`
	Error   ErrorMsg `json:"error"`
}
