package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	m "github.com/SparrowTek/cashu-mint/internal/mint"
	"github.com/SparrowTek/cashu-mint/internal/utils"
)

var ErrAlreadySubscribed = errors.New("filter already subscribed")

// ActiveSubs maps a subscription kind to the filters currently watched
// under it, each filter pointing at the subscription id that owns it.
type ActiveSubs map[cashu.SubscriptionKind]map[string]string

type WalletSubscription struct {
	Subscriptions ActiveSubs
	sync.Mutex
}

func (w *WalletSubscription) Subscribe(kind cashu.SubscriptionKind, filters []string, subId string) error {
	w.Lock()
	defer w.Unlock()

	for _, filter := range filters {
		if existing, ok := w.Subscriptions[kind]; ok {
			if _, taken := existing[filter]; taken {
				return ErrAlreadySubscribed
			}
		} else {
			w.Subscriptions[kind] = make(map[string]string)
		}
		w.Subscriptions[kind][filter] = subId
	}
	return nil
}

func (w *WalletSubscription) Unsubcribe(subId string) {
	w.Lock()
	defer w.Unlock()

	for kind, filters := range w.Subscriptions {
		for filter, id := range filters {
			if id == subId {
				delete(w.Subscriptions[kind], filter)
			}
		}
	}
}

func v1WebSocketRoute(r *gin.Engine, mint *m.Mint, logger *slog.Logger) {
	v1 := r.Group("/v1")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	v1.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var request cashu.WsRequest
		if err := conn.ReadJSON(&request); err != nil {
			return
		}

		activeSubs := WalletSubscription{Subscriptions: make(ActiveSubs)}

		if err := handleWSRequest(request, &activeSubs); err != nil {
			if errors.Is(err, ErrAlreadySubscribed) {
				sendWSError(conn, request.Id, "Already subscribed to filter")
			}
			logger.Error("error creating websocket subscription", slog.String(utils.LogExtraInfo, err.Error()))
			return
		}

		response := cashu.WsResponse{
			JsonRpc: "2.0",
			Id:      request.Id,
			Result: cashu.WsResponseResult{
				Status: "OK",
				SubId:  request.Params.SubId,
			},
		}
		if err := m.SendJson(conn, response); err != nil {
			logger.Warn("m.SendJson(conn, response)", slog.String(utils.LogExtraInfo, err.Error()))
			return
		}

		go ListenToIncommingMessage(&activeSubs, conn)

		if err := CheckingForSubsUpdates(&activeSubs, mint, conn); err != nil {
			logger.Warn("CheckingForSubsUpdates(&activeSubs, mint, conn)", slog.String(utils.LogExtraInfo, err.Error()))
			sendWSError(conn, request.Id, "There was an error while checking state")
		}
	})
}

func sendWSError(conn *websocket.Conn, requestId string, message string) {
	errMsg := cashu.WsError{
		JsonRpc: "2.0",
		Id:      requestId,
		Error: cashu.ErrorMsg{
			Code:    cashu.UNKNOWN,
			Message: message,
		},
	}
	_ = m.SendJson(conn, errMsg)
}

func handleWSRequest(request cashu.WsRequest, subs *WalletSubscription) error {
	switch request.Method {
	case cashu.Subcribe:
		return subs.Subscribe(request.Params.Kind, request.Params.Filters, request.Params.SubId)
	case cashu.Unsubcribe:
		subs.Unsubcribe(request.Params.SubId)
	}
	return nil
}

func ListenToIncommingMessage(subs *WalletSubscription, conn *websocket.Conn) {
	for {
		var request cashu.WsRequest
		if err := conn.ReadJSON(&request); err != nil {
			return
		}
		if err := handleWSRequest(request, subs); err != nil {
			return
		}
	}
}

// notifyIfChanged compares the freshly polled state against the last value
// seen for filter and, on any difference (or on first sight), pushes a
// notification and records the new value.
func notifyIfChanged(conn *websocket.Conn, seen map[string]any, filter string, notif cashu.WsNotification, current any, changed func(previous any) bool) error {
	if previous, ok := seen[filter]; ok && !changed(previous) {
		return nil
	}
	seen[filter] = current
	notif.Params.Payload = current
	if err := m.SendJson(conn, notif); err != nil {
		return fmt.Errorf("m.SendJson(conn, statusNotif). %w", err)
	}
	return nil
}

func pollMintQuoteSub(mint *m.Mint, conn *websocket.Conn, seen map[string]any, filter string, notif cashu.WsNotification) error {
	mintState, err := m.CheckMintRequestById(mint, filter)
	if err != nil {
		return fmt.Errorf("m.CheckMintRequestById(mint, filter). %w", err)
	}
	return notifyIfChanged(conn, seen, filter, notif, mintState, func(previous any) bool {
		return previous.(cashu.PostMintQuoteBolt11Response).State != mintState.State
	})
}

func pollMeltQuoteSub(mint *m.Mint, conn *websocket.Conn, seen map[string]any, filter string, notif cashu.WsNotification) error {
	meltState, err := m.CheckMeltRequest(mint, filter)
	if err != nil {
		return fmt.Errorf("m.CheckMeltRequest(mint, filter). %w", err)
	}
	return notifyIfChanged(conn, seen, filter, notif, meltState, func(previous any) bool {
		return previous.(cashu.PostMeltQuoteBolt11Response).State != meltState.State
	})
}

func pollProofStateSub(mint *m.Mint, conn *websocket.Conn, seen map[string]any, filter string, notif cashu.WsNotification) error {
	proofsState, err := m.CheckProofState(mint, []string{filter})
	if err != nil {
		return fmt.Errorf("m.CheckProofState(mint, []string{filter}). %w", err)
	}
	if len(proofsState) == 0 {
		return nil
	}
	return notifyIfChanged(conn, seen, filter, notif, proofsState[0], func(previous any) bool {
		return previous.(cashu.CheckState).State != proofsState[0].State
	})
}

// CheckingForSubsUpdates polls every active subscription on a fixed
// interval, pushing a notification whenever a watched quote or proof's
// state has moved since the last poll.
func CheckingForSubsUpdates(subs *WalletSubscription, mint *m.Mint, conn *websocket.Conn) error {
	alreadyCheckedFilter := make(map[string]any)

	for {
		for kind, filters := range subs.Subscriptions {
			for filter, subId := range filters {
				notif := cashu.WsNotification{
					JsonRpc: "2.0",
					Method:  cashu.Subcribe,
					Params:  cashu.WebRequestParams{SubId: subId},
				}

				var err error
				switch kind {
				case cashu.Bolt11MintQuote:
					err = pollMintQuoteSub(mint, conn, alreadyCheckedFilter, filter, notif)
				case cashu.Bolt11MeltQuote:
					err = pollMeltQuoteSub(mint, conn, alreadyCheckedFilter, filter, notif)
				case cashu.ProofStateWs:
					err = pollProofStateSub(mint, conn, alreadyCheckedFilter, filter, notif)
				}
				if err != nil {
					return err
				}
			}
			time.Sleep(2 * time.Second)
		}
	}
}

// CheckStatusesOfSubscription resolves the current state for a one-off
// (non-streaming) subscription query, used by the REST status endpoints
// rather than the websocket loop above.
func CheckStatusesOfSubscription(subKind cashu.SubscriptionKind, filters []string, pool *pgxpool.Pool, mint *m.Mint) ([]cashu.PostMintQuoteBolt11Response, []cashu.CheckState, error) {
	var mintQuote []cashu.PostMintQuoteBolt11Response
	var proofsState []cashu.CheckState

	switch subKind {
	case cashu.Bolt11MintQuote:
		for _, filter := range filters {
			quote, err := m.CheckMintRequestById(mint, filter)
			if err != nil {
				return mintQuote, proofsState, fmt.Errorf("m.CheckMintRequestById(mint, v) %w", err)
			}
			mintQuote = append(mintQuote, quote)
		}
	case cashu.ProofStateWs:
		states, err := m.CheckProofState(mint, filters)
		if err != nil {
			return mintQuote, proofsState, fmt.Errorf("m.CheckMintRequest(pool, mint,v ) %w", err)
		}
		proofsState = states
	}

	return mintQuote, proofsState, nil
}
