package mint

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/SparrowTek/cashu-mint/api/cashu"
)

type ProofWatchChannel struct {
	Channel chan cashu.Proof
	SubId   string
}

type MintQuoteChannel struct {
	Channel chan cashu.MintRequestDB
	SubId   string
}

type MeltQuoteChannel struct {
	Channel chan cashu.MeltRequestDB
	SubId   string
}

// Observer fans out state changes to every websocket subscriber watching
// them. Proofs are keyed by their Y point (hex-encoded, since map keys must
// be comparable), mint/melt quotes by their quote id.
type Observer struct {
	sync.Mutex
	Proofs    map[string][]ProofWatchChannel
	MintQuote map[string][]MintQuoteChannel
	MeltQuote map[string][]MeltQuoteChannel
}

func addWatch[T any](lock *sync.Mutex, registry map[string][]T, key string, watch T) {
	lock.Lock()
	defer lock.Unlock()
	registry[key] = append(registry[key], watch)
}

func (o *Observer) AddProofWatch(y string, proofChan ProofWatchChannel) {
	addWatch(&o.Mutex, o.Proofs, y, proofChan)
}

func (o *Observer) AddMintWatch(quote string, mintChan MintQuoteChannel) {
	addWatch(&o.Mutex, o.MintQuote, quote, mintChan)
}

func (o *Observer) AddMeltWatch(quote string, meltChan MeltQuoteChannel) {
	addWatch(&o.Mutex, o.MeltQuote, quote, meltChan)
}

func removeBySubId[T interface{ subId() string }](registry map[string][]T, subId string) {
	for key, watches := range registry {
		for i, watch := range watches {
			if watch.subId() == subId {
				registry[key] = slices.Delete(watches, i, i+1)
			}
		}
	}
}

func (p ProofWatchChannel) subId() string { return p.SubId }
func (m MintQuoteChannel) subId() string  { return m.SubId }
func (m MeltQuoteChannel) subId() string  { return m.SubId }

// RemoveWatch drops subId from every registry it's subscribed in and closes
// its channels, releasing whatever goroutine is blocked reading from them.
func (o *Observer) RemoveWatch(subId string) {
	o.Lock()
	defer o.Unlock()

	for _, watches := range o.Proofs {
		for _, watch := range watches {
			if watch.SubId == subId {
				close(watch.Channel)
			}
		}
	}
	for _, watches := range o.MintQuote {
		for _, watch := range watches {
			if watch.SubId == subId {
				close(watch.Channel)
			}
		}
	}
	for _, watches := range o.MeltQuote {
		for _, watch := range watches {
			if watch.SubId == subId {
				close(watch.Channel)
			}
		}
	}
	removeBySubId(o.Proofs, subId)
	removeBySubId(o.MintQuote, subId)
	removeBySubId(o.MeltQuote, subId)
}

func (o *Observer) SendProofsEvent(proofs cashu.Proofs) {
	o.Lock()
	defer o.Unlock()
	for _, proof := range proofs {
		for _, watch := range o.Proofs[proof.Y.ToHex()] {
			watch.Channel <- proof
		}
	}
}

func (o *Observer) SendMeltEvent(melt cashu.MeltRequestDB) {
	o.Lock()
	defer o.Unlock()
	for _, watch := range o.MeltQuote[melt.Quote] {
		watch.Channel <- melt
	}
}

func (o *Observer) SendMintEvent(mint cashu.MintRequestDB) {
	o.Lock()
	defer o.Unlock()
	for _, watch := range o.MintQuote[mint.Quote] {
		watch.Channel <- mint
	}
}

// SendJson marshals content and writes it to conn as a single text frame.
func SendJson(conn *websocket.Conn, content any) error {
	contentToSend, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, contentToSend)
}
