package lightning

import (
	"math"

	"github.com/lightningnetwork/lnd/lnrpc"
)

// Network names accepted for a lightning backend's chain config.
const (
	Mainnet  = "mainnet"
	Regtest  = "regtest"
	Testnet  = "testnet"
	Testnet3 = "testnet3"
	Signet   = "signet"
)

// MinimumFeeRate is the floor fee reserve, expressed as a fraction of the
// invoice amount, held back regardless of what a route query returns.
const MinimumFeeRate float64 = 0.01

// AverageRouteFeeMsat returns the mean total fee, in millisatoshis, across a
// set of candidate routes. Callers must not pass an empty slice.
func AverageRouteFeeMsat(routes []*lnrpc.Route) uint64 {
	if len(routes) == 0 {
		return 0
	}

	var total uint64
	for _, route := range routes {
		total += uint64(route.TotalFeesMsat)
	}
	return total / uint64(len(routes))
}

// FeeReserve is the larger of a fixed percentage of the invoice amount and
// whatever fee the routing query actually quoted, so a cheap quote never
// undercuts the mint's minimum reserve.
func FeeReserve(invoiceSat, quotedFee uint64) uint64 {
	floor := float64(invoiceSat) * MinimumFeeRate
	return uint64(math.Max(floor, float64(quotedFee)))
}
