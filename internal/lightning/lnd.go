package lightning

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
)

// LndGrpcWallet backs the mint with a real LND node reached over its gRPC
// interface, macaroon-authenticated on every call.
type LndGrpcWallet struct {
	grpcClient *grpc.ClientConn
	macaroon   string
	Network    chaincfg.Params
}

const maxPartialPaymentAttempts = 50

// SetupGrpc dials the LND node identified by host, authenticating future
// calls with macaroon and verifying the connection with tlsCrt.
func (l *LndGrpcWallet) SetupGrpc(host string, macaroon string, tlsCrt string) error {
	if host == "" {
		return fmt.Errorf("LND_HOST not available")
	}
	if tlsCrt == "" {
		return fmt.Errorf("LND_CERT_PATH not available")
	}
	if macaroon == "" {
		return fmt.Errorf("LND_MACAROON_PATH not available")
	}

	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM([]byte(tlsCrt)) {
		return fmt.Errorf("x509.AppendCertsFromPEM(): failed")
	}

	creds := credentials.NewClientTLSFromCert(certPool, "")
	clientConn, err := grpc.NewClient(host, grpc.WithTransportCredentials(creds))
	if err != nil {
		return err
	}

	l.macaroon = macaroon
	l.grpcClient = clientConn
	return nil
}

// authContext attaches the wallet's macaroon to ctx the way every LND RPC
// call in this file requires.
func (l *LndGrpcWallet) authContext() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "macaroon", l.macaroon)
}

func (l *LndGrpcWallet) lightningClient() lnrpc.LightningClient {
	return lnrpc.NewLightningClient(l.grpcClient)
}

func (l *LndGrpcWallet) routerClient() routerrpc.RouterClient {
	return routerrpc.NewRouterClient(l.grpcClient)
}

func (l *LndGrpcWallet) payFullInvoice(routerrpcClient routerrpc.RouterClient, invoiceString string, decodedInvoice *zpay32.Invoice) (PaymentResponse, error) {
	var response PaymentResponse

	if decodedInvoice.MilliSat == nil {
		return response, fmt.Errorf("amount is not available for the invoice")
	}

	stream, err := routerrpcClient.SendPaymentV2(l.authContext(), &routerrpc.SendPaymentRequest{
		PaymentRequest:   invoiceString,
		AllowSelfPayment: true,
	})
	if err != nil {
		response.PaymentState = FAILED
		return response, err
	}

	for {
		payment, err := stream.Recv()
		if err != nil {
			return response, fmt.Errorf("stream.Recv(). %w", err)
		}

		switch payment.Status {
		case lnrpc.Payment_IN_FLIGHT, lnrpc.Payment_INITIATED:
			response.PaymentState = PENDING
		case lnrpc.Payment_FAILED:
			if payment.GetFailureReason() == lnrpc.PaymentFailureReason_FAILURE_REASON_NONE {
				continue
			}
			response.PaymentState = FAILED
			return response, fmt.Errorf("PaymentFailed  %+v", payment.GetFailureReason().String())
		case lnrpc.Payment_SUCCEEDED:
			response.PaymentRequest = invoiceString
			response.PaymentState = SETTLED
			response.Preimage = payment.GetPaymentPreimage()
			response.PaidFeeSat = payment.FeeSat
			return response, nil
		default:
			continue
		}
	}
}

func (l *LndGrpcWallet) queryPartialRoute(ctx context.Context, zpayInvoice *zpay32.Invoice, feeReserve uint64, amountSat uint64) (*lnrpc.Route, error) {
	feeLimit := lnrpc.FeeLimit{Limit: &lnrpc.FeeLimit_Fixed{Fixed: int64(feeReserve)}}

	res, err := l.lightningClient().QueryRoutes(ctx, &lnrpc.QueryRoutesRequest{
		PubKey:            hex.EncodeToString(zpayInvoice.Destination.SerializeCompressed()),
		UseMissionControl: true,
		Amt:               int64(amountSat),
		FeeLimit:          &feeLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("client.QueryRoutes(ctx, &queryRoutes) %w", err)
	}
	if len(res.Routes) == 0 || res.Routes[0] == nil {
		return nil, nil
	}
	return res.Routes[0], nil
}

func (l *LndGrpcWallet) payPartialInvoice(routerrpcClient routerrpc.RouterClient, invoice string, zpayInvoice *zpay32.Invoice, feeReserve uint64, amountSat uint64) (PaymentResponse, error) {
	var response PaymentResponse
	ctx := l.authContext()

	if zpayInvoice.PaymentAddr.IsNone() {
		return response, fmt.Errorf("could not find payment address in invoice")
	}
	paymentAddress := zpayInvoice.PaymentAddr.UnsafeFromSome()
	totalMilisats := int64(*zpayInvoice.MilliSat)

	for attempt := 0; attempt < maxPartialPaymentAttempts; attempt++ {
		route, err := l.queryPartialRoute(ctx, zpayInvoice, feeReserve, amountSat)
		if err != nil {
			return response, err
		}
		if route == nil {
			slog.Info("No route found for lnd partial payment, retrying")
			continue
		}

		route.Hops[len(route.Hops)-1].MppRecord = &lnrpc.MPPRecord{
			TotalAmtMsat: totalMilisats,
			PaymentAddr:  paymentAddress[:],
		}

		attemptResult, err := routerrpcClient.SendToRouteV2(ctx, &routerrpc.SendToRouteRequest{
			PaymentHash: zpayInvoice.PaymentHash[:],
			Route:       route,
			SkipTempErr: true,
		})
		if err != nil {
			return response, fmt.Errorf("client.SendPaymentV2(ctx, &sendRequest) %w", err)
		}

		settled, retry, err := evaluatePartialAttempt(attemptResult, route, invoice, &response)
		if err != nil {
			return response, err
		}
		if settled {
			return response, nil
		}
		if !retry {
			return response, nil
		}
	}

	return response, fmt.Errorf("multi nut no route. %w", cashu.ErrPaymentNoRoute)
}

// evaluatePartialAttempt classifies a single HTLC attempt's outcome: settled
// means response now holds the final payment result; retry means the caller
// should try another route without giving up.
func evaluatePartialAttempt(attempt *lnrpc.HTLCAttempt, route *lnrpc.Route, invoice string, response *PaymentResponse) (settled bool, retry bool, err error) {
	switch attempt.Status {
	case lnrpc.HTLCAttempt_IN_FLIGHT:
		response.PaymentState = PENDING
		return false, false, nil
	case lnrpc.HTLCAttempt_FAILED:
		if attempt.Failure.GetCode() == lnrpc.Failure_TEMPORARY_CHANNEL_FAILURE {
			failureIndex := attempt.Failure.GetFailureSourceIndex()
			failedSource := route.Hops[failureIndex-1].PubKey
			failedDestination := route.Hops[failureIndex].PubKey
			slog.Info("partial payment attempt failed", slog.String("from", failedSource), slog.String("to", failedDestination))
			return false, true, nil
		}
		response.PaymentState = FAILED
		return false, false, fmt.Errorf("PaymentFailed  %+v", attempt.GetFailure())
	case lnrpc.HTLCAttempt_SUCCEEDED:
		response.PaymentRequest = invoice
		response.PaymentState = SETTLED
		response.Preimage = hex.EncodeToString(attempt.Preimage)
		response.PaidFeeSat = attempt.Route.TotalFeesMsat / 1000
		return true, false, nil
	default:
		return false, true, nil
	}
}

func (l LndGrpcWallet) PayInvoice(meltQuote cashu.MeltRequestDB, zpayInvoice *zpay32.Invoice, feeReserve uint64, mpp bool, amount cashu.Amount) (PaymentResponse, error) {
	var response PaymentResponse
	var err error

	if mpp {
		response, err = l.payPartialInvoice(l.routerClient(), meltQuote.Request, zpayInvoice, feeReserve, amount.Amount)
		if err != nil {
			return response, fmt.Errorf(`l.payPartialInvoice(invoice, zpayInvoice, feeReserve, amount_sat) %w`, err)
		}
	} else {
		response, err = l.payFullInvoice(l.routerClient(), meltQuote.Request, zpayInvoice)
		if err != nil {
			return response, fmt.Errorf(`l.payFullInvoice(invoice, zpayInvoice) %w`, err)
		}
	}
	response.CheckingId = meltQuote.CheckingId

	return response, nil
}

type lndPayStatus struct {
	Preimage string
	Fee      uint64
	Status   PaymentStatus
}

func (l LndGrpcWallet) trackPayment(invoice *zpay32.Invoice) (lndPayStatus, error) {
	var status lndPayStatus

	stream, err := l.routerClient().TrackPaymentV2(l.authContext(), &routerrpc.TrackPaymentRequest{
		PaymentHash: invoice.PaymentHash[:],
	})
	if err != nil {
		return status, err
	}

	for {
		payment, err := stream.Recv()
		if err != nil {
			return status, err
		}
		status.Fee = uint64(payment.FeeSat)

		switch payment.Status {
		case lnrpc.Payment_IN_FLIGHT, lnrpc.Payment_INITIATED:
			status.Status = PENDING
			return status, nil
		case lnrpc.Payment_FAILED:
			status.Status = FAILED
			return status, nil
		case lnrpc.Payment_SUCCEEDED:
			status.Status = SETTLED
			status.Preimage = payment.PaymentPreimage
			return status, nil
		default:
			continue
		}
	}
}

func (l LndGrpcWallet) CheckPayed(quote string, invoice *zpay32.Invoice, checkingId string) (PaymentStatus, string, uint64, error) {
	status, err := l.trackPayment(invoice)
	if err != nil {
		return FAILED, "", 0, fmt.Errorf(`l.trackPayment(invoice) %w`, err)
	}
	return status.Status, status.Preimage, status.Fee, nil
}

func (l LndGrpcWallet) lookupInvoice(invoice *zpay32.Invoice) (*lnrpc.Invoice, error) {
	return l.lightningClient().LookupInvoice(l.authContext(), &lnrpc.PaymentHash{RHash: invoice.PaymentHash[:]})
}

func (l LndGrpcWallet) CheckReceived(quote cashu.MintRequestDB, invoice *zpay32.Invoice) (PaymentStatus, string, error) {
	invoiceStatus, err := l.lookupInvoice(invoice)
	if err != nil {
		return FAILED, "", fmt.Errorf(`l.lookupInvoice(invoice) %w`, err)
	}

	switch invoiceStatus.State {
	case lnrpc.Invoice_SETTLED:
		return SETTLED, hex.EncodeToString(invoiceStatus.RPreimage), nil
	case lnrpc.Invoice_CANCELED:
		return FAILED, hex.EncodeToString(invoiceStatus.RPreimage), nil
	case lnrpc.Invoice_OPEN:
		return PENDING, hex.EncodeToString(invoiceStatus.RPreimage), nil
	}
	return PENDING, "", nil
}

func convertRouteHints(routes [][]zpay32.HopHint) []*lnrpc.RouteHint {
	routehints := make([]*lnrpc.RouteHint, 0, len(routes))
	for _, route := range routes {
		hopHints := make([]*lnrpc.HopHint, 0, len(route))
		for _, hint := range route {
			hopHints = append(hopHints, &lnrpc.HopHint{
				NodeId:                    hex.EncodeToString(hint.NodeID.SerializeCompressed()),
				ChanId:                    hint.ChannelID,
				FeeBaseMsat:               hint.FeeBaseMSat,
				FeeProportionalMillionths: hint.FeeProportionalMillionths,
				CltvExpiryDelta:           uint32(hint.CLTVExpiryDelta),
			})
		}
		routehints = append(routehints, &lnrpc.RouteHint{HopHints: hopHints})
	}
	return routehints
}

func lndFeatureBits(features *lnwire.FeatureVector) []lnrpc.FeatureBit {
	invoiceFeatures := features.Features()
	featureBits := make([]lnrpc.FeatureBit, 0, len(invoiceFeatures))
	for bit := range invoiceFeatures {
		featureBits = append(featureBits, lnrpc.FeatureBit(int32(bit)))
	}
	return featureBits
}

func (l LndGrpcWallet) QueryFees(invoice string, zpayInvoice *zpay32.Invoice, mpp bool, amount cashu.Amount) (FeesResponse, error) {
	var feesResponse FeesResponse

	res, err := l.lightningClient().QueryRoutes(l.authContext(), &lnrpc.QueryRoutesRequest{
		PubKey:            hex.EncodeToString(zpayInvoice.Destination.SerializeCompressed()),
		RouteHints:        convertRouteHints(zpayInvoice.RouteHints),
		DestFeatures:      lndFeatureBits(zpayInvoice.Features),
		UseMissionControl: true,
		Amt:               int64(amount.Amount),
	})
	if err != nil {
		return feesResponse, err
	}
	if res == nil {
		return feesResponse, fmt.Errorf("no routes found")
	}

	fee := AverageRouteFeeMsat(res.Routes) / 1000
	fee = FeeReserve(amount.Amount, fee)

	feesResponse.Fees = cashu.Amount{Unit: amount.Unit, Amount: fee}
	feesResponse.AmountToSend = amount
	feesResponse.CheckingId = hex.EncodeToString(zpayInvoice.PaymentHash[:])
	return feesResponse, nil
}

func (l LndGrpcWallet) RequestInvoice(quote cashu.MintRequestDB, amount cashu.Amount) (InvoiceResponse, error) {
	var response InvoiceResponse

	if !l.VerifyUnitSupport(amount.Unit) {
		return response, fmt.Errorf("l.VerifyUnitSupport(amount.Unit): %w", cashu.ErrUnitNotSupported)
	}
	if err := amount.To(cashu.Sat); err != nil {
		return response, fmt.Errorf(`amount.To(cashu.Sat) %w`, err)
	}

	lndInvoice := lnrpc.Invoice{Value: int64(amount.Amount), Expiry: 900}
	if quote.Description != nil {
		lndInvoice.Memo = *quote.Description
	}

	res, err := l.lightningClient().AddInvoice(l.authContext(), &lndInvoice)
	if err != nil {
		return response, err
	}

	response.Rhash = hex.EncodeToString(res.RHash)
	response.PaymentRequest = res.PaymentRequest
	response.CheckingId = hex.EncodeToString(res.RHash)
	return response, nil
}

func (l LndGrpcWallet) WalletBalance() (uint64, error) {
	balance, err := l.lightningClient().ChannelBalance(l.authContext(), &lnrpc.ChannelBalanceRequest{})
	if err != nil {
		return 0, err
	}
	return balance.LocalBalance.GetSat(), nil
}

func (l LndGrpcWallet) LightningType() Backend {
	return LNDGRPC
}

func (l LndGrpcWallet) GetNetwork() *chaincfg.Params {
	return &l.Network
}

func (l LndGrpcWallet) ActiveMPP() bool {
	return true
}

func (l LndGrpcWallet) VerifyUnitSupport(unit cashu.Unit) bool {
	return unit == cashu.Sat
}

func (l LndGrpcWallet) DescriptionSupport() bool {
	return true
}
