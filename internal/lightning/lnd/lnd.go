// Package lnd connects to a Lightning Network Daemon over gRPC and
// implements lightning.Node against it.
package lnd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/lightningnetwork/lnd/macaroons"
	"github.com/smallbiznis/payway/internal/lightning"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	macaroon "gopkg.in/macaroon.v2"
)

const (
	defaultInvoiceExpiry  = 3600
	defaultPaymentTimeout = 60
)

type Config struct {
	// Host is the gRPC address, e.g. "localhost:10009".
	Host         string
	TLSCertPath  string
	MacaroonPath string
	// Network selects the BOLT11 prefix: mainnet, testnet, regtest,
	// simnet or signet. Empty means mainnet.
	Network string
	Logger  *zap.Logger
}

type Node struct {
	conn     *grpc.ClientConn
	ln       lnrpc.LightningClient
	invoices invoicesrpc.InvoicesClient
	router   routerrpc.RouterClient
	net      *chaincfg.Params
	log      *zap.Logger
}

var _ lightning.Node = (*Node)(nil)

func New(cfg Config) (*Node, error) {
	creds, err := credentials.NewClientTLSFromFile(cfg.TLSCertPath, "")
	if err != nil {
		return nil, fmt.Errorf("load tls certificate: %w", err)
	}

	macBytes, err := os.ReadFile(cfg.MacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("read macaroon: %w", err)
	}
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macBytes); err != nil {
		return nil, fmt.Errorf("decode macaroon: %w", err)
	}
	macCred, err := macaroons.NewMacaroonCredential(mac)
	if err != nil {
		return nil, fmt.Errorf("macaroon credential: %w", err)
	}

	net, err := resolveNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.Host,
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(macCred),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to lnd: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Node{
		conn:     conn,
		ln:       lnrpc.NewLightningClient(conn),
		invoices: invoicesrpc.NewInvoicesClient(conn),
		router:   routerrpc.NewRouterClient(conn),
		net:      net,
		log:      log.Named("lnd"),
	}, nil
}

func resolveNetwork(name string) (*chaincfg.Params, error) {
	switch name {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

// Close tears down the gRPC connection.
func (n *Node) Close() error {
	return n.conn.Close()
}

func (n *Node) AddInvoice(ctx context.Context, req lightning.AddInvoiceRequest) (*lightning.InvoiceResponse, error) {
	expiry := int64(req.Expiry)
	if expiry == 0 {
		expiry = defaultInvoiceExpiry
	}
	rsp, err := n.ln.AddInvoice(ctx, &lnrpc.Invoice{
		Memo:      req.Memo,
		ValueMsat: int64(req.AmountMsat),
		Expiry:    expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("add invoice: %w", err)
	}
	return lightning.NewInvoiceResponse(rsp.PaymentRequest, "", n.net)
}

func (n *Node) CancelInvoice(ctx context.Context, paymentHash []byte) error {
	_, err := n.invoices.CancelInvoice(ctx, &invoicesrpc.CancelInvoiceMsg{
		PaymentHash: paymentHash,
	})
	if err != nil {
		return fmt.Errorf("cancel invoice: %w", err)
	}
	return nil
}

func (n *Node) PayInvoice(ctx context.Context, req lightning.PayInvoiceRequest) (*lightning.PayInvoiceResponse, error) {
	timeout := req.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	stream, err := n.router.SendPaymentV2(ctx, &routerrpc.SendPaymentRequest{
		PaymentRequest: req.Invoice,
		TimeoutSeconds: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("send payment: %w", err)
	}

	// The router streams intermediate states; only the last one is
	// terminal.
	var final *lnrpc.Payment
	for {
		update, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("payment stream: %w", err)
		}
		final = update
	}
	if final == nil {
		return nil, errors.New("no payment result received")
	}
	if final.Status != lnrpc.Payment_SUCCEEDED {
		return nil, fmt.Errorf("payment failed: %s", final.FailureReason.String())
	}

	return &lightning.PayInvoiceResponse{
		PaymentHash: final.PaymentHash,
		Preimage:    final.PaymentPreimage,
		AmountMsat:  uint64(final.ValueMsat),
		FeeMsat:     uint64(final.FeeMsat),
	}, nil
}

func (n *Node) SubscribeInvoices(ctx context.Context, fromPaymentHash []byte) (<-chan lightning.InvoiceUpdate, error) {
	var settleIndex uint64
	if len(fromPaymentHash) > 0 {
		inv, err := n.invoices.LookupInvoiceV2(ctx, &invoicesrpc.LookupInvoiceMsg{
			InvoiceRef: &invoicesrpc.LookupInvoiceMsg_PaymentHash{
				PaymentHash: fromPaymentHash,
			},
		})
		if err != nil {
			// Unknown hash, start from the current settle point.
			n.log.Warn("lookup invoice for resume failed",
				zap.String("payment_hash", hex.EncodeToString(fromPaymentHash)),
				zap.Error(err))
		} else {
			settleIndex = inv.SettleIndex
		}
	}

	stream, err := n.ln.SubscribeInvoices(ctx, &lnrpc.InvoiceSubscription{
		AddIndex:    0,
		SettleIndex: settleIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe invoices: %w", err)
	}

	updates := make(chan lightning.InvoiceUpdate)
	go func() {
		defer close(updates)
		for {
			invoice, err := stream.Recv()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case updates <- lightning.ErrorUpdate("invoice stream: %v", err):
				case <-ctx.Done():
				}
				return
			}
			select {
			case updates <- mapInvoice(invoice):
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}

func mapInvoice(invoice *lnrpc.Invoice) lightning.InvoiceUpdate {
	paymentHash := hex.EncodeToString(invoice.RHash)
	switch invoice.State {
	case lnrpc.Invoice_SETTLED:
		return lightning.InvoiceUpdate{
			Kind:        lightning.UpdateSettled,
			PaymentHash: paymentHash,
			Preimage:    hex.EncodeToString(invoice.RPreimage),
		}
	case lnrpc.Invoice_OPEN:
		return lightning.InvoiceUpdate{
			Kind:           lightning.UpdateCreated,
			PaymentHash:    paymentHash,
			PaymentRequest: invoice.PaymentRequest,
		}
	case lnrpc.Invoice_CANCELED:
		return lightning.InvoiceUpdate{
			Kind:        lightning.UpdateCanceled,
			PaymentHash: paymentHash,
		}
	default:
		return lightning.InvoiceUpdate{
			Kind:        lightning.UpdateUnknown,
			PaymentHash: paymentHash,
		}
	}
}
