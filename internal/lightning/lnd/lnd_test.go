package lnd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/smallbiznis/payway/internal/lightning"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func TestMapInvoiceStates(t *testing.T) {
	hash := []byte{0xab, 0xcd}

	settled := mapInvoice(&lnrpc.Invoice{State: lnrpc.Invoice_SETTLED, RHash: hash, RPreimage: []byte{0x01}})
	if settled.Kind != lightning.UpdateSettled || settled.PaymentHash != "abcd" || settled.Preimage != "01" {
		t.Fatalf("settled = %+v", settled)
	}

	open := mapInvoice(&lnrpc.Invoice{State: lnrpc.Invoice_OPEN, RHash: hash, PaymentRequest: "lnbc1..."})
	if open.Kind != lightning.UpdateCreated || open.PaymentRequest != "lnbc1..." {
		t.Fatalf("open = %+v", open)
	}

	canceled := mapInvoice(&lnrpc.Invoice{State: lnrpc.Invoice_CANCELED, RHash: hash})
	if canceled.Kind != lightning.UpdateCanceled {
		t.Fatalf("canceled = %+v", canceled)
	}

	accepted := mapInvoice(&lnrpc.Invoice{State: lnrpc.Invoice_ACCEPTED, RHash: hash})
	if accepted.Kind != lightning.UpdateUnknown || accepted.PaymentHash != "abcd" {
		t.Fatalf("accepted = %+v", accepted)
	}
}

type fakeLightningClient struct {
	lnrpc.LightningClient
	subscribe func(*lnrpc.InvoiceSubscription) (lnrpc.Lightning_SubscribeInvoicesClient, error)
}

func (f *fakeLightningClient) SubscribeInvoices(ctx context.Context, in *lnrpc.InvoiceSubscription, opts ...grpc.CallOption) (lnrpc.Lightning_SubscribeInvoicesClient, error) {
	return f.subscribe(in)
}

type fakeInvoicesClient struct {
	invoicesrpc.InvoicesClient
	lookup func(*invoicesrpc.LookupInvoiceMsg) (*lnrpc.Invoice, error)
}

func (f *fakeInvoicesClient) LookupInvoiceV2(ctx context.Context, in *invoicesrpc.LookupInvoiceMsg, opts ...grpc.CallOption) (*lnrpc.Invoice, error) {
	return f.lookup(in)
}

type fakeInvoiceStream struct {
	grpc.ClientStream
	invoices []*lnrpc.Invoice
	err      error
}

func (s *fakeInvoiceStream) Recv() (*lnrpc.Invoice, error) {
	if len(s.invoices) == 0 {
		return nil, s.err
	}
	inv := s.invoices[0]
	s.invoices = s.invoices[1:]
	return inv, nil
}

func recvUpdate(t *testing.T, updates <-chan lightning.InvoiceUpdate) lightning.InvoiceUpdate {
	t.Helper()
	select {
	case update, ok := <-updates:
		if !ok {
			t.Fatal("updates channel closed")
		}
		return update
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for invoice update")
	}
	return lightning.InvoiceUpdate{}
}

func subscribeNode(t *testing.T, captured **lnrpc.InvoiceSubscription, lookup func(*invoicesrpc.LookupInvoiceMsg) (*lnrpc.Invoice, error)) *Node {
	t.Helper()
	return &Node{
		ln: &fakeLightningClient{subscribe: func(in *lnrpc.InvoiceSubscription) (lnrpc.Lightning_SubscribeInvoicesClient, error) {
			*captured = in
			return &fakeInvoiceStream{
				invoices: []*lnrpc.Invoice{{State: lnrpc.Invoice_SETTLED, RHash: []byte{0x01}, RPreimage: []byte{0x02}}},
				err:      errors.New("transport closed"),
			}, nil
		}},
		invoices: &fakeInvoicesClient{lookup: lookup},
		log:      zap.NewNop(),
	}
}

func TestSubscribeInvoicesResumesFromSettleIndex(t *testing.T) {
	var captured *lnrpc.InvoiceSubscription
	node := subscribeNode(t, &captured, func(*invoicesrpc.LookupInvoiceMsg) (*lnrpc.Invoice, error) {
		return &lnrpc.Invoice{SettleIndex: 42}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := node.SubscribeInvoices(ctx, []byte{0xaa, 0xbb})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if captured == nil || captured.SettleIndex != 42 {
		t.Fatalf("expected resume from settle index 42, got %+v", captured)
	}
	if update := recvUpdate(t, updates); update.Kind != lightning.UpdateSettled {
		t.Fatalf("update = %+v", update)
	}
}

func TestSubscribeInvoicesLookupFailureFallsBackToZero(t *testing.T) {
	var captured *lnrpc.InvoiceSubscription
	node := subscribeNode(t, &captured, func(*invoicesrpc.LookupInvoiceMsg) (*lnrpc.Invoice, error) {
		return nil, errors.New("unable to locate invoice")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := node.SubscribeInvoices(ctx, []byte{0xaa, 0xbb})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if captured == nil || captured.SettleIndex != 0 {
		t.Fatalf("expected settle index 0 after failed lookup, got %+v", captured)
	}

	if update := recvUpdate(t, updates); update.Kind != lightning.UpdateSettled {
		t.Fatalf("first update = %+v", update)
	}
	if update := recvUpdate(t, updates); update.Kind != lightning.UpdateError {
		t.Fatalf("expected terminal error update, got %+v", update)
	}
}

func TestResolveNetwork(t *testing.T) {
	for _, name := range []string{"", "mainnet", "testnet", "regtest", "simnet", "signet"} {
		if _, err := resolveNetwork(name); err != nil {
			t.Fatalf("resolveNetwork(%q): %v", name, err)
		}
	}
	if _, err := resolveNetwork("litecoin"); err == nil {
		t.Fatal("expected error for unknown network")
	}
}
