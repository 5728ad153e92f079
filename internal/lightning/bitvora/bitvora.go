// Package bitvora implements lightning.Node on top of the Bitvora
// custodial API. Invoice settlement is observed through webhook events
// received on the shared webhook bridge, not a provider stream.
package bitvora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/payway/internal/lightning"
	"github.com/smallbiznis/payway/internal/webhook"
	"github.com/smallbiznis/payway/pkg/jsonapi"
	"go.uber.org/zap"
)

const defaultURL = "https://api.bitvora.com/"

type Config struct {
	// URL overrides the API base for test servers.
	URL           string
	Token         string
	WebhookSecret string
	// WebhookPath is the ingress path whose messages belong to this
	// provider, e.g. "/webhooks/bitvora".
	WebhookPath string

	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

type Node struct {
	api           *jsonapi.Client
	bridge        *webhook.Bridge
	webhookSecret string
	webhookPath   string
	log           *zap.Logger
}

var _ lightning.Node = (*Node)(nil)

func New(cfg Config, bridge *webhook.Bridge) (*Node, error) {
	base := cfg.URL
	if base == "" {
		base = defaultURL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	api, err := jsonapi.New(jsonapi.Config{
		BaseURL:        base,
		RequestTimeout: cfg.RequestTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		Signer:         &jsonapi.StaticTokenSigner{Authorization: "Bearer " + cfg.Token},
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	return &Node{
		api:           api,
		bridge:        bridge,
		webhookSecret: cfg.WebhookSecret,
		webhookPath:   cfg.WebhookPath,
		log:           log.Named("bitvora"),
	}, nil
}

type createInvoiceRequest struct {
	Amount        uint64 `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	ExpirySeconds uint64 `json:"expiry_seconds"`
}

// envelope is Bitvora's response wrapper. The HTTP status is 200 even
// for failures; the real status lives in the body.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type createInvoiceResponse struct {
	ID             string `json:"id"`
	RHash          string `json:"r_hash"`
	PaymentRequest string `json:"payment_request"`
}

func (n *Node) AddInvoice(ctx context.Context, req lightning.AddInvoiceRequest) (*lightning.InvoiceResponse, error) {
	expiry := uint64(req.Expiry)
	if expiry == 0 {
		expiry = 3600
	}
	var rsp envelope
	err := n.api.Post(ctx, "/v1/bitcoin/deposit/lightning-invoice", createInvoiceRequest{
		Amount:        req.AmountMsat / 1000,
		Currency:      "sats",
		Description:   req.Memo,
		ExpirySeconds: expiry,
	}, &rsp)
	if err != nil {
		return nil, err
	}
	if rsp.Status >= 400 {
		return nil, fmt.Errorf("bitvora api error: %d %s", rsp.Status, rsp.Message)
	}
	var data createInvoiceResponse
	if err := json.Unmarshal(rsp.Data, &data); err != nil {
		return nil, fmt.Errorf("decode invoice data: %w", err)
	}
	return lightning.NewInvoiceResponse(data.PaymentRequest, data.ID, nil)
}

func (n *Node) CancelInvoice(ctx context.Context, paymentHash []byte) error {
	return lightning.ErrNotSupported
}

func (n *Node) PayInvoice(ctx context.Context, req lightning.PayInvoiceRequest) (*lightning.PayInvoiceResponse, error) {
	return nil, lightning.ErrNotSupported
}

// SubscribeInvoices maps webhook events on this provider's ingress path
// to invoice updates. Resume by payment hash is not supported; Bitvora
// does not replay events, so fromPaymentHash is ignored.
func (n *Node) SubscribeInvoices(ctx context.Context, fromPaymentHash []byte) (<-chan lightning.InvoiceUpdate, error) {
	sub := n.bridge.Subscribe()
	updates := make(chan lightning.InvoiceUpdate)

	go func() {
		defer close(updates)
		defer sub.Close()
		for {
			msg, err := sub.Recv(ctx)
			if err != nil {
				if errors.Is(err, webhook.ErrSubscriberLagged) {
					select {
					case updates <- lightning.ErrorUpdate("webhook subscriber lagged: %v", err):
					case <-ctx.Done():
						return
					}
					continue
				}
				return
			}
			if msg.Endpoint != n.webhookPath {
				continue
			}
			update, ok := n.handleWebhook(msg)
			if !ok {
				continue
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}

func (n *Node) handleWebhook(msg webhook.Message) (lightning.InvoiceUpdate, bool) {
	n.log.Info("received webhook", zap.String("endpoint", msg.Endpoint), zap.ByteString("body", msg.Body))

	event, err := VerifyWebhook(n.webhookSecret, msg, n.log)
	if err != nil {
		return lightning.ErrorUpdate("verify webhook: %v", err), true
	}

	switch event.Event {
	case EventDepositCompleted:
		invoice, err := lightning.NewInvoiceResponse(event.Data.Recipient, event.Data.LightningInvoiceID, nil)
		if err != nil {
			return lightning.ErrorUpdate("parse settled invoice: %v", err), true
		}
		return lightning.InvoiceUpdate{
			Kind:        lightning.UpdateSettled,
			PaymentHash: invoice.PaymentHashHex(),
			ExternalID:  event.Data.LightningInvoiceID,
		}, true
	case EventDepositFailed:
		return lightning.ErrorUpdate("payment failed"), true
	default:
		// Unrecognized event kinds still surface to the subscriber.
		n.log.Warn("unrecognized webhook event", zap.String("event", string(event.Event)))
		return lightning.InvoiceUpdate{
			Kind:       lightning.UpdateUnknown,
			ExternalID: event.Data.LightningInvoiceID,
		}, true
	}
}
