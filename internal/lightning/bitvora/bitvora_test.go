package bitvora

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/payway/internal/lightning"
	"github.com/smallbiznis/payway/internal/webhook"
	"go.uber.org/zap"
)

// Reference invoice from the BOLT11 interoperability vectors.
const testInvoice = "lnbc1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypqdpl2pkx2ctnv5sxxmmwwd5kgetjypeh2ursdae8g6twvus8g6rfwvs8qun0dfjkxaq8rkx3yf5tcsyz3d73gafnh3cax9rn449d9p5uxz9ezhhypd0elx87sjle52x86fux2ypatgddc6k63n7erqz25le42c4u4ecky03ylcqca784w"

const testPaymentHash = "0001020304050607080900010203040506070809000102030405060708090102"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestNode(t *testing.T, handler http.HandlerFunc) (*Node, *webhook.Bridge) {
	t.Helper()
	var url string
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		url = srv.URL
	} else {
		url = "https://api.bitvora.com/"
	}
	bridge := webhook.NewBridge(10, zap.NewNop())
	node, err := New(Config{
		URL:            url,
		Token:          "bv_token",
		WebhookSecret:  "bv_secret",
		WebhookPath:    "/webhooks/bitvora",
		RequestTimeout: 5 * time.Second,
		ConnectTimeout: time.Second,
		Logger:         zap.NewNop(),
	}, bridge)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return node, bridge
}

func TestAddInvoice(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	node, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		if r.URL.Path != "/v1/bitcoin/deposit/lightning-invoice" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":201,"message":"created","data":{"id":"inv_1","r_hash":"` + testPaymentHash + `","payment_request":"` + testInvoice + `"}}`))
	})

	rsp, err := node.AddInvoice(context.Background(), lightning.AddInvoiceRequest{
		AmountMsat: 21_000,
		Memo:       "Coffee",
	})
	if err != nil {
		t.Fatalf("AddInvoice: %v", err)
	}
	if gotAuth != "Bearer bv_token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	var req createInvoiceRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.Amount != 21 || req.Currency != "sats" || req.ExpirySeconds != 3600 {
		t.Fatalf("request = %+v", req)
	}
	if rsp.ExternalID != "inv_1" {
		t.Fatalf("ExternalID = %q", rsp.ExternalID)
	}
	if rsp.PaymentHashHex() != testPaymentHash {
		t.Fatalf("PaymentHashHex = %q", rsp.PaymentHashHex())
	}
}

func TestAddInvoiceEnvelopeError(t *testing.T) {
	node, _ := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		// Bitvora reports failures inside a 200 response.
		w.Write([]byte(`{"status":403,"message":"insufficient permissions","data":null}`))
	})
	_, err := node.AddInvoice(context.Background(), lightning.AddInvoiceRequest{AmountMsat: 1000})
	if err == nil {
		t.Fatal("expected envelope error")
	}
}

func TestCancelAndPayNotSupported(t *testing.T) {
	node, _ := newTestNode(t, nil)
	if err := node.CancelInvoice(context.Background(), []byte{0x01}); !errors.Is(err, lightning.ErrNotSupported) {
		t.Fatalf("CancelInvoice err = %v", err)
	}
	if _, err := node.PayInvoice(context.Background(), lightning.PayInvoiceRequest{Invoice: testInvoice}); !errors.Is(err, lightning.ErrNotSupported) {
		t.Fatalf("PayInvoice err = %v", err)
	}
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"event":"deposit.lightning.completed","data":{"id":"d_1","lightning_invoice_id":"inv_1","recipient":"` + testInvoice + `"}}`)
	msg := webhook.Message{
		Endpoint: "/webhooks/bitvora",
		Body:     body,
		Headers:  map[string]string{SignatureHeader: sign("bv_secret", body)},
	}
	event, err := VerifyWebhook("bv_secret", msg, zap.NewNop())
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if event.Event != EventDepositCompleted || event.Data.LightningInvoiceID != "inv_1" {
		t.Fatalf("event = %+v", event)
	}

	msg.Headers[SignatureHeader] = "deadbeef"
	if _, err := VerifyWebhook("bv_secret", msg, zap.NewNop()); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}

	delete(msg.Headers, SignatureHeader)
	if _, err := VerifyWebhook("bv_secret", msg, zap.NewNop()); !errors.Is(err, ErrMissingSignatureHeader) {
		t.Fatalf("err = %v, want ErrMissingSignatureHeader", err)
	}
}

func TestSubscribeInvoicesSettlement(t *testing.T) {
	node, bridge := newTestNode(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := node.SubscribeInvoices(ctx, nil)
	if err != nil {
		t.Fatalf("SubscribeInvoices: %v", err)
	}

	// A message for another provider's path must be ignored.
	bridge.Publish(webhook.Message{Endpoint: "/webhooks/stripe", Body: []byte(`{}`)})

	body := []byte(`{"event":"deposit.lightning.completed","data":{"id":"d_1","lightning_invoice_id":"inv_1","recipient":"` + testInvoice + `"}}`)
	bridge.Publish(webhook.Message{
		Endpoint: "/webhooks/bitvora",
		Body:     body,
		Headers:  map[string]string{SignatureHeader: sign("bv_secret", body)},
	})

	update := <-updates
	if update.Kind != lightning.UpdateSettled {
		t.Fatalf("update = %+v", update)
	}
	if update.PaymentHash != testPaymentHash {
		t.Fatalf("PaymentHash = %q", update.PaymentHash)
	}
	if update.ExternalID != "inv_1" {
		t.Fatalf("ExternalID = %q", update.ExternalID)
	}
}

func TestSubscribeInvoicesBadSignatureYieldsError(t *testing.T) {
	node, bridge := newTestNode(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := node.SubscribeInvoices(ctx, nil)
	if err != nil {
		t.Fatalf("SubscribeInvoices: %v", err)
	}

	bridge.Publish(webhook.Message{
		Endpoint: "/webhooks/bitvora",
		Body:     []byte(`{"event":"deposit.lightning.completed","data":{}}`),
		Headers:  map[string]string{SignatureHeader: "deadbeef"},
	})

	update := <-updates
	if update.Kind != lightning.UpdateError {
		t.Fatalf("update = %+v", update)
	}
}

func TestSubscribeInvoicesUnrecognizedEvent(t *testing.T) {
	node, bridge := newTestNode(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := node.SubscribeInvoices(ctx, nil)
	if err != nil {
		t.Fatalf("SubscribeInvoices: %v", err)
	}

	body := []byte(`{"event":"deposit.lightning.pending","data":{"id":"d_3","lightning_invoice_id":"inv_3","recipient":"` + testInvoice + `"}}`)
	bridge.Publish(webhook.Message{
		Endpoint: "/webhooks/bitvora",
		Body:     body,
		Headers:  map[string]string{SignatureHeader: sign("bv_secret", body)},
	})

	select {
	case update := <-updates:
		if update.Kind != lightning.UpdateUnknown {
			t.Fatalf("update = %+v", update)
		}
		if update.ExternalID != "inv_3" {
			t.Fatalf("ExternalID = %q", update.ExternalID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("unrecognized event kind was not surfaced")
	}
}

func TestSubscribeInvoicesFailedDeposit(t *testing.T) {
	node, bridge := newTestNode(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := node.SubscribeInvoices(ctx, nil)
	if err != nil {
		t.Fatalf("SubscribeInvoices: %v", err)
	}

	body := []byte(`{"event":"deposit.lightning.failed","data":{"id":"d_2","lightning_invoice_id":"inv_2","recipient":"` + testInvoice + `"}}`)
	bridge.Publish(webhook.Message{
		Endpoint: "/webhooks/bitvora",
		Body:     body,
		Headers:  map[string]string{SignatureHeader: sign("bv_secret", body)},
	})

	update := <-updates
	if update.Kind != lightning.UpdateError {
		t.Fatalf("update = %+v", update)
	}
}

func TestSubscribeInvoicesClosesOnCancel(t *testing.T) {
	node, _ := newTestNode(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	updates, err := node.SubscribeInvoices(ctx, nil)
	if err != nil {
		t.Fatalf("SubscribeInvoices: %v", err)
	}
	cancel()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
