package currency

import "testing"

func TestParseCurrency(t *testing.T) {
	cases := map[string]Currency{
		"eur": EUR,
		"EUR": EUR,
		"usd": USD,
		"btc": BTC,
		"jpy": JPY,
	}
	for input, want := range cases {
		got, err := ParseCurrency(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParseCurrency("doge"); err == nil {
		t.Fatalf("expected unknown currency error")
	}
}

func TestFromFloatFiat(t *testing.T) {
	a := FromFloat(USD, 20.00)
	if a.Value() != 2000 {
		t.Fatalf("expected 2000 cents, got %d", a.Value())
	}
	if a.Currency() != USD {
		t.Fatalf("expected USD, got %s", a.Currency())
	}
}

func TestFromFloatBTC(t *testing.T) {
	a := FromFloat(BTC, 1.0)
	if a.Value() != 100_000_000_000 {
		t.Fatalf("expected 1 BTC in milli-sats, got %d", a.Value())
	}
}

func TestMillisats(t *testing.T) {
	a := Millisats(1000)
	if a.Currency() != BTC || a.Value() != 1000 {
		t.Fatalf("expected 1000 msat BTC, got %s %d", a.Currency(), a.Value())
	}
}

func TestSub(t *testing.T) {
	a := FromUnit(USD, 2000)
	b := FromUnit(USD, 500)
	got, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if got.Value() != 1500 {
		t.Fatalf("expected 1500, got %d", got.Value())
	}
}

func TestSubCurrencyMismatch(t *testing.T) {
	if _, err := FromUnit(USD, 2000).Sub(FromUnit(EUR, 500)); err == nil {
		t.Fatalf("expected currency mismatch error")
	}
}

func TestSubUnderflow(t *testing.T) {
	if _, err := FromUnit(USD, 500).Sub(FromUnit(USD, 2000)); err == nil {
		t.Fatalf("expected underflow error")
	}
}

func TestStringFormatting(t *testing.T) {
	if got := FromUnit(USD, 2000).String(); got != "USD 20.00" {
		t.Fatalf("expected 'USD 20.00', got %q", got)
	}
	if got := FromUnit(BTC, 100_000_000_000).String(); got != "BTC 1.00000000" {
		t.Fatalf("expected 'BTC 1.00000000', got %q", got)
	}
}
