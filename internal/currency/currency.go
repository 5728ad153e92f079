// Package currency provides the currency and amount value types shared by
// the payment provider integrations. Fiat amounts are held in the smallest
// unit (cents); Bitcoin amounts in milli-satoshis.
package currency

import (
	"fmt"
	"strings"
)

type Currency string

const (
	EUR Currency = "EUR"
	BTC Currency = "BTC"
	USD Currency = "USD"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
	CHF Currency = "CHF"
	AUD Currency = "AUD"
	JPY Currency = "JPY"
)

var currencies = map[string]Currency{
	"eur": EUR,
	"btc": BTC,
	"usd": USD,
	"gbp": GBP,
	"cad": CAD,
	"chf": CHF,
	"aud": AUD,
	"jpy": JPY,
}

func (c Currency) String() string { return string(c) }

// ParseCurrency parses a case-insensitive currency code.
func ParseCurrency(s string) (Currency, error) {
	if c, ok := currencies[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown currency: %s", s)
}

const milliSatsPerBTC = 1.0e11

// Amount is a monetary value with its currency. The raw value is the
// smallest unit of the currency (cents, or milli-satoshis for BTC).
type Amount struct {
	currency Currency
	value    uint64
}

// Millisats creates a Bitcoin amount from milli-satoshis.
func Millisats(amount uint64) Amount {
	return Amount{currency: BTC, value: amount}
}

// FromUnit creates an amount from the smallest currency unit.
func FromUnit(c Currency, amount uint64) Amount {
	return Amount{currency: c, value: amount}
}

// FromFloat creates an amount from a standard-unit value: 20.00 means
// $20 for fiat, 0.001 means 0.001 BTC.
func FromFloat(c Currency, amount float64) Amount {
	if c == BTC {
		return Amount{currency: c, value: uint64(amount * milliSatsPerBTC)}
	}
	return Amount{currency: c, value: uint64(amount * 100.0)}
}

// Value returns the raw value in the smallest unit.
func (a Amount) Value() uint64 { return a.value }

// Float returns the value in the currency's standard unit.
func (a Amount) Float() float64 {
	if a.currency == BTC {
		return float64(a.value) / milliSatsPerBTC
	}
	return float64(a.value) / 100.0
}

func (a Amount) Currency() Currency { return a.currency }

// Sub subtracts another amount; different currencies and underflow are
// errors.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.currency != b.currency {
		return Amount{}, fmt.Errorf("currency mismatch: %s vs %s", a.currency, b.currency)
	}
	if b.value > a.value {
		return Amount{}, fmt.Errorf("subtraction would underflow: %s - %s", a, b)
	}
	return Amount{currency: a.currency, value: a.value - b.value}, nil
}

func (a Amount) String() string {
	if a.currency == BTC {
		return fmt.Sprintf("BTC %.8f", a.Float())
	}
	return fmt.Sprintf("%s %.2f", a.currency, a.Float())
}
