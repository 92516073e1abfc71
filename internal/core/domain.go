package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// MenuItem is a sellable catalog entry. The ID is assigned once at
	// creation time and never reused within a catalog.
	MenuItem struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Price    Money  `json:"price"`
		ImageRef string `json:"imageRef"`
	}

	// CartLine is one cart position. Name and Price are snapshots taken
	// when the item was first added; later catalog edits do not touch them.
	CartLine struct {
		ItemID   string `json:"itemId"`
		Name     string `json:"name"`
		Price    Money  `json:"price"`
		Quantity int    `json:"quantity"`
	}

	// Transaction is a committed invoice. Immutable once created; the log
	// it lives in is append-only.
	Transaction struct {
		InvoiceNumber int64      `json:"invoiceNumber"`
		Timestamp     time.Time  `json:"timestamp"`
		LineItems     []CartLine `json:"lineItems"`
		Subtotal      Money      `json:"subtotal"`
		Tax           Money      `json:"tax"`
		Total         Money      `json:"total"`
	}
)

var (
	ErrEmptyName     = errors.New("empty item name")
	ErrNegativePrice = errors.New("negative price")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrNotFound      = errors.New("item not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrStorage       = errors.New("storage failure")
)

func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if m.Price.Cents < 0 {
		return ErrNegativePrice
	}
	return nil
}

// Amount returns price multiplied by quantity.
func (l CartLine) Amount() Money {
	return Money{Cents: l.Price.Cents * int64(l.Quantity)}
}

// Clone returns a deep copy so the caller can hold the transaction without
// sharing line-item backing arrays.
func (t Transaction) Clone() Transaction {
	out := t
	out.LineItems = make([]CartLine, len(t.LineItems))
	copy(out.LineItems, t.LineItems)
	return out
}
