package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMenuItemValidate(t *testing.T) {
	good := MenuItem{ID: "1", Name: "Dosa", Price: Money{Cents: 1500}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (MenuItem{ID: "1", Name: "Free sample", Price: Money{Cents: 0}}).Validate(); err != nil {
		t.Fatalf("zero price expected ok, got %v", err)
	}

	bads := []MenuItem{
		{ID: "1", Name: "", Price: Money{Cents: 100}},
		{ID: "1", Name: "   ", Price: Money{Cents: 100}},
		{ID: "1", Name: "Vada", Price: Money{Cents: -1}},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCartLineAmount(t *testing.T) {
	l := CartLine{ItemID: "1", Name: "Idly", Price: Money{Cents: 3000}, Quantity: 2}
	if got := l.Amount().Cents; got != 6000 {
		t.Fatalf("expected 6000, got %d", got)
	}
}

func TestTransactionClone(t *testing.T) {
	tx := Transaction{
		InvoiceNumber: 7,
		Timestamp:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		LineItems:     []CartLine{{ItemID: "1", Name: "Idly", Price: Money{Cents: 3000}, Quantity: 2}},
		Subtotal:      Money{Cents: 6000},
		Total:         Money{Cents: 6000},
	}
	cl := tx.Clone()
	cl.LineItems[0].Quantity = 99
	if tx.LineItems[0].Quantity != 2 {
		t.Fatalf("clone shares line items with original")
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	tx := Transaction{
		InvoiceNumber: 3,
		Timestamp:     time.Date(2024, 1, 1, 23, 59, 59, 500000000, time.UTC),
		LineItems: []CartLine{
			{ItemID: "a", Name: "Idly", Price: Money{Cents: 3000}, Quantity: 2},
			{ItemID: "b", Name: "Dosa", Price: Money{Cents: 1500}, Quantity: 1},
		},
		Subtotal: Money{Cents: 7500},
		Tax:      Money{},
		Total:    Money{Cents: 7500},
	}

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Transaction
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.InvoiceNumber != tx.InvoiceNumber || !back.Timestamp.Equal(tx.Timestamp) {
		t.Fatalf("header mismatch: %+v", back)
	}
	if back.Subtotal != tx.Subtotal || back.Total != tx.Total || back.Tax != tx.Tax {
		t.Fatalf("totals mismatch: %+v", back)
	}
	if len(back.LineItems) != 2 || back.LineItems[0] != tx.LineItems[0] || back.LineItems[1] != tx.LineItems[1] {
		t.Fatalf("line items mismatch: %+v", back.LineItems)
	}
}
