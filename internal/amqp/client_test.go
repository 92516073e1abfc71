package amqp

import (
	"testing"
	"time"
)

func TestNewInvoiceExportMessage(t *testing.T) {
	committedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	msg := NewInvoiceExportMessage(42, committedAt)

	if msg.InvoiceNumber != 42 {
		t.Errorf("InvoiceNumber = %v, want 42", msg.InvoiceNumber)
	}
	if !msg.CommittedAt.Equal(committedAt) {
		t.Errorf("CommittedAt = %v, want %v", msg.CommittedAt, committedAt)
	}
	if msg.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt should not be zero")
	}
	if time.Since(msg.EnqueuedAt) > time.Second {
		t.Error("EnqueuedAt should be recent")
	}
}

func TestInvoiceExportMessage_JSON(t *testing.T) {
	msg := &InvoiceExportMessage{
		InvoiceNumber: 7,
		CommittedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		EnqueuedAt:    time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC),
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := InvoiceExportMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("InvoiceExportMessageFromJSON() error = %v", err)
	}

	if parsed.InvoiceNumber != msg.InvoiceNumber {
		t.Errorf("Parsed InvoiceNumber = %v, want %v", parsed.InvoiceNumber, msg.InvoiceNumber)
	}
	if !parsed.CommittedAt.Equal(msg.CommittedAt) {
		t.Errorf("Parsed CommittedAt = %v, want %v", parsed.CommittedAt, msg.CommittedAt)
	}
}

func TestInvoiceExportMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"invoiceNumber": "not_a_number"}`)

	if _, err := InvoiceExportMessageFromJSON(invalidJSON); err == nil {
		t.Error("InvoiceExportMessageFromJSON() should fail with invalid JSON")
	}
}
