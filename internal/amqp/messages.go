package amqp

import (
	"encoding/json"
	"time"
)

// InvoiceExportMessage tells the export worker that an invoice was committed.
// It carries only the invoice number; the worker fetches the full
// transaction from the database before rendering.
type InvoiceExportMessage struct {
	InvoiceNumber int64     `json:"invoiceNumber"`
	CommittedAt   time.Time `json:"committedAt"`
	EnqueuedAt    time.Time `json:"enqueuedAt"`
}

func NewInvoiceExportMessage(invoiceNumber int64, committedAt time.Time) *InvoiceExportMessage {
	return &InvoiceExportMessage{
		InvoiceNumber: invoiceNumber,
		CommittedAt:   committedAt,
		EnqueuedAt:    time.Now(),
	}
}

func (m *InvoiceExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceExportMessageFromJSON(data []byte) (*InvoiceExportMessage, error) {
	var msg InvoiceExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
