package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentNotification is the strictly decoded webhook body posted by the
// payment provider. Amounts and the status code arrive as strings and are
// used verbatim when recomputing the signature digest.
type PaymentNotification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time"`
}

// SnapTransaction is the provider's answer to a create-transaction call.
type SnapTransaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// TransactionStatusResponse is the provider's answer to a status poll.
type TransactionStatusResponse struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
}

// PaymentEventSource tells where an audited payment event came from.
type PaymentEventSource string

const (
	PaymentSourceWebhook PaymentEventSource = "webhook"
	PaymentSourcePoll    PaymentEventSource = "poll"
	PaymentSourceCreate  PaymentEventSource = "create"
)

// PaymentAudit records one interaction with the payment channel. Every
// webhook (including rejected ones) and every poll lands here; rows are
// never updated.
type PaymentAudit struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	BookingID         *uuid.UUID         `json:"booking_id,omitempty" db:"booking_id"`
	OrderID           string             `json:"order_id" db:"order_id"`
	EventType         string             `json:"event_type" db:"event_type"`
	EventSource       PaymentEventSource `json:"event_source" db:"event_source"`
	TransactionStatus string             `json:"transaction_status" db:"transaction_status"`
	FraudStatus       string             `json:"fraud_status" db:"fraud_status"`
	GrossAmount       string             `json:"gross_amount" db:"gross_amount"`
	AmountsMatch      bool               `json:"amounts_match" db:"amounts_match"`
	SignatureValid    bool               `json:"signature_valid" db:"signature_valid"`
	IsDuplicate       bool               `json:"is_duplicate" db:"is_duplicate"`
	RawBody           []byte             `json:"-" db:"raw_body"`
	IPAddress         string             `json:"ip_address" db:"ip_address"`
	UserAgent         string             `json:"user_agent" db:"user_agent"`
	UABrowser         string             `json:"ua_browser" db:"ua_browser"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// CreatePaymentResponse is returned to the customer after a transaction is
// created or refreshed with the provider.
type CreatePaymentResponse struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentStatusResponse is returned by the status poll endpoint.
type PaymentStatusResponse struct {
	BookingID uuid.UUID     `json:"booking_id"`
	Code      string        `json:"code"`
	Status    BookingStatus `json:"status"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
}
