package services

import (
	"bytes"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/config"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// SnapEnvironmentURLs maps environment names to the Snap endpoint base URLs
var SnapEnvironmentURLs = map[string]string{
	"sandbox":    "https://app.sandbox.midtrans.com",
	"production": "https://app.midtrans.com",
}

// APIEnvironmentURLs maps environment names to the core API base URLs used
// for status checks
var APIEnvironmentURLs = map[string]string{
	"sandbox":    "https://api.sandbox.midtrans.com",
	"production": "https://api.midtrans.com",
}

// MidtransService handles payment gateway integration with Midtrans Snap
type MidtransService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// NewMidtransService creates a new Midtrans payment service
func NewMidtransService(cfg *config.PaymentConfig, logger *logrus.Logger) *MidtransService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &MidtransService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// snapTransactionRequest is the body posted to the Snap create-transaction
// endpoint. GrossAmount is sent in whole currency units.
type snapTransactionRequest struct {
	TransactionDetails struct {
		OrderID     string  `json:"order_id"`
		GrossAmount float64 `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name,omitempty"`
		Email     string `json:"email,omitempty"`
		Phone     string `json:"phone,omitempty"`
	} `json:"customer_details"`
	Expiry struct {
		Unit     string `json:"unit"`
		Duration int    `json:"duration"`
	} `json:"expiry"`
	Callbacks struct {
		Finish string `json:"finish,omitempty"`
	} `json:"callbacks"`
}

// CreateTransactionParams carries what the gateway needs to open a Snap
// transaction for a booking.
type CreateTransactionParams struct {
	OrderID       string
	GrossAmount   float64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ExpiryHours   int
}

// SignatureFor computes the webhook signature digest for the given fields:
// SHA-512 over the concatenation of order ID, status code, gross amount and
// the server key, hex encoded. The provider computes the same digest on its
// side; the amount string must be used verbatim as delivered.
func (s *MidtransService) SignatureFor(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + s.config.ServerKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a webhook signature in constant time. Callers must
// reject the notification before touching any state when this returns false.
func (s *MidtransService) VerifySignature(n *models.PaymentNotification) bool {
	expected := s.SignatureFor(n.OrderID, n.StatusCode, n.GrossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// CreateTransaction opens a Snap transaction and returns the payment token
// and redirect URL. Network and provider failures come back as
// UpstreamUnavailableError so callers can keep the booking intact.
func (s *MidtransService) CreateTransaction(params *CreateTransactionParams) (*models.SnapTransaction, error) {
	if s.config.ServerKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing server key")
	}

	request := snapTransactionRequest{}
	request.TransactionDetails.OrderID = params.OrderID
	request.TransactionDetails.GrossAmount = params.GrossAmount
	request.CustomerDetails.FirstName = params.CustomerName
	request.CustomerDetails.Email = params.CustomerEmail
	request.CustomerDetails.Phone = params.CustomerPhone
	request.Expiry.Unit = "hours"
	request.Expiry.Duration = params.ExpiryHours
	request.Callbacks.Finish = s.config.FinishURL

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := s.snapBaseURL() + "/snap/v1/transactions"

	s.logger.WithFields(logrus.Fields{
		"order_id":     params.OrderID,
		"gross_amount": params.GrossAmount,
		"endpoint":     endpoint,
	}).Info("Creating Snap transaction")

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.basicAuth())

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call Snap endpoint")
		return nil, domain.UpstreamUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.UpstreamUnavailableError{Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.UpstreamUnavailableError{
			Err: fmt.Errorf("snap returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("snap returned status %d: %s", resp.StatusCode, string(body))
	}

	var snap models.SnapTransaction
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snap response: %w", err)
	}
	if snap.Token == "" {
		return nil, fmt.Errorf("snap transaction created without token")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": params.OrderID,
		"token":    snap.Token,
	}).Info("Snap transaction created")

	return &snap, nil
}

// CheckStatus queries the provider for the current transaction status of an
// order. Unreachable or failing providers come back as
// UpstreamUnavailableError; an unknown order is NotFoundError.
func (s *MidtransService) CheckStatus(orderID string) (*models.TransactionStatusResponse, error) {
	endpoint := fmt.Sprintf("%s/v2/%s/status", s.apiBaseURL(), orderID)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.basicAuth())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.UpstreamUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.UpstreamUnavailableError{Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NotFoundError{Resource: "transaction"}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.UpstreamUnavailableError{
			Err: fmt.Errorf("status API returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status API returned %d: %s", resp.StatusCode, string(body))
	}

	var status models.TransactionStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	return &status, nil
}

// IsConfigured returns true if the payment gateway is properly configured
func (s *MidtransService) IsConfigured() bool {
	return s.config.ServerKey != ""
}

func (s *MidtransService) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s.config.ServerKey+":"))
}

func (s *MidtransService) snapBaseURL() string {
	if s.config.SnapBaseURL != "" {
		return s.config.SnapBaseURL
	}
	if url, ok := SnapEnvironmentURLs[s.config.Environment]; ok {
		return url
	}
	return SnapEnvironmentURLs["sandbox"]
}

func (s *MidtransService) apiBaseURL() string {
	if s.config.APIBaseURL != "" {
		return s.config.APIBaseURL
	}
	if url, ok := APIEnvironmentURLs[s.config.Environment]; ok {
		return url
	}
	return APIEnvironmentURLs["sandbox"]
}
