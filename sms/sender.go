package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// SendResult is the outcome of one outbound SMS.
type SendResult struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"messageId,omitempty"`
	Status    string    `json:"status"`
	To        string    `json:"to"`
	SentAt    time.Time `json:"sentAt"`
	Provider  string    `json:"provider"`
	Error     string    `json:"error,omitempty"`
}

// Sender sends a single SMS. Implementations never return an error to the
// caller; transport failures are reported through the result.
type Sender interface {
	Send(ctx context.Context, to, message string, urgent bool) SendResult
	Provider() string
}

// TwilioConfig holds the credentials of the real transport.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Configured reports whether the credentials look like a usable Twilio
// account. SIDs always start with "AC".
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && strings.HasPrefix(c.AccountSID, "AC")
}

// NewSender returns the Twilio transport when credentials are configured and
// the local simulation otherwise.
func NewSender(cfg TwilioConfig) Sender {
	if cfg.Configured() {
		log.Info("Twilio SMS transport initialized")
		return NewTwilioSender(cfg)
	}
	log.Warn("Twilio credentials not found or invalid, SMS transport running in simulation mode")
	return &SimulatedSender{}
}

// TwilioSender sends through the Twilio messages REST endpoint.
type TwilioSender struct {
	cfg    TwilioConfig
	client *http.Client
	apiURL string
}

// NewTwilioSender creates the real transport.
func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	return &TwilioSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		apiURL: fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", cfg.AccountSID),
	}
}

func (s *TwilioSender) Provider() string { return "twilio" }

// Send posts one message. Any transport error is absorbed into a failure
// result so a single bad number never aborts a batch.
func (s *TwilioSender) Send(ctx context.Context, to, message string, urgent bool) SendResult {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(to, "twilio", err.Error())
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Errorf("SMS send error to %s: %v", to, err)
		return failure(to, "twilio", err.Error())
	}
	defer resp.Body.Close()

	var body struct {
		Sid     string `json:"sid"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Errorf("SMS response decode error for %s: %v", to, err)
		return failure(to, "twilio", err.Error())
	}

	if resp.StatusCode >= 400 {
		log.Errorf("SMS send rejected for %s: %s", to, body.Message)
		return failure(to, "twilio", body.Message)
	}

	return SendResult{
		Success:   true,
		MessageID: body.Sid,
		Status:    body.Status,
		To:        to,
		SentAt:    time.Now(),
		Provider:  "twilio",
	}
}

// SimulatedSender mimics a transport when no credentials are configured:
// a 100-600ms delay and a 95% success rate.
type SimulatedSender struct{}

func (s *SimulatedSender) Provider() string { return "simulation" }

func (s *SimulatedSender) Send(ctx context.Context, to, message string, urgent bool) SendResult {
	delay := time.Duration(100+rand.Intn(500)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}

	if rand.Float64() < 0.05 {
		return failure(to, "simulation", "Simulated network error")
	}

	return SendResult{
		Success:   true,
		MessageID: "sim_" + uuid.NewString(),
		Status:    "sent",
		To:        to,
		SentAt:    time.Now(),
		Provider:  "simulation",
	}
}

func failure(to, provider, errMsg string) SendResult {
	return SendResult{
		Success:  false,
		Status:   "failed",
		To:       to,
		SentAt:   time.Now(),
		Provider: provider,
		Error:    errMsg,
	}
}

// ServiceStatus describes the active transport for the status endpoint.
type ServiceStatus struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	FromNumber string `json:"fromNumber,omitempty"`
}

// Status returns the transport description for a sender built from cfg.
func Status(sender Sender, cfg TwilioConfig) ServiceStatus {
	return ServiceStatus{
		Provider:   sender.Provider(),
		Configured: cfg.Configured(),
		FromNumber: cfg.FromNumber,
	}
}
