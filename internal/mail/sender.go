package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSendRejected is returned when the email API refuses the message.
var ErrSendRejected = errors.New("mail: send rejected")

// Logger mirrors the service-layer logging callback contract.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Message is a single transactional email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers transactional email. Implementations perform one attempt;
// the completion workflow is the retry mechanism.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config wires the HTTP email API client.
type Config struct {
	BaseURL    string
	APIKey     string
	FromName   string
	FromEmail  string
	HTTPClient *http.Client
	Logger     Logger
}

// HTTPSender delivers messages through a transactional email HTTP JSON API.
type HTTPSender struct {
	baseURL   string
	apiKey    string
	fromName  string
	fromEmail string
	http      *http.Client
	logger    Logger
}

var _ Sender = (*HTTPSender)(nil)

// NewHTTPSender validates the configuration and applies defaults.
func NewHTTPSender(cfg Config) (*HTTPSender, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mail: base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mail: api key is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("mail: sender address is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &HTTPSender{
		baseURL:   baseURL,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		fromName:  strings.TrimSpace(cfg.FromName),
		fromEmail: strings.TrimSpace(cfg.FromEmail),
		http:      httpClient,
		logger:    logger,
	}, nil
}

type sendPayload struct {
	FromName  string   `json:"fromName,omitempty"`
	FromEmail string   `json:"fromEmail"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	HTML      string   `json:"html"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

// Send posts the message to the email API.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if s == nil {
		return errors.New("mail: sender is nil")
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		if trimmed := strings.TrimSpace(to); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return errors.New("mail: at least one recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("mail: subject is required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return errors.New("mail: body is required")
	}

	body, err := json.Marshal(sendPayload{
		FromName:  s.fromName,
		FromEmail: s.fromEmail,
		To:        recipients,
		Subject:   strings.TrimSpace(msg.Subject),
		HTML:      msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("mail: encode message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure sendResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&failure)
		s.logger(ctx, "mail.send.rejected", map[string]any{
			"subject": msg.Subject,
			"status":  resp.StatusCode,
			"message": failure.Message,
		})
		return fmt.Errorf("%w: status %d", ErrSendRejected, resp.StatusCode)
	}

	var ok sendResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&ok)
	s.logger(ctx, "mail.send.accepted", map[string]any{
		"subject":   msg.Subject,
		"messageId": ok.MessageID,
	})
	return nil
}
