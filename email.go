package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Sender relays a transactional email. Implementations decide the provider.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// BrevoSender sends through the Brevo transactional API.
type BrevoSender struct {
	apiKey    string
	fromEmail string
	fromName  string
	endpoint  string
	client    *http.Client
}

func NewBrevoSender(apiKey, fromEmail, fromName string) *BrevoSender {
	return &BrevoSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoMessage struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	TextContent string       `json:"textContent,omitempty"`
}

func (b *BrevoSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if b.apiKey == "" {
		return fmt.Errorf("brevo: missing API key")
	}
	if b.fromEmail == "" {
		return fmt.Errorf("brevo: missing sender address")
	}

	msg := brevoMessage{
		Sender:      brevoParty{Name: b.fromName, Email: b.fromEmail},
		To:          []brevoParty{{Email: to}},
		Subject:     subject,
		HTMLContent: htmlBody,
		TextContent: textBody,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 202 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo error %d: %s", resp.StatusCode, detail)
	}
	return nil
}
