package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one outbound transactional email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Mailer hands a composed message to the delivery provider. Composition and
// delivery are split so tests can assert on messages without a network.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ProviderClient delivers mail through an HTTP JSON email API, authorized
// with a bearer key.
type ProviderClient struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewProviderClient(url, apiKey, from string) *ProviderClient {
	return &ProviderClient{
		url:    url,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *ProviderClient) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(struct {
		From string `json:"from"`
		Message
	}{From: p.from, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to serialize mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail provider rejected message: status %d", resp.StatusCode)
	}
	return nil
}
