package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"website-billing/internal/domain/ports/adapter"
	"website-billing/internal/infra/metrics"
)

var _ adapter.NotificationGateway = (*HTTPGateway)(nil)

// HTTPGateway delivers billing notifications through a transactional email
// provider's JSON API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey, from string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (g *HTTPGateway) SendSuspended(ctx context.Context, websiteID, contactEmail string) error {
	return g.send(ctx, "suspended", websiteID, contactEmail,
		"Your website has been suspended",
		"Your website has been suspended because we have not received a payment. "+
			"Pay your outstanding invoice to bring it back online.")
}

func (g *HTTPGateway) SendOverdue(ctx context.Context, websiteID, contactEmail string) error {
	return g.send(ctx, "overdue", websiteID, contactEmail,
		"Your payment is overdue",
		"Your latest invoice is past its due date. Please pay it to keep your website online.")
}

func (g *HTTPGateway) SendActivated(ctx context.Context, websiteID, contactEmail string) error {
	return g.send(ctx, "activated", websiteID, contactEmail,
		"Payment received",
		"Thanks! We received your payment and your website is active.")
}

func (g *HTTPGateway) send(ctx context.Context, kind, websiteID, to, subject, text string) error {
	err := g.post(ctx, sendRequest{
		From:    g.from,
		To:      to,
		Subject: subject,
		Text:    text,
		Metadata: map[string]string{
			"website_id": websiteID,
			"kind":       kind,
		},
	})
	metrics.IncNotification(kind, err == nil)
	return err
}

func (g *HTTPGateway) post(ctx context.Context, payload sendRequest) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := g.baseURL + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var response sendResponse
		if err := json.Unmarshal(body, &response); err == nil && response.Message != "" {
			return fmt.Errorf("email provider error: status %d, message: %s", resp.StatusCode, response.Message)
		}
		return fmt.Errorf("email provider error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
