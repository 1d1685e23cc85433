package email

import (
	"context"
	"sync"

	"website-billing/internal/domain/ports/adapter"
)

var _ adapter.NotificationGateway = (*NoopGateway)(nil)

// NoopGateway records notifications in memory instead of sending them.
// Used in tests and when no email provider is configured.
type NoopGateway struct {
	mu   sync.Mutex
	sent []SentNotification
}

type SentNotification struct {
	Kind      string
	WebsiteID string
	To        string
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

func (g *NoopGateway) SendSuspended(ctx context.Context, websiteID, contactEmail string) error {
	return g.record("suspended", websiteID, contactEmail)
}

func (g *NoopGateway) SendOverdue(ctx context.Context, websiteID, contactEmail string) error {
	return g.record("overdue", websiteID, contactEmail)
}

func (g *NoopGateway) SendActivated(ctx context.Context, websiteID, contactEmail string) error {
	return g.record("activated", websiteID, contactEmail)
}

func (g *NoopGateway) Sent() []SentNotification {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentNotification, len(g.sent))
	copy(out, g.sent)
	return out
}

func (g *NoopGateway) record(kind, websiteID, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, SentNotification{Kind: kind, WebsiteID: websiteID, To: to})
	return nil
}
