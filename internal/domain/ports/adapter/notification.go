package adapter

import "context"

// NotificationGateway delivers billing lifecycle emails. Calls are
// best-effort from the caller's perspective: a delivery failure never
// rolls back the state change that triggered it.
type NotificationGateway interface {
	SendSuspended(ctx context.Context, websiteID, contactEmail string) error
	SendOverdue(ctx context.Context, websiteID, contactEmail string) error
	SendActivated(ctx context.Context, websiteID, contactEmail string) error
}
