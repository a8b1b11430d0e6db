package activity

import (
	"context"
	"time"
)

// Repository provides persistence operations for raw activity items.
type Repository interface {
	Append(ctx context.Context, tenantID string, items []Item) ([]Item, error)
	ListUnreconciled(ctx context.Context, tenantID string, limit int) ([]Item, error)
	MarkReconciled(ctx context.Context, tenantID string, ids []string) error
	CountSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}
