package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/workitem"
)

// FetchResult is one incremental page of upstream changes. NewCursor is the
// watermark to persist after the page is durably ingested; connectors must
// produce watermarks whose byte order matches the source's event order.
type FetchResult struct {
	Activity  []activity.Item
	Items     []workitem.WorkItem
	NewCursor string
}

// WriteKind selects the outbound write a connector performs.
type WriteKind string

const (
	WriteComment     WriteKind = "comment"
	WriteCreateItem  WriteKind = "create_item"
	WriteTransition  WriteKind = "transition"
	WritePostMessage WriteKind = "post_message"
)

// WriteSpec describes one outbound write. Fields are used per kind: comment
// and transition target ItemID, post_message targets ChannelID, create_item
// uses Title and Body.
type WriteSpec struct {
	Kind      WriteKind
	ItemID    string
	ChannelID string
	Title     string
	Body      string
	StateName string
	StateType string
}

// WriteResult carries connector output for writes that produce something,
// such as the created tracker item.
type WriteResult struct {
	Item *workitem.WorkItem
}

// Connector adapts one external source to the sync pipeline.
type Connector interface {
	Source() source.Source

	// FetchSince returns changes strictly after the cursor. An empty cursor
	// means full initial sync. The returned cursor must cover everything in
	// the result.
	FetchSince(ctx context.Context, token, cursor string) (*FetchResult, error)

	// ApplyWrite performs one outbound write against the source.
	ApplyWrite(ctx context.Context, token string, spec WriteSpec) (*WriteResult, error)
}

// Registry holds the configured connector per source.
type Registry map[source.Source]Connector

// Get returns the connector for a source.
func (r Registry) Get(src source.Source) (Connector, error) {
	c, ok := r[src]
	if !ok {
		return nil, fmt.Errorf("no connector registered for source %q", src)
	}
	return c, nil
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks an error as retryable: rate limits, timeouts, upstream
// 5xx. Everything else is treated as permanent.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether the error was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
