package workitem

import "time"

// WorkItem is a tenant-scoped mirror of an external tracker item. It is
// updated by ingestion and written back by the action applier after an
// applied transition.
type WorkItem struct {
	TenantID    string    `json:"tenant_id"`
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StateName   string    `json:"state_name"`
	StateType   StateType `json:"state_type"`
	URL         string    `json:"url,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	ParentID    *string   `json:"parent_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Open reports whether the item is still in flight: anything before a
// terminal completed/cancelled state.
func (w *WorkItem) Open() bool {
	switch w.StateType {
	case StateCompleted, StateCancelled:
		return false
	}
	return true
}
