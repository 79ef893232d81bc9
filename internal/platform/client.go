// Package platform talks to the workflow board that recurring items are
// created on.
package platform

import (
	"context"
	"time"
)

// StatusNotStarted is the status label new items receive.
const StatusNotStarted = "Not Started"

// ItemUpdate holds the column values written to a freshly cloned item.
type ItemUpdate struct {
	ScheduledDate time.Time
	// Assignee is empty when the definition has no rotation.
	Assignee string
	Status   string
}

// Client clones template items and fills in their columns. Neither call
// carries a dedup key, so a retry may create a duplicate item.
type Client interface {
	CloneItem(ctx context.Context, templateItemID, boardID string) (string, error)
	UpdateItem(ctx context.Context, boardID, itemID string, update ItemUpdate) error
}
