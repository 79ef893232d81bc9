package platform

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DryRunClient logs calls instead of sending them. It is used when no API
// token is configured.
type DryRunClient struct {
	log zerolog.Logger
}

func NewDryRunClient(log zerolog.Logger) *DryRunClient {
	return &DryRunClient{log: log.With().Str("component", "platform-dryrun").Logger()}
}

func (c *DryRunClient) CloneItem(_ context.Context, templateItemID, boardID string) (string, error) {
	id := "dry-" + uuid.NewString()
	c.log.Info().Str("template_item", templateItemID).Str("board", boardID).Str("item", id).Msg("duplicate item")
	return id, nil
}

func (c *DryRunClient) UpdateItem(_ context.Context, boardID, itemID string, update ItemUpdate) error {
	c.log.Info().
		Str("board", boardID).
		Str("item", itemID).
		Time("scheduled_date", update.ScheduledDate).
		Str("assignee", update.Assignee).
		Str("status", update.Status).
		Msg("update item")
	return nil
}
