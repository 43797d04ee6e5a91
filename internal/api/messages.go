package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/adamavenir/gchat/internal/types"
)

// ListMessages returns a group's messages.
func (c *Client) ListMessages(ctx context.Context, group types.ID) ([]types.Message, error) {
	var msgs []types.Message
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/groups/%d/messages/", group), nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateMessage posts a message to a group.
func (c *Client) CreateMessage(ctx context.Context, msg types.NewMessage) (types.Message, error) {
	var created types.Message
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/groups/%d/messages/", msg.Group), nil, msg, &created); err != nil {
		return types.Message{}, err
	}
	return created, nil
}
