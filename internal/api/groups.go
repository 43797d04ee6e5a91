package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/adamavenir/gchat/internal/types"
	"golang.org/x/sync/errgroup"
)

// countConcurrency bounds parallel message-count fetches.
const countConcurrency = 4

// ListGroups returns the groups visible to the user.
func (c *Client) ListGroups(ctx context.Context) ([]types.Group, error) {
	var groups []types.Group
	if err := c.doJSON(ctx, http.MethodGet, "/groups/", nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup creates a group named name.
func (c *Client) CreateGroup(ctx context.Context, name string) (types.Group, error) {
	var group types.Group
	req := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.doJSON(ctx, http.MethodPost, "/groups/", nil, req, &group); err != nil {
		return types.Group{}, err
	}
	return group, nil
}

// GetGroup returns one group.
func (c *Client) GetGroup(ctx context.Context, id types.ID) (types.Group, error) {
	var group types.Group
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/groups/%d/", id), nil, nil, &group); err != nil {
		return types.Group{}, err
	}
	return group, nil
}

// FallbackGroupName is shown when a group's name cannot be fetched.
func FallbackGroupName(id types.ID) string {
	return fmt.Sprintf("Groupe #%d", id)
}

// GroupName returns the group's name, or the fallback on any failure.
func (c *Client) GroupName(ctx context.Context, id types.ID) string {
	group, err := c.GetGroup(ctx, id)
	if err != nil || strings.TrimSpace(group.Name) == "" {
		if err != nil {
			c.logger.Debug().Err(err).Int64("group", int64(id)).Msg("group name lookup failed")
		}
		return FallbackGroupName(id)
	}
	return group.Name
}

// ListGroupsWithCounts lists groups and annotates each with its message
// count. A count that cannot be fetched is reported as 0. Authentication
// failures abort the whole call.
func (c *Client) ListGroupsWithCounts(ctx context.Context) ([]types.Group, error) {
	groups, err := c.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i := range groups {
		i := i
		g.Go(func() error {
			msgs, err := c.ListMessages(gctx, groups[i].ID)
			if err != nil {
				if IsUnauthorized(err) {
					return err
				}
				c.logger.Debug().Err(err).Int64("group", int64(groups[i].ID)).Msg("message count failed")
				groups[i].MessageCount = types.IntPtr(0)
				return nil
			}
			groups[i].MessageCount = types.IntPtr(len(msgs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}
