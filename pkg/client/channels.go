package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidechat/tidechat-go/pkg/models"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

// QueryChannelsRequest filters and paginates the channel listing. The
// zero value lists everything the session can see, newest first.
type QueryChannelsRequest struct {
	// Type filters by channel type, e.g. "messaging".
	Type string

	// Member filters to channels the given user is a member of.
	Member string

	// Limit caps the page size. Zero lets the backend choose.
	Limit int

	// Offset skips past earlier pages.
	Offset int
}

type queryChannelsResponse struct {
	Channels []*models.Channel `json:"channels"`
}

// QueryChannels lists channels visible to the session.
func (c *Client) QueryChannels(ctx context.Context, q QueryChannelsRequest) ([]*models.Channel, error) {
	query := url.Values{}
	if q.Type != "" {
		query.Set("type", q.Type)
	}
	if q.Member != "" {
		query.Set("member", q.Member)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}

	req := &transport.Request{
		Method: transport.MethodGet,
		Path:   "/v1/channels",
		Query:  query,
	}
	var out queryChannelsResponse
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}
