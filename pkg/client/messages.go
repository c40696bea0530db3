package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/oklog/ulid/v2"

	"github.com/tidechat/tidechat-go/pkg/models"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

type messageRequest struct {
	Message *models.Message `json:"message"`
}

type messageResponse struct {
	Message *models.Message `json:"message"`
}

// SendMessage posts a message to a channel. A missing message ID is
// filled in client-side so a retried send stays idempotent.
func (c *Client) SendMessage(ctx context.Context, cid string, msg *models.Message) (*models.Message, error) {
	if cid == "" {
		return nil, errors.New("channel cid is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	msg.CID = cid

	req := &transport.Request{
		Method: transport.MethodPost,
		Path:   "/v1/channels/" + url.PathEscape(cid) + "/messages",
		Body:   transport.JSONBody{Value: messageRequest{Message: msg}},
	}
	var out messageResponse
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}

// UpdateMessage replaces an existing message's content.
func (c *Client) UpdateMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		return nil, errors.New("message id is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	req := &transport.Request{
		Method: transport.MethodPut,
		Path:   "/v1/messages/" + url.PathEscape(msg.ID),
		Body:   transport.JSONBody{Value: messageRequest{Message: msg}},
	}
	var out messageResponse
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}

// DeleteMessage tombstones a message. The backend returns the deleted
// message with its Deleted flag set.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) (*models.Message, error) {
	if messageID == "" {
		return nil, errors.New("message id is required")
	}
	req := &transport.Request{
		Method: transport.MethodDelete,
		Path:   "/v1/messages/" + url.PathEscape(messageID),
	}
	var out messageResponse
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}
