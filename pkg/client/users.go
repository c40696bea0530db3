package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidechat/tidechat-go/pkg/models"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

type userResponse struct {
	User *models.User `json:"user"`
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	req := &transport.Request{
		Method: transport.MethodGet,
		Path:   "/v1/users/" + url.PathEscape(userID),
	}
	var out userResponse
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type updateUserRequest struct {
	User *models.User `json:"user"`
}

// UpdateUser upserts the caller's own user record.
func (c *Client) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}
	req := &transport.Request{
		Method: transport.MethodPut,
		Path:   "/v1/users/" + url.PathEscape(user.ID),
		Body:   transport.JSONBody{Value: updateUserRequest{User: user}},
	}
	var out userResponse
	if err := c.do(ctx, req, true, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
