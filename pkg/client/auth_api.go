package client

import (
	"context"

	"github.com/tidechat/tidechat-go/pkg/apierror"
	"github.com/tidechat/tidechat-go/pkg/models"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

// The client implements the session manager's backend contract: connect,
// token refresh, and disconnect. These calls authenticate with the token
// under negotiation rather than the session token, so they bypass the
// TokenSource and set the Authorization header explicitly.

type connectRequest struct {
	UserID    string `json:"user_id,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

type connectResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

// Connect establishes a session server-side and returns the resolved
// user.
func (c *Client) Connect(ctx context.Context, userID, token string, anonymous bool) (*models.User, error) {
	req := &transport.Request{
		Method:  transport.MethodPost,
		Path:    "/v1/connect",
		Headers: map[string]string{"Authorization": "Bearer " + token},
		Body:    transport.JSONBody{Value: connectRequest{UserID: userID, Anonymous: anonymous}},
	}
	var out connectResponse
	if err := c.do(ctx, req, false, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, apierror.NewTransport("connect response carried no user", nil)
	}
	return out.User, nil
}

// RefreshToken exchanges the current token for a new one.
func (c *Client) RefreshToken(ctx context.Context, current string) (string, error) {
	req := &transport.Request{
		Method:  transport.MethodPost,
		Path:    "/v1/auth/refresh",
		Headers: map[string]string{"Authorization": "Bearer " + current},
	}
	var out refreshResponse
	if err := c.do(ctx, req, false, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", apierror.NewTransport("refresh response carried no token", nil)
	}
	return out.Token, nil
}

// Disconnect notifies the backend the session is ending.
func (c *Client) Disconnect(ctx context.Context, token string) error {
	req := &transport.Request{
		Method:  transport.MethodPost,
		Path:    "/v1/auth/disconnect",
		Headers: map[string]string{"Authorization": "Bearer " + token},
	}
	return c.do(ctx, req, false, nil)
}

// AnonymousToken asks the backend to mint a guest token. Implements the
// session manager's anonymous token provider.
func (c *Client) AnonymousToken(ctx context.Context, userID string) (string, error) {
	req := &transport.Request{
		Method: transport.MethodPost,
		Path:   "/v1/connect",
		Body:   transport.JSONBody{Value: connectRequest{UserID: userID, Anonymous: true}},
	}
	var out connectResponse
	if err := c.do(ctx, req, false, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", apierror.NewTransport("connect response carried no guest token", nil)
	}
	return out.Token, nil
}
