package api

import (
	"context"
	"net/http"

	"schoolbridge/pkg/types"
)

func (c *Client) Register(ctx context.Context, req *types.RegisterRequest) (*types.UserProfile, error) {
	profile := new(types.UserProfile)
	opts := &RequestOptions{Method: http.MethodPost, Body: req}
	if err := c.Do(ctx, Endpoint{Kind: KindAuthRegister}, opts, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, Endpoint{Kind: KindAuthLogout}, &RequestOptions{Method: http.MethodPost}, nil)
}

func (c *Client) Profile(ctx context.Context) (*types.UserProfile, error) {
	profile := new(types.UserProfile)
	if err := c.Do(ctx, Endpoint{Kind: KindAuthProfile}, nil, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) Me(ctx context.Context) (*types.UserProfile, error) {
	profile := new(types.UserProfile)
	if err := c.Do(ctx, Endpoint{Kind: KindAuthMe}, nil, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
