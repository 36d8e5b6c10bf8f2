package api

import (
	"context"
	"net/http"

	"schoolbridge/pkg/types"
)

func (c *Client) SchoolNeeds(ctx context.Context) ([]types.Need, error) {
	var needs []types.Need
	if err := c.Do(ctx, SchoolNeedsEndpoint(), nil, &needs); err != nil {
		return nil, err
	}
	return needs, nil
}

func (c *Client) SchoolNeed(ctx context.Context, id string) (*types.Need, error) {
	need := new(types.Need)
	if err := c.Do(ctx, SchoolNeedEndpoint(id), nil, need); err != nil {
		return nil, err
	}
	return need, nil
}

func (c *Client) CreateNeed(ctx context.Context, input *types.NeedInput) (*types.Need, error) {
	need := new(types.Need)
	opts := &RequestOptions{Method: http.MethodPost, Body: input}
	if err := c.Do(ctx, SchoolNeedsEndpoint(), opts, need); err != nil {
		return nil, err
	}
	return need, nil
}

func (c *Client) UpdateNeed(ctx context.Context, id string, input *types.NeedInput) (*types.Need, error) {
	need := new(types.Need)
	opts := &RequestOptions{Method: http.MethodPut, Body: input}
	if err := c.Do(ctx, SchoolNeedEndpoint(id), opts, need); err != nil {
		return nil, err
	}
	return need, nil
}

func (c *Client) DeleteNeed(ctx context.Context, id string) error {
	return c.Do(ctx, SchoolNeedEndpoint(id), &RequestOptions{Method: http.MethodDelete}, nil)
}

func (c *Client) CompanyNeeds(ctx context.Context) ([]types.Need, error) {
	return c.needList(ctx, Endpoint{Kind: KindCompanyNeeds})
}

func (c *Client) MyNeeds(ctx context.Context) ([]types.Need, error) {
	return c.needList(ctx, Endpoint{Kind: KindMyNeeds})
}

func (c *Client) AIRecommendedNeeds(ctx context.Context) ([]types.Need, error) {
	return c.needList(ctx, Endpoint{Kind: KindAIRecommendedNeeds})
}

func (c *Client) CompanyAIRecommendedNeeds(ctx context.Context) ([]types.Need, error) {
	return c.needList(ctx, Endpoint{Kind: KindCompanyAIRecommendedNeeds})
}

func (c *Client) needList(ctx context.Context, endpoint Endpoint) ([]types.Need, error) {
	var needs []types.Need
	if err := c.Do(ctx, endpoint, nil, &needs); err != nil {
		return nil, err
	}
	return needs, nil
}

// SponsorNeed records the calling company's commitment against a need.
func (c *Client) SponsorNeed(ctx context.Context, needID string, req *types.SponsorRequest) (*types.Donation, error) {
	donation := new(types.Donation)
	opts := &RequestOptions{Method: http.MethodPost, Body: req}
	if err := c.Do(ctx, SponsorNeedEndpoint(needID), opts, donation); err != nil {
		return nil, err
	}
	return donation, nil
}

func (c *Client) CompanyDonations(ctx context.Context) ([]types.Donation, error) {
	var donations []types.Donation
	if err := c.Do(ctx, Endpoint{Kind: KindCompanyDonations}, nil, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}
