package api

import (
	"context"
	"net/http"

	"schoolbridge/pkg/types"
)

func (c *Client) SearchSchools(ctx context.Context, query string) ([]types.School, error) {
	var schools []types.School
	if err := c.Do(ctx, SchoolsEndpoint(query), nil, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

// Dataset loads one data explorer collection by its URL name.
func (c *Client) Dataset(ctx context.Context, name string) ([]types.Row, error) {
	endpoint, err := DatasetEndpoint(name)
	if err != nil {
		return nil, err
	}

	var rows []types.Row
	if err := c.Do(ctx, endpoint, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Statistics(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)
	if err := c.Do(ctx, Endpoint{Kind: KindDataStatistics}, nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) ExtractParameters(ctx context.Context, req *types.ExtractRequest) (*types.ExtractResponse, error) {
	resp := new(types.ExtractResponse)
	opts := &RequestOptions{Method: http.MethodPost, Body: req}
	if err := c.Do(ctx, Endpoint{Kind: KindExtractParameters}, opts, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Analyze(ctx context.Context, req *types.AnalyzeRequest) (*types.AnalyzeResponse, error) {
	resp := new(types.AnalyzeResponse)
	opts := &RequestOptions{Method: http.MethodPost, Body: req}
	if err := c.Do(ctx, Endpoint{Kind: KindAnalyze}, opts, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
