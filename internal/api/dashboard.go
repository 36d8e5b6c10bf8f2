package api

import (
	"context"

	"schoolbridge/pkg/types"
)

func (c *Client) PlatformStats(ctx context.Context) (*types.PlatformStats, error) {
	stats := new(types.PlatformStats)
	if err := c.Do(ctx, Endpoint{Kind: KindPlatformStats}, nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) SchoolDashboardStats(ctx context.Context) (*types.SchoolDashboardStats, error) {
	stats := new(types.SchoolDashboardStats)
	if err := c.Do(ctx, Endpoint{Kind: KindSchoolDashboardStats}, nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) CompanyDashboardStats(ctx context.Context) (*types.CompanyDashboardStats, error) {
	stats := new(types.CompanyDashboardStats)
	if err := c.Do(ctx, Endpoint{Kind: KindCompanyDashboardStats}, nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) RecentProjects(ctx context.Context) ([]types.Project, error) {
	var projects []types.Project
	if err := c.Do(ctx, Endpoint{Kind: KindRecentProjects}, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) ImpactStories(ctx context.Context) ([]types.ImpactStory, error) {
	var stories []types.ImpactStory
	if err := c.Do(ctx, Endpoint{Kind: KindImpactStories}, nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (c *Client) RecentActivity(ctx context.Context) ([]types.Activity, error) {
	var activity []types.Activity
	if err := c.Do(ctx, Endpoint{Kind: KindRecentActivity}, nil, &activity); err != nil {
		return nil, err
	}
	return activity, nil
}
