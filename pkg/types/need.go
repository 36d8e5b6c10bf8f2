package types

import (
	"time"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// Need is a school-posted request for resources shown to potential sponsors.
type Need struct {
	ID           string     `json:"id"`
	SchoolID     string     `json:"school_id"`
	SchoolName   string     `json:"school_name,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Location     string     `json:"location"`
	StudentCount int        `json:"student_count"`
	ImageURL     string     `json:"image_url"`
	Urgency      Urgency    `json:"urgency"`
	SDGs         []int      `json:"sdgs"`
	Status       string     `json:"status,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NeedInput is the payload for creating or editing a need.
type NeedInput struct {
	Title        string  `json:"title" form:"title"`
	Description  string  `json:"description" form:"description"`
	Category     string  `json:"category" form:"category"`
	Urgency      Urgency `json:"urgency" form:"urgency"`
	StudentCount int     `json:"student_count" form:"studentCount"`
	Location     string  `json:"location" form:"location"`
	SDGs         []int   `json:"sdgs" form:"sdgs"`
	ImageURL     string  `json:"image_url" form:"image_url"`
}

func NeedInputFromNeed(n *Need) *NeedInput {
	return &NeedInput{
		Title:        n.Title,
		Description:  n.Description,
		Category:     n.Category,
		Urgency:      n.Urgency,
		StudentCount: n.StudentCount,
		Location:     n.Location,
		SDGs:         n.SDGs,
		ImageURL:     n.ImageURL,
	}
}

type SponsorRequest struct {
	DonationType string `json:"donation_type" form:"donation_type"`
	Description  string `json:"description" form:"description"`
}
