package types

import "time"

type DonationStatus string

const (
	DonationStatusPending    DonationStatus = "pending"
	DonationStatusInProgress DonationStatus = "in_progress"
	DonationStatusCompleted  DonationStatus = "completed"
	DonationStatusCancelled  DonationStatus = "cancelled"
)

func (s DonationStatus) Label() string {
	switch s {
	case DonationStatusPending:
		return "待處理"
	case DonationStatusInProgress:
		return "進行中"
	case DonationStatusCompleted:
		return "已完成"
	case DonationStatusCancelled:
		return "已取消"
	default:
		return string(s)
	}
}

// Donation is a company's commitment against a need. All transitions are
// server driven.
type Donation struct {
	ID           string         `json:"id"`
	NeedID       string         `json:"need_id"`
	DonorID      string         `json:"donor_id"`
	DonationType string         `json:"donation_type"`
	Description  string         `json:"description"`
	Progress     int            `json:"progress"`
	Status       DonationStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`

	Need  *Need  `json:"need,omitempty"`
	Donor *Donor `json:"donor,omitempty"`
}

type Donor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`
}
