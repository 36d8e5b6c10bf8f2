package types

import "time"

type PlatformStats struct {
	SchoolsServed     int `json:"schools_served"`
	CompaniesJoined   int `json:"companies_joined"`
	NeedsFulfilled    int `json:"needs_fulfilled"`
	StudentsBenefited int `json:"students_benefited"`
}

type SchoolDashboardStats struct {
	TotalNeeds        int `json:"total_needs"`
	ActiveNeeds       int `json:"active_needs"`
	CompletedNeeds    int `json:"completed_needs"`
	StudentsBenefited int `json:"students_benefited"`
}

type CompanyDashboardStats struct {
	TotalDonations    int `json:"total_donations"`
	ActiveProjects    int `json:"active_projects"`
	CompletedProjects int `json:"completed_projects"`
	StudentsReached   int `json:"students_reached"`
}

type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	SchoolName  string `json:"school_name"`
	CompanyName string `json:"company_name"`
	ImageURL    string `json:"image_url"`
	Progress    int    `json:"progress"`
	Status      string `json:"status"`
}

type School struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	County       string `json:"county"`
	District     string `json:"district"`
	StudentCount int    `json:"student_count"`
	IsRemote     bool   `json:"is_remote"`
}

// Row is one record of a data explorer dataset. Values are whatever the
// backend returned; no coercion is applied.
type Row map[string]any
