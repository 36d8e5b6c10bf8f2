package types

type ImpactStory struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SchoolName  string  `json:"school_name"`
	CompanyName string  `json:"company_name"`
	ImageURL    string  `json:"image_url"`
	Summary     string  `json:"summary"`
	Date        string  `json:"date"`
	Impact      *Impact `json:"impact,omitempty"`
}

type Impact struct {
	StudentsBenefited int    `json:"students_benefited"`
	Equipment         string `json:"equipment"`
	Duration          string `json:"duration"`
}
