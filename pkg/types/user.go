package types

type Role string

const (
	RoleSchool  Role = "school"
	RoleCompany Role = "company"
)

func (r Role) Valid() bool {
	return r == RoleSchool || r == RoleCompany
}

func (r Role) Label() string {
	switch r {
	case RoleSchool:
		return "學校"
	case RoleCompany:
		return "企業"
	default:
		return ""
	}
}

// Session is the authentication state mirrored into the session cookie.
type Session struct {
	Token           string `json:"authToken"`
	Role            Role   `json:"userRole"`
	IsDemo          bool   `json:"isDemo"`
	IsAuthenticated bool   `json:"-"`
}

type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type RegisterRequest struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"-" form:"confirm_password"`
	Name            string `json:"name" form:"name"`
	Role            Role   `json:"role" form:"role"`
	Organization    string `json:"organization,omitempty" form:"organization"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
