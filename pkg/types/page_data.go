package types

type NavbarData struct {
	IsAuthenticated bool
	Role            Role
	RoleLabel       string
	IsDemo          bool
	UserName        string
	Offline         bool
	CurrentPath     string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

type BasePageData struct {
	Title  string
	Notice string
	Error  string
	Navbar NavbarData
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

type LoginPageData struct {
	BasePageData
	Email string
}

type RegisterPageData struct {
	BasePageData
	Email        string
	Name         string
	Organization string
	Role         Role
	FieldErrors  map[string]string
}

// NeedFormPageData backs both the create and edit need forms.
type NeedFormPageData struct {
	BasePageData
	Action      string
	IsEdit      bool
	NeedID      string
	Input       *NeedInput
	FieldErrors map[string]string
	Categories  []string
	Urgencies   []Urgency
	SDGOptions  []int
}

func (d *NeedFormPageData) HasSDG(goal int) bool {
	if d.Input == nil {
		return false
	}
	for _, g := range d.Input.SDGs {
		if g == goal {
			return true
		}
	}
	return false
}
