package portfolio

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	KindProject     = "project"
	KindSkill       = "skill"
	KindCertificate = "certificate"
	KindExperience  = "experience"
)

var allowedURLChars = regexp.MustCompile(`^[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+$`)
var allowedHost = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// Meta is owned by the store. Values sent by clients are ignored.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) Metadata() *Meta { return m }

// Record is implemented by pointers to the portfolio record types.
type Record interface {
	Metadata() *Meta
	Normalize()
	Validate() error
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(message string) error { return &ValidationError{Message: message} }

type Project struct {
	Meta
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Image        string   `json:"image"`
	Technologies []string `json:"technologies"`
	DemoLink     string   `json:"demoLink"`
	GithubLink   string   `json:"githubLink"`
}

func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Image = strings.TrimSpace(p.Image)
	p.DemoLink = strings.TrimSpace(p.DemoLink)
	p.GithubLink = strings.TrimSpace(p.GithubLink)
	p.Technologies = compact(p.Technologies)
}

func (p *Project) Validate() error {
	if p.Title == "" || p.Description == "" || p.Image == "" || len(p.Technologies) == 0 || p.DemoLink == "" || p.GithubLink == "" {
		return invalid("Title, description, image, technologies, demo link, and GitHub link are required")
	}
	if err := checkText("title", p.Title, 150); err != nil {
		return err
	}
	if err := checkText("description", p.Description, 2000); err != nil {
		return err
	}
	if err := checkLink("image", p.Image); err != nil {
		return err
	}
	if err := checkLink("demoLink", p.DemoLink); err != nil {
		return err
	}
	return checkLink("githubLink", p.GithubLink)
}

type Skill struct {
	Meta
	Category string   `json:"category"`
	Icon     string   `json:"icon"`
	Items    []string `json:"items"`
}

func (s *Skill) Normalize() {
	s.Category = strings.TrimSpace(s.Category)
	s.Icon = strings.TrimSpace(s.Icon)
	s.Items = compact(s.Items)
}

func (s *Skill) Validate() error {
	if s.Category == "" || s.Icon == "" || len(s.Items) == 0 {
		return invalid("Category, icon, and at least one item are required")
	}
	return checkText("category", s.Category, 100)
}

type Certificate struct {
	Meta
	Title         string     `json:"title"`
	Issuer        string     `json:"issuer"`
	IssueDate     time.Time  `json:"issueDate"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty"`
	CredentialID  string     `json:"credentialId,omitempty"`
	CredentialURL string     `json:"credentialUrl,omitempty"`
	ImageURL      string     `json:"imageUrl"`
	Skills        []string   `json:"skills,omitempty"`
	Description   string     `json:"description,omitempty"`
}

func (c *Certificate) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.Issuer = strings.TrimSpace(c.Issuer)
	c.CredentialID = strings.TrimSpace(c.CredentialID)
	c.CredentialURL = strings.TrimSpace(c.CredentialURL)
	c.ImageURL = strings.TrimSpace(c.ImageURL)
	c.Description = strings.TrimSpace(c.Description)
	c.Skills = compact(c.Skills)
}

func (c *Certificate) Validate() error {
	if c.Title == "" || c.Issuer == "" || c.IssueDate.IsZero() || c.ImageURL == "" {
		return invalid("Title, issuer, issue date, and image URL are required")
	}
	if c.ExpiryDate != nil && c.ExpiryDate.Before(c.IssueDate) {
		return invalid("expiry date must not be before issue date")
	}
	if err := checkLink("imageUrl", c.ImageURL); err != nil {
		return err
	}
	if c.CredentialURL != "" {
		return checkLink("credentialUrl", c.CredentialURL)
	}
	return nil
}

type Experience struct {
	Meta
	Title            string     `json:"title"`
	Company          string     `json:"company"`
	Location         string     `json:"location,omitempty"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	Current          bool       `json:"current"`
	Description      string     `json:"description,omitempty"`
	Responsibilities []string   `json:"responsibilities,omitempty"`
	Technologies     []string   `json:"technologies,omitempty"`
	CompanyLogo      string     `json:"companyLogo,omitempty"`
	Achievements     []string   `json:"achievements,omitempty"`
}

func (e *Experience) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Company = strings.TrimSpace(e.Company)
	e.Location = strings.TrimSpace(e.Location)
	e.Description = strings.TrimSpace(e.Description)
	e.CompanyLogo = strings.TrimSpace(e.CompanyLogo)
	e.Responsibilities = compact(e.Responsibilities)
	e.Technologies = compact(e.Technologies)
	e.Achievements = compact(e.Achievements)
	if e.Current {
		e.EndDate = nil
	}
}

func (e *Experience) Validate() error {
	if e.Title == "" || e.Company == "" || e.StartDate.IsZero() {
		return invalid("Title, company, and start date are required")
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return invalid("end date must not be before start date")
	}
	if e.CompanyLogo != "" {
		return checkLink("companyLogo", e.CompanyLogo)
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func checkText(field, value string, maxLen int) error {
	if !utf8.ValidString(value) || utf8.RuneCountInString(value) > maxLen {
		return invalid(field + " is invalid")
	}
	return nil
}

// checkLink accepts absolute http(s) URLs only.
func checkLink(field, value string) error {
	if len(value) > 500 || !isASCII(value) || !allowedURLChars.MatchString(value) {
		return invalid(field + " contains invalid characters")
	}
	parsed, err := url.ParseRequestURI(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return invalid(field + " must be a valid link")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid(field + " must start with http or https")
	}
	if parsed.User != nil || !allowedHost.MatchString(parsed.Hostname()) {
		return invalid(field + " host is invalid")
	}
	return nil
}

func isASCII(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < 32 || value[i] > 126 {
			return false
		}
	}
	return true
}
