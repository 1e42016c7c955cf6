package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCertificateValidate(t *testing.T) {
	issued := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	before := issued.AddDate(0, -1, 0)

	c := &Certificate{Title: "CKA", Issuer: "CNCF", IssueDate: issued, ImageURL: "https://img.example.com/c.png"}
	assert.NoError(t, c.Validate())

	c.ExpiryDate = &before
	assert.EqualError(t, c.Validate(), "expiry date must not be before issue date")

	c.ExpiryDate = nil
	c.CredentialURL = "ftp://example.com/x"
	assert.EqualError(t, c.Validate(), "credentialUrl must start with http or https")

	missing := &Certificate{Title: "CKA"}
	assert.EqualError(t, missing.Validate(), "Title, issuer, issue date, and image URL are required")
}

func TestExperienceNormalizeAndValidate(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	e := &Experience{Title: " Engineer ", Company: "Acme", StartDate: start, EndDate: &end, Current: true}
	e.Normalize()
	assert.Equal(t, "Engineer", e.Title)
	assert.Nil(t, e.EndDate, "current roles have no end date")
	assert.NoError(t, e.Validate())

	assert.EqualError(t, (&Experience{Title: "x"}).Validate(), "Title, company, and start date are required")
}

func TestSkillValidate(t *testing.T) {
	s := &Skill{Category: "Backend", Icon: "FaServer", Items: []string{" ", ""}}
	s.Normalize()
	assert.Error(t, s.Validate())

	s.Items = []string{"Go"}
	assert.NoError(t, s.Validate())
}

func TestCheckLink(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/a.png":     true,
		"http://sub.example.com/x?y=1":  true,
		"https://user:pw@example.com/x": false,
		"example.com/x":                 false,
		"https://exa mple.com":          false,
		"mailto:me@example.com":         false,
	}
	for link, ok := range cases {
		err := checkLink("link", link)
		if ok {
			assert.NoError(t, err, link)
		} else {
			assert.Error(t, err, link)
		}
	}
}
