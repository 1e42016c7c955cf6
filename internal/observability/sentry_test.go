package observability

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
)

func TestScrubEvent_DropsCredentials(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		URL:         "https://api.example.com/projects",
		Cookies:     "accessToken=abc; refreshToken=def",
		QueryString: "token=abc",
		Headers: map[string]string{
			"Authorization": "Bearer abc",
			"Cookie":        "accessToken=abc",
			"User-Agent":    "test",
		},
	}}

	scrubbed := scrubEvent(event, nil)

	assert.Empty(t, scrubbed.Request.Cookies)
	assert.Empty(t, scrubbed.Request.QueryString)
	assert.Equal(t, map[string]string{"User-Agent": "test"}, scrubbed.Request.Headers)
}

func TestScrubEvent_WithoutRequest(t *testing.T) {
	event := &sentry.Event{Message: "boom"}
	assert.Same(t, event, scrubEvent(event, nil))
}
