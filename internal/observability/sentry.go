package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
)

// InitSentry is a no-op without a DSN, so local runs need no Sentry project.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureRequestError reports err tagged with the request id and path.
func CaptureRequestError(r *http.Request, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		scope.SetTag("request_id", middleware.GetReqID(r.Context()))
		scope.SetTag("path", r.URL.Path)
		sentry.CaptureException(err)
	})
}

// scrubEvent drops session credentials from the attached request.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}

	event.Request.Cookies = ""
	for name := range event.Request.Headers {
		switch strings.ToLower(name) {
		case "authorization", "cookie", "set-cookie":
			delete(event.Request.Headers, name)
		}
	}
	if strings.Contains(event.Request.QueryString, "token=") {
		event.Request.QueryString = ""
	}
	return event
}
