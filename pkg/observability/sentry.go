package observability

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/pkg/config"
)

// InitSentry configures the global Sentry client. An empty DSN disables reporting.
// The returned func flushes buffered events and must run before exit.
func InitSentry(cfg config.SentryConfig, env string) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		Release:     cfg.Release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports err when non-nil.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// GinMiddleware attaches a request-scoped hub, recovers panics into Sentry and
// reports errors recorded on 5xx responses.
func GinMiddleware() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		sentrygin.New(sentrygin.Options{Repanic: true}),
		func(c *gin.Context) {
			c.Next()
			if c.Writer.Status() < http.StatusInternalServerError || len(c.Errors) == 0 {
				return
			}
			hub := sentrygin.GetHubFromContext(c)
			if hub == nil {
				hub = sentry.CurrentHub()
			}
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("route", c.FullPath())
				scope.SetTag("status", http.StatusText(c.Writer.Status()))
				for _, ginErr := range c.Errors {
					hub.CaptureException(ginErr.Err)
				}
			})
		},
	}
}
