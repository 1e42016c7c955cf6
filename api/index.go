package api

import (
	"context"
	"net/http"
	"sync"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/app"
	"portfolio-api/internal/config"
)

var (
	initOnce   sync.Once
	apiRuntime *app.Runtime
	initErr    error
)

// Handler is the serverless entry point. The runtime is built on the first
// request and reused by warm invocations.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		runMigrations := config.EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false)
		apiRuntime, initErr = app.Build(context.Background(), app.Options{
			LoadDotEnv:    false,
			RunMigrations: &runMigrations,
		})
	})

	if initErr != nil {
		apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "application bootstrap failed")
		return
	}

	apiRuntime.Handler.ServeHTTP(w, r)
}
