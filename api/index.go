// Package handler is the serverless entry point. The platform invokes Handler
// for every request; dependencies are built once per instance.
package handler

import (
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"

	"tuition-checkout/internal/app"
	"tuition-checkout/internal/common/config"
	"tuition-checkout/internal/common/logger"
)

var (
	initOnce sync.Once
	instance *app.App
	initErr  error
)

func setup() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	instance, initErr = app.New(cfg, zapLog)
	if initErr != nil {
		zapLog.Error("app init failed", zap.Error(initErr))
	}
}

// Handler serves every request routed to this function.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(setup)

	if initErr != nil {
		_, _ = os.Stderr.WriteString("tuition-checkout: initialization failed: " + initErr.Error() + "\n")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("An unexpected error occurred. Please try again later."))
		return
	}

	instance.Handler.ServeHTTP(w, r)
}
