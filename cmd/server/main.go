// Local development entrypoint serving the same handler over plain net/http.
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/poad/aws-lambda-mcp-server/internal/app"
	"github.com/poad/aws-lambda-mcp-server/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.load.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	h, err := app.NewHandler(cfg, log)
	if err != nil {
		log.Error("handler.init.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("server.listen", slog.String("addr", cfg.Addr), slog.String("path", cfg.EndpointPath))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
