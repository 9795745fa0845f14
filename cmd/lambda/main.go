// Lambda entrypoint. API Gateway / Function URL events are bridged to the
// stateless HTTP handler through the aws-lambda-go-api-proxy adapter.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/poad/aws-lambda-mcp-server/internal/app"
	"github.com/poad/aws-lambda-mcp-server/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.load.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	h, err := app.NewHandler(cfg, log)
	if err != nil {
		log.Error("handler.init.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}

	lambda.Start(httpadapter.NewV2(h).ProxyWithContext)
}
