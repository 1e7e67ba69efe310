package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := bootstrap.LoadConfig(ctx, clog.Default())
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			app.Logger.Error("shutdown failed", clog.Error(err))
		}
	}()

	return app.Run(ctx)
}
