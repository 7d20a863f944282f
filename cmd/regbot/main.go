package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"regbot/bot"
	"regbot/core/config"
	"regbot/core/logger"
	tg "regbot/core/telegram"
	"regbot/core/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := bot.New(cfg)

	webErr := make(chan error, 1)
	go func() {
		engine := web.New(cfg, app.Webhook().Handler())
		webErr <- web.Run(ctx, cfg, engine)
	}()

	if err := tg.RunTelegram(ctx, app.RunOptions()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telegram: %w", err)
	}

	stop()
	if err := <-webErr; err != nil {
		logger.L.Error("web server stopped with error", slog.String("err", err.Error()))
	}
	logger.L.Info("shutdown complete", slog.String("event", "shutdown"))
	return nil
}
