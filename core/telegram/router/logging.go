package router

import (
	"strings"
	"time"

	"regbot/core/logger"
	tghelpers "regbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn(c)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	logHandlerSummary(c, handlerName, start, status, err)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, status string, err error) {
	ctx := tghelpers.WithHandler(c, handlerName)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
