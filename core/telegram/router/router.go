package router

import (
	"strings"
	"time"

	tg "regbot/core/telegram"
	"regbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for a conversation flow manager.
type FSM interface {
	InProgress(chatID int64) bool
	HandleText(c tele.Context) error
}

// TextOptions controls fallback behaviour for private text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the private-chat text route. Recognized commands and
// keyboard keywords win over an in-progress conversation so that commands
// like the status check stay reachable mid-flow.
func TextRoutes(flow FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		chat := c.Chat()
		if chat == nil || chat.Type != tele.ChatPrivate {
			return nil
		}
		text := strings.TrimSpace(c.Text())

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, cmd.Handler)
			}
		}

		if flow != nil && flow.InProgress(chat.ID) {
			return handleWithSummary(c, "flow", start, flow.HandleText)
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, fb)
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, opts.UnknownText)
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}

// ChannelRoute wires a handler for posts inside the moderation channel.
func ChannelRoute(handler tele.HandlerFunc) tg.Route {
	wrapped := func(c tele.Context) error {
		start := time.Now()
		return handleWithSummary(c, "channel_post", start, handler)
	}
	return tg.Route{
		Endpoint: tele.OnChannelPost,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(wrapped)),
	}
}

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := parseCallback(c.Callback())
		name := "callback." + normalizeHandlerName(key)

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			if fallback == nil {
				_ = c.Respond()
				return nil
			}
			return handleWithSummary(c, name, start, fallback)
		}

		return handleWithSummary(c, name, start, cbHandler)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

func parseCallback(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	raw = strings.TrimPrefix(raw, "\\f")
	parts := strings.SplitN(raw, "|", 2)
	key := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return key, payload
}
