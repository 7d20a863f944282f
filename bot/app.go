// Package bot assembles the application: store, conversation flow,
// moderation, payment, and the Telegram routing that connects them.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"regbot/bot/applicant"
	"regbot/bot/member"
	"regbot/bot/moderation"
	"regbot/bot/notify"
	"regbot/bot/payment"
	"regbot/bot/registration"
	coreconfig "regbot/core/config"
	"regbot/core/logger"
	tg "regbot/core/telegram"
	"regbot/core/telegram/callbacks"
	"regbot/core/telegram/commands"
	tghelpers "regbot/core/telegram/helpers"
	"regbot/core/telegram/keyboard"
	"regbot/core/telegram/router"
)

// App owns every long-lived component. Components talk to Telegram through
// a lazily bound notifier, so the whole graph is built before the bot
// session exists.
type App struct {
	cfg      *coreconfig.Config
	store    applicant.Store
	notifier *notify.Lazy

	flow    *registration.Flow
	relay   *moderation.Relay
	decider *moderation.Decider
	orch    *payment.Orchestrator
	webhook *payment.Webhook
	member  *member.Area
}

// New builds the component graph from configuration.
func New(cfg *coreconfig.Config) *App {
	store := applicant.NewMemoryStore()
	notifier := notify.NewLazy()
	gateway := payment.NewChapaClient(cfg.Chapa.BaseURL, cfg.Chapa.SecretKey)

	relay := moderation.NewRelay(store, notifier)
	flow := registration.NewFlow(store, notifier, relay)
	decider := moderation.NewDecider(store, notifier, moderation.FeeSchedule{
		Currency:    cfg.Chapa.Currency,
		BaseFee:     cfg.Chapa.BaseFee,
		LateFee:     cfg.Chapa.LateFee,
		WindowHours: cfg.Chapa.WindowHours,
	})
	orch := payment.NewOrchestrator(store, notifier, gateway, payment.Config{
		Currency:    cfg.Chapa.Currency,
		BaseFee:     cfg.Chapa.BaseFee,
		LateFee:     cfg.Chapa.LateFee,
		Window:      time.Duration(cfg.Chapa.WindowHours) * time.Hour,
		CallbackURL: cfg.CallbackURL(),
		ReturnURL:   cfg.HTTP.PublicURL,
	})
	webhook := payment.NewWebhook(store, notifier, gateway, cfg.Chapa.Currency)

	return &App{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		flow:     flow,
		relay:    relay,
		decider:  decider,
		orch:     orch,
		webhook:  webhook,
		member:   member.New(store, notifier),
	}
}

// Webhook exposes the payment confirmation handler for the web server.
func (a *App) Webhook() *payment.Webhook { return a.webhook }

// Registry builds the command/callback registry for this deployment.
func (a *App) Registry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Description: "Start the bot",
		Handler:     a.private(a.flow.SendWelcome),
	})
	reg.RegisterCommand(registration.KeywordRegister, commands.Command{
		Handler: a.private(a.flow.StartRegistration),
	})
	reg.RegisterCommand(registration.KeywordCheckStatus, commands.Command{
		Handler: a.private(a.flow.SendStatus),
	})
	reg.RegisterCommand(registration.KeywordPay, commands.Command{
		Handler: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			return a.orch.HandleProceed(ctx, c.Chat().ID)
		},
	})
	reg.RegisterCommand(registration.KeywordDashboard, commands.Command{
		Handler: a.private(a.member.SendDashboard),
	})
	reg.RegisterCommand(registration.KeywordSupport, commands.Command{
		Handler: a.private(a.member.SendSupport),
	})
	reg.RegisterCommand(registration.KeywordFeatures, commands.Command{
		Handler: a.private(a.member.SendFeatures),
	})

	if err := reg.RegisterCallback(moderation.CallbackApprove, a.decision(moderation.ActionApprove)); err != nil {
		logger.L.Warn("callback registration failed", slog.String("err", err.Error()))
	}
	if err := reg.RegisterCallback(moderation.CallbackReject, a.decision(moderation.ActionReject)); err != nil {
		logger.L.Warn("callback registration failed", slog.String("err", err.Error()))
	}

	reg.SetTextFallback(a.unknownText)
	return reg
}

// private adapts a chat-scoped handler to a Telegram route.
func (a *App) private(fn func(chatID int64) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(c.Chat().ID)
	}
}

// decision adapts a moderator button press into a Decider call. The payload
// carries the applicant's chat id; the pressed message is the submission
// notice to rewrite.
func (a *App) decision(action moderation.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID, err := callbacks.PayloadInt64(c)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Malformed action payload"})
		}

		var notice moderation.Notice
		if msg := c.Callback().Message; msg != nil {
			notice = moderation.Notice{MessageID: msg.ID, Text: msg.Text}
		}

		toast := a.decider.Decide(action, chatID, moderatorFrom(c.Sender()), notice)
		return c.Respond(&tele.CallbackResponse{Text: toast})
	}
}

func moderatorFrom(u *tele.User) moderation.Moderator {
	if u == nil {
		return moderation.Moderator{Name: "Moderator"}
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = "Moderator"
	}
	return moderation.Moderator{ID: u.ID, Name: name}
}

// channelReply forwards moderator replies in the review channel back to the
// applicant the replied-to notice belongs to.
func (a *App) channelReply(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil {
		return nil
	}
	if chat := c.Chat(); chat == nil || chat.ID != a.cfg.Telegram.ChannelID {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	name := msg.Signature
	if u := c.Sender(); u != nil && name == "" {
		name = moderatorFrom(u).Name
	}
	if name == "" {
		name = "Moderator"
	}
	return a.relay.RelayReply(msg.ReplyTo.ID, text, name)
}

func (a *App) unknownText(c tele.Context) error {
	return tghelpers.SendMD(c,
		"🤔 I didn't catch that. Use the buttons below, or /start to begin.",
		keyboard.ReplyButtons([]string{registration.KeywordRegister, registration.KeywordCheckStatus}),
	)
}

type flowFSM struct{ flow *registration.Flow }

func (f flowFSM) InProgress(chatID int64) bool { return f.flow.InProgress(chatID) }
func (f flowFSM) HandleText(c tele.Context) error {
	return f.flow.HandleAnswer(c.Chat().ID, strings.TrimSpace(c.Text()))
}

// RunOptions assembles the full Telegram runtime configuration.
func (a *App) RunOptions() tg.RunOptions {
	reg := a.Registry()

	routes := router.TextRoutes(flowFSM{flow: a.flow}, reg, router.TextOptions{})
	routes = append(routes,
		router.ChannelRoute(a.channelReply),
		router.CallbackRoute(reg, router.CallbackOptions{}),
	)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, func(c tele.Context) error {
			return tghelpers.SendText(c, "⏳ Too many requests, give it a second.")
		}),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.notifier.Bind(notify.NewTelegram(rt.Bot, a.cfg.Telegram.ChannelID))
			logger.L.Info("bot ready",
				slog.String("event", "startup"),
				slog.Int64("channel_id", a.cfg.Telegram.ChannelID),
			)
			return nil
		},
	}
}
