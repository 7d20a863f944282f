package notify

import (
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned when a send is attempted before the bot connects.
var ErrNotBound = errors.New("notify: notifier not bound yet")

// Lazy is a Notifier whose backend is bound after construction. Components
// are wired before the Telegram session exists; the runtime binds the real
// notifier once the bot is up.
type Lazy struct {
	target atomic.Pointer[Notifier]
}

// NewLazy returns an unbound Lazy notifier.
func NewLazy() *Lazy {
	return &Lazy{}
}

// Bind installs the backend. Safe to call concurrently with sends.
func (l *Lazy) Bind(n Notifier) {
	l.target.Store(&n)
}

func (l *Lazy) get() (Notifier, error) {
	p := l.target.Load()
	if p == nil {
		return nil, ErrNotBound
	}
	return *p, nil
}

func (l *Lazy) ToApplicant(chatID int64, text string, markup *tele.ReplyMarkup) error {
	n, err := l.get()
	if err != nil {
		return err
	}
	return n.ToApplicant(chatID, text, markup)
}

func (l *Lazy) ToChannel(text string, markup *tele.ReplyMarkup) (int, error) {
	n, err := l.get()
	if err != nil {
		return 0, err
	}
	return n.ToChannel(text, markup)
}

func (l *Lazy) EditChannelMessage(messageID int, text string, markup *tele.ReplyMarkup) error {
	n, err := l.get()
	if err != nil {
		return err
	}
	return n.EditChannelMessage(messageID, text, markup)
}
