// Package ircbot implements the IRC chat transport on top of girc.
package ircbot

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrstanley/girc"

	"feedrelay/internal/command"
)

// ErrNotConnected is returned when a message is sent while the client is offline.
var ErrNotConnected = errors.New("not connected to irc server")

const reconnectDelay = 15 * time.Second

// commander is the subset of girc.Commands the bot sends with.
type commander interface {
	Notice(target, message string)
	Message(target, message string)
	Kick(channel, user, reason string)
	Join(channels ...string)
}

// Options configures the IRC connection.
type Options struct {
	Server  string
	Port    int
	TLS     bool
	Nick    string
	Channel string
}

// Bot is the IRC transport.
type Bot struct {
	client    *girc.Client
	cmd       commander
	connected func() bool
	nick      string
	channel   string
	log       *slog.Logger
}

// New creates a Bot. It does not connect until Run is called.
func New(opts Options, log *slog.Logger) *Bot {
	cfg := girc.Config{
		Server: opts.Server,
		Port:   opts.Port,
		Nick:   opts.Nick,
		User:   strings.ToLower(opts.Nick),
		Name:   "feed relay",
		SSL:    opts.TLS,
	}
	if opts.TLS {
		cfg.TLSConfig = &tls.Config{ServerName: opts.Server, MinVersion: tls.VersionTLS12}
	}
	client := girc.New(cfg)

	return &Bot{
		client:    client,
		cmd:       client.Cmd,
		connected: client.IsConnected,
		nick:      opts.Nick,
		channel:   opts.Channel,
		log:       log,
	}
}

// Self returns the bot's own nick.
func (b *Bot) Self() string {
	return b.nick
}

// Run connects to the server and dispatches events until ctx is cancelled.
// Lost connections are retried after a delay.
func (b *Bot) Run(ctx context.Context, d command.Dispatcher) {
	b.client.Handlers.Add(girc.CONNECTED, func(_ *girc.Client, _ girc.Event) {
		b.log.Info("connected to irc server", "channel", b.channel)
		b.cmd.Join(b.channel)
	})
	for _, ev := range []string{girc.PRIVMSG, girc.JOIN, girc.PART, girc.QUIT, girc.NICK} {
		b.client.Handlers.Add(ev, func(_ *girc.Client, e girc.Event) {
			b.handleEvent(ctx, d, e)
		})
	}

	go func() {
		<-ctx.Done()
		b.client.Close()
	}()

	for {
		err := b.client.Connect()
		if ctx.Err() != nil {
			return
		}
		b.log.Error("irc connection lost", "error", err, "retry_in", reconnectDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (b *Bot) handleEvent(ctx context.Context, d command.Dispatcher, e girc.Event) {
	if e.Source == nil || e.Source.Name == "" {
		return
	}
	nick := e.Source.Name
	if strings.EqualFold(nick, b.nick) {
		return
	}

	switch e.Command {
	case girc.PRIVMSG:
		if e.IsFromChannel() || strings.HasPrefix(e.Last(), "\x01") {
			return
		}
		d.HandleText(ctx, nick, e.Last())
	case girc.JOIN:
		if b.isFeedChannel(e) {
			d.Handle(ctx, nick, command.Join{})
		}
	case girc.PART:
		if b.isFeedChannel(e) {
			d.Handle(ctx, nick, command.Part{})
		}
	case girc.QUIT:
		d.Handle(ctx, nick, command.Quit{})
	case girc.NICK:
		// The session belongs to the old nick.
		d.Handle(ctx, nick, command.Part{})
	}
}

func (b *Bot) isFeedChannel(e girc.Event) bool {
	return len(e.Params) > 0 && strings.EqualFold(e.Params[0], b.channel)
}

// SendNotice sends text to identity as a NOTICE.
func (b *Bot) SendNotice(_ context.Context, identity, text string) error {
	if !b.connected() {
		return ErrNotConnected
	}
	b.cmd.Notice(identity, text)
	return nil
}

// SendChannelMessage delivers a feed line to recipient, link in orange.
func (b *Bot) SendChannelMessage(_ context.Context, recipient, author, channel, text string) error {
	if !b.connected() {
		return ErrNotConnected
	}
	b.cmd.Message(recipient, FormatDelivery(channel, author, text))
	return nil
}

// ForceLeave kicks identity from the feed channel.
func (b *Bot) ForceLeave(_ context.Context, identity, reason string) error {
	if !b.connected() {
		return ErrNotConnected
	}
	b.cmd.Kick(b.channel, identity, reason)
	return nil
}

// FormatDelivery renders "<link> - <title>" with the link colored orange.
// User supplied text is never passed through girc.Fmt.
func FormatDelivery(channel, author, text string) string {
	if link, title, ok := strings.Cut(text, " - "); ok {
		text = girc.Fmt("{orange}") + link + girc.Fmt("{c}") + " - " + title
	}
	return fmt.Sprintf("[%s] <%s> %s", channel, author, text)
}
