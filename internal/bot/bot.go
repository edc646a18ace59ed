// Package bot implements the Telegram chat transport.
//
// Private messages to the bot are commands. Users joining or leaving the
// configured feed group produce JOIN and PART events. Notices and feed
// deliveries are sent as direct messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"feedrelay/internal/command"
)

// ErrUnknownIdentity is returned when the bot has never seen the user it should message.
var ErrUnknownIdentity = errors.New("unknown identity")

// sendInterval keeps the bot under Telegram's ~20 messages/sec limit.
const sendInterval = 50 * time.Millisecond

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram transport.
type Bot struct {
	api     telegramAPI
	self    string
	groupID int64
	limiter *rate.Limiter
	log     *slog.Logger

	mu    sync.RWMutex
	users map[string]int64
}

// New creates a Bot with the given Telegram token. Membership events of
// the group groupID drive JOIN and PART; zero disables them.
func New(token string, groupID int64, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, api.Self.UserName, groupID, log), nil
}

func newBot(api telegramAPI, self string, groupID int64, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		self:    self,
		groupID: groupID,
		limiter: rate.NewLimiter(rate.Every(sendInterval), 1),
		log:     log,
		users:   make(map[string]int64),
	}
}

// Self returns the bot's own identity.
func (b *Bot) Self() string {
	return b.self
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, d command.Dispatcher) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, d, update.Message)
		}
	}
}

// SendNotice sends text to identity as a direct message.
func (b *Bot) SendNotice(ctx context.Context, identity, text string) error {
	return b.send(ctx, identity, text)
}

// SendChannelMessage delivers a feed line for channel to recipient.
func (b *Bot) SendChannelMessage(ctx context.Context, recipient, author, channel, text string) error {
	return b.send(ctx, recipient, FormatDelivery(channel, author, text))
}

// ForceLeave removes identity from the feed group. The user is banned and
// immediately unbanned so they can come back after logging in.
func (b *Bot) ForceLeave(ctx context.Context, identity, _ string) error {
	if b.groupID == 0 {
		return nil
	}
	userID, ok := b.lookup(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, identity)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	member := tgbotapi.ChatMemberConfig{ChatID: b.groupID, UserID: userID}
	if _, err := b.api.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("ban chat member: %w", err)
	}
	if _, err := b.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		return fmt.Errorf("unban chat member: %w", err)
	}
	return nil
}

func (b *Bot) send(ctx context.Context, identity, text string) error {
	chatID, ok := b.lookup(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, identity)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// remember records the chat id of u and returns its identity.
// For Telegram users the private chat id equals the user id.
func (b *Bot) remember(u *tgbotapi.User) string {
	id := identityOf(u)
	b.mu.Lock()
	b.users[id] = u.ID
	b.mu.Unlock()
	return id
}

func (b *Bot) lookup(identity string) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.users[identity]
	return id, ok
}

// identityOf returns the username of u, or its numeric id when it has none.
func identityOf(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strconv.FormatInt(u.ID, 10)
}
