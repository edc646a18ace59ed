package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedrelay/internal/command"
)

func (b *Bot) handleMessage(ctx context.Context, d command.Dispatcher, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}

	if b.groupID != 0 && msg.Chat.ID == b.groupID {
		b.handleGroupEvent(ctx, d, msg)
		return
	}
	if !msg.Chat.IsPrivate() || msg.From == nil || msg.From.IsBot {
		return
	}

	identity := b.remember(msg.From)
	text := commandText(msg)
	b.log.Debug("command", "identity", identity, "chat_id", msg.Chat.ID)

	if strings.EqualFold(text, "start") || strings.EqualFold(text, "help") {
		b.handleStart(ctx, identity)
		return
	}
	d.HandleText(ctx, identity, text)
}

func (b *Bot) handleGroupEvent(ctx context.Context, d command.Dispatcher, msg *tgbotapi.Message) {
	for i := range msg.NewChatMembers {
		u := &msg.NewChatMembers[i]
		if u.IsBot {
			continue
		}
		d.Handle(ctx, b.remember(u), command.Join{})
	}
	if u := msg.LeftChatMember; u != nil && !u.IsBot {
		d.Handle(ctx, b.remember(u), command.Part{})
	}
}

func (b *Bot) handleStart(ctx context.Context, identity string) {
	if err := b.SendNotice(ctx, identity, helpText); err != nil {
		b.log.Error("send help", "identity", identity, "error", err)
	}
}

// commandText turns "/login@feedbot pw" into "login pw". Plain text is
// passed through unchanged.
func commandText(msg *tgbotapi.Message) string {
	if !msg.IsCommand() {
		return strings.TrimSpace(msg.Text)
	}
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return msg.Command()
	}
	return msg.Command() + " " + args
}
