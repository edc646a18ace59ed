package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp/syntax"

	"feedrelay/internal/credentials"
	"feedrelay/internal/filter"
	"feedrelay/internal/keymutex"
	"feedrelay/internal/session"
)

// Replies sent to users.
const (
	ReplyRegistered      = "Registered! Please login"
	ReplyUserExists      = "User already exists!"
	ReplyLoggedIn        = "Logged in!"
	ReplyUserNotFound    = "User doesnt exists!"
	ReplyInvalidPassword = "Invalid Password!"
	ReplyIgnored         = "Ignored!"
	ReplyNotLoggedIn     = "Not logged in."
	ReplyNeedMoreParams  = "Need more parameters."
	ReplyPersistFailed   = "Could not save ignore list, try again later."
	ReplyLoginFailed     = "Login failed, try again later."
	ReplyRegisterFailed  = "Registration failed, try again later."
	replyUnknownFormat   = "I don't know what you mean by %s."
	replyInvalidPattern  = "Invalid pattern: %s"
	replyWelcomeFormat   = "Welcome to %s. You are logged in as %s"
	replyNeedLoginFormat = "Need to login to join %s"
)

// Dispatcher receives commands from a chat transport. Handler implements it.
type Dispatcher interface {
	HandleText(ctx context.Context, identity, text string)
	Handle(ctx context.Context, identity string, cmd Command)
}

// Replier delivers the handler's responses through the chat transport.
type Replier interface {
	SendNotice(ctx context.Context, identity, text string) error
	ForceLeave(ctx context.Context, identity, reason string) error
}

// Credentials verifies and creates accounts.
type Credentials interface {
	Register(ctx context.Context, identity, password string) error
	Verify(ctx context.Context, identity, password string) error
}

// Sessions is the part of the session store the handler drives.
type Sessions interface {
	Login(ctx context.Context, identity string) error
	Logout(identity string)
	IsLoggedIn(identity string) bool
	AddIgnorePattern(ctx context.Context, identity, pattern string) error
}

// Handler applies commands to the session and credential stores and replies
// through the transport. Commands from the same identity are handled one at a time.
type Handler struct {
	creds    Credentials
	sessions Sessions
	replier  Replier
	self     string
	channel  string
	log      *slog.Logger

	perUser keymutex.Mutex
}

// NewHandler creates a Handler. self is the bot's own identity, whose JOIN
// events are ignored; channel is the feed channel named in JOIN replies.
func NewHandler(creds Credentials, sessions Sessions, replier Replier, self, channel string, log *slog.Logger) *Handler {
	return &Handler{
		creds:    creds,
		sessions: sessions,
		replier:  replier,
		self:     self,
		channel:  channel,
		log:      log,
	}
}

// HandleText parses a private message from identity and handles it.
func (h *Handler) HandleText(ctx context.Context, identity, text string) {
	cmd, err := Parse(text)
	if err != nil {
		h.notice(ctx, identity, ReplyNeedMoreParams)
		return
	}
	h.Handle(ctx, identity, cmd)
}

// Handle applies cmd on behalf of identity.
func (h *Handler) Handle(ctx context.Context, identity string, cmd Command) {
	unlock := h.perUser.Lock(identity)
	defer unlock()

	switch c := cmd.(type) {
	case Register:
		h.register(ctx, identity, c.Password)
	case Login:
		h.login(ctx, identity, c.Password)
	case Ignore:
		h.ignore(ctx, identity, c.Pattern)
	case Join:
		h.join(ctx, identity)
	case Quit, Part:
		h.sessions.Logout(identity)
	case Unknown:
		h.notice(ctx, identity, fmt.Sprintf(replyUnknownFormat, c.Raw))
	default:
		panic(fmt.Sprintf("command: unhandled %T", cmd))
	}
}

func (h *Handler) register(ctx context.Context, identity, password string) {
	err := h.creds.Register(ctx, identity, password)
	switch {
	case errors.Is(err, credentials.ErrExists):
		h.notice(ctx, identity, ReplyUserExists)
	case err != nil:
		h.log.Error("register", "identity", identity, "error", err)
		h.notice(ctx, identity, ReplyRegisterFailed)
	default:
		h.log.Info("user registered", "identity", identity)
		h.notice(ctx, identity, ReplyRegistered)
	}
}

func (h *Handler) login(ctx context.Context, identity, password string) {
	err := h.creds.Verify(ctx, identity, password)
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		h.notice(ctx, identity, ReplyUserNotFound)
		return
	case errors.Is(err, credentials.ErrMismatch):
		h.log.Info("invalid password", "identity", identity)
		h.notice(ctx, identity, ReplyInvalidPassword)
		return
	case err != nil:
		h.log.Error("verify credentials", "identity", identity, "error", err)
		h.notice(ctx, identity, ReplyLoginFailed)
		return
	}

	if err := h.sessions.Login(ctx, identity); err != nil {
		h.log.Error("login", "identity", identity, "error", err)
		h.notice(ctx, identity, ReplyLoginFailed)
		return
	}
	h.notice(ctx, identity, ReplyLoggedIn)
}

func (h *Handler) ignore(ctx context.Context, identity, pattern string) {
	if !h.sessions.IsLoggedIn(identity) {
		h.notice(ctx, identity, ReplyNotLoggedIn)
		return
	}

	err := h.sessions.AddIgnorePattern(ctx, identity, pattern)
	switch {
	case err == nil:
		h.notice(ctx, identity, ReplyIgnored)
	case errors.Is(err, session.ErrNotLoggedIn):
		h.notice(ctx, identity, ReplyNotLoggedIn)
	case errors.Is(err, filter.ErrInvalidPattern):
		h.notice(ctx, identity, fmt.Sprintf(replyInvalidPattern, patternReason(err)))
	default:
		h.log.Error("add ignore pattern", "identity", identity, "error", err)
		h.notice(ctx, identity, ReplyPersistFailed)
	}
}

func (h *Handler) join(ctx context.Context, identity string) {
	if identity == h.self {
		return
	}
	if h.sessions.IsLoggedIn(identity) {
		h.notice(ctx, identity, fmt.Sprintf(replyWelcomeFormat, h.channel, identity))
		return
	}

	reason := fmt.Sprintf(replyNeedLoginFormat, h.channel)
	if err := h.replier.ForceLeave(ctx, identity, reason); err != nil {
		h.log.Error("force leave", "identity", identity, "error", err)
	}
	h.notice(ctx, identity, reason)
}

func (h *Handler) notice(ctx context.Context, identity, text string) {
	if err := h.replier.SendNotice(ctx, identity, text); err != nil {
		h.log.Error("send notice", "identity", identity, "error", err)
	}
}

// patternReason extracts the regexp syntax problem from a compile error.
func patternReason(err error) string {
	var se *syntax.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return err.Error()
}
