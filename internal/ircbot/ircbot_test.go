package ircbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lrstanley/girc"

	"feedrelay/internal/command"
)

type call struct {
	Kind, Target, Text string
}

type mockCommander struct {
	mu    sync.Mutex
	calls []call
}

func (m *mockCommander) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockCommander) Notice(target, message string)  { m.record(call{"NOTICE", target, message}) }
func (m *mockCommander) Message(target, message string) { m.record(call{"PRIVMSG", target, message}) }
func (m *mockCommander) Join(channels ...string) {
	for _, ch := range channels {
		m.record(call{"JOIN", ch, ""})
	}
}

func (m *mockCommander) Kick(channel, user, reason string) {
	m.record(call{"KICK", channel + " " + user, reason})
}

type dispatched struct {
	Identity string
	Text     string
	Cmd      command.Command
}

type mockDispatcher struct {
	calls []dispatched
}

func (m *mockDispatcher) HandleText(_ context.Context, identity, text string) {
	m.calls = append(m.calls, dispatched{Identity: identity, Text: text})
}

func (m *mockDispatcher) Handle(_ context.Context, identity string, cmd command.Command) {
	m.calls = append(m.calls, dispatched{Identity: identity, Cmd: cmd})
}

func newTestBot(connected bool) (*Bot, *mockCommander) {
	cmd := &mockCommander{}
	return &Bot{
		cmd:       cmd,
		connected: func() bool { return connected },
		nick:      "FeedServer",
		channel:   "#feed",
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, cmd
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []dispatched
	}{
		{
			name: "private message is a command",
			raw:  ":alice!a@host PRIVMSG FeedServer :LOGIN s3cret",
			want: []dispatched{{Identity: "alice", Text: "LOGIN s3cret"}},
		},
		{
			name: "private message keeps spacing for the parser",
			raw:  ":alice!a@host PRIVMSG FeedServer :IGNORE ^Fixed:  .*",
			want: []dispatched{{Identity: "alice", Text: "IGNORE ^Fixed:  .*"}},
		},
		{
			name: "channel chatter is ignored",
			raw:  ":alice!a@host PRIVMSG #feed :LOGIN s3cret",
		},
		{
			name: "ctcp is ignored",
			raw:  ":alice!a@host PRIVMSG FeedServer :\x01VERSION\x01",
		},
		{
			name: "join of feed channel",
			raw:  ":alice!a@host JOIN #feed",
			want: []dispatched{{Identity: "alice", Cmd: command.Join{}}},
		},
		{
			name: "join matches channel case-insensitively",
			raw:  ":alice!a@host JOIN #Feed",
			want: []dispatched{{Identity: "alice", Cmd: command.Join{}}},
		},
		{
			name: "join of another channel",
			raw:  ":alice!a@host JOIN #random",
		},
		{
			name: "part of feed channel",
			raw:  ":alice!a@host PART #feed :bye",
			want: []dispatched{{Identity: "alice", Cmd: command.Part{}}},
		},
		{
			name: "quit",
			raw:  ":alice!a@host QUIT :Client Quit",
			want: []dispatched{{Identity: "alice", Cmd: command.Quit{}}},
		},
		{
			name: "nick change ends the session of the old nick",
			raw:  ":alice!a@host NICK alice_away",
			want: []dispatched{{Identity: "alice", Cmd: command.Part{}}},
		},
		{
			name: "own events are ignored",
			raw:  ":FeedServer!f@host JOIN #feed",
		},
		{
			name: "server events are ignored",
			raw:  "PRIVMSG FeedServer :hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := girc.ParseEvent(tt.raw)
			if e == nil {
				t.Fatalf("parse %q", tt.raw)
			}
			b, _ := newTestBot(true)
			d := &mockDispatcher{}
			b.handleEvent(context.Background(), d, *e)
			if diff := cmp.Diff(tt.want, d.calls); diff != "" {
				t.Errorf("dispatch mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	b, cmd := newTestBot(true)

	if err := b.SendNotice(ctx, "alice", "Logged in!"); err != nil {
		t.Fatalf("notice: %v", err)
	}
	if err := b.SendChannelMessage(ctx, "alice", "Bob", "#feed", "https://x/MC-1 - resolved MC-1"); err != nil {
		t.Fatalf("message: %v", err)
	}
	if err := b.ForceLeave(ctx, "mallory", "Need to login to join #feed"); err != nil {
		t.Fatalf("kick: %v", err)
	}

	want := []call{
		{"NOTICE", "alice", "Logged in!"},
		{"PRIVMSG", "alice", "[#feed] <Bob> \x0307https://x/MC-1\x03 - resolved MC-1"},
		{"KICK", "#feed mallory", "Need to login to join #feed"},
	}
	if diff := cmp.Diff(want, cmd.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	ctx := context.Background()
	b, cmd := newTestBot(false)

	errs := []error{
		b.SendNotice(ctx, "alice", "x"),
		b.SendChannelMessage(ctx, "alice", "Bob", "#feed", "x"),
		b.ForceLeave(ctx, "alice", "x"),
	}
	for i, err := range errs {
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("call %d error = %v, want ErrNotConnected", i, err)
		}
	}
	if len(cmd.calls) != 0 {
		t.Errorf("unexpected calls: %+v", cmd.calls)
	}
}

func TestFormatDeliveryDoesNotInterpretTitle(t *testing.T) {
	got := FormatDelivery("#feed", "Bob", "https://x/MC-1 - set {b}bold{b}")
	want := "[#feed] <Bob> \x0307https://x/MC-1\x03 - set {b}bold{b}"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatDelivery() mismatch (-want +got):\n%s", diff)
	}
}
