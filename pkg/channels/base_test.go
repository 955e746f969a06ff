package channels

import (
	"context"
	"strings"
	"testing"

	"github.com/aika-bot/aika/pkg/bus"
)

func TestIsAllowed(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	open := NewBaseChannel("test", mb, nil)
	if !open.IsAllowed("anyone") {
		t.Fatal("empty allowlist must allow everyone")
	}

	restricted := NewBaseChannel("test", mb, []string{"12345", "@hana"})
	cases := []struct {
		sender string
		want   bool
	}{
		{"12345", true},
		{"12345|hana", true},
		{"99999|hana", true},
		{"99999", false},
		{"99999|other", false},
	}
	for _, tc := range cases {
		if got := restricted.IsAllowed(tc.sender); got != tc.want {
			t.Fatalf("IsAllowed(%q) = %v, want %v", tc.sender, got, tc.want)
		}
	}
}

func TestHandleMessagePublishesWithID(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	c := NewBaseChannel("test", mb, nil)
	c.HandleMessage("u1", "chat1", "こんにちは", map[string]string{"k": "v"})

	msg, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected an inbound message")
	}
	if msg.ID == "" {
		t.Fatal("message id not assigned")
	}
	if msg.Channel != "test" || msg.SenderID != "u1" || msg.ChatID != "chat1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestHandleMessageDropsDisallowedSender(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	c := NewBaseChannel("test", mb, []string{"12345"})
	c.HandleMessage("other", "chat1", "hi", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatal("disallowed sender's message reached the bus")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 1500); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short message split = %v", got)
	}

	long := strings.Repeat("line one\n", 400)
	chunks := splitMessage(long, 1500)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1500 {
			t.Fatalf("chunk %d exceeds limit: %d", i, len(chunk))
		}
	}
}
