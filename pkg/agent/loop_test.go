package agent

import (
	"context"
	"testing"
	"time"

	"github.com/aika-bot/aika/pkg/bus"
)

func TestLoopRepliesOnSameChat(t *testing.T) {
	gen, affectionSys, memorySys := newTestGenerator(t, &stubProvider{reply: "おかえり！"})

	mb := bus.NewMessageBus()
	defer mb.Close()

	loop := NewLoop(mb, gen, affectionSys, NewInitiative(affectionSys, memorySys.ShortTerm(), NewStyler(nil), nil), 180)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	mb.PublishInbound(bus.InboundMessage{
		ID:       "m1",
		Channel:  "discord",
		SenderID: "u1",
		ChatID:   "chat42",
		Content:  "ただいま！",
	})

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()
	out, ok := mb.ConsumeOutbound(recvCtx)
	if !ok {
		t.Fatal("no outbound reply")
	}
	if out.Channel != "discord" || out.ChatID != "chat42" {
		t.Fatalf("reply addressed to %s/%s, want discord/chat42", out.Channel, out.ChatID)
	}
	if out.Content == "" {
		t.Fatal("empty reply content")
	}
	if out.ID == "" {
		t.Fatal("outbound message id not assigned")
	}
	if out.Metadata["in_reply_to"] != "m1" {
		t.Fatalf("in_reply_to = %q, want m1", out.Metadata["in_reply_to"])
	}
	if out.TypingDuration <= 0 {
		t.Fatal("typing duration not set")
	}
}
