package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aika-bot/aika/pkg/affection"
	"github.com/aika-bot/aika/pkg/bus"
	"github.com/aika-bot/aika/pkg/logger"
)

const initiativeCheckInterval = 10 * time.Minute

type chatAddress struct {
	channel string
	chatID  string
}

// Loop consumes inbound messages, drives the generator and publishes
// replies. It also owns the unprompted-message ticker: the character
// can reach out to any chat she has seen this process lifetime.
type Loop struct {
	bus        *bus.MessageBus
	gen        *Generator
	affection  *affection.System
	initiative *Initiative

	initiativeMaxIntervalMinutes int

	mu        sync.Mutex
	lastChats map[string]chatAddress
}

func NewLoop(messageBus *bus.MessageBus, gen *Generator, affectionSys *affection.System, initiative *Initiative, initiativeMaxIntervalMinutes int) *Loop {
	return &Loop{
		bus:                          messageBus,
		gen:                          gen,
		affection:                    affectionSys,
		initiative:                   initiative,
		initiativeMaxIntervalMinutes: initiativeMaxIntervalMinutes,
		lastChats:                    map[string]chatAddress{},
	}
}

// Run processes inbound messages until the context ends.
func (l *Loop) Run(ctx context.Context) {
	logger.InfoCF("agent", "conversation loop started", nil)
	for {
		msg, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		l.handleInbound(ctx, msg)
	}
}

func (l *Loop) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	l.mu.Lock()
	l.lastChats[msg.SenderID] = chatAddress{channel: msg.Channel, chatID: msg.ChatID}
	l.mu.Unlock()

	responseTime := l.responseTimeSeconds(msg.SenderID)

	reply, err := l.gen.Respond(ctx, msg.SenderID, msg.Content, responseTime)
	if err != nil {
		logger.ErrorCF("agent", "respond failed", map[string]interface{}{
			"user_id": msg.SenderID,
			"error":   err.Error(),
		})
		return
	}

	typing := TypingParamsFor(reply.Text, l.affection.GetLevel(msg.SenderID), nil)

	l.bus.PublishOutbound(bus.OutboundMessage{
		ID:             uuid.NewString(),
		Channel:        msg.Channel,
		ChatID:         msg.ChatID,
		Content:        reply.Text,
		TypingDuration: typing.Duration,
		Metadata:       map[string]string{"in_reply_to": msg.ID},
	})

	logger.DebugCF("agent", "reply published", map[string]interface{}{
		"user_id": msg.SenderID,
		"score":   reply.Score,
	})
}

// responseTimeSeconds measures how quickly the user came back. First
// contact counts as no measurement.
func (l *Loop) responseTimeSeconds(userID string) float64 {
	state := l.affection.GetState(userID)
	if state.InteractionCount == 0 {
		return 0
	}
	return time.Since(state.LastInteraction).Seconds()
}

// RunInitiative periodically lets the character reach out to known
// chats. Runs until the context ends.
func (l *Loop) RunInitiative(ctx context.Context) {
	if l.initiative == nil {
		return
	}
	ticker := time.NewTicker(initiativeCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.initiativeSweep()
		}
	}
}

func (l *Loop) initiativeSweep() {
	l.mu.Lock()
	chats := make(map[string]chatAddress, len(l.lastChats))
	for userID, addr := range l.lastChats {
		chats[userID] = addr
	}
	l.mu.Unlock()

	for userID, addr := range chats {
		if !l.initiative.ShouldInitiate(userID, l.initiativeMaxIntervalMinutes) {
			continue
		}
		message := l.initiative.Generate(userID)
		if message == "" {
			continue
		}
		typing := TypingParamsFor(message, l.affection.GetLevel(userID), nil)
		l.bus.PublishOutbound(bus.OutboundMessage{
			ID:             uuid.NewString(),
			Channel:        addr.channel,
			ChatID:         addr.chatID,
			Content:        message,
			TypingDuration: typing.Duration,
		})
		logger.InfoCF("agent", "initiative message sent", map[string]interface{}{
			"user_id": userID,
		})
	}
}
