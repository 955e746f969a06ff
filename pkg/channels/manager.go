package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aika-bot/aika/pkg/bus"
	"github.com/aika-bot/aika/pkg/config"
	"github.com/aika-bot/aika/pkg/logger"
)

// Manager owns the configured channels and moves outbound messages
// from the bus to them.
type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus

	mu       sync.RWMutex
	dispatch context.CancelFunc
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: map[string]Channel{},
		bus:      messageBus,
	}

	if strings.TrimSpace(cfg.Channels.Discord.Token) == "" {
		return nil, fmt.Errorf("channels.discord.token is required")
	}
	discord, err := NewDiscordChannel(cfg.Channels.Discord, messageBus)
	if err != nil {
		return nil, fmt.Errorf("initialize discord channel: %w", err)
	}
	m.channels["discord"] = discord

	return m, nil
}

// StartAll starts every channel and the outbound dispatcher. Any start
// failure stops the channels that already came up.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	channelsCopy := make(map[string]Channel, len(m.channels))
	for name, channel := range m.channels {
		channelsCopy[name] = channel
	}
	m.mu.RUnlock()

	started := []string{}
	for name, channel := range channelsCopy {
		if err := channel.Start(ctx); err != nil {
			for _, startedName := range started {
				_ = channelsCopy[startedName].Stop(ctx)
			}
			return fmt.Errorf("start channel %s: %w", name, err)
		}
		started = append(started, name)
		logger.InfoCF("channels", "channel started", map[string]interface{}{"channel": name})
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.dispatch != nil {
		m.dispatch()
	}
	m.dispatch = cancel
	m.mu.Unlock()

	go m.dispatchOutbound(dispatchCtx)
	return nil
}

// StopAll stops the dispatcher and every channel.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dispatch != nil {
		m.dispatch()
		m.dispatch = nil
	}

	for name, channel := range m.channels {
		if err := channel.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "error stopping channel", map[string]interface{}{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
}

// dispatchOutbound routes bus messages to their channel. Sends run in
// their own goroutines so one chat's typing delay never stalls
// another's.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.ConsumeOutbound(ctx)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		m.mu.RLock()
		channel, exists := m.channels[msg.Channel]
		m.mu.RUnlock()
		if !exists {
			logger.WarnCF("channels", "unknown channel for outbound message", map[string]interface{}{
				"channel": msg.Channel,
			})
			continue
		}

		go func(msg bus.OutboundMessage) {
			if err := channel.Send(ctx, msg); err != nil {
				logger.ErrorCF("channels", "send failed", map[string]interface{}{
					"channel": msg.Channel,
					"chat_id": msg.ChatID,
					"error":   err.Error(),
				})
			}
		}(msg)
	}
}

// Channel looks up a configured channel by name.
func (m *Manager) Channel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[name]
	return channel, ok
}

// Status reports the running state of every channel.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := map[string]bool{}
	for name, channel := range m.channels {
		status[name] = channel.IsRunning()
	}
	return status
}
