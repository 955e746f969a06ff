package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/aika-bot/aika/pkg/bus"
	"github.com/aika-bot/aika/pkg/config"
	"github.com/aika-bot/aika/pkg/logger"
)

const (
	sendTimeout           = 10 * time.Second
	typingRefreshInterval = 8 * time.Second

	// Discord caps messages at 2000 characters; split early to keep a
	// margin for decoration.
	discordChunkLimit = 1500
)

// DiscordChannel connects the character to Discord DMs and servers.
type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session

	typingMu sync.Mutex
	typing   map[string]context.CancelFunc
}

func NewDiscordChannel(cfg config.DiscordConfig, messageBus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", messageBus, cfg.AllowFrom),
		session:     session,
		typing:      map[string]context.CancelFunc{},
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("get bot user: %w", err)
	}
	logger.InfoCF("discord", "discord connected", map[string]interface{}{
		"username": botUser.Username,
		"user_id":  botUser.ID,
	})
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	c.stopAllTyping()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// Send fakes typing for the requested duration, then delivers the text
// in Discord-sized chunks.
func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord channel not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("chat id is empty")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	if msg.TypingDuration > 0 {
		c.beginTyping(msg.ChatID)
		select {
		case <-time.After(msg.TypingDuration):
		case <-ctx.Done():
			c.endTyping(msg.ChatID)
			return ctx.Err()
		}
	}
	defer c.endTyping(msg.ChatID)

	for _, chunk := range splitMessage(msg.Content, discordChunkLimit) {
		if err := c.sendChunk(ctx, msg.ChatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage splits long text at natural boundaries, preferring a
// newline and falling back to a space near the limit.
func splitMessage(content string, limit int) []string {
	var messages []string
	for len(content) > 0 {
		if len(content) <= limit {
			messages = append(messages, content)
			break
		}

		end := lastIndexWithin(content[:limit], '\n', 200)
		if end <= 0 {
			end = lastIndexWithin(content[:limit], ' ', 100)
		}
		if end <= 0 {
			end = limit
		}

		messages = append(messages, content[:end])
		content = strings.TrimSpace(content[end:])
	}
	return messages
}

func lastIndexWithin(s string, b byte, window int) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	for i := len(s) - 1; i >= start; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

func (c *DiscordChannel) sendTypingIndicator(channelID string) {
	if err := c.session.ChannelTyping(channelID); err != nil {
		logger.WarnCF("discord", "typing indicator failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// beginTyping shows the typing indicator and keeps refreshing it until
// endTyping. Discord drops the indicator after about ten seconds.
func (c *DiscordChannel) beginTyping(channelID string) {
	c.typingMu.Lock()
	if _, ok := c.typing[channelID]; ok {
		c.typingMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.typing[channelID] = cancel
	c.typingMu.Unlock()

	c.sendTypingIndicator(channelID)

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.IsRunning() {
					return
				}
				c.sendTypingIndicator(channelID)
			}
		}
	}()
}

func (c *DiscordChannel) endTyping(channelID string) {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	if cancel, ok := c.typing[channelID]; ok {
		cancel()
		delete(c.typing, channelID)
	}
}

func (c *DiscordChannel) stopAllTyping() {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	for channelID, cancel := range c.typing {
		cancel()
		delete(c.typing, channelID)
	}
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil {
		return
	}
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if !c.IsAllowed(m.Author.ID) {
		logger.DebugCF("discord", "message rejected by allowlist", map[string]interface{}{
			"user_id": m.Author.ID,
		})
		return
	}
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	metadata := map[string]string{
		"message_id": m.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"channel_id": m.ChannelID,
		"is_dm":      fmt.Sprintf("%t", m.GuildID == ""),
	}

	c.HandleMessage(m.Author.ID, m.ChannelID, m.Content, metadata)
}
