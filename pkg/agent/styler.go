package agent

import (
	"math/rand"
	"strings"

	"github.com/aika-bot/aika/pkg/affection"
)

var (
	stylerParticles = []string{"ね", "よ", "わ", "かしら", "の", "～"}
	stylerEmojis    = []string{"😊", "🥰", "😉", "🤗", "😌", "✨", "💕", "🌸", "😘", "💖"}
	stylerKaomojis  = []string{
		"(｡♥‿♥｡)", "(◕‿◕✿)", "(｡◕‿◕｡)", "(◠‿◠✿)",
		"(◕‿◕)", "(｡･ω･｡)", "(◍•ᴗ•◍)", "(｡♥‿♥｡)",
	}
)

// Styler decorates generated text with particles, emoji and kaomoji.
// Decoration probability scales with the affection band.
type Styler struct {
	rng *rand.Rand
}

// NewStyler builds a styler around the given source. A nil rng falls
// back to the global source.
func NewStyler(rng *rand.Rand) *Styler {
	return &Styler{rng: rng}
}

func (s *Styler) float() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

func (s *Styler) intn(n int) int {
	if s.rng != nil {
		return s.rng.Intn(n)
	}
	return rand.Intn(n)
}

func (s *Styler) pick(options []string) string {
	return options[s.intn(len(options))]
}

// Apply styles text for the user's current affection band. Higher
// bands get warmer decoration.
func (s *Styler) Apply(text string, lvl affection.Level) string {
	switch {
	case levelAtLeast(lvl, "Crush"):
		text = s.addParticles(text, 0.5)
		text = s.addEmojis(text, 0.6)
		text = s.addKaomoji(text, 0.15)
	case levelAtLeast(lvl, "Friend"):
		text = s.addParticles(text, 0.3)
		text = s.addEmojis(text, 0.4)
	default:
		text = s.addParticles(text, 0.15)
		text = s.addEmojis(text, 0.2)
	}
	return text
}

func (s *Styler) addParticles(text string, frequency float64) string {
	if s.float() > frequency {
		return text
	}

	sentences := strings.Split(text, "。")
	result := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		trimmed := strings.TrimSpace(sent)
		if trimmed != "" && s.float() < 0.4 && !endsWithParticle(trimmed) {
			sent = trimmed + s.pick(stylerParticles)
		}
		result = append(result, sent)
	}
	return strings.Join(result, "。")
}

func endsWithParticle(sent string) bool {
	for _, particle := range stylerParticles {
		if strings.HasSuffix(sent, particle) {
			return true
		}
	}
	return false
}

func (s *Styler) addEmojis(text string, frequency float64) string {
	if s.float() > frequency {
		return text
	}

	emoji := s.pick(stylerEmojis)
	if s.float() < 0.5 {
		return text + emoji
	}
	sentences := strings.Split(text, "。")
	if len(sentences) > 1 {
		pos := s.intn(len(sentences) - 1)
		sentences[pos] += emoji
		return strings.Join(sentences, "。")
	}
	return text + emoji
}

func (s *Styler) addKaomoji(text string, frequency float64) string {
	if s.float() > frequency {
		return text
	}
	return text + s.pick(stylerKaomojis)
}

// levelAtLeast reports whether lvl sits at or above the named band.
func levelAtLeast(lvl affection.Level, name string) bool {
	for _, candidate := range affection.Levels() {
		if candidate.Name == name {
			return lvl.Min >= candidate.Min
		}
	}
	return false
}
