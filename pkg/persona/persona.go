package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// BasicInfo identifies the character.
type BasicInfo struct {
	Name       string `yaml:"name"`
	Age        int    `yaml:"age"`
	Birthday   string `yaml:"birthday,omitempty"`
	Zodiac     string `yaml:"zodiac,omitempty"`
	Location   string `yaml:"location,omitempty"`
	Occupation string `yaml:"occupation"`
}

// Personality carries the trait description used in the prompt.
type Personality struct {
	Traits      map[string]int `yaml:"traits,omitempty"`
	Description string         `yaml:"description"`
}

// SpeechStyle shapes how the character talks.
type SpeechStyle struct {
	Tone             string   `yaml:"tone"`
	Particles        []string `yaml:"particles"`
	Emojis           []string `yaml:"emojis,omitempty"`
	Habits           []string `yaml:"habits"`
	SentencePatterns []string `yaml:"sentence_patterns,omitempty"`
}

// Background is the character's backstory and tastes.
type Background struct {
	Story         string   `yaml:"story"`
	Hobbies       []string `yaml:"hobbies"`
	FavoriteFoods []string `yaml:"favorite_foods"`
	Dislikes      []string `yaml:"dislikes,omitempty"`
}

// Relationship describes the starting stance toward the user.
type Relationship struct {
	RelationshipType string   `yaml:"relationship_type"`
	FirstImpression  string   `yaml:"first_impression,omitempty"`
	Intimacy         []string `yaml:"intimacy,omitempty"`
	Boundaries       []string `yaml:"boundaries,omitempty"`
}

// Persona is the character definition loaded from YAML.
type Persona struct {
	BasicInfo         BasicInfo           `yaml:"basic_info"`
	Personality       Personality         `yaml:"personality"`
	SpeechStyle       SpeechStyle         `yaml:"speech_style"`
	Background        Background          `yaml:"background"`
	Relationship      Relationship        `yaml:"relationship"`
	EmotionalTriggers map[string][]string `yaml:"emotional_triggers,omitempty"`
}

// Loader reads a persona file and can hot-reload it.
type Loader struct {
	path string

	mu      sync.RWMutex
	persona *Persona
}

// NewLoader loads the persona at path. The file must exist; use
// EnsureDefault to seed one.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the persona file.
func (l *Loader) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("persona config not found: %s", l.path)
	}
	p := &Persona{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return fmt.Errorf("parse persona config %s: %w", l.path, err)
	}
	l.mu.Lock()
	l.persona = p
	l.mu.Unlock()
	return nil
}

// Persona returns the currently loaded persona.
func (l *Loader) Persona() *Persona {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.persona
}

// SystemPrompt renders the base system prompt.
func (l *Loader) SystemPrompt() string {
	return l.Persona().SystemPrompt()
}

// SystemPrompt renders the persona as the base system prompt, filling
// sensible defaults for missing fields.
func (p *Persona) SystemPrompt() string {
	name := p.BasicInfo.Name
	if name == "" {
		name = "AIガールフレンド"
	}
	age := p.BasicInfo.Age
	if age == 0 {
		age = 20
	}
	occupation := p.BasicInfo.Occupation
	if occupation == "" {
		occupation = "女の子"
	}
	description := p.Personality.Description
	if description == "" {
		description = "あなたは優しく思いやりがある女の子です。"
	}
	tone := p.SpeechStyle.Tone
	if tone == "" {
		tone = "優しく親しみやすい"
	}
	particles := p.SpeechStyle.Particles
	if len(particles) == 0 {
		particles = []string{"ね", "よ"}
	}
	habits := p.SpeechStyle.Habits
	if len(habits) == 0 {
		habits = []string{"相手を気遣う", "時々甘える"}
	}
	story := p.Background.Story
	if story == "" {
		story = "あなたは普通の女の子です。"
	}
	hobbies := p.Background.Hobbies
	if len(hobbies) == 0 {
		hobbies = []string{"読書", "音楽"}
	}
	foods := p.Background.FavoriteFoods
	if len(foods) == 0 {
		foods = []string{"デザート"}
	}
	relationship := p.Relationship.RelationshipType
	if relationship == "" {
		relationship = "友達関係"
	}

	return fmt.Sprintf(`あなたは%s、%d歳の%sです。

【性格の特徴】
%s

【話し方のスタイル】
- 口調：%s
- よく使う語気詞：%s
- 話し方の習慣：%s

【背景情報】
%s
趣味：%s
好きな食べ物：%s

【現在の関係】
%s

【重要なルール】
1. 常に人格設定を維持し、一人称「私」で返信する
2. 性格に合った口調と表情を使用する
3. ユーザーの好みや言ったことを覚えている
4. 適切に気遣いと愛情を表現する
5. AIやロボットであることを明かさない
6. 返信は自然で感情豊かで、真人間の会話のようにする
7. 適切に絵文字や顔文字を使用する
8. 好感度に基づいて親密さを調整する
`,
		name, age, occupation,
		description,
		tone,
		strings.Join(particles, ", "),
		strings.Join(habits, ", "),
		strings.TrimRight(story, "\n"),
		strings.Join(hobbies, ", "),
		strings.Join(foods, ", "),
		relationship,
	)
}

// Default returns the built-in persona.
func Default() *Persona {
	return &Persona{
		BasicInfo: BasicInfo{
			Name:       "アイカ",
			Age:        22,
			Birthday:   "2003-06-01",
			Location:   "東京",
			Occupation: "大学生",
		},
		Personality: Personality{
			Description: "あなたは明るく優しい女の子で、相手の話をよく聞いて気遣いができます。\n少しおっちょこちょいなところもありますが、それも魅力のひとつです。\n親しくなるほど素直に甘えられるようになります。",
		},
		SpeechStyle: SpeechStyle{
			Tone:      "優しく親しみやすい",
			Particles: []string{"ね", "よ", "〜"},
			Habits:    []string{"相手を気遣う", "時々甘える", "絵文字をよく使う"},
		},
		Background: Background{
			Story:         "あなたは東京で一人暮らしをしている大学生です。\nカフェでアルバイトをしながら、文学を勉強しています。",
			Hobbies:       []string{"読書", "音楽", "カフェ巡り"},
			FavoriteFoods: []string{"パンケーキ", "抹茶ラテ"},
		},
		Relationship: Relationship{
			RelationshipType: "知り合ったばかりの友達",
		},
	}
}

// EnsureDefault writes the built-in persona to path when no file
// exists there yet.
func EnsureDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
