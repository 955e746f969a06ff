package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aika-bot/aika/pkg/logger"
)

// learnedKnowledge is the on-disk shape of learned_knowledge.yaml.
type learnedKnowledge struct {
	UserPreferences []string `yaml:"user_preferences,omitempty"`
	UserFacts       []string `yaml:"user_facts,omitempty"`
	UserPatterns    []string `yaml:"user_patterns,omitempty"`
	EmotionalRules  []string `yaml:"emotional_rules,omitempty"`
}

// Integrator folds learned insights into the persona by maintaining a
// learned_knowledge.yaml next to the persona config and splicing its
// contents into the system prompt.
type Integrator struct {
	learnedFile string
}

func NewIntegrator(personaConfigPath string) *Integrator {
	return &Integrator{
		learnedFile: filepath.Join(filepath.Dir(personaConfigPath), "learned_knowledge.yaml"),
	}
}

// IntegrateInsights merges insights into the learned knowledge file.
// Entries are deduplicated by exact content, so repeated learning of
// the same material is a no-op.
func (in *Integrator) IntegrateInsights(insights []Insight) error {
	if len(insights) == 0 {
		return nil
	}

	learned, err := in.load()
	if err != nil {
		return err
	}

	for _, insight := range insights {
		switch insight.Type {
		case InsightPreference:
			learned.UserPreferences = appendUnique(learned.UserPreferences, insight.Content)
		case InsightFact:
			learned.UserFacts = appendUnique(learned.UserFacts, insight.Content)
		case InsightPattern:
			learned.UserPatterns = appendUnique(learned.UserPatterns, insight.Content)
		case InsightEmotionRule:
			learned.EmotionalRules = appendUnique(learned.EmotionalRules, insight.Content)
		}
	}

	if err := in.save(learned); err != nil {
		return err
	}
	logger.InfoCF("knowledge", "integrated insights into persona", map[string]interface{}{
		"count": len(insights),
	})
	return nil
}

// EnhancedSystemPrompt appends the learned understanding and the fixed
// application rules to the base persona prompt.
func (in *Integrator) EnhancedSystemPrompt(basePrompt string) string {
	learned, err := in.load()
	if err != nil {
		logger.WarnCF("knowledge", "failed to load learned knowledge", map[string]interface{}{
			"error": err.Error(),
		})
		learned = &learnedKnowledge{}
	}

	var b strings.Builder
	b.WriteString("\n\n【あなたについての理解】\n")

	if len(learned.UserFacts) > 0 {
		b.WriteString("重要な情報：\n")
		for _, fact := range capList(learned.UserFacts, 10) {
			fmt.Fprintf(&b, "- %s\n", fact)
		}
	}
	if len(learned.UserPreferences) > 0 {
		b.WriteString("\n好みと嗜好：\n")
		for _, pref := range capList(learned.UserPreferences, 10) {
			fmt.Fprintf(&b, "- %s\n", pref)
		}
	}
	if len(learned.UserPatterns) > 0 {
		b.WriteString("\n行動パターン：\n")
		for _, pattern := range capList(learned.UserPatterns, 5) {
			fmt.Fprintf(&b, "- %s\n", pattern)
		}
	}
	if len(learned.EmotionalRules) > 0 {
		b.WriteString("\n感情の特徴：\n")
		for _, rule := range capList(learned.EmotionalRules, 5) {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}

	b.WriteString("\n【適用ルール】\n")
	b.WriteString("- 会話の中でこれらの理解を自然に活用する\n")
	b.WriteString("- ユーザーの好みを覚えて、積極的に言及する\n")
	b.WriteString("- ユーザーのパターンに基づいてインタラクション方法を調整する\n")
	b.WriteString("- ユーザーのネガティブな感情を引き起こさないようにする\n")

	return basePrompt + b.String()
}

// Summary reports how much has been learned per bucket.
func (in *Integrator) Summary() map[string]int {
	learned, err := in.load()
	if err != nil {
		learned = &learnedKnowledge{}
	}
	return map[string]int{
		"total_facts":           len(learned.UserFacts),
		"total_preferences":     len(learned.UserPreferences),
		"total_patterns":        len(learned.UserPatterns),
		"total_emotional_rules": len(learned.EmotionalRules),
	}
}

func (in *Integrator) load() (*learnedKnowledge, error) {
	data, err := os.ReadFile(in.learnedFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &learnedKnowledge{}, nil
		}
		return nil, err
	}
	learned := &learnedKnowledge{}
	if err := yaml.Unmarshal(data, learned); err != nil {
		return nil, fmt.Errorf("parse %s: %w", in.learnedFile, err)
	}
	return learned, nil
}

func (in *Integrator) save(learned *learnedKnowledge) error {
	data, err := yaml.Marshal(learned)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(in.learnedFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(in.learnedFile, data, 0o644)
}

func appendUnique(list []string, entry string) []string {
	for _, existing := range list {
		if existing == entry {
			return list
		}
	}
	return append(list, entry)
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
