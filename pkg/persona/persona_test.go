package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSystemPromptDefaults(t *testing.T) {
	p := &Persona{}
	prompt := p.SystemPrompt()

	for _, want := range []string{
		"あなたはAIガールフレンド、20歳の女の子です。",
		"【性格の特徴】",
		"【話し方のスタイル】",
		"【重要なルール】",
		"一人称「私」で返信する",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSystemPromptUsesLoadedFields(t *testing.T) {
	p := Default()
	prompt := p.SystemPrompt()
	if !strings.Contains(prompt, "あなたはアイカ、22歳の大学生です。") {
		t.Fatalf("prompt missing identity line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "パンケーキ, 抹茶ラテ") {
		t.Fatalf("prompt missing favorite foods:\n%s", prompt)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing persona file")
	}
}

func TestEnsureDefaultAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "persona_default.yaml")
	if err := EnsureDefault(path); err != nil {
		t.Fatalf("ensure default: %v", err)
	}

	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("load persona: %v", err)
	}
	if got := l.Persona().BasicInfo.Name; got != "アイカ" {
		t.Fatalf("name = %q, want アイカ", got)
	}

	// Overwrite and reload.
	edited := strings.Replace(mustRead(t, path), "アイカ", "花梨", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("rewrite persona: %v", err)
	}
	if err := l.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := l.Persona().BasicInfo.Name; got != "花梨" {
		t.Fatalf("name after reload = %q, want 花梨", got)
	}

	// EnsureDefault must not clobber an existing file.
	if err := EnsureDefault(path); err != nil {
		t.Fatalf("ensure default (existing): %v", err)
	}
	if l.Reload() != nil || l.Persona().BasicInfo.Name != "花梨" {
		t.Fatal("existing persona file was overwritten")
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
