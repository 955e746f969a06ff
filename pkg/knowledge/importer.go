package knowledge

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aika-bot/aika/pkg/logger"
)

const (
	minSegmentRunes  = 10
	maxSegmentLength = 500
)

var supportedFormats = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".json": {},
	".yaml": {},
	".yml":  {},
}

// Importer reads knowledge files, segments them into items and mirrors
// each item as a JSON document under the knowledge base directory.
// Item ids are content-derived, so re-importing the same file is
// idempotent.
type Importer struct {
	baseDir string
}

func NewImporter(baseDir string) (*Importer, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge base dir: %w", err)
	}
	return &Importer{baseDir: baseDir}, nil
}

// ImportFile imports one file. Missing files and unsupported
// extensions are reported synchronously.
func (im *Importer) ImportFile(path, category string) ([]Item, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedFormats[ext]; !ok {
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}

	logger.InfoCF("knowledge", "importing knowledge file", map[string]interface{}{
		"path":     path,
		"category": category,
	})

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	items := im.parseContent(string(raw), filepath.Base(path), category)
	if err := im.saveItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

// ImportDirectory walks a directory tree and imports every supported
// file. Per-file failures are logged and skipped.
func (im *Importer) ImportDirectory(dir, category string) ([]Item, error) {
	all := []Item{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		items, err := im.ImportFile(path, category)
		if err != nil {
			logger.ErrorCF("knowledge", "failed to import file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}
		all = append(all, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// ImportText stores a plain text snippet as one learned item.
func (im *Importer) ImportText(text, source, category string) (Item, error) {
	item := Item{
		ID:         hashID(source + ":" + runePrefix(text, 100)),
		Content:    text,
		Source:     source,
		SourceType: SourceLearned,
		Category:   category,
		Importance: 1.0,
		CreatedAt:  time.Now(),
	}
	if err := im.saveItems([]Item{item}); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (im *Importer) parseContent(content, source, category string) []Item {
	items := []Item{}
	for i, segment := range segmentContent(content) {
		segment = strings.TrimSpace(segment)
		if len([]rune(segment)) < minSegmentRunes {
			continue
		}
		items = append(items, Item{
			ID:         hashID(fmt.Sprintf("%s:%d:%s", source, i, runePrefix(segment, 50))),
			Content:    segment,
			Source:     source,
			SourceType: SourceFile,
			Category:   category,
			Importance: 1.0,
			CreatedAt:  time.Now(),
		})
	}
	return items
}

// segmentContent splits text on blank lines. A paragraph ending in
// sentence-final punctuation closes the current segment; others
// accumulate until the segment would exceed maxSegmentLength.
func segmentContent(content string) []string {
	segments := []string{}
	current := ""

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if endsWithTerminal(para) {
			if current != "" {
				segments = append(segments, current+" "+para)
				current = ""
			} else {
				segments = append(segments, para)
			}
			continue
		}
		if len(current)+len(para) < maxSegmentLength {
			if current == "" {
				current = para
			} else {
				current += " " + para
			}
		} else {
			if current != "" {
				segments = append(segments, current)
			}
			current = para
		}
	}
	if current != "" {
		segments = append(segments, current)
	}
	return segments
}

func endsWithTerminal(para string) bool {
	for _, suffix := range []string{"。", "！", "？", ".", "!", "?", "」", "\"", "”"} {
		if strings.HasSuffix(para, suffix) {
			return true
		}
	}
	return false
}

func (im *Importer) saveItems(items []Item) error {
	for _, item := range items {
		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal knowledge item %s: %w", item.ID, err)
		}
		path := filepath.Join(im.baseDir, item.ID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write knowledge item %s: %w", item.ID, err)
		}
	}
	return nil
}
