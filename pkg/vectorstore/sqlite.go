package vectorstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

const queryCacheSize = 256

// SQLiteStore persists documents and their embeddings in one SQLite
// database, one logical collection per name.
type SQLiteStore struct {
	db *sql.DB

	mu          sync.Mutex
	collections map[string]*sqliteCollection
}

// NewSQLiteStore creates/opens the vector database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create vector db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process store. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, collections: map[string]*sqliteCollection{}}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			embedding BLOB NOT NULL,
			PRIMARY KEY (collection, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init vector db: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Collection returns the named collection, creating its handle lazily.
func (s *SQLiteStore) Collection(name string) (Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if coll, ok := s.collections[name]; ok {
		return coll, nil
	}
	cache, err := lru.New[string, []Match](queryCacheSize)
	if err != nil {
		return nil, err
	}
	coll := &sqliteCollection{db: s.db, name: name, cache: cache}
	s.collections[name] = coll
	return coll, nil
}

type sqliteCollection struct {
	db   *sql.DB
	name string

	// cache holds recent query results; generation is bumped on every
	// write so stale entries simply miss.
	cache      *lru.Cache[string, []Match]
	generation atomic.Uint64
}

func (c *sqliteCollection) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	if len(documents) != len(ids) || len(metadatas) != len(ids) {
		return fmt.Errorf("ids, documents and metadatas must have equal length")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range ids {
		metaJSON, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", id, err)
		}
		vec := embedText(documents[i])
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, content, metadata_json, embedding)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(collection, id) DO UPDATE SET
			   content=excluded.content,
			   metadata_json=excluded.metadata_json,
			   embedding=excluded.embedding`,
			c.name, id, documents[i], string(metaJSON), encodeVector(vec),
		); err != nil {
			return fmt.Errorf("upsert document %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.generation.Add(1)
	return nil
}

func (c *sqliteCollection) Query(ctx context.Context, text string, k int, filter Filter) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	cacheKey := c.queryCacheKey(text, k, filter)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	matches, err := c.loadMatches(ctx, filter)
	if err != nil {
		return nil, err
	}
	queryVec := embedText(text)

	type scored struct {
		match Match
		sim   float64
	}
	ranked := make([]scored, 0, len(matches))
	for _, m := range matches {
		sim := cosineSimilarity(queryVec, m.vec)
		ranked = append(ranked, scored{match: m.match, sim: sim})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]Match, 0, len(ranked))
	for _, s := range ranked {
		m := s.match
		m.Distance = 1 - s.sim
		out = append(out, m)
	}

	c.cache.Add(cacheKey, out)
	return out, nil
}

func (c *sqliteCollection) Get(ctx context.Context, filter Filter) ([]Match, error) {
	matches, err := c.loadMatches(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.match)
	}
	return out, nil
}

func (c *sqliteCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id); err != nil {
			return fmt.Errorf("delete document %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.generation.Add(1)
	return nil
}

func (c *sqliteCollection) Count(ctx context.Context) (int, error) {
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, c.name)
	count := 0
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type loadedMatch struct {
	match Match
	vec   []float32
}

func (c *sqliteCollection) loadMatches(ctx context.Context, filter Filter) ([]loadedMatch, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, content, metadata_json, embedding FROM documents WHERE collection = ?`, c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []loadedMatch{}
	for rows.Next() {
		var id, content, metaJSON string
		var blob []byte
		if err := rows.Scan(&id, &content, &metaJSON, &blob); err != nil {
			return nil, err
		}
		meta := map[string]interface{}{}
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			meta = map[string]interface{}{}
		}
		if !matchesFilter(meta, filter) {
			continue
		}
		out = append(out, loadedMatch{
			match: Match{ID: id, Document: content, Metadata: meta},
			vec:   decodeVector(blob),
		})
	}
	return out, rows.Err()
}

func matchesFilter(meta map[string]interface{}, filter Filter) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case []string:
			found := false
			gotStr := fmt.Sprintf("%v", got)
			for _, candidate := range w {
				if gotStr == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
				return false
			}
		}
	}
	return true
}

func (c *sqliteCollection) queryCacheKey(text string, k int, filter Filter) string {
	filterJSON, _ := json.Marshal(filter)
	return fmt.Sprintf("%d|%d|%s|%s", c.generation.Load(), k, text, string(filterJSON))
}

func encodeVector(vec []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*4))
	for _, v := range vec {
		_ = binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
	}
	return buf.Bytes()
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}
