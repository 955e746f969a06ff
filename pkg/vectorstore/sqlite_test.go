package vectorstore

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCollection(t *testing.T) Collection {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	coll, err := store.Collection("test")
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	return coll
}

func TestQueryRanksExactTextFirst(t *testing.T) {
	coll := newTestCollection(t)
	ctx := context.Background()

	ids := []string{"a", "b", "c"}
	docs := []string{
		"彼は猫が大好きで、毎日写真を撮っている",
		"明日の天気は雨の予報です",
		"the quick brown fox jumps over the lazy dog",
	}
	metas := []map[string]interface{}{{}, {}, {}}
	if err := coll.Add(ctx, ids, docs, metas); err != nil {
		t.Fatalf("add: %v", err)
	}

	matches, err := coll.Query(ctx, docs[0], 3, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("top match = %s, want a", matches[0].ID)
	}
	if matches[0].Distance > 0.0001 {
		t.Fatalf("exact text distance = %v, want ~0", matches[0].Distance)
	}
}

func TestQueryFilterByMetadata(t *testing.T) {
	coll := newTestCollection(t)
	ctx := context.Background()

	err := coll.Add(ctx,
		[]string{"m1", "m2", "m3"},
		[]string{"好きな食べ物はラーメン", "好きな食べ物はカレー", "好きな食べ物は寿司"},
		[]map[string]interface{}{
			{"user_id": "u1", "type": "preference"},
			{"user_id": "u2", "type": "preference"},
			{"user_id": "u1", "type": "fact"},
		},
	)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	matches, err := coll.Query(ctx, "食べ物", 10, Filter{"user_id": "u1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches for u1, want 2", len(matches))
	}

	matches, err = coll.Query(ctx, "食べ物", 10, Filter{"user_id": "u1", "type": []string{"preference", "event"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "m1" {
		t.Fatalf("any-of filter matches = %+v, want only m1", matches)
	}
}

func TestUpsertReplacesDocument(t *testing.T) {
	coll := newTestCollection(t)
	ctx := context.Background()

	if err := coll.Add(ctx, []string{"x"}, []string{"最初の内容"}, []map[string]interface{}{{"v": "1"}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := coll.Add(ctx, []string{"x"}, []string{"更新された内容"}, []map[string]interface{}{{"v": "2"}}); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	count, err := coll.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 after upsert", count)
	}

	matches, err := coll.Get(ctx, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if matches[0].Document != "更新された内容" {
		t.Fatalf("document = %q, want updated content", matches[0].Document)
	}
	if matches[0].Metadata["v"] != "2" {
		t.Fatalf("metadata v = %v, want 2", matches[0].Metadata["v"])
	}
}

func TestQueryCacheInvalidatedByWrite(t *testing.T) {
	coll := newTestCollection(t)
	ctx := context.Background()

	if err := coll.Add(ctx, []string{"a"}, []string{"一つ目の文書"}, []map[string]interface{}{{}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	first, err := coll.Query(ctx, "文書", 10, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d matches, want 1", len(first))
	}

	if err := coll.Add(ctx, []string{"b"}, []string{"二つ目の文書"}, []map[string]interface{}{{}}); err != nil {
		t.Fatalf("second add: %v", err)
	}
	second, err := coll.Query(ctx, "文書", 10, nil)
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("got %d matches after write, want 2", len(second))
	}
}

func TestDeleteRemovesDocuments(t *testing.T) {
	coll := newTestCollection(t)
	ctx := context.Background()

	err := coll.Add(ctx,
		[]string{"a", "b"},
		[]string{"残す文書", "消す文書"},
		[]map[string]interface{}{{}, {}},
	)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := coll.Delete(ctx, []string{"b"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, err := coll.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 after delete", count)
	}
}

func TestAddLengthMismatchRejected(t *testing.T) {
	coll := newTestCollection(t)

	err := coll.Add(context.Background(), []string{"a", "b"}, []string{"one"}, []map[string]interface{}{{}})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}
