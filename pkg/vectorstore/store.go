package vectorstore

import "context"

// Match is one stored document returned from a collection.
type Match struct {
	ID       string
	Document string
	Metadata map[string]interface{}
	// Distance is 1 - cosine similarity; only populated by Query.
	Distance float64
}

// Filter selects documents by metadata. A string value requires an
// exact match; a []string value matches any of the listed values.
type Filter map[string]interface{}

// Collection is an isolated document address space with similarity search.
type Collection interface {
	Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]interface{}) error
	Query(ctx context.Context, text string, k int, filter Filter) ([]Match, error)
	Get(ctx context.Context, filter Filter) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
}

// Store hands out named collections backed by shared infrastructure.
type Store interface {
	Collection(name string) (Collection, error)
	Close() error
}
