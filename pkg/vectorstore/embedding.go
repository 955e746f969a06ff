package vectorstore

import (
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Character-trigram hashing embedder. No external model: documents and
// queries share a deterministic 384-dim space, which is enough for the
// lexical-similarity recall this store serves.
const embeddingDims = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_\-]+`)

func embedText(text string) []float32 {
	vec := make([]float32, embeddingDims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec
	}
	window := "#" + normalized + "#"
	runes := []rune(window)
	for i := 0; i+3 <= len(runes); i++ {
		gram := string(runes[i : i+3])
		h := fnv.New64a()
		_, _ = h.Write([]byte(gram))
		sum := h.Sum64()
		idx := int(sum % uint64(embeddingDims))
		vec[idx]++
	}
	for _, token := range tokenize(normalized) {
		h := fnv.New64a()
		_, _ = h.Write([]byte("tok:" + token))
		sum := h.Sum64()
		idx := int(sum % uint64(embeddingDims))
		vec[idx] += 1.25
	}
	normalizeVector(vec)
	return vec
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	matches := tokenPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	return matches
}

func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return
	}
	inv := float32(1.0 / n)
	for i := range vec {
		vec[i] *= inv
	}
}

// cosineSimilarity of two normalized vectors reduces to their dot product.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i] * b[i])
	}
	return dot
}
