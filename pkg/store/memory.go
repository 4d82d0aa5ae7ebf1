package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/hadv/yitam-admin-sub000/internal/models"
	"github.com/hadv/yitam-admin-sub000/internal/types"
)

// MemoryStore is a brute-force in-memory mirror of the vector store
// contract. It backs the fallback path when the database is down and
// doubles as the store used in tests; it is injectable rather than a
// process-wide singleton so tests cannot leak into each other.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]models.DocumentChunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]models.DocumentChunk)}
}

func (m *MemoryStore) Upsert(ctx context.Context, points []models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.chunks[p.ID] = p
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, limit int) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]models.ScoredChunk, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		results = append(results, models.ScoredChunk{
			DocumentChunk: chunk,
			Score:         cosineSimilarity(vector, chunk.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) DeleteByFilter(ctx context.Context, f types.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, chunk := range m.chunks {
		if matchesFilter(chunk, f) {
			delete(m.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) CountByFilter(ctx context.Context, f types.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, chunk := range m.chunks {
		if matchesFilter(chunk, f) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Scroll(ctx context.Context, f types.Filter, pageSize, offset int) ([]models.DocumentChunk, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.DocumentChunk
	for _, chunk := range m.chunks {
		if matchesFilter(chunk, f) {
			matched = append(matched, chunk)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Len reports how many chunks the mirror currently holds.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func matchesFilter(chunk models.DocumentChunk, f types.Filter) bool {
	if f.DocumentName != "" && chunk.DocumentName != f.DocumentName {
		return false
	}
	if f.IDPrefix != "" && !strings.HasPrefix(chunk.ID, f.IDPrefix) {
		return false
	}
	if f.Domain != "" {
		found := false
		for _, d := range chunk.Domains {
			if d == f.Domain {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
