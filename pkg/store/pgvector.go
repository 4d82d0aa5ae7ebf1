// Package store persists DocumentChunk records. The primary
// implementation is PostgreSQL with pgvector; MemoryStore is the
// injectable fallback mirror used when the database is unreachable.
package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/hadv/yitam-admin-sub000/internal/models"
	"github.com/hadv/yitam-admin-sub000/internal/types"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "document_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			content TEXT NOT NULL,
			source_file TEXT,
			domains TEXT[],
			title TEXT,
			summary TEXT,
			enhanced_content TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	createDocIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_document_idx
		ON %s (document_name)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createDocIndex)
	if err != nil {
		return fmt.Errorf("failed to create document index: %v", err)
	}

	return nil
}

func (vs *VectorStore) Upsert(ctx context.Context, points []models.DocumentChunk) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_name, content, source_file, domains, title, summary, enhanced_content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			enhanced_content = EXCLUDED.enhanced_content,
			embedding = EXCLUDED.embedding,
			domains = EXCLUDED.domains`,
		vs.config.TableName)

	for _, point := range points {
		_, err = tx.Exec(ctx, stmt,
			point.ID,
			point.DocumentName,
			sanitizeUTF8(point.Content),
			point.SourceFile,
			point.Domains,
			sanitizeUTF8(point.Title),
			sanitizeUTF8(point.Summary),
			sanitizeUTF8(point.EnhancedContent),
			pgvector.NewVector(point.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %v", point.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (vs *VectorStore) Search(ctx context.Context, vector []float32, limit int) ([]models.ScoredChunk, error) {
	if limit == 0 {
		limit = 5
	}

	query := fmt.Sprintf(`
		SELECT id, document_name, content, source_file, domains, title, summary, enhanced_content,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var sc models.ScoredChunk
		err := rows.Scan(
			&sc.ID,
			&sc.DocumentName,
			&sc.Content,
			&sc.SourceFile,
			&sc.Domains,
			&sc.Title,
			&sc.Summary,
			&sc.EnhancedContent,
			&sc.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		results = append(results, sc)
	}

	return results, rows.Err()
}

func (vs *VectorStore) DeleteByFilter(ctx context.Context, f types.Filter) (int, error) {
	where, args := buildFilter(f)
	if where == "" {
		return 0, fmt.Errorf("refusing to delete without a filter")
	}

	tag, err := vs.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s", vs.config.TableName, where), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %v", err)
	}
	return int(tag.RowsAffected()), nil
}

func (vs *VectorStore) CountByFilter(ctx context.Context, f types.Filter) (int, error) {
	where, args := buildFilter(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)
	if where != "" {
		query += " WHERE " + where
	}

	var count int
	if err := vs.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %v", err)
	}
	return count, nil
}

func (vs *VectorStore) Scroll(ctx context.Context, f types.Filter, pageSize, offset int) ([]models.DocumentChunk, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	where, args := buildFilter(f)

	query := fmt.Sprintf(
		"SELECT id, document_name, content, source_file, domains, title, summary, enhanced_content FROM %s",
		vs.config.TableName)
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var dc models.DocumentChunk
		err := rows.Scan(
			&dc.ID,
			&dc.DocumentName,
			&dc.Content,
			&dc.SourceFile,
			&dc.Domains,
			&dc.Title,
			&dc.Summary,
			&dc.EnhancedContent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		chunks = append(chunks, dc)
	}

	return chunks, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// buildFilter translates a Filter into a WHERE clause. Zero-valued
// fields are skipped.
func buildFilter(f types.Filter) (string, []any) {
	var clauses []string
	var args []any

	if f.DocumentName != "" {
		args = append(args, f.DocumentName)
		clauses = append(clauses, fmt.Sprintf("document_name = $%d", len(args)))
	}
	if f.IDPrefix != "" {
		args = append(args, f.IDPrefix+"%")
		clauses = append(clauses, fmt.Sprintf("id LIKE $%d", len(args)))
	}
	if f.Domain != "" {
		args = append(args, f.Domain)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(domains)", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// sanitizeUTF8 strips invalid byte sequences so Postgres accepts the text.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
