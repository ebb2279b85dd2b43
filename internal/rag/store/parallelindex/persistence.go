package parallelindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/agentcore/agentcore/pkg/models"
)

// OpenSQLite opens (creating if needed) a sqlite file at path as the
// columnar on-disk backend for an index's persistence, one row per chunk
// with the embedding serialized as a BLOB of little-endian float32s.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS index_chunks (
			chunk_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB,
			chunk_index INTEGER,
			start_offset INTEGER,
			end_offset INTEGER,
			token_count INTEGER,
			created_at DATETIME
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index_chunks table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS index_documents (
			document_id TEXT PRIMARY KEY,
			body TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index_documents table: %w", err)
	}
	return db, nil
}

// Save writes every document and chunk currently in idx to db, replacing
// any existing rows with the same ids.
func (idx *ParallelIndex) Save(ctx context.Context, db *sql.DB) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range idx.docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO index_documents (document_id, body) VALUES (?, ?)`,
			doc.ID, string(body)); err != nil {
			return fmt.Errorf("persist document %s: %w", doc.ID, err)
		}
	}

	for id, e := range idx.entries {
		metadata, err := json.Marshal(e.chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO index_chunks
				(chunk_id, document_id, content, metadata, embedding, chunk_index, start_offset, end_offset, token_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, e.docID, e.chunk.Content, string(metadata), encodeEmbedding(e.chunk.Embedding),
			e.chunk.Index, e.chunk.StartOffset, e.chunk.EndOffset, e.chunk.TokenCount, e.chunk.CreatedAt,
		); err != nil {
			return fmt.Errorf("persist chunk %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Load repopulates idx from db, replacing its current contents entirely.
func Load(ctx context.Context, db *sql.DB, cfg Config) (*ParallelIndex, error) {
	idx := New(cfg)

	docRows, err := db.QueryContext(ctx, `SELECT body FROM index_documents`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var body string
		if err := docRows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc models.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		idx.docs[doc.ID] = &doc
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := db.QueryContext(ctx, `
		SELECT chunk_id, document_id, content, metadata, embedding, chunk_index, start_offset, end_offset, token_count, created_at
		FROM index_chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer chunkRows.Close()

	for chunkRows.Next() {
		var chunk models.DocumentChunk
		var docID, metadataJSON string
		var embeddingBlob []byte
		if err := chunkRows.Scan(&chunk.ID, &docID, &chunk.Content, &metadataJSON, &embeddingBlob,
			&chunk.Index, &chunk.StartOffset, &chunk.EndOffset, &chunk.TokenCount, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		chunk.Embedding = decodeEmbedding(embeddingBlob)
		chunk.DocumentID = docID

		idx.entries[chunk.ID] = &entry{chunk: &chunk, docID: docID, contentHash: contentHash(chunk.Content)}
		idx.docChunks[docID] = append(idx.docChunks[docID], chunk.ID)
	}
	if err := chunkRows.Err(); err != nil {
		return nil, err
	}

	for docID, doc := range idx.docs {
		doc.ChunkCount = len(idx.docChunks[docID])
	}

	return idx, nil
}

func encodeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	data := make([]byte, len(embedding)*4)
	for i, f := range embedding {
		bits := math.Float32bits(f)
		data[i*4] = byte(bits)
		data[i*4+1] = byte(bits >> 8)
		data[i*4+2] = byte(bits >> 16)
		data[i*4+3] = byte(bits >> 24)
	}
	return data
}

func decodeEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		bits := uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}
