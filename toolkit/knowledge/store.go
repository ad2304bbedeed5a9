// Package knowledge implements the destination knowledge base: a SQLite FTS5
// store of text chunks partitioned by destination and the
// "Query Knowledge Base" tool that searches it.
package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/tourmesh/logging"
)

// DefaultChunkSize is the target chunk length in characters.
const DefaultChunkSize = 800

// Separator joins chunk texts in query results.
const Separator = "\n\n---\n\n"

// Chunk is one indexed passage.
type Chunk struct {
	ID          string
	Destination string
	Source      string
	Text        string
}

// Store is a SQLite-backed full-text knowledge base.
type Store struct {
	db        *sql.DB
	chunkSize int
	logger    logging.Logger
}

// StoreOptions configures a Store.
type StoreOptions struct {
	ChunkSize int
	Logger    logging.Logger
}

// Open opens (or creates) the knowledge base at path. Use ":memory:" for a
// transient store.
func Open(path string, optFns ...func(o *StoreOptions)) (*Store, error) {
	opts := StoreOptions{ChunkSize: DefaultChunkSize, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, chunkSize: opts.ChunkSize, logger: opts.Logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	opts.Logger.Debug("knowledge.store.opened", "path", path)

	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			destination TEXT NOT NULL,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_destination ON chunks(destination)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			text,
			id UNINDEXED,
			destination UNINDEXED,
			source UNINDEXED
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Index chunks text and stores every chunk not already present for the
// destination. It returns the number of new chunks.
func (s *Store) Index(ctx context.Context, destination, source, text string) (int, error) {
	destination = normalizeDestination(destination)
	if destination == "" {
		return 0, errors.New("destination must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	added := 0

	for _, chunk := range SplitText(text, s.chunkSize) {
		id := contentHash(destination + "\x00" + chunk)

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO chunks (id, destination, source, text) VALUES (?, ?, ?, ?)`,
			id, destination, source, chunk)
		if err != nil {
			return 0, fmt.Errorf("insert chunk: %w", err)
		}

		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks_fts (text, id, destination, source) VALUES (?, ?, ?, ?)`,
			chunk, id, destination, source); err != nil {
			return 0, fmt.Errorf("index chunk: %w", err)
		}

		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("knowledge.index", "destination", destination, "source", source, "added", added)

	return added, nil
}

// Query returns up to k chunks for destination ranked by bm25.
func (s *Store) Query(ctx context.Context, destination, query string, k int) ([]Chunk, error) {
	destination = normalizeDestination(destination)

	match := matchExpression(query)
	if match == "" || destination == "" {
		return nil, nil
	}

	if k <= 0 {
		k = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, destination, source, text FROM chunks_fts
		WHERE chunks_fts MATCH ? AND destination = ?
		ORDER BY bm25(chunks_fts)
		LIMIT ?`, match, destination, k)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Destination, &c.Source, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// Count returns the number of chunks stored for destination.
func (s *Store) Count(ctx context.Context, destination string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE destination = ?`,
		normalizeDestination(destination)).Scan(&n)

	return n, err
}

// Reset removes every chunk of destination.
func (s *Store) Reset(ctx context.Context, destination string) error {
	destination = normalizeDestination(destination)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE destination = ?`, destination); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE destination = ?`, destination); err != nil {
		return err
	}

	return tx.Commit()
}

// JoinChunks concatenates chunk texts with Separator.
func JoinChunks(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	return strings.Join(texts, Separator)
}

// SplitText groups paragraphs into chunks of at most size characters.
// Paragraphs longer than size are split at word boundaries.
func SplitText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var (
		chunks  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}

		for _, piece := range splitLong(para, size) {
			if current.Len() > 0 && current.Len()+2+len(piece) > size {
				flush()
			}

			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}

	flush()

	return chunks
}

func splitLong(para string, size int) []string {
	if len(para) <= size {
		return []string{para}
	}

	var (
		pieces []string
		b      strings.Builder
	)

	for _, word := range strings.Fields(para) {
		if b.Len() > 0 && b.Len()+1+len(word) > size {
			pieces = append(pieces, b.String())
			b.Reset()
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}

	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}

	return pieces
}

// matchExpression turns free text into an FTS5 OR of quoted terms.
func matchExpression(query string) string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(tokens))
	terms := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, `"`+tok+`"`)
	}

	return strings.Join(terms, " OR ")
}

func normalizeDestination(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}
