// Package index maintains a lightweight retrieval index over the
// workspace: files are split into overlapping line chunks stored in
// SQLite, and queries rank chunks by keyword overlap with a filename
// boost. It exists so the CLI can prepend relevant context to a task's
// first message without shipping the whole tree.
package index

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"codesmith/internal/fsops"
	"codesmith/internal/logging"
)

// maxFileSize skips files unlikely to be source text.
const maxFileSize = 1 << 20

// Options tunes chunking and retrieval.
type Options struct {
	ChunkLines   int
	OverlapLines int
	Workers      int
	MaxResults   int
}

// DefaultOptions matches the config defaults.
func DefaultOptions() Options {
	return Options{ChunkLines: 40, OverlapLines: 8, Workers: 8, MaxResults: 12}
}

// Index is the on-disk chunk store for one workspace.
type Index struct {
	mu   sync.Mutex
	db   *sql.DB
	ws   *fsops.Workspace
	opts Options
}

// Hit is one retrieval result.
type Hit struct {
	Path      string
	StartLine int
	EndLine   int
	Score     float64
	Snippet   string
}

// Open opens (creating if needed) the index database at path.
func Open(path string, ws *fsops.Workspace, opts Options) (*Index, error) {
	if opts.ChunkLines < 1 {
		opts = DefaultOptions()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	idx := &Index{db: db, ws: ws, opts: opts}
	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) initialize() error {
	_, err := i.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			path       TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line   INTEGER NOT NULL,
			content    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
	`)
	if err != nil {
		return fmt.Errorf("initialize index schema: %w", err)
	}
	return nil
}

type chunk struct {
	path      string
	startLine int
	endLine   int
	content   string
}

// Build re-indexes the workspace from scratch and returns the number
// of chunks stored. Files are read concurrently; the write happens in
// one transaction.
func (i *Index) Build(ctx context.Context) (int, error) {
	var paths []string
	err := i.ws.WalkFiles(func(rel string) error {
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk workspace: %w", err)
	}

	var (
		mu     sync.Mutex
		chunks []chunk
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Workers)
	for _, rel := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := i.ws.ReadFile(rel)
			if err != nil || len(data) > maxFileSize || bytes.IndexByte(data, 0) >= 0 {
				return nil
			}
			fileChunks := i.chunkFile(rel, string(data))
			mu.Lock()
			chunks = append(chunks, fileChunks...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	tx, err := i.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks`); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO chunks (path, start_line, end_line, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range chunks {
		if _, err := stmt.Exec(c.path, c.startLine, c.endLine, c.content); err != nil {
			return 0, fmt.Errorf("insert chunk for %s: %w", c.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit index rebuild: %w", err)
	}

	logging.Get(logging.CategoryIndex).Info("index rebuilt",
		zap.Int("files", len(paths)), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

func (i *Index) chunkFile(rel, content string) []chunk {
	lines := strings.Split(content, "\n")
	step := i.opts.ChunkLines - i.opts.OverlapLines
	if step < 1 {
		step = i.opts.ChunkLines
	}

	var out []chunk
	for start := 0; start < len(lines); start += step {
		end := start + i.opts.ChunkLines
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if text != "" {
			out = append(out, chunk{
				path:      rel,
				startLine: start + 1,
				endLine:   end,
				content:   text,
			})
		}
		if end == len(lines) {
			break
		}
	}
	return out
}

// Search ranks indexed chunks against a free-text query by keyword
// frequency, boosting chunks whose file path contains a query term.
func (i *Index) Search(ctx context.Context, query string) ([]Hit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	rows, err := i.db.QueryContext(ctx, `SELECT path, start_line, end_line, content FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.StartLine, &h.EndLine, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		content := strings.ToLower(h.Snippet)
		pathLower := strings.ToLower(h.Path)
		for _, term := range terms {
			h.Score += float64(strings.Count(content, term))
			if strings.Contains(pathLower, term) {
				h.Score += 3
			}
		}
		if h.Score > 0 {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Path < hits[b].Path
	})
	if len(hits) > i.opts.MaxResults {
		hits = hits[:i.opts.MaxResults]
	}
	return hits, nil
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
