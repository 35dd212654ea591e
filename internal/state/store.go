package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"codesmith/internal/fsops"
	"codesmith/internal/logging"
)

// TaskState is the persisted record of a task run against one working
// directory: the instruction, the applied changes, and when it was last
// touched. There is at most one per working directory.
type TaskState struct {
	Instruction      string               `json:"instruction"`
	WorkingDirectory string               `json:"working_directory"`
	Changes          []fsops.ChangeRecord `json:"changes"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Store persists task states in SQLite, keyed by working directory.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Get(logging.CategoryState).Debug("task store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS task_states (
			working_dir TEXT PRIMARY KEY,
			instruction TEXT NOT NULL,
			changes     TEXT NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("initialize task store schema: %w", err)
	}
	return nil
}

// Replace overwrites the stored state for the working directory. The
// engine writes its full merged change log here at every checkpoint,
// and undo writes the rewound history.
func (s *Store) Replace(state *TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(state.Changes)
	if err != nil {
		return fmt.Errorf("encode change log: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO task_states (working_dir, instruction, changes, updated_at)
		VALUES (?, ?, ?, ?)
	`, state.WorkingDirectory, state.Instruction, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("replace task state: %w", err)
	}

	logging.Get(logging.CategoryState).Debug("task state saved",
		zap.String("working_dir", state.WorkingDirectory),
		zap.Int("changes", len(state.Changes)))
	return nil
}

// Load returns the task state for a working directory, or nil when none
// has been persisted.
func (s *Store) Load(workingDir string) (*TaskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(workingDir)
}

func (s *Store) load(workingDir string) (*TaskState, error) {
	row := s.db.QueryRow(`
		SELECT instruction, changes, updated_at FROM task_states WHERE working_dir = ?
	`, workingDir)

	var state TaskState
	var blob string
	state.WorkingDirectory = workingDir
	if err := row.Scan(&state.Instruction, &blob, &state.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load task state: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), &state.Changes); err != nil {
		return nil, fmt.Errorf("decode change log: %w", err)
	}
	return &state, nil
}

// Delete removes the persisted state for a working directory.
func (s *Store) Delete(workingDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM task_states WHERE working_dir = ?`, workingDir); err != nil {
		return fmt.Errorf("delete task state: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
