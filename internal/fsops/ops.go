package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"codesmith/internal/logging"
)

// ReadFile returns the content of a file inside the workspace.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// PriorContent reads the current content of a file for diff previews
// and undo capture. A missing file returns (nil, false, nil).
func (w *Workspace) PriorContent(rel string) ([]byte, bool, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read prior content %s: %w", rel, err)
	}
	return data, true, nil
}

// WriteFile writes content to a file, creating intermediate directories
// as needed. Prior content is captured before the write so undo can
// restore it; the returned record is classified create or update.
func (w *Workspace) WriteFile(rel string, content []byte) (*ChangeRecord, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}

	prior, hadPrior, err := w.PriorContent(rel)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directories for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", rel, err)
	}

	op := OpCreate
	if hadPrior {
		op = OpUpdate
	}
	logging.Get(logging.CategoryFS).Debug("file written",
		zap.String("path", w.Rel(abs)), zap.String("op", string(op)), zap.Int("bytes", len(content)))
	return &ChangeRecord{
		Op:           op,
		Path:         w.Rel(abs),
		PriorContent: prior,
		HadPrior:     hadPrior,
		Timestamp:    time.Now(),
	}, nil
}

// DeleteFile removes a file. Deleting a missing file is idempotent
// success with no record. The prior content is captured for undo.
func (w *Workspace) DeleteFile(rel string) (*ChangeRecord, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}

	prior, hadPrior, err := w.PriorContent(rel)
	if err != nil {
		return nil, err
	}
	if !hadPrior {
		return nil, nil
	}

	if err := os.Remove(abs); err != nil {
		return nil, fmt.Errorf("delete %s: %w", rel, err)
	}
	logging.Get(logging.CategoryFS).Debug("file deleted", zap.String("path", w.Rel(abs)))
	return &ChangeRecord{
		Op:           OpDelete,
		Path:         w.Rel(abs),
		PriorContent: prior,
		HadPrior:     true,
		Timestamp:    time.Now(),
	}, nil
}

// DirExists reports whether rel names an existing directory. The path
// is confinement-checked before the stat.
func (w *Workspace) DirExists(rel string) (bool, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}
	return info.IsDir(), nil
}

// DeleteDir removes a directory tree. Only the top-level deletion is
// logged and the record is irreversible. Deleting a missing directory
// is idempotent success with no record.
func (w *Workspace) DeleteDir(rel string) (*ChangeRecord, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if abs == w.Root {
		return nil, fmt.Errorf("%w: refusing to delete the working directory itself", ErrConfinement)
	}

	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}

	if err := os.RemoveAll(abs); err != nil {
		return nil, fmt.Errorf("delete directory %s: %w", rel, err)
	}
	logging.Get(logging.CategoryFS).Info("directory deleted", zap.String("path", w.Rel(abs)))
	return &ChangeRecord{
		Op:        OpRmdir,
		Path:      w.Rel(abs),
		Timestamp: time.Now(),
	}, nil
}

// Move renames a file or directory. The destination must not exist;
// there is no implicit overwrite. Both paths are confinement-checked.
func (w *Workspace) Move(srcRel, dstRel string) (*ChangeRecord, error) {
	srcAbs, err := w.Resolve(srcRel)
	if err != nil {
		return nil, err
	}
	dstAbs, err := w.Resolve(dstRel)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(srcAbs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, srcRel)
		}
		return nil, fmt.Errorf("stat %s: %w", srcRel, err)
	}
	if _, err := os.Stat(dstAbs); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, dstRel)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", dstRel, err)
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directories for %s: %w", dstRel, err)
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return nil, fmt.Errorf("move %s to %s: %w", srcRel, dstRel, err)
	}
	logging.Get(logging.CategoryFS).Debug("item moved",
		zap.String("from", w.Rel(srcAbs)), zap.String("to", w.Rel(dstAbs)))
	return &ChangeRecord{
		Op:        OpMove,
		Path:      w.Rel(srcAbs),
		DestPath:  w.Rel(dstAbs),
		Timestamp: time.Now(),
	}, nil
}

// Mkdir creates a directory and any missing parents. An existing
// directory is idempotent success with no record.
func (w *Workspace) Mkdir(rel string) (*ChangeRecord, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s is a file", ErrConflict, rel)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", rel, err)
	}
	logging.Get(logging.CategoryFS).Debug("directory created", zap.String("path", w.Rel(abs)))
	return &ChangeRecord{
		Op:        OpMkdir,
		Path:      w.Rel(abs),
		Timestamp: time.Now(),
	}, nil
}
