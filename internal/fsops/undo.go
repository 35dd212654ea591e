package fsops

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"codesmith/internal/logging"
)

// Undo reverses exactly one change record by applying its inverse:
//
//	update       -> rewrite the prior content
//	create       -> delete the file
//	delete       -> rewrite the prior content
//	move         -> move back, source and destination swapped
//	mkdir        -> remove the directory tree
//	rmdir        -> unsupported
//
// Undo bypasses confirmation and produces no new change records.
func (w *Workspace) Undo(record *ChangeRecord) error {
	if record == nil {
		return fmt.Errorf("nil change record")
	}
	log := logging.Get(logging.CategoryFS)

	switch record.Op {
	case OpUpdate:
		return w.restorePrior(record)

	case OpCreate:
		abs, err := w.Resolve(record.Path)
		if err != nil {
			return err
		}
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("undo create %s: %w", record.Path, err)
		}
		log.Info("undo: removed created file", zap.String("path", record.Path))
		return nil

	case OpDelete:
		return w.restorePrior(record)

	case OpMove:
		srcAbs, err := w.Resolve(record.Path)
		if err != nil {
			return err
		}
		dstAbs, err := w.Resolve(record.DestPath)
		if err != nil {
			return err
		}
		if err := os.Rename(dstAbs, srcAbs); err != nil {
			return fmt.Errorf("undo move %s: %w", record.DestPath, err)
		}
		log.Info("undo: moved back",
			zap.String("from", record.DestPath), zap.String("to", record.Path))
		return nil

	case OpMkdir:
		abs, err := w.Resolve(record.Path)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("undo mkdir %s: %w", record.Path, err)
		}
		log.Info("undo: removed created directory", zap.String("path", record.Path))
		return nil

	case OpRmdir:
		return fmt.Errorf("%w: recursive directory deletion", ErrUndoUnsupported)

	default:
		return fmt.Errorf("unknown change operation %q", record.Op)
	}
}

func (w *Workspace) restorePrior(record *ChangeRecord) error {
	if !record.HadPrior {
		return fmt.Errorf("change record for %s has no prior content", record.Path)
	}
	abs, err := w.Resolve(record.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("undo %s: %w", record.Path, err)
	}
	if err := os.WriteFile(abs, record.PriorContent, 0o644); err != nil {
		return fmt.Errorf("undo %s: %w", record.Path, err)
	}
	logging.Get(logging.CategoryFS).Info("undo: restored prior content",
		zap.String("path", record.Path))
	return nil
}
