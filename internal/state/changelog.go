// Package state holds the per-run change log and the persisted task
// state store. The change log is the in-memory, path-keyed view of a
// run's mutations; the store persists it per working directory so an
// interrupted task can resume.
package state

import (
	"codesmith/internal/fsops"
)

// ChangeLog is an ordered map of change records keyed by path. Later
// operations against the same path merge into the existing entry
// instead of appending, and the earliest captured prior content always
// wins so undo restores the true original rather than an intermediate
// state. The engine is single-threaded, so the log is not locked.
type ChangeLog struct {
	order  []string
	byPath map[string]*fsops.ChangeRecord
}

// NewChangeLog returns an empty change log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{byPath: make(map[string]*fsops.ChangeRecord)}
}

// Record merges one mutation into the log. A nil record (an idempotent
// no-op such as deleting a missing file) is ignored.
func (c *ChangeLog) Record(rec *fsops.ChangeRecord) {
	if rec == nil {
		return
	}

	existing, ok := c.byPath[rec.Path]
	if !ok {
		clone := *rec
		c.byPath[rec.Path] = &clone
		c.order = append(c.order, rec.Path)
		return
	}

	switch rec.Op {
	case fsops.OpCreate, fsops.OpUpdate:
		// Reclassify in place; the first captured prior content stays.
		if existing.HadPrior {
			existing.Op = fsops.OpUpdate
		} else {
			existing.Op = fsops.OpCreate
		}
		existing.Timestamp = rec.Timestamp

	case fsops.OpDelete:
		// A delete supersedes an earlier create/update for the path,
		// carrying forward the earliest prior content when there was one.
		merged := *rec
		if existing.HadPrior {
			merged.PriorContent = existing.PriorContent
			merged.HadPrior = true
		}
		*existing = merged

	default:
		// A move or directory operation superseding an earlier write
		// keeps the earliest prior content; the true original must
		// stay recoverable.
		merged := *rec
		if existing.HadPrior && !merged.HadPrior {
			merged.PriorContent = existing.PriorContent
			merged.HadPrior = true
		}
		*existing = merged
	}
}

// Records returns the log in insertion order.
func (c *ChangeLog) Records() []fsops.ChangeRecord {
	out := make([]fsops.ChangeRecord, 0, len(c.order))
	for _, path := range c.order {
		out = append(out, *c.byPath[path])
	}
	return out
}

// Len returns the number of logged entries.
func (c *ChangeLog) Len() int {
	return len(c.order)
}

// Get returns the record for a path, or nil.
func (c *ChangeLog) Get(path string) *fsops.ChangeRecord {
	return c.byPath[path]
}
