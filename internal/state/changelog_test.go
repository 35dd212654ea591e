package state

import (
	"testing"
	"time"

	"codesmith/internal/fsops"
)

// =============================================================================
// CHANGE LOG MERGING
// =============================================================================

func TestRecordDoubleWriteKeepsEarliestPrior(t *testing.T) {
	t.Parallel()
	log := NewChangeLog()

	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpUpdate, Path: "a.txt",
		PriorContent: []byte("original"), HadPrior: true,
		Timestamp: time.Now(),
	})
	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpUpdate, Path: "a.txt",
		PriorContent: []byte("intermediate"), HadPrior: true,
		Timestamp: time.Now(),
	})

	recs := log.Records()
	if len(recs) != 1 {
		t.Fatalf("len = %d, want exactly one record", len(recs))
	}
	if string(recs[0].PriorContent) != "original" {
		t.Fatalf("prior = %q, want the content before the first write", recs[0].PriorContent)
	}
	if recs[0].Op != fsops.OpUpdate {
		t.Fatalf("op = %s, want update", recs[0].Op)
	}
}

func TestRecordCreateThenUpdateStaysCreate(t *testing.T) {
	t.Parallel()
	log := NewChangeLog()

	log.Record(&fsops.ChangeRecord{Op: fsops.OpCreate, Path: "new.txt"})
	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpUpdate, Path: "new.txt",
		PriorContent: []byte("v1"), HadPrior: true,
	})

	recs := log.Records()
	if len(recs) != 1 || recs[0].Op != fsops.OpCreate {
		t.Fatalf("records = %+v, want single create", recs)
	}
	if recs[0].HadPrior {
		t.Fatal("create record gained prior content")
	}
}

func TestRecordDeleteSupersedesWrite(t *testing.T) {
	t.Parallel()
	log := NewChangeLog()

	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpUpdate, Path: "a.txt",
		PriorContent: []byte("original"), HadPrior: true,
	})
	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpDelete, Path: "a.txt",
		PriorContent: []byte("rewritten"), HadPrior: true,
	})

	recs := log.Records()
	if len(recs) != 1 || recs[0].Op != fsops.OpDelete {
		t.Fatalf("records = %+v, want single delete", recs)
	}
	if string(recs[0].PriorContent) != "original" {
		t.Fatalf("prior = %q, want earliest content for undo", recs[0].PriorContent)
	}
}

func TestRecordMoveSupersedingWriteKeepsPrior(t *testing.T) {
	t.Parallel()
	log := NewChangeLog()

	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpUpdate, Path: "a.txt",
		PriorContent: []byte("original"), HadPrior: true,
	})
	log.Record(&fsops.ChangeRecord{
		Op: fsops.OpMove, Path: "a.txt", DestPath: "b.txt",
	})

	recs := log.Records()
	if len(recs) != 1 || recs[0].Op != fsops.OpMove {
		t.Fatalf("records = %+v, want single move", recs)
	}
	if recs[0].DestPath != "b.txt" {
		t.Fatalf("dest = %q", recs[0].DestPath)
	}
	if !recs[0].HadPrior || string(recs[0].PriorContent) != "original" {
		t.Fatalf("earliest prior content lost: HadPrior=%v prior=%q",
			recs[0].HadPrior, recs[0].PriorContent)
	}
}

func TestRecordNilIsIgnored(t *testing.T) {
	t.Parallel()
	log := NewChangeLog()
	log.Record(nil)
	if log.Len() != 0 {
		t.Fatalf("len = %d after recording nil", log.Len())
	}
}

func TestRecordsPreserveInsertionOrder(t *testing.T) {
	t.Parallel()
	log := NewChangeLog()

	paths := []string{"c.txt", "a.txt", "b.txt"}
	for _, p := range paths {
		log.Record(&fsops.ChangeRecord{Op: fsops.OpCreate, Path: p})
	}
	// Re-touching the first path must not move it to the end.
	log.Record(&fsops.ChangeRecord{Op: fsops.OpUpdate, Path: "c.txt"})

	recs := log.Records()
	if len(recs) != 3 {
		t.Fatalf("len = %d", len(recs))
	}
	for i, p := range paths {
		if recs[i].Path != p {
			t.Fatalf("recs[%d].Path = %s, want %s", i, recs[i].Path, p)
		}
	}
}
