package fsops

import "time"

// ChangeOp classifies a logged mutation.
type ChangeOp string

const (
	OpCreate ChangeOp = "create" // new file written
	OpUpdate ChangeOp = "update" // existing file overwritten
	OpDelete ChangeOp = "delete" // file removed
	OpMove   ChangeOp = "move"   // file or directory renamed
	OpMkdir  ChangeOp = "mkdir"  // directory created
	OpRmdir  ChangeOp = "rmdir"  // directory tree removed, irreversible
)

// ChangeRecord is one logged reversible mutation. Paths are relative to
// the workspace root. PriorContent is captured before the mutation so
// undo can restore the original bytes; HadPrior distinguishes an empty
// prior file from no prior file.
type ChangeRecord struct {
	Op           ChangeOp  `json:"op"`
	Path         string    `json:"path"`
	DestPath     string    `json:"dest_path,omitempty"`
	PriorContent []byte    `json:"prior_content,omitempty"`
	HadPrior     bool      `json:"had_prior"`
	Timestamp    time.Time `json:"timestamp"`
}

// Reversible reports whether an inverse operation exists for the record.
func (r *ChangeRecord) Reversible() bool {
	return r.Op != OpRmdir
}
