package tools

import (
	"context"
	"errors"
	"fmt"

	"codesmith/internal/broker"
	"codesmith/internal/fsops"
)

// NewCapabilityRegistry builds the registry with the full declared
// capability set. The names and argument names are the wire contract
// with the model and must not change.
func NewCapabilityRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(&Tool{
		Name:        "readFileContent",
		Description: "Read the content of a file in the working directory.",
		Execute:     readFileContent,
		Schema: ToolSchema{
			Required: []string{"filePath"},
			Properties: map[string]Property{
				"filePath": {Type: "string", Description: "Path of the file, relative to the working directory."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "listFiles",
		Description: "List the entries of a directory. Ignored entries (version control metadata, ignore-file matches) are excluded.",
		Execute:     listFiles,
		Schema: ToolSchema{
			Properties: map[string]Property{
				"directoryPath": {Type: "string", Description: "Directory to list, relative to the working directory. Defaults to the working directory itself."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "searchFiles",
		Description: "Find files by glob pattern. Returns matching relative paths.",
		Execute:     searchFiles,
		Schema: ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]Property{
				"pattern": {Type: "string", Description: "Glob pattern, relative, without parent traversal. ** matches across directories."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "searchFilesByRegex",
		Description: "Search file contents with a regular expression. Returns per-file match counts, not the matched content.",
		Execute:     searchFilesByRegex,
		Schema: ToolSchema{
			Required: []string{"regexString"},
			Properties: map[string]Property{
				"regexString":   {Type: "string", Description: "Regular expression to search for."},
				"directoryPath": {Type: "string", Description: "Directory to search under. Defaults to the working directory."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "writeFileContent",
		Description: "Write content to a file, creating it and any parent directories if needed. Asks the user for confirmation.",
		Confirmable: true,
		Execute:     writeFileContent,
		Schema: ToolSchema{
			Required: []string{"filePath", "content"},
			Properties: map[string]Property{
				"filePath": {Type: "string", Description: "Path of the file, relative to the working directory."},
				"content":  {Type: "string", Description: "Full new content of the file."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "createDirectory",
		Description: "Create a directory (and missing parents). Succeeds if it already exists.",
		Execute:     createDirectory,
		Schema: ToolSchema{
			Required: []string{"directoryPath"},
			Properties: map[string]Property{
				"directoryPath": {Type: "string", Description: "Directory to create, relative to the working directory."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "deleteFile",
		Description: "Delete a file. Asks the user for confirmation. Deleting a missing file succeeds.",
		Confirmable: true,
		Execute:     deleteFile,
		Schema: ToolSchema{
			Required: []string{"filePath"},
			Properties: map[string]Property{
				"filePath": {Type: "string", Description: "Path of the file to delete."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "moveItem",
		Description: "Move or rename a file or directory. Fails if the destination already exists. Asks the user for confirmation.",
		Confirmable: true,
		Execute:     moveItem,
		Schema: ToolSchema{
			Required: []string{"sourcePath", "destinationPath"},
			Properties: map[string]Property{
				"sourcePath":      {Type: "string", Description: "Current path of the item."},
				"destinationPath": {Type: "string", Description: "New path of the item. Must not exist."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "deleteDirectory",
		Description: "Recursively delete a directory. This cannot be undone. Asks the user for confirmation.",
		Confirmable: true,
		Execute:     deleteDirectory,
		Schema: ToolSchema{
			Required: []string{"directoryPath"},
			Properties: map[string]Property{
				"directoryPath": {Type: "string", Description: "Directory to delete recursively."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "askUserQuestion",
		Description: "Ask the user a question and wait for the answer.",
		Execute:     askUserQuestion,
		Schema: ToolSchema{
			Required: []string{"question"},
			Properties: map[string]Property{
				"question": {Type: "string", Description: "Question to show the user."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "showInformationTextToUser",
		Description: "Display an informational message to the user without waiting for a response.",
		Execute:     showInformationTextToUser,
		Schema: ToolSchema{
			Required: []string{"messageToDisplay"},
			Properties: map[string]Property{
				"messageToDisplay": {Type: "string", Description: "Message to display."},
			},
		},
	})

	r.MustRegister(&Tool{
		Name:        "finish",
		Description: "Finish the task. Call this exactly once, when the task is complete or cannot proceed.",
		Execute:     finish,
		Schema: ToolSchema{
			Required: []string{"finalMessage"},
			Properties: map[string]Property{
				"finalMessage": {Type: "string", Description: "Summary of what was done, shown to the user."},
			},
		},
	})

	return r
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok
}

// confirm suspends on the broker for a mutation. It returns a failure
// result when the user rejects or the session terminated with the
// confirmation outstanding.
func confirm(ctx context.Context, s *Session, message, diff string) (Result, bool) {
	res, err := s.Broker.AskConfirmation(ctx, message, diff)
	if err != nil {
		if errors.Is(err, broker.ErrInteractionPending) {
			return Failure("cannot request confirmation: %v", err), false
		}
		return Failure("confirmation failed: %v", err), false
	}
	if res.Sentinel != broker.SentinelNone {
		return Failure("confirmation was not answered: session %s", res.Sentinel), false
	}
	if res.Decision == broker.DecisionReject {
		return Failure("the user rejected the proposed change: %s", message), false
	}
	return Result{}, true
}

// =============================================================================
// READ-ONLY CAPABILITIES
// =============================================================================

func readFileContent(_ context.Context, s *Session, args map[string]any) Result {
	path, ok := stringArg(args, "filePath")
	if !ok {
		return Failure("filePath must be a string")
	}
	data, err := s.Workspace.ReadFile(path)
	if err != nil {
		return Failure("%v", err)
	}
	return Success(map[string]any{"content": string(data)})
}

func listFiles(_ context.Context, s *Session, args map[string]any) Result {
	dir, _ := stringArg(args, "directoryPath")
	entries, err := s.Workspace.List(dir)
	if err != nil {
		return Failure("%v", err)
	}
	return Success(map[string]any{"entries": entries})
}

func searchFiles(_ context.Context, s *Session, args map[string]any) Result {
	pattern, ok := stringArg(args, "pattern")
	if !ok {
		return Failure("pattern must be a string")
	}
	matches, err := s.Workspace.Glob(pattern)
	if err != nil {
		return Failure("%v", err)
	}
	return Success(map[string]any{"matches": matches})
}

func searchFilesByRegex(_ context.Context, s *Session, args map[string]any) Result {
	pattern, ok := stringArg(args, "regexString")
	if !ok {
		return Failure("regexString must be a string")
	}
	dir, _ := stringArg(args, "directoryPath")
	matches, err := s.Workspace.SearchRegex(pattern, dir)
	if err != nil {
		return Failure("%v", err)
	}
	return Success(map[string]any{"matches": matches})
}

// =============================================================================
// MUTATING CAPABILITIES
// =============================================================================

func writeFileContent(ctx context.Context, s *Session, args map[string]any) Result {
	path, ok := stringArg(args, "filePath")
	if !ok {
		return Failure("filePath must be a string")
	}
	content, ok := stringArg(args, "content")
	if !ok {
		return Failure("content must be a string")
	}

	// Prior content is read before asking so the user sees the real
	// diff; this also fails confinement violations before any prompt.
	prior, hadPrior, err := s.Workspace.PriorContent(path)
	if err != nil {
		return Failure("%v", err)
	}

	verb := "Create"
	if hadPrior {
		verb = "Overwrite"
	}
	preview := fsops.DiffPreview(prior, []byte(content))
	if failure, ok := confirm(ctx, s, fmt.Sprintf("%s file %s?", verb, path), preview); !ok {
		return failure
	}

	rec, err := s.Workspace.WriteFile(path, []byte(content))
	if err != nil {
		return Failure("%v", err)
	}
	s.Changes.Record(rec)
	return Success(map[string]any{
		"filePath": rec.Path,
		"created":  rec.Op == fsops.OpCreate,
	})
}

func createDirectory(_ context.Context, s *Session, args map[string]any) Result {
	dir, ok := stringArg(args, "directoryPath")
	if !ok {
		return Failure("directoryPath must be a string")
	}

	rec, err := s.Workspace.Mkdir(dir)
	if err != nil {
		return Failure("%v", err)
	}
	if rec == nil {
		return Success(map[string]any{"message": fmt.Sprintf("directory %s already exists", dir)})
	}
	s.Changes.Record(rec)
	return Success(map[string]any{"directoryPath": rec.Path})
}

func deleteFile(ctx context.Context, s *Session, args map[string]any) Result {
	path, ok := stringArg(args, "filePath")
	if !ok {
		return Failure("filePath must be a string")
	}

	_, exists, err := s.Workspace.PriorContent(path)
	if err != nil {
		return Failure("%v", err)
	}
	if !exists {
		return Success(map[string]any{"message": fmt.Sprintf("file %s did not exist", path)})
	}

	if failure, ok := confirm(ctx, s, fmt.Sprintf("Delete file %s?", path), ""); !ok {
		return failure
	}

	rec, err := s.Workspace.DeleteFile(path)
	if err != nil {
		return Failure("%v", err)
	}
	s.Changes.Record(rec)
	return Success(map[string]any{"filePath": path})
}

func moveItem(ctx context.Context, s *Session, args map[string]any) Result {
	src, ok := stringArg(args, "sourcePath")
	if !ok {
		return Failure("sourcePath must be a string")
	}
	dst, ok := stringArg(args, "destinationPath")
	if !ok {
		return Failure("destinationPath must be a string")
	}

	if failure, ok := confirm(ctx, s, fmt.Sprintf("Move %s to %s?", src, dst), ""); !ok {
		return failure
	}

	rec, err := s.Workspace.Move(src, dst)
	if err != nil {
		return Failure("%v", err)
	}
	s.Changes.Record(rec)
	return Success(map[string]any{"sourcePath": rec.Path, "destinationPath": rec.DestPath})
}

func deleteDirectory(ctx context.Context, s *Session, args map[string]any) Result {
	dir, ok := stringArg(args, "directoryPath")
	if !ok {
		return Failure("directoryPath must be a string")
	}

	exists, err := s.Workspace.DirExists(dir)
	if err != nil {
		return Failure("%v", err)
	}
	if !exists {
		return Success(map[string]any{"message": fmt.Sprintf("directory %s did not exist", dir)})
	}

	msg := fmt.Sprintf("Recursively delete directory %s? This cannot be undone.", dir)
	if failure, ok := confirm(ctx, s, msg, ""); !ok {
		return failure
	}

	rec, err := s.Workspace.DeleteDir(dir)
	if err != nil {
		return Failure("%v", err)
	}
	if rec == nil {
		return Success(map[string]any{"message": fmt.Sprintf("directory %s did not exist", dir)})
	}
	s.Changes.Record(rec)
	return Success(map[string]any{"directoryPath": rec.Path})
}

// =============================================================================
// INTERACTION AND TERMINATION
// =============================================================================

func askUserQuestion(ctx context.Context, s *Session, args map[string]any) Result {
	question, ok := stringArg(args, "question")
	if !ok {
		return Failure("question must be a string")
	}

	res, err := s.Broker.AskQuestion(ctx, question)
	if err != nil {
		return Failure("cannot ask question: %v", err)
	}
	if res.Sentinel != broker.SentinelNone {
		return Failure("question was not answered: session %s", res.Sentinel)
	}
	return Success(map[string]any{"answer": res.Answer})
}

func showInformationTextToUser(_ context.Context, s *Session, args map[string]any) Result {
	msg, ok := stringArg(args, "messageToDisplay")
	if !ok {
		return Failure("messageToDisplay must be a string")
	}
	if s.Inform != nil {
		s.Inform(msg)
	}
	return Success(map[string]any{"displayed": true})
}

func finish(_ context.Context, _ *Session, args map[string]any) Result {
	msg, ok := stringArg(args, "finalMessage")
	if !ok {
		return Failure("finalMessage must be a string")
	}
	return Finished(msg)
}
