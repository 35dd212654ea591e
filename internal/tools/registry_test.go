package tools

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"codesmith/internal/broker"
	"codesmith/internal/fsops"
	"codesmith/internal/state"
)

// =============================================================================
// HELPERS
// =============================================================================

// testSession builds a session whose broker resolves every confirmation
// with the given decision and every question with the given answer.
func testSession(t *testing.T, decision broker.Decision, answer string) *Session {
	t.Helper()

	ws, err := fsops.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	var b *broker.Broker
	b = broker.New(func(r broker.Request) {
		go func() {
			if r.Kind == broker.KindQuestion {
				b.Resolve(r.ID, broker.Resolution{Answer: answer})
				return
			}
			b.Resolve(r.ID, broker.Resolution{Decision: decision})
		}()
	})

	return &Session{
		Workspace: ws,
		Changes:   state.NewChangeLog(),
		Broker:    b,
		Inform:    func(string) {},
	}
}

func exec(t *testing.T, s *Session, name string, args map[string]any) Result {
	t.Helper()
	return NewCapabilityRegistry().Execute(context.Background(), s, name, args)
}

// =============================================================================
// DISPATCH BOUNDARY
// =============================================================================

func TestDeclaredCapabilitySet(t *testing.T) {
	t.Parallel()
	r := NewCapabilityRegistry()

	want := []string{
		"askUserQuestion",
		"createDirectory",
		"deleteDirectory",
		"deleteFile",
		"finish",
		"listFiles",
		"moveItem",
		"readFileContent",
		"searchFiles",
		"searchFilesByRegex",
		"showInformationTextToUser",
		"writeFileContent",
	}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Fatalf("capability names mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteUnknownCapability(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	res := exec(t, s, "launchMissiles", nil)
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "unknown capability")
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	res := exec(t, s, "readFileContent", map[string]any{})
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "missing required argument")
}

func TestExecuteRecoversPanic(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.MustRegister(&Tool{
		Name:    "explode",
		Execute: func(context.Context, *Session, map[string]any) Result { panic("boom") },
	})

	res := r.Execute(context.Background(), nil, "explode", nil)
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "internal error")
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	tool := &Tool{Name: "x", Execute: func(context.Context, *Session, map[string]any) Result { return Success(nil) }}
	require.NoError(t, r.Register(tool))
	require.ErrorIs(t, r.Register(tool), ErrToolAlreadyRegistered)
}

// =============================================================================
// FILE CAPABILITIES
// =============================================================================

func TestWriteThenReadFileContent(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	res := exec(t, s, "writeFileContent", map[string]any{
		"filePath": "hello.txt",
		"content":  "hi there",
	})
	require.True(t, res.OK(), "write failed: %s", res.ErrText())
	require.Equal(t, true, res.Payload["created"])
	require.Equal(t, 1, s.Changes.Len())

	res = exec(t, s, "readFileContent", map[string]any{"filePath": "hello.txt"})
	require.True(t, res.OK())
	require.Equal(t, "hi there", res.Payload["content"])
}

func TestWriteFileContentRejected(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionReject, "")

	res := exec(t, s, "writeFileContent", map[string]any{
		"filePath": "never.txt",
		"content":  "nope",
	})
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "rejected")
	require.Equal(t, 0, s.Changes.Len())

	_, err := s.Workspace.ReadFile("never.txt")
	require.ErrorIs(t, err, fsops.ErrNotFound)
}

func TestWriteFileContentConfinement(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	res := exec(t, s, "writeFileContent", map[string]any{
		"filePath": "../escape.txt",
		"content":  "x",
	})
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "escapes working directory")
}

func TestDeleteFileIdempotentWithoutConfirmation(t *testing.T) {
	t.Parallel()
	// A rejecting broker proves no confirmation is requested for a
	// file that does not exist.
	s := testSession(t, broker.DecisionReject, "")

	res := exec(t, s, "deleteFile", map[string]any{"filePath": "ghost.txt"})
	require.True(t, res.OK())
	require.Contains(t, res.Payload["message"], "did not exist")
	require.Equal(t, 0, s.Changes.Len())
}

func TestDeleteDirectoryMissingSkipsConfirmation(t *testing.T) {
	t.Parallel()
	// A rejecting broker proves no confirmation is requested for a
	// directory that does not exist.
	s := testSession(t, broker.DecisionReject, "")

	res := exec(t, s, "deleteDirectory", map[string]any{"directoryPath": "ghost"})
	require.True(t, res.OK())
	require.Contains(t, res.Payload["message"], "did not exist")
	require.Equal(t, 0, s.Changes.Len())
}

func TestMoveItemConflict(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	require.True(t, exec(t, s, "writeFileContent", map[string]any{"filePath": "a.txt", "content": "a"}).OK())
	require.True(t, exec(t, s, "writeFileContent", map[string]any{"filePath": "b.txt", "content": "b"}).OK())

	res := exec(t, s, "moveItem", map[string]any{"sourcePath": "a.txt", "destinationPath": "b.txt"})
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "already exists")
}

func TestCreateDirectoryIdempotent(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	res := exec(t, s, "createDirectory", map[string]any{"directoryPath": "a/b"})
	require.True(t, res.OK())
	require.Equal(t, 1, s.Changes.Len())

	res = exec(t, s, "createDirectory", map[string]any{"directoryPath": "a/b"})
	require.True(t, res.OK())
	require.Contains(t, res.Payload["message"], "already exists")
	require.Equal(t, 1, s.Changes.Len(), "repeat mkdir must not append a record")
}

func TestListFilesDefaultsToRoot(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")
	require.True(t, exec(t, s, "writeFileContent", map[string]any{"filePath": "only.txt", "content": ""}).OK())

	res := exec(t, s, "listFiles", map[string]any{})
	require.True(t, res.OK())
	entries := res.Payload["entries"].([]fsops.Entry)
	require.Len(t, entries, 1)
	require.Equal(t, "only.txt", entries[0].Name)
}

// =============================================================================
// INTERACTION AND TERMINATION
// =============================================================================

func TestAskUserQuestion(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "use tabs")

	res := exec(t, s, "askUserQuestion", map[string]any{"question": "tabs or spaces?"})
	require.True(t, res.OK())
	require.Equal(t, "use tabs", res.Payload["answer"])
}

func TestAskUserQuestionSentinelBecomesError(t *testing.T) {
	t.Parallel()

	ws, err := fsops.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	var b *broker.Broker
	b = broker.New(func(r broker.Request) {
		go b.Terminate(broker.SentinelDisconnected)
	})
	s := &Session{Workspace: ws, Changes: state.NewChangeLog(), Broker: b}

	res := exec(t, s, "askUserQuestion", map[string]any{"question": "anyone there?"})
	require.False(t, res.OK())
	require.Contains(t, res.ErrText(), "disconnected")
}

func TestShowInformationNeverFails(t *testing.T) {
	t.Parallel()
	var shown string
	s := testSession(t, broker.DecisionReject, "")
	s.Inform = func(msg string) { shown = msg }

	res := exec(t, s, "showInformationTextToUser", map[string]any{"messageToDisplay": "heads up"})
	require.True(t, res.OK())
	require.Equal(t, "heads up", shown)
}

func TestFinishIsTerminal(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptOnce, "")

	res := exec(t, s, "finish", map[string]any{"finalMessage": "all done"})
	require.True(t, res.OK())
	require.True(t, res.Terminal)
	require.Equal(t, "all done", res.FinalMessage)
}

func TestAcceptAllSkipsSecondConfirmation(t *testing.T) {
	t.Parallel()
	s := testSession(t, broker.DecisionAcceptAll, "")

	require.True(t, exec(t, s, "writeFileContent", map[string]any{"filePath": "1.txt", "content": "a"}).OK())
	require.True(t, s.Broker.AcceptAll())

	// The broker never notifies again once accept-all is set, so the
	// second write must succeed without a round-trip.
	require.True(t, exec(t, s, "writeFileContent", map[string]any{"filePath": "2.txt", "content": "b"}).OK())

	data, err := s.Workspace.ReadFile("2.txt")
	require.NoError(t, err)
	require.Equal(t, "b", string(data))
}
