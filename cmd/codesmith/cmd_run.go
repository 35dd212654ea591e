package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"codesmith/internal/broker"
	"codesmith/internal/engine"
	"codesmith/internal/fsops"
	"codesmith/internal/index"
	"codesmith/internal/model"
	"codesmith/internal/state"
	"codesmith/internal/tools"
)

func newRunCmd() *cobra.Command {
	var (
		flagYes       bool
		flagModelName string
		flagNoContext bool
	)

	cmd := &cobra.Command{
		Use:   "run <instruction>",
		Short: "Execute a task against the working directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := args[0]

			ws, err := fsops.NewWorkspace(flagDir)
			if err != nil {
				return err
			}

			store, err := state.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			prompter := newTerminalPrompter(os.Stdin, os.Stdout, flagYes)
			b := broker.New(prompter.notify)
			prompter.bind(b)

			session := &tools.Session{
				Workspace: ws,
				Changes:   state.NewChangeLog(),
				Broker:    b,
				Inform:    prompter.display,
			}

			modelName := cfg.Model.Name
			if flagModelName != "" {
				modelName = flagModelName
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := model.NewGeminiClient(ctx, cfg.Model.APIKey, modelName)
			if err != nil {
				return err
			}

			eng, err := engine.New(engine.Config{
				Instruction: instruction,
				Client:      client,
				Registry:    tools.NewCapabilityRegistry(),
				Session:     session,
				Store:       store,
				Retry: engine.RetryPolicy{
					MaxAttempts:  cfg.Retry.MaxAttempts,
					InitialDelay: cfg.Retry.InitialDelay,
					Multiplier:   cfg.Retry.Multiplier,
				},
			})
			if err != nil {
				return err
			}

			initial := buildInitialMessage(ctx, ws, store, instruction, flagNoContext)
			report := eng.Run(ctx, initial)
			b.Terminate(broker.SentinelTaskEnded)

			fmt.Printf("\n[%s] %s\n", report.Outcome, report.Message)
			if n := session.Changes.Len(); n > 0 {
				fmt.Printf("%d change(s) applied; `codesmith undo` reverses the most recent.\n", n)
			}
			if report.Outcome == engine.OutcomeError {
				return fmt.Errorf("task did not complete")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "accept all confirmations without prompting")
	cmd.Flags().StringVar(&flagModelName, "model", "", "override the configured model")
	cmd.Flags().BoolVar(&flagNoContext, "no-context", false, "skip prepending indexed context to the first message")
	return cmd
}

// buildInitialMessage assembles the first user message: the
// instruction, a resume note when a prior run of the same instruction
// left persisted changes, and the top indexed snippets for the query.
func buildInitialMessage(ctx context.Context, ws *fsops.Workspace, store *state.Store, instruction string, noContext bool) string {
	var sb strings.Builder
	sb.WriteString(instruction)

	if prior, err := store.Load(ws.Root); err == nil && prior != nil && prior.Instruction == instruction && len(prior.Changes) > 0 {
		sb.WriteString("\n\nA previous run of this task already applied these changes:\n")
		for _, rec := range prior.Changes {
			fmt.Fprintf(&sb, "- %s: %s\n", rec.Op, rec.Path)
		}
	}

	if noContext {
		return sb.String()
	}
	idx, err := index.Open(indexPath(ws), ws, index.Options{
		ChunkLines:   cfg.Index.ChunkLines,
		OverlapLines: cfg.Index.OverlapLines,
		Workers:      cfg.Index.Workers,
		MaxResults:   3,
	})
	if err != nil {
		return sb.String()
	}
	defer idx.Close()

	hits, err := idx.Search(ctx, instruction)
	if err != nil || len(hits) == 0 {
		return sb.String()
	}
	sb.WriteString("\n\nPossibly relevant files:\n")
	for _, h := range hits {
		fmt.Fprintf(&sb, "- %s (lines %d-%d)\n", h.Path, h.StartLine, h.EndLine)
	}
	return sb.String()
}
