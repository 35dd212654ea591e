package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codesmith/internal/fsops"
	"codesmith/internal/state"
)

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the persisted task state for the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := fsops.NewWorkspace(flagDir)
			if err != nil {
				return err
			}
			store, err := state.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			task, err := store.Load(ws.Root)
			if err != nil {
				return err
			}
			if task == nil {
				fmt.Println("No task state recorded for this working directory.")
				return nil
			}

			fmt.Printf("Instruction: %s\n", task.Instruction)
			fmt.Printf("Updated:     %s\n", task.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Changes:     %d\n", len(task.Changes))
			for i, rec := range task.Changes {
				if rec.DestPath != "" {
					fmt.Printf("  %2d. %-6s %s -> %s\n", i+1, rec.Op, rec.Path, rec.DestPath)
					continue
				}
				reversible := ""
				if !rec.Reversible() {
					reversible = "  (irreversible)"
				}
				fmt.Printf("  %2d. %-6s %s%s\n", i+1, rec.Op, rec.Path, reversible)
			}
			return nil
		},
	}
}
