package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"codesmith/internal/fsops"
	"codesmith/internal/state"
)

func newUndoCmd() *cobra.Command {
	var flagSteps int

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent persisted change(s)",
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
			if task == nil || len(task.Changes) == 0 {
				fmt.Println("Nothing to undo for this working directory.")
				return nil
			}

			undone := 0
			for undone < flagSteps && len(task.Changes) > 0 {
				rec := task.Changes[len(task.Changes)-1]
				if err := ws.Undo(&rec); err != nil {
					if errors.Is(err, fsops.ErrUndoUnsupported) {
						return fmt.Errorf("cannot undo %s of %s: recursive directory deletion is irreversible", rec.Op, rec.Path)
					}
					return err
				}
				task.Changes = task.Changes[:len(task.Changes)-1]
				fmt.Printf("Undid %s: %s\n", rec.Op, rec.Path)
				undone++
			}

			if err := store.Replace(task); err != nil {
				return err
			}
			fmt.Printf("%d change(s) undone, %d remaining.\n", undone, len(task.Changes))
			return nil
		},
	}

	cmd.Flags().IntVarP(&flagSteps, "steps", "n", 1, "number of changes to reverse, newest first")
	return cmd
}
