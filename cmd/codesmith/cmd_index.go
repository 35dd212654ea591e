package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"codesmith/internal/fsops"
	"codesmith/internal/index"
)

// indexPath keys the index database by workspace so different projects
// never share chunks.
func indexPath(ws *fsops.Workspace) string {
	sum := sha256.Sum256([]byte(ws.Root))
	name := fmt.Sprintf("index-%s.db", hex.EncodeToString(sum[:6]))
	return filepath.Join(filepath.Dir(cfg.Store.Path), name)
}

func openIndex(ws *fsops.Workspace) (*index.Index, error) {
	return index.Open(indexPath(ws), ws, index.Options{
		ChunkLines:   cfg.Index.ChunkLines,
		OverlapLines: cfg.Index.OverlapLines,
		Workers:      cfg.Index.Workers,
		MaxResults:   cfg.Index.MaxResults,
	})
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the retrieval index for the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := fsops.NewWorkspace(flagDir)
			if err != nil {
				return err
			}
			idx, err := openIndex(ws)
			if err != nil {
				return err
			}
			defer idx.Close()

			n, err := idx.Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d chunk(s) from %s\n", n, ws.Root)
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Query the retrieval index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := fsops.NewWorkspace(flagDir)
			if err != nil {
				return err
			}
			idx, err := openIndex(ws)
			if err != nil {
				return err
			}
			defer idx.Close()

			hits, err := idx.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No matches. Run `codesmith index` first if the index is empty.")
				return nil
			}
			for _, h := range hits {
				fmt.Printf("%s:%d-%d (score %.0f)\n", h.Path, h.StartLine, h.EndLine, h.Score)
			}
			return nil
		},
	}
}
