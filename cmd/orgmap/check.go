package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and load the configured store once",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			cfg, err := newLoader().Load()
			if err != nil {
				fmt.Fprintf(w, "%s config: %v\n", bad.Sprint("✗"), err)
				return err
			}
			fmt.Fprintf(w, "%s config %s\n", good.Sprint("✓"), subtle.Sprint(cfg.LoadedFrom))
			fmt.Fprintf(w, "  environment  %s\n", cfg.Environment)
			fmt.Fprintf(w, "  store        %s (graph %q)\n", cfg.Store.Adapter, cfg.Store.GraphName)
			fmt.Fprintf(w, "  listen       %s\n", cfg.Server.Address())
			if cfg.Auth.JWTSecret == "" {
				fmt.Fprintf(w, "  %s API authentication is off\n", warn.Sprint("!"))
			}

			ed, result, err := openEditor(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprintf(w, "%s store: %v\n", bad.Sprint("✗"), err)
				return err
			}
			fmt.Fprintf(w, "%s loaded %d nodes and %d edges from %s\n", good.Sprint("✓"), result.Nodes, result.Edges, result.Store)
			if result.LooseEdges > 0 {
				fmt.Fprintf(w, "  %s %d edge rows with a blank relationship, missing endpoint or repeated key\n", warn.Sprint("!"), result.LooseEdges)
			}
			if result.StrayNodes > 0 {
				fmt.Fprintf(w, "  %s %d node rows without an identity or with a repeated id\n", warn.Sprint("!"), result.StrayNodes)
			}
			status := ed.Status()
			if !status.Authorized {
				fmt.Fprintf(w, "  %s saving needs a credential; POST /api/v1/auth first\n", warn.Sprint("!"))
			}
			return nil
		},
	}
}
