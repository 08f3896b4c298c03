package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"orgmap/application/ports"
)

func exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every node and edge of the configured store",
		Example: "  orgmap export --format yaml\n" +
			"  orgmap export --format json --out graph.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newLoader().Load()
			if err != nil {
				return err
			}
			ed, _, err := openEditor(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeSnapshot(w, ed.Snapshot(), format); err != nil {
				return err
			}
			if out != "" {
				status := ed.Status()
				fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %d nodes and %d edges to %s\n",
					good.Sprint("✓"), status.Nodes, status.Edges, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func writeSnapshot(w io.Writer, snap *ports.Snapshot, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unknown format %q, want yaml or json", format)
	}
}
