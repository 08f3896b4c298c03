package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"orgmap/application/editor"
	"orgmap/domain/core/valueobjects"
	"orgmap/domain/filter"
)

func filterCmd() *cobra.Command {
	var from, to string
	var ghosts bool
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show the nodes connected to the labels matching --from or --to",
		Example: "  orgmap filter --from acme\n" +
			"  orgmap filter --from acme --to beta --ghosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newLoader().Load()
			if err != nil {
				return err
			}
			ed, _, err := openEditor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			q := filter.Query{From: from, To: to}
			printPartition(cmd.OutOrStdout(), ed, q, ed.Filter(q), ghosts)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Label substring for the first endpoint")
	cmd.Flags().StringVar(&to, "to", "", "Label substring for the second endpoint")
	cmd.Flags().BoolVar(&ghosts, "ghosts", false, "Also list the nodes the filter hides")
	return cmd
}

func printPartition(w io.Writer, ed *editor.Editor, q filter.Query, p filter.Partition, ghosts bool) {
	if !p.Active {
		fmt.Fprintln(w, subtle.Sprint("No filter: every node is visible"))
	} else {
		fmt.Fprintf(w, "%s from=%q to=%q\n", brand.Sprint("filter"), q.From, q.To)
	}

	fmt.Fprintf(w, "%s %d\n", good.Sprint("visible"), len(p.Visible))
	for _, line := range describe(ed, p.Visible) {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if !p.Active {
		return
	}
	fmt.Fprintf(w, "%s %d\n", subtle.Sprint("ghosted"), len(p.Ghosted))
	if ghosts {
		for _, line := range describe(ed, p.Ghosted) {
			fmt.Fprintf(w, "  %s\n", subtle.Sprint(line))
		}
	}
}

func describe(ed *editor.Editor, ids []valueobjects.NodeID) []string {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := ed.Node(id)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("%-12s %s", n.Type, n.Label)
		if n.Hidden {
			line += " " + warn.Sprint("(hidden)")
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return strings.ToLower(lines[i]) < strings.ToLower(lines[j]) })
	return lines
}
