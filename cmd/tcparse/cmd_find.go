package main

import (
	"github.com/spf13/cobra"

	"github.com/pcdshub/tcparse/internal/query"
)

func newFindCmd(a *app) *cobra.Command {
	var where, format string
	cmd := &cobra.Command{
		Use:   "find <file> <kind>",
		Short: "List nodes of a kind, optionally filtered by an expression",
		Long: `find loads any TwinCAT document with its references and lists every node
whose kind is or derives from <kind>. --where takes a boolean expression over
tag, kind, name, text, file, path, line, parent and attrs, plus Is(kind) and
Attr(key). For example

  tcparse find plc.tsproj Axis --where 'Attr("Id") == "3"'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := query.Compile(where)
			if err != nil {
				return err
			}
			root, err := a.loader.Load(args[0])
			if err != nil {
				return err
			}
			nodes, err := query.Select(root, args[1], filter)
			if err != nil {
				return err
			}
			return formatter(cmd, a.cfg.Summary.Color).Nodes(format, nodes)
		},
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", "filter expression")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, yaml, json)")
	return cmd
}
