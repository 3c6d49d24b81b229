package main

import (
	"github.com/spf13/cobra"

	"github.com/pcdshub/tcparse/internal/export"
	"github.com/pcdshub/tcparse/internal/logger"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export -o <db> <tsproj>",
		Short: "Write the resolved project to a SQLite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loader.LoadProject(args[0])
			if err != nil {
				return err
			}
			if err := export.WriteFile(cmd.Context(), output, p); err != nil {
				return err
			}
			logger.Printf("Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "database file to create")
	cmd.MarkFlagRequired("output")
	return cmd
}
