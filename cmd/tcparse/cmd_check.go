package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pcdshub/tcparse/internal/report"
	"github.com/pcdshub/tcparse/internal/validator"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		format string
		allow  []string
	)
	cmd := &cobra.Command{
		Use:   "check <tsproj>",
		Short: "Report unresolved motors, duplicate axes and other project problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loader.LoadProject(args[0])
			if err != nil {
				return err
			}
			v := validator.NewValidator(p, slices.Concat(a.cfg.Check.Allow, allow))
			v.ValidateProject(cmd.Context())

			out := cmd.OutOrStdout()
			if format != report.FormatText {
				if err := report.Encode(out, format, v.Diagnostics); err != nil {
					return err
				}
			} else {
				for _, d := range v.Diagnostics {
					fmt.Fprintln(out, d)
				}
				if len(v.Diagnostics) > 0 {
					fmt.Fprintf(out, "\nFound %d issues.\n", len(v.Diagnostics))
				} else {
					fmt.Fprintln(out, "No issues found.")
				}
			}
			if n := v.Errors(); n > 0 {
				return fmt.Errorf("%d errors", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "output format (text, yaml, json)")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "diagnostic tags to suppress")
	return cmd
}
