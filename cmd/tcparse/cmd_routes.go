package main

import (
	"github.com/spf13/cobra"
)

func newRoutesCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "routes <StaticRoutes.xml>",
		Short: "Print the static ADS routes table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := a.loader.LoadRoutes(args[0])
			if err != nil {
				return err
			}
			format = stringDefault(cmd, "format", format, a.cfg.Summary.Format)
			return formatter(cmd, a.cfg.Summary.Color).Routes(format, routes)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (text, yaml, json)")
	return cmd
}
