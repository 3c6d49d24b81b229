package main

import (
	"github.com/spf13/cobra"

	"github.com/pcdshub/tcparse/internal/stcmd"
)

func newStcmdCmd(a *app) *cobra.Command {
	var opts stcmd.Options
	cmd := &cobra.Command{
		Use:   "stcmd <tsproj>",
		Short: "Generate an ethercatmc st.cmd startup script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg.Stcmd
			opts.Binary = stringDefault(cmd, "binary", opts.Binary, c.Binary)
			opts.Delim = stringDefault(cmd, "delim", opts.Delim, c.Delim)
			opts.Template = stringDefault(cmd, "template", opts.Template, c.Template)
			opts.MotorPort = c.MotorPort
			opts.AsynPort = c.AsynPort
			opts.DefaultADSPort = c.DefaultADSPort
			opts.Precision = c.Precision

			b, err := stcmd.NewBuilder(opts)
			if err != nil {
				return err
			}
			p, err := a.loader.LoadProject(args[0])
			if err != nil {
				return err
			}
			return b.Build(p, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Prefix, "prefix", "p", "", "PV prefix (default: upper-cased name)")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "IOC name (default: project file name)")
	cmd.Flags().StringVar(&opts.Binary, "binary", "", "IOC binary name")
	cmd.Flags().StringVar(&opts.Delim, "delim", "", "PV delimiter")
	cmd.Flags().StringVar(&opts.Template, "template", "", "template file replacing the built-in one")
	return cmd
}
