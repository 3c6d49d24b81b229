package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pcdshub/tcparse/internal/logger"
	"github.com/pcdshub/tcparse/internal/report"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		format  string
		color   string
		symbols bool
		jobs    int
	)
	cmd := &cobra.Command{
		Use:   "summary <tsproj>...",
		Short: "Summarize projects, their PLCs, axes and motors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = stringDefault(cmd, "format", format, a.cfg.Summary.Format)
			color = stringDefault(cmd, "color", color, a.cfg.Summary.Color)
			if !cmd.Flags().Changed("jobs") {
				jobs = a.cfg.Summary.Jobs
			}

			reports := make([]*report.ProjectReport, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for i, path := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					p, err := a.loader.LoadProject(path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					r, err := report.NewProjectReport(p, symbols)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					reports[i] = r
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info("summarized projects", "count", len(reports))
			return formatter(cmd, color).Projects(format, reports)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (text, yaml, json)")
	cmd.Flags().StringVar(&color, "color", "", "colorize text output (auto, always, never)")
	cmd.Flags().BoolVarP(&symbols, "symbols", "s", false, "include PLC symbols")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "projects loaded in parallel")
	return cmd
}
