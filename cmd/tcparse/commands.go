package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pcdshub/tcparse/internal/config"
	"github.com/pcdshub/tcparse/internal/logger"
	"github.com/pcdshub/tcparse/internal/report"
	"github.com/pcdshub/tcparse/internal/twincat"
)

// app holds the state shared by all subcommands once the root command has
// loaded the configuration.
type app struct {
	logLevel   string
	configFile string

	cfg    *config.Config
	loader *twincat.Loader
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tcparse",
		Short: "Inspect TwinCAT projects",
		Long: `tcparse loads a TwinCAT .tsproj together with every file it references
(NC axes, nested PLC projects, sources and TMC files) and reports on the
resolved project.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file applied last")

	root.AddCommand(
		newSummaryCmd(a),
		newStcmdCmd(a),
		newFindCmd(a),
		newExportCmd(a),
		newRoutesCmd(a),
		newCheckCmd(a),
	)
	return root
}

// setup layers the configuration, using the directory of the first argument
// as the project directory, and builds the loader from it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	projectDir := ""
	if len(args) > 0 {
		projectDir = filepath.Dir(args[0])
	}
	cfg, err := config.LoadFull(projectDir, a.configFile)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if err := logger.SetLevel(level); err != nil {
		return err
	}
	logger.Debug("configuration loaded", "sources", cfg.Sources, "drive_blocks", cfg.DriveBlocks)

	a.cfg = cfg
	a.loader = twincat.NewLoader(twincat.NewRegistry(twincat.WithDriveBlocks(cfg.DriveBlocks...)))
	return nil
}

// formatter writes to the command's output, colored according to mode.
func formatter(cmd *cobra.Command, mode string) *report.Formatter {
	w := cmd.OutOrStdout()
	return report.NewFormatter(w, report.UseColor(mode, outputFile(w)))
}

func outputFile(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}

// stringDefault returns the flag value when set on the command line, def
// otherwise.
func stringDefault(cmd *cobra.Command, name, value, def string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return def
}
