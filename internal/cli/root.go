// Package cli provides the command-line interface for shadowbox.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/shadowbox/internal/cli/commands"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// Flags override values loaded from SHADOWBOX_* environment variables
type Flags struct {
	LogLevel   string
	Dev        bool
	Versions   []int
	OfflineDir string
	Project    string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	flags := &Flags{}
	var rt *commands.Runtime

	rootCmd := &cobra.Command{
		Use:   "shadowbox",
		Short: "shadowbox - multi-version framework test runner",
		Long: `shadowbox runs tests against simulated framework versions. Each version is
loaded into an isolated environment whose calls can be intercepted by
shadows; environments are cached and reset between tests.

Configuration comes from SHADOWBOX_* environment variables; flags override them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)

			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			rt, err = commands.NewRuntime(cfg, logger)
			if err != nil {
				return err
			}
			cmd.SetContext(commands.WithRuntime(cmd.Context(), rt))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt != nil {
				rt.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}} (" + GitCommit + ")\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.Dev, "dev", false, "Development logging")
	pf.IntSliceVar(&flags.Versions, "versions", nil, "Restrict to these platform versions")
	pf.StringVar(&flags.OfflineDir, "offline-dir", "", "Resolve artifacts only from this directory")
	pf.StringVar(&flags.Project, "project", "", "Project configuration file (default: shadowbox.toml)")

	rootCmd.AddCommand(commands.NewVersionsCommand())
	rootCmd.AddCommand(commands.NewFetchCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewMirrorCommand())

	return rootCmd
}

func (f *Flags) apply(cmd *cobra.Command, cfg *config.Config) {
	pf := cmd.Flags()
	if pf.Changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}
	if pf.Changed("dev") {
		cfg.Logging.Development = f.Dev
	}
	if pf.Changed("versions") {
		cfg.Project.Versions = f.Versions
	}
	if pf.Changed("offline-dir") {
		cfg.Artifact.OfflineDir = f.OfflineDir
	}
	if pf.Changed("project") {
		cfg.Project.File = f.Project
	}
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	return logging.New(lc)
}
