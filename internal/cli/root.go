package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"controlling_fluidics/internal/config"
)

// Default config lookup: configs/config.yml, then ./config.yml.
const defaultConfigName = "config"

var defaultConfigPaths = []string{"configs", "."}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	EnvFile    string
}

// NewRootCommand creates the root command for the fluidics CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fluidics",
		Short: "Fluidics valve-script sequencer",
		Long: `Runs valve scripts against a bank of solenoid valves.

Scripts are plain text, one operation per line: open, close, wait, pump
and pause. The server exposes manual valve control, script storage and
run control over HTTP; check and run work on local files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadEnv()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default configs/config.yml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with FLUIDICS_* overrides; ignored when missing")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log_level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// loadConfig reads the config file named by --config or the default lookup.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.LoadFile(o.ConfigPath)
	} else {
		cfg, err = config.Load(defaultConfigName, defaultConfigPaths...)
	}
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return cfg, nil
}

// loadEnv exports the dotenv file into the process environment. Variables
// already set win.
func (o *RootOptions) loadEnv() error {
	if o.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(o.EnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return WrapExitError(ExitCommandError, fmt.Sprintf("load env file %s", o.EnvFile), err)
	}
	return nil
}
