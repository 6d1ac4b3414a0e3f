package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"controlling_fluidics/internal/script"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Valves []string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check <script-file>",
		Short: "Validate a script file",
		Long: `Parse a script file against the configured valves without running it.

Prints the parsed steps and the expected duration. A syntax error reports
the line and the offending token and exits with status 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Valves, "valves", nil, "valve aliases to check against instead of the config file")

	return cmd
}

func runCheck(rootOpts *RootOptions, opts *CheckOptions, path string, cmd *cobra.Command) error {
	valveSet, err := checkValveSet(rootOpts, opts)
	if err != nil {
		return err
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read script", err)
	}

	out := cmd.OutOrStdout()
	sc, err := script.Parse(string(text), valveSet)
	if err != nil {
		var syntaxErr *script.SyntaxError
		if errors.As(err, &syntaxErr) {
			fmt.Fprintf(out, "✗ %s: line %d\n", path, syntaxErr.Line)
			fmt.Fprintf(out, "  %s\n", syntaxErr.Reason)
			if syntaxErr.Token != "" {
				fmt.Fprintf(out, "  token: %q\n", syntaxErr.Token)
			}
			return WrapExitError(ExitFailure, "invalid script", err)
		}
		fmt.Fprintf(out, "✗ %s: %v\n", path, err)
		return WrapExitError(ExitFailure, "invalid script", err)
	}

	fmt.Fprintf(out, "✓ %s: %d steps, expected %s\n", path, sc.Len(), formatSeconds(sc.ExpectedSeconds))
	for i, step := range sc.Steps() {
		fmt.Fprintf(out, "  %3d  %s\n", i+1, step)
	}
	return nil
}

func checkValveSet(rootOpts *RootOptions, opts *CheckOptions) (script.ValveSet, error) {
	if len(opts.Valves) > 0 {
		return script.NewValveSet(opts.Valves...), nil
	}
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config (or pass --valves)", err)
	}
	aliases := make([]string, 0, len(cfg.Valves))
	for _, v := range cfg.Valves {
		aliases = append(aliases, v.Alias)
	}
	return script.NewValveSet(aliases...), nil
}

// formatSeconds renders a duration as h:mm:ss.
func formatSeconds(total int) string {
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
}
