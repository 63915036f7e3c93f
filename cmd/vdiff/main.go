package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/internal/config"
	"github.com/vango-dev/vdiff/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if !isTerminal(os.Stderr) {
		errors.DisableColors()
	}
	colorOutput = isTerminal(os.Stdout)

	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vdiff",
		Short: "Virtual DOM diffing and patching toolkit",
		Long: `vdiff diffs virtual DOM trees and applies the resulting patches to a
live tree.

  • diff two YAML tree fixtures and inspect the patches
  • benchmark diff and apply over synthetic keyed lists
  • serve a demo program and stream its patches over WebSocket
  • replay a recorded patch journal`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to "+config.ConfigFileName+" (default ./"+config.ConfigFileName+" if present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		diffCmd(flags),
		benchCmd(),
		serveCmd(flags),
		replayCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// load reads the configuration and applies the global overrides.
func (f *globalFlags) load() (*config.Config, error) {
	load := config.LoadOptional
	if f.configPath != "" {
		load = config.LoadFile
	}
	cfg, err := load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		if _, err := config.ParseLevel(f.logLevel); err != nil {
			return nil, errors.New("E401").WithDetail("--log-level: " + err.Error())
		}
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

// logger builds the command logger. Logs go to stderr so stdout stays
// machine readable.
func (f *globalFlags) logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return cfg.Logger(cmd.ErrOrStderr())
}

// colorOutput enables ANSI colors in the helpers below.
var colorOutput = false

func paint(code, s string) string {
	if !colorOutput {
		return s
	}
	return code + s + "\033[0m"
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}
