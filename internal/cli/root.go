// Package cli implements the nextsoundwave command line using Cobra.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"nextsoundwave/internal/app"
	"nextsoundwave/pkg/appctx"
	"nextsoundwave/pkg/config"
	"nextsoundwave/pkg/logging"
)

// Options customise how the commands obtain their dependencies.
// The zero value reads the environment and wires the real application.
type Options struct {
	Load  func() (*config.Config, error)
	Build func(cfg *config.Config, log *logging.Logger) (*app.App, error)
}

type root struct {
	opts     Options
	logLevel string
	logJSON  bool
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Load == nil {
		opts.Load = config.Load
	}
	if opts.Build == nil {
		opts.Build = app.New
	}
	r := &root{opts: opts}

	cmd := &cobra.Command{
		Use:           "nextsoundwave",
		Short:         "Resolve YouTube links to playable audio",
		Long:          "NextSoundWave turns YouTube links into direct audio streams, with an Invidious fallback when the primary extractor is down.",
		Version:       appctx.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          r.serve,
	}

	cmd.PersistentFlags().StringVar(&r.logLevel, "log-level", "", "Log level: debug | info | warn | error (overrides LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&r.logJSON, "log-json", false, "Emit logs as JSON")

	cmd.AddCommand(
		r.serveCommand(),
		r.resolveCommand(),
		r.searchCommand(),
		r.healthCommand(),
	)
	return cmd
}

// setup loads configuration and wires the application. Logs go to logOut so
// command output on stdout stays machine readable.
func (r *root) setup(logOut io.Writer) (*app.App, error) {
	cfg, err := r.opts.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if r.logLevel != "" {
		cfg.LogLevel = r.logLevel
	}
	if r.logJSON {
		cfg.LogJSON = true
	}

	log := logging.New(cfg.LogLevel, cfg.LogJSON, logOut)
	a, err := r.opts.Build(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
