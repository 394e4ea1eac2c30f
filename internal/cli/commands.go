package cli

import (
	"errors"
	"strings"

	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"nextsoundwave/pkg/services"
	"nextsoundwave/pkg/types"
)

// ErrFailed is returned when a command already printed its failure.
var ErrFailed = errors.New("command failed")

func (r *root) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  r.serve,
	}
}

func (r *root) serve(cmd *cobra.Command, _ []string) error {
	a, err := r.setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(cmd.Context())
}

type trackOutput struct {
	Backend          types.BackendKind   `json:"backend"`
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Duration         int                 `json:"duration"`
	AudioURL         string              `json:"audio_url"`
	Codec            string              `json:"codec"`
	EmbedURL         string              `json:"embed_url"`
	FallbackEmbedURL string              `json:"invidious_url"`
	Related          []types.RelatedItem `json:"related"`
}

type failureOutput struct {
	Error   types.FailureKind `json:"error"`
	Message string            `json:"message"`
}

func (r *root) resolveCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a YouTube URL and print the track as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preferred := mo.None[types.BackendKind]()
			if backend != "" {
				kind, ok := types.ParseBackendKind(backend)
				if !ok {
					return errors.New("unknown backend: " + backend)
				}
				preferred = mo.Some(kind)
			}

			a, err := r.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			outcome := a.Ctx.Extractor.Extract(cmd.Context(), args[0], preferred)
			if track, ok := outcome.Track(); ok {
				related := track.Related
				if related == nil {
					related = []types.RelatedItem{}
				}
				return printJSON(cmd.OutOrStdout(), trackOutput{
					Backend:          outcome.Backend(),
					ID:               track.ID.String(),
					Title:            track.Title,
					Duration:         track.Duration,
					AudioURL:         track.AudioURL,
					Codec:            track.Codec,
					EmbedURL:         track.EmbedURL,
					FallbackEmbedURL: track.FallbackEmbedURL,
					Related:          related,
				})
			}

			failure, _ := outcome.Failure()
			if err := printJSON(cmd.OutOrStdout(), failureOutput{Error: failure.Kind, Message: failure.Message}); err != nil {
				return err
			}
			return ErrFailed
		},
	}

	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Preferred backend: primary | fallback")
	return cmd
}

func (r *root) searchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search for videos and print the results as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := r.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Ctx.Search.Search(cmd.Context(), query, services.ClampLimit(limit))
			if err != nil {
				return err
			}
			if results == nil {
				results = []types.SearchResult{}
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", services.DefaultSearchLimit, "Maximum number of results")
	return cmd
}

func (r *root) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the extraction backends and print the report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.Ctx.Extractor.HealthCheck(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Status == types.StatusUnhealthy {
				return ErrFailed
			}
			return nil
		},
	}
}
