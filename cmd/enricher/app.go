// cmd/enricher/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github-repo-enricher/internal/config"
	"github-repo-enricher/internal/credentials"
	"github-repo-enricher/internal/github"
	"github-repo-enricher/internal/report"
	"github-repo-enricher/internal/store"
	"github-repo-enricher/internal/syncer"
)

// app carries everything a command needs; nothing is process-global.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	prompter credentials.Prompter
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "enricher",
		Short: "Enrich your GitHub repositories with public search metadata",
		Long: "Lists the repositories of the configured GitHub account, looks each one up " +
			"through repository search, stores the results and writes a report.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPipeline(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "report",
		Short: "Render the report from stored data without calling GitHub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.renderReport(cmd.Context())
		},
	})
	return root
}

// runPipeline resolves the identity, lists and enriches repositories and
// renders the report.
func (a *app) runPipeline(ctx context.Context) error {
	st, err := store.Open(ctx, a.cfg.DBURL, a.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := github.NewClient(github.OptionsFromConfig(a.cfg), a.logger)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	id, err := credentials.NewResolver(st, client, a.prompter, a.cfg.AuthMaxAttempts, a.logger).Resolve(ctx)
	if err != nil {
		return err
	}

	matcher, err := syncer.NewMatcher(a.cfg.MatchStrategy)
	if err != nil {
		return err
	}
	s := syncer.NewSyncer(st, client.ForIdentity(id), syncer.Options{
		Concurrency: a.cfg.EnrichConcurrency,
		Matcher:     matcher,
	}, a.logger)

	summary, err := s.Sync(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Run summary", "summary", summary)

	return report.NewGenerator(st, a.logger).Render(ctx, a.cfg.ReportPath)
}

func (a *app) renderReport(ctx context.Context) error {
	st, err := store.Open(ctx, a.cfg.DBURL, a.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return report.NewGenerator(st, a.logger).Render(ctx, a.cfg.ReportPath)
}
