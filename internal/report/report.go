// internal/report/report.go

// Package report renders the enriched repositories as a Markdown list.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github-repo-enricher/internal/model"
)

const title = "# GitHub Repositories"

// Source reads the joined listing/detail rows, ordered by name.
type Source interface {
	ListEnriched(ctx context.Context) ([]model.EnrichedRepository, error)
}

// Generator writes the repository report.
type Generator struct {
	src    Source
	logger *slog.Logger
}

func NewGenerator(src Source, logger *slog.Logger) *Generator {
	return &Generator{src: src, logger: logger.With("component", "report")}
}

// Render writes the report to path. The file is replaced atomically.
func (g *Generator) Render(ctx context.Context, path string) error {
	rows, err := g.src.ListEnriched(ctx)
	if err != nil {
		return fmt.Errorf("failed to read enriched repositories: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	g.logger.Info("Report written", "path", path, "repositories", len(rows))
	return nil
}

// Write renders rows to w.
func Write(w io.Writer, rows []model.EnrichedRepository) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n\n", title)
	for _, r := range rows {
		fmt.Fprintln(bw, Line(r))
	}
	return bw.Flush()
}

// Line formats one repository:
// - [name](listing_url) | detail_url | detail_updated_at | description | stars: N | forks: M
func Line(r model.EnrichedRepository) string {
	var desc string
	if r.Description != nil {
		desc = strings.Join(strings.Fields(*r.Description), " ")
	}
	return fmt.Sprintf("- [%s](%s) | %s | %s | %s | stars: %d | forks: %d",
		r.Name, r.ListingURL, r.DetailURL, model.FormatTime(r.DetailUpdatedAt), desc, r.Stars, r.Forks)
}
