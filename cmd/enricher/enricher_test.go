// cmd/enricher/enricher_test.go
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github-repo-enricher/internal/config"
	"github-repo-enricher/internal/credentials"
	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/githubtest"
)

func TestEnricher(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Enricher Suite")
}

func strPtr(s string) *string { return &s }

var _ = Describe("enricher", func() {
	var (
		ctx    context.Context
		server *githubtest.Server
		dir    string
		cfg    *config.Config
	)

	newApp := func(input string) *app {
		return &app{
			cfg:      cfg,
			logger:   slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelDebug})),
			prompter: credentials.NewPrompter(strings.NewReader(input), io.Discard),
		}
	}

	execute := func(a *app, args ...string) error {
		cmd := newRootCmd(a)
		cmd.SetArgs(args)
		cmd.SetOut(io.Discard)
		return cmd.ExecuteContext(ctx)
	}

	reportLines := func() []string {
		data, err := os.ReadFile(cfg.ReportPath)
		Expect(err).NotTo(HaveOccurred())
		var lines []string
		for _, l := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(l, "- ") {
				lines = append(lines, l)
			}
		}
		return lines
	}

	BeforeEach(func() {
		ctx = context.Background()
		server = githubtest.NewServer()
		DeferCleanup(server.Close)
		server.AddUser("alice", "tok123")

		dir = GinkgoT().TempDir()
		cfg = &config.Config{
			LogLevel:             "debug",
			DBURL:                "sqlite://" + filepath.Join(dir, "github_repos.db"),
			GithubAPIURL:         server.APIURL(),
			GithubWebURL:         server.WebURL(),
			UserAgent:            "enricher-test/1.0",
			ReportPath:           filepath.Join(dir, "repos.md"),
			EnrichConcurrency:    5,
			SearchRatePerMinute:  60000,
			SearchBurst:          10,
			MaxRetries:           3,
			RetryInitialInterval: time.Millisecond,
			RequestTimeout:       5 * time.Second,
			ListMaxPages:         1,
			MatchStrategy:        config.MatchExact,
			AuthMaxAttempts:      3,
		}
		Expect(cfg.Validate()).To(Succeed())
	})

	Context("first run with one repository", func() {
		BeforeEach(func() {
			server.SetRepos("alice", githubtest.Repo{
				Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-01-01T00:00:00Z",
			})
		})

		It("writes one enriched line", func() {
			server.SetSearch("proj", []githubtest.Repo{{
				Name: "proj", FullName: "alice/proj", HTMLURL: "https://github.com/alice/proj",
				UpdatedAt: "2024-01-02T00:00:00Z", Description: strPtr("demo"), Stars: 10, Forks: 2,
			}})

			Expect(execute(newApp("alice\ntok123\n"))).To(Succeed())

			lines := reportLines()
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(Equal("- [proj](https://github.com/alice/proj) | https://github.com/alice/proj | 2024-01-02 00:00:00 | demo | stars: 10 | forks: 2"))
		})

		It("succeeds with zero lines when search finds nothing", func() {
			server.SetSearch("proj", []githubtest.Repo{})

			Expect(execute(newApp("alice\ntok123\n"))).To(Succeed())

			Expect(reportLines()).To(BeEmpty())
		})

		It("reuses the stored identity on the next run", func() {
			server.SetSearch("proj", []githubtest.Repo{{Name: "proj", UpdatedAt: "2024-01-02T00:00:00Z"}})
			Expect(execute(newApp("alice\ntok123\n"))).To(Succeed())
			profileCalls, userCalls := server.Calls("profile"), server.Calls("user")

			Expect(execute(newApp(""))).To(Succeed())

			Expect(server.Calls("profile")).To(Equal(profileCalls))
			Expect(server.Calls("user")).To(Equal(userCalls))
		})

		It("re-renders the report without calling GitHub", func() {
			server.SetSearch("proj", []githubtest.Repo{{Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-01-02T00:00:00Z", Stars: 10, Forks: 2}})
			Expect(execute(newApp("alice\ntok123\n"))).To(Succeed())
			Expect(os.Remove(cfg.ReportPath)).To(Succeed())
			searches := server.Calls("search")

			Expect(execute(newApp(""), "report")).To(Succeed())

			Expect(reportLines()).To(HaveLen(1))
			Expect(server.Calls("search")).To(Equal(searches))
		})
	})

	It("fails when the listing is rejected", func() {
		server.FailListing(404)

		err := execute(newApp("alice\ntok123\n"))

		var lf *custom_errors.ListingFailure
		Expect(err).To(BeAssignableToTypeOf(lf))
		Expect(cfg.ReportPath).NotTo(BeAnExistingFile())
	})

	It("fails after repeated bad credentials", func() {
		err := execute(newApp("ghost\nghost\nghost\n"))

		Expect(err).To(MatchError(custom_errors.ErrAttemptsExhausted))
		Expect(server.Calls("repos")).To(BeZero())
	})
})
