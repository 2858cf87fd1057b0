// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github-repo-enricher/internal/config"
	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/model"
)

// perPage is the page size of the account repository listing.
const perPage = 100

// Options configures a Client.
type Options struct {
	APIURL               string
	WebURL               string
	UserAgent            string
	Timeout              time.Duration
	MaxRetries           int
	RetryInitialInterval time.Duration
	SearchRatePerMinute  int
	SearchBurst          int
	ListMaxPages         int
	// Transport is the base round tripper. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// OptionsFromConfig maps application configuration onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIURL:               cfg.GithubAPIURL,
		WebURL:               cfg.GithubWebURL,
		UserAgent:            cfg.UserAgent,
		Timeout:              cfg.RequestTimeout,
		MaxRetries:           cfg.MaxRetries,
		RetryInitialInterval: cfg.RetryInitialInterval,
		SearchRatePerMinute:  cfg.SearchRatePerMinute,
		SearchBurst:          cfg.SearchBurst,
		ListMaxPages:         cfg.ListMaxPages,
	}
}

// Client is a wrapper around the go-github client.
// A zero-credential Client can probe profiles, validate tokens and search
// anonymously; ForIdentity returns a Client that acts for one account.
type Client struct {
	opts    Options
	apiURL  *url.URL
	webURL  *url.URL
	logger  *slog.Logger
	limiter *rate.Limiter

	// api carries the bearer token when the client acts for an identity.
	api *github.Client
	// basic authenticates with handle and token; nil until ForIdentity.
	basic *github.Client
}

// NewClient creates an unauthenticated Client.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	apiURL, err := parseBaseURL(opts.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	webURL, err := parseBaseURL(opts.WebURL)
	if err != nil {
		return nil, fmt.Errorf("parse web url: %w", err)
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	opts.MaxRetries = max(opts.MaxRetries, 1)
	opts.ListMaxPages = max(opts.ListMaxPages, 1)
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = time.Second
	}

	c := &Client{
		opts:    opts,
		apiURL:  apiURL,
		webURL:  webURL,
		logger:  logger,
		limiter: newSearchLimiter(opts.SearchRatePerMinute, opts.SearchBurst),
	}
	c.api = c.newAPIClient(opts.Transport)
	return c, nil
}

// ForIdentity returns a Client that authenticates as id. The search rate
// limiter is shared with the receiver.
func (c *Client) ForIdentity(id model.Identity) *Client {
	bearer := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: id.Token}),
		Base:   c.opts.Transport,
	}
	basic := &github.BasicAuthTransport{
		Username:  id.Handle,
		Password:  id.Token,
		Transport: c.opts.Transport,
	}

	clone := *c
	clone.logger = c.logger.With("handle", id.Handle)
	clone.api = c.newAPIClient(bearer)
	clone.basic = c.newAPIClient(basic)
	return &clone
}

// ProbeProfile checks that the public profile page of handle is reachable.
func (c *Client) ProbeProfile(ctx context.Context, handle string) error {
	profile := c.webURL.JoinPath(handle)
	req, err := c.api.NewRequest(http.MethodGet, profile.String(), nil)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, "probe profile", func() (*github.Response, error) {
		return c.api.Do(ctx, req, nil)
	})
	if err != nil {
		if status := statusOf(err); status >= 400 && status < 500 {
			return fmt.Errorf("%w: %s (status %d)", custom_errors.ErrHandleNotFound, handle, status)
		}
		return err
	}
	return nil
}

// ValidateToken confirms token authenticates against the current-user endpoint
// and returns the login it belongs to.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	gh := c.newAPIClient(&oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		Base:   c.opts.Transport,
	})

	var user *github.User
	err := c.withRetry(ctx, "validate token", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		user, resp, err = gh.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		if status := statusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return "", fmt.Errorf("%w (status %d)", custom_errors.ErrTokenInvalid, status)
		}
		return "", err
	}
	return user.GetLogin(), nil
}

// ListAccountRepositories fetches the authenticated account's repositories,
// one page of 100 unless ListMaxPages allows more.
func (c *Client) ListAccountRepositories(ctx context.Context) ([]model.RepositoryListing, error) {
	if c.basic == nil {
		return nil, &custom_errors.ListingFailure{Err: errors.New("client has no identity")}
	}

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var listings []model.RepositoryListing
	for page := 0; page < c.opts.ListMaxPages; page++ {
		c.logger.Debug("Fetching repositories page", "page", opts.Page)

		var (
			repos []*github.Repository
			resp  *github.Response
		)
		err := c.withRetry(ctx, "list repositories", func() (*github.Response, error) {
			var err error
			repos, resp, err = c.basic.Repositories.ListByAuthenticatedUser(ctx, opts)
			return resp, err
		})
		if err != nil {
			return nil, &custom_errors.ListingFailure{StatusCode: statusOf(err), Err: err}
		}

		for _, r := range repos {
			listings = append(listings, toListing(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return listings, nil
}

// SearchRepositories runs a keyword repository search for query and returns
// the ranked candidates. Calls are throttled by the shared search limiter.
func (c *Client) SearchRepositories(ctx context.Context, query string) ([]model.SearchResult, error) {
	var result *github.RepositoriesSearchResult
	err := c.withRetry(ctx, "search repositories", func() (*github.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var (
			resp *github.Response
			err  error
		)
		result, resp, err = c.api.Search.Repositories(ctx, query, nil)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]model.SearchResult, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		candidates = append(candidates, toSearchResult(r))
	}
	return candidates, nil
}

func (c *Client) newAPIClient(rt http.RoundTripper) *github.Client {
	gh := github.NewClient(&http.Client{Transport: rt, Timeout: c.opts.Timeout})
	base := *c.apiURL
	gh.BaseURL = &base
	gh.UserAgent = c.opts.UserAgent
	return gh
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

func newSearchLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(burst, 1))
}

// toListing translates a github.Repository to our internal listing model.
func toListing(r *github.Repository) model.RepositoryListing {
	return model.RepositoryListing{
		Name:      r.GetName(),
		URL:       r.GetHTMLURL(),
		UpdatedAt: r.GetUpdatedAt().Time.UTC(),
	}
}

// toSearchResult translates a github.Repository search item to our internal model.
func toSearchResult(r *github.Repository) model.SearchResult {
	return model.SearchResult{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		URL:         r.GetHTMLURL(),
		UpdatedAt:   r.GetUpdatedAt().Time.UTC(),
		Description: r.Description,
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
	}
}
