// internal/githubtest/server.go

// Package githubtest provides an in-process fake of the GitHub endpoints the
// enricher talks to: profile pages, the current-user endpoint, the account
// repository listing and repository search.
package githubtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Repo is the JSON shape of a repository in listing and search responses.
type Repo struct {
	Name        string  `json:"name"`
	FullName    string  `json:"full_name,omitempty"`
	HTMLURL     string  `json:"html_url"`
	UpdatedAt   string  `json:"updated_at"`
	Description *string `json:"description"`
	Stars       int     `json:"stargazers_count"`
	Forks       int     `json:"forks_count"`
}

// Server is a fake GitHub. API routes live under /api/, profile pages under /web/.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	profiles  map[string]bool
	tokens    map[string]string
	repos     map[string][]Repo
	search    map[string][]Repo
	listFail  int
	searchErr []int
	calls     map[string]int
	agents    []string
}

// NewServer starts a fake GitHub. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		profiles: map[string]bool{},
		tokens:   map[string]string{},
		repos:    map[string][]Repo{},
		search:   map[string][]Repo{},
		calls:    map[string]int{},
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// APIURL is the base URL of the fake REST API.
func (s *Server) APIURL() string { return s.URL + "/api/" }

// WebURL is the base URL of the fake profile pages.
func (s *Server) WebURL() string { return s.URL + "/web/" }

// AddUser registers a public profile for handle and a token that authenticates as it.
func (s *Server) AddUser(handle, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[handle] = true
	if token != "" {
		s.tokens[token] = handle
	}
}

// SetRepos sets the account repositories returned to handle by /user/repos.
func (s *Server) SetRepos(handle string, repos ...Repo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[handle] = repos
}

// SetSearch sets the items returned for search query q. A nil slice omits
// the items field entirely.
func (s *Server) SetSearch(q string, items []Repo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search[q] = items
}

// FailListing makes /user/repos answer with status.
func (s *Server) FailListing(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listFail = status
}

// FailSearch queues statuses returned by the next search requests, in order.
// A 403 carries exhausted rate limit headers resetting one second from now.
func (s *Server) FailSearch(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchErr = append(s.searchErr, statuses...)
}

// Calls reports how many requests hit the named route
// ("profile", "user", "repos", "search").
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// UserAgents returns the User-Agent headers seen on search requests.
func (s *Server) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.agents...)
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/web/{handle}", s.getProfile)
	r.Route("/api", func(r chi.Router) {
		r.Get("/user", s.getUser)
		r.Get("/user/repos", s.listRepos)
		r.Get("/search/repositories", s.searchRepos)
	})
	return r
}

func (s *Server) count(route string) {
	s.mu.Lock()
	s.calls[route]++
	s.mu.Unlock()
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	s.count("profile")
	handle := chi.URLParam(r, "handle")

	s.mu.Lock()
	ok := s.profiles[handle]
	s.mu.Unlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<html><body>%s</body></html>", handle)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.count("user")
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Requires authentication")
		return
	}

	s.mu.Lock()
	login, known := s.tokens[token]
	s.mu.Unlock()

	if !known {
		respondWithError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"login": login, "id": 1})
}

func (s *Server) listRepos(w http.ResponseWriter, r *http.Request) {
	s.count("repos")
	handle, token, ok := r.BasicAuth()

	s.mu.Lock()
	login, known := s.tokens[token]
	repos := s.repos[handle]
	fail := s.listFail
	s.mu.Unlock()

	if !ok || !known || login != handle {
		respondWithError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	if fail != 0 {
		respondWithError(w, fail, http.StatusText(fail))
		return
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if perPage <= 0 {
		perPage = 30
	}
	page = max(page, 1)

	start := min((page-1)*perPage, len(repos))
	end := min(start+perPage, len(repos))
	if end < len(repos) {
		next := *r.URL
		q := next.Query()
		q.Set("page", strconv.Itoa(page+1))
		next.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<%s%s>; rel="next"`, s.URL, next.String()))
	}
	respondWithJSON(w, http.StatusOK, repos[start:end])
}

func (s *Server) searchRepos(w http.ResponseWriter, r *http.Request) {
	s.count("search")
	q := r.URL.Query().Get("q")

	s.mu.Lock()
	s.agents = append(s.agents, r.UserAgent())
	var status int
	if len(s.searchErr) > 0 {
		status, s.searchErr = s.searchErr[0], s.searchErr[1:]
	}
	items, found := s.search[q]
	s.mu.Unlock()

	if status != 0 {
		if status == http.StatusForbidden {
			w.Header().Set("X-RateLimit-Limit", "30")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
			respondWithError(w, status, "API rate limit exceeded")
			return
		}
		respondWithError(w, status, http.StatusText(status))
		return
	}

	if !found || items == nil {
		respondWithJSON(w, http.StatusOK, map[string]any{"total_count": 0, "incomplete_results": false})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"total_count":        len(items),
		"incomplete_results": false,
		"items":              items,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}
