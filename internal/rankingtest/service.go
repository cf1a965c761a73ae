// Package rankingtest provides an in-memory ranking service speaking the same
// HTTP API as the production backend. Tests and the offline demo run against it.
package rankingtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	pkghttp "github.com/stilln0thing/Matiks-Assignment/pkg/http"
)

const (
	defaultLimit   = 50
	maxLimit       = 100
	maxSearchHits  = 100
	leaderboardRel = "/leaderboard"
	searchRel      = "/search"
	ratingRel      = "/rating"
)

// RecordedRequest is one request observed by the service
type RecordedRequest struct {
	Method    string
	Path      string
	Query     string
	RequestID string
}

type user struct {
	id       int64
	username string
	rating   int
}

type failure struct {
	status    int
	remaining int
}

type rateLimit struct {
	requests int
	window   time.Duration
}

// Service is an in-memory ranking backend
type Service struct {
	mu       sync.Mutex
	users    map[int64]*user
	nextID   int64
	failures map[string]*failure
	delays   map[string]time.Duration
	requests []RecordedRequest
	limit    *rateLimit
}

// Option configures a Service
type Option func(*Service)

// WithRateLimit makes the service answer 429 once a client exceeds requests per window
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Service) {
		s.limit = &rateLimit{requests: requests, window: window}
	}
}

var validate = validator.New()

// New creates an empty service
func New(opts ...Option) *Service {
	s := &Service{
		users:    make(map[int64]*user),
		nextID:   1,
		failures: make(map[string]*failure),
		delays:   make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the service router with all endpoints mounted under /api
func (s *Service) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.record)
	if s.limit != nil {
		router.Use(httprate.Limit(
			s.limit.requests,
			s.limit.window,
			httprate.WithKeyByIP(),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				pkghttp.WriteTooManyRequests(w, "rate limit exceeded")
			}),
		))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(s.injectFailures)
		r.Get(leaderboardRel, s.getLeaderboard)
		r.Get(searchRel, s.searchUsers)
		r.Get("/user/{id}/rank", s.getUserRank)
		r.Post(ratingRel, s.updateRating)
	})

	return router
}

// AddUser inserts a user and returns its ID
func (s *Service) AddUser(username string, rating int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.users[id] = &user{id: id, username: username, rating: rating}
	return id
}

// SeedUsers inserts n users named player_0001.. with descending ratings.
// Up to 4900 users the ratings are distinct, so user i holds rank i.
func (s *Service) SeedUsers(n int) {
	for i := 1; i <= n; i++ {
		rating := models.MaxRating - (i-1)*((models.MaxRating-models.MinRating)/max(n, 1))
		s.AddUser(fmt.Sprintf("player_%04d", i), max(rating, models.MinRating))
	}
}

// FailNext makes the next n requests to path (relative to /api) fail with status
func (s *Service) FailNext(path string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &failure{status: status, remaining: n}
}

// SetSearchDelay holds responses to the exact query q for d
func (s *Service) SetSearchDelay(q string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[q] = d
}

// Requests returns every recorded request whose path ends with suffix
func (s *Service) Requests(suffix string) []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []RecordedRequest
	for _, r := range s.requests {
		if strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

// SearchQueries returns the q parameter of every search request, in arrival order
func (s *Service) SearchQueries() []string {
	var out []string
	for _, r := range s.Requests(searchRel) {
		values, _ := url.ParseQuery(r.Query)
		out = append(out, values.Get("q"))
	}
	return out
}

// Rating returns the current rating of a user
func (s *Service) Rating(id int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, false
	}
	return u.rating, true
}

func (s *Service) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			RequestID: middleware.GetReqID(r.Context()),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Service) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		f, ok := s.failures[rel]
		status := 0
		if ok && f.remaining > 0 {
			f.remaining--
			status = f.status
		}
		s.mu.Unlock()

		if status != 0 {
			pkghttp.WriteError(w, status, "injected_failure", http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GET /api/leaderboard?limit=50&offset=0
func (s *Service) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	ranked := s.rankedLocked()
	s.mu.Unlock()

	end := min(offset+limit, len(ranked))
	users := []models.RankedUser{}
	if offset < len(ranked) {
		users = ranked[offset:end]
	}

	writeJSON(w, http.StatusOK, models.Page{
		Users:  users,
		Total:  int64(len(ranked)),
		Limit:  limit,
		Offset: offset,
	})
}

// GET /api/search?q=john
func (s *Service) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		pkghttp.WriteBadRequest(w, "query 'q' is required")
		return
	}

	s.mu.Lock()
	delay := s.delays[q]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	needle := strings.ToLower(q)

	s.mu.Lock()
	var hits []models.RankedUser
	for _, u := range s.rankedLocked() {
		if strings.Contains(strings.ToLower(u.Username), needle) {
			hits = append(hits, u)
			if len(hits) == maxSearchHits {
				break
			}
		}
	}
	s.mu.Unlock()

	if hits == nil {
		hits = []models.RankedUser{}
	}
	writeJSON(w, http.StatusOK, models.SearchResult{Users: hits, Count: len(hits)})
}

// GET /api/user/{id}/rank
func (s *Service) getUserRank(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid user ID")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		pkghttp.WriteNotFound(w, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, models.RankedUser{
		Rank:     s.rankOfLocked(u.rating),
		ID:       u.id,
		Username: u.username,
		Rating:   u.rating,
	})
}

// POST /api/rating
func (s *Service) updateRating(w http.ResponseWriter, r *http.Request) {
	var req models.RatingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.UserID]
	if ok {
		u.rating = req.Rating
	}
	s.mu.Unlock()

	if !ok {
		pkghttp.WriteNotFound(w, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// rankedLocked orders users by rating descending with competition ranking:
// tied ratings share a rank and the next distinct rating skips ahead.
func (s *Service) rankedLocked() []models.RankedUser {
	all := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].rating != all[j].rating {
			return all[i].rating > all[j].rating
		}
		return all[i].id < all[j].id
	})

	out := make([]models.RankedUser, len(all))
	var rank int64
	for i, u := range all {
		if i == 0 || u.rating != all[i-1].rating {
			rank = int64(i) + 1
		}
		out[i] = models.RankedUser{Rank: rank, ID: u.id, Username: u.username, Rating: u.rating}
	}
	return out
}

func (s *Service) rankOfLocked(rating int) int64 {
	var higher int64
	for _, u := range s.users {
		if u.rating > rating {
			higher++
		}
	}
	return higher + 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
