package rankingtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, svc *Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, req)
	return w
}

func TestLeaderboard_PaginatesByRank(t *testing.T) {
	svc := New()
	svc.SeedUsers(120)

	w := serve(t, svc, http.MethodGet, "/api/leaderboard?limit=50&offset=100", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page models.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(120), page.Total)
	assert.Equal(t, 100, page.Offset)
	require.Len(t, page.Users, 20)
	assert.Equal(t, int64(101), page.Users[0].Rank)
	assert.Equal(t, int64(120), page.Users[19].Rank)
}

func TestLeaderboard_ClampsLimit(t *testing.T) {
	svc := New()
	svc.SeedUsers(150)

	var page models.Page
	w := serve(t, svc, http.MethodGet, "/api/leaderboard?limit=500", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 100, page.Limit)
	assert.Len(t, page.Users, 100)

	w = serve(t, svc, http.MethodGet, "/api/leaderboard?limit=0", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 50, page.Limit)
}

func TestLeaderboard_TiesShareRank(t *testing.T) {
	svc := New()
	svc.AddUser("alpha", 3000)
	svc.AddUser("bravo", 2500)
	svc.AddUser("charlie", 2500)
	svc.AddUser("delta", 1000)

	var page models.Page
	w := serve(t, svc, http.MethodGet, "/api/leaderboard?limit=10&offset=0", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))

	ranks := make([]int64, 0, len(page.Users))
	for _, u := range page.Users {
		ranks = append(ranks, u.Rank)
	}
	assert.Equal(t, []int64{1, 2, 2, 4}, ranks)
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	svc := New()
	svc.AddUser("RahulKumar", 1200)
	svc.AddUser("rahul_dev", 1800)
	svc.AddUser("priya", 2000)

	var result models.SearchResult
	w := serve(t, svc, http.MethodGet, "/api/search?q=RAHUL", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "rahul_dev", result.Users[0].Username)
	assert.Equal(t, int64(2), result.Users[0].Rank)
	assert.Equal(t, []string{"RAHUL"}, svc.SearchQueries())
}

func TestSearch_MissingQuery(t *testing.T) {
	w := serve(t, New(), http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query 'q' is required")
}

func TestUserRank(t *testing.T) {
	svc := New()
	svc.AddUser("alpha", 3000)
	id := svc.AddUser("bravo", 2000)

	var user models.RankedUser
	w := serve(t, svc, http.MethodGet, "/api/user/2/rank", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, id, user.ID)
	assert.Equal(t, int64(2), user.Rank)

	assert.Equal(t, http.StatusNotFound, serve(t, svc, http.MethodGet, "/api/user/99/rank", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodGet, "/api/user/abc/rank", "").Code)
}

func TestUpdateRating(t *testing.T) {
	svc := New()
	id := svc.AddUser("alpha", 3000)

	w := serve(t, svc, http.MethodPost, "/api/rating", `{"user_id":1,"rating":4200}`)
	require.Equal(t, http.StatusOK, w.Code)

	rating, ok := svc.Rating(id)
	assert.True(t, ok)
	assert.Equal(t, 4200, rating)

	w = serve(t, svc, http.MethodPost, "/api/rating", `{"user_id":1,"rating":99999}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, svc, http.MethodPost, "/api/rating", `{"user_id":42,"rating":1500}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFailNext(t *testing.T) {
	svc := New()
	svc.SeedUsers(3)
	svc.FailNext("/leaderboard", http.StatusServiceUnavailable, 1)

	assert.Equal(t, http.StatusServiceUnavailable, serve(t, svc, http.MethodGet, "/api/leaderboard", "").Code)
	assert.Equal(t, http.StatusOK, serve(t, svc, http.MethodGet, "/api/leaderboard", "").Code)
	assert.Len(t, svc.Requests("/leaderboard"), 2)
}

func TestRateLimit(t *testing.T) {
	svc := New(WithRateLimit(2, time.Minute))
	svc.SeedUsers(3)
	h := svc.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
