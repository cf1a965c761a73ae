package ranking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	"github.com/stilln0thing/Matiks-Assignment/internal/rankingtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDoer implements Doer for testing
type MockDoer struct {
	DoFunc func(req *http.Request) (*http.Response, error)
	calls  int
}

func (m *MockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return nil, errors.New("no DoFunc configured")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, svc *rankingtest.Service) *Client {
	t.Helper()
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", NewHTTPClient(2*time.Second), discardLogger(), "test")
}

func TestClient_FetchPage_Success(t *testing.T) {
	svc := rankingtest.New()
	svc.SeedUsers(120)
	client := newTestClient(t, svc)

	page, err := client.FetchPage(context.Background(), 50, 50)

	require.NoError(t, err)
	assert.Equal(t, int64(120), page.Total)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 50, page.Offset)
	require.Len(t, page.Users, 50)
	assert.Equal(t, int64(51), page.Users[0].Rank)

	reqs := svc.Requests("/leaderboard")
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/leaderboard", reqs[0].Path)
	assert.Equal(t, "limit=50&offset=50", reqs[0].Query)
	_, err = uuid.Parse(reqs[0].RequestID)
	assert.NoError(t, err, "request ID should be a UUID")
}

func TestClient_FetchPage_PastEndReturnsEmptySlice(t *testing.T) {
	svc := rankingtest.New()
	svc.SeedUsers(3)
	client := newTestClient(t, svc)

	page, err := client.FetchPage(context.Background(), 50, 10)

	require.NoError(t, err)
	assert.NotNil(t, page.Users)
	assert.Empty(t, page.Users)
	assert.Equal(t, int64(3), page.Total)
}

func TestClient_FetchPage_InvalidArguments(t *testing.T) {
	doer := &MockDoer{}
	client := NewClient("http://ranking.invalid/api", doer, discardLogger(), "test")

	_, err := client.FetchPage(context.Background(), 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = client.FetchPage(context.Background(), 50, -1)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	assert.Zero(t, doer.calls)
}

func TestClient_ServerErrorCarriesStatusAndMessage(t *testing.T) {
	svc := rankingtest.New()
	svc.FailNext("/leaderboard", http.StatusInternalServerError, 1)
	client := newTestClient(t, svc)

	_, err := client.FetchPage(context.Background(), 50, 0)

	var se *models.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "Internal Server Error", se.Message)
	assert.Contains(t, se.Body, "injected_failure")
	assert.NotErrorIs(t, err, models.ErrNetwork)
}

func TestClient_RateLimitedIsServerError(t *testing.T) {
	svc := rankingtest.New(rankingtest.WithRateLimit(1, time.Minute))
	svc.SeedUsers(5)
	client := newTestClient(t, svc)

	_, err := client.FetchPage(context.Background(), 50, 0)
	require.NoError(t, err)

	_, err = client.FetchPage(context.Background(), 50, 0)
	assert.True(t, models.IsServerError(err, http.StatusTooManyRequests))
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, NewHTTPClient(50*time.Millisecond), discardLogger(), "test")

	_, err := client.FetchPage(context.Background(), 50, 0)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestClient_ConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, NewHTTPClient(time.Second), discardLogger(), "test")

	_, err := client.Search(context.Background(), "alice")
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestClient_MalformedBodyIsNetworkError(t *testing.T) {
	doer := &MockDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"users": [`)),
			}, nil
		},
	}
	client := NewClient("http://ranking.invalid/api", doer, discardLogger(), "test")

	_, err := client.FetchPage(context.Background(), 50, 0)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestClient_CancelledContextIsNotNetworkError(t *testing.T) {
	doer := &MockDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, req.Context().Err()
		},
	}
	client := NewClient("http://ranking.invalid/api", doer, discardLogger(), "test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, models.ErrNetwork)
}

func TestClient_Search(t *testing.T) {
	svc := rankingtest.New()
	svc.AddUser("alice", 3000)
	svc.AddUser("malice", 2000)
	svc.AddUser("bob", 1000)
	client := newTestClient(t, svc)

	result, err := client.Search(context.Background(), "lic")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "alice", result.Users[0].Username)
	assert.Equal(t, []string{"lic"}, svc.SearchQueries())
}

func TestClient_Search_NoMatchesIsEmptyNotNil(t *testing.T) {
	svc := rankingtest.New()
	svc.AddUser("alice", 3000)
	client := newTestClient(t, svc)

	result, err := client.Search(context.Background(), "zz")

	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Users)
}

func TestClient_Search_BlankTextSkipsNetwork(t *testing.T) {
	doer := &MockDoer{}
	client := NewClient("http://ranking.invalid/api", doer, discardLogger(), "test")

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := client.Search(context.Background(), text)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	}
	assert.Zero(t, doer.calls)
}

func TestClient_UserRank(t *testing.T) {
	svc := rankingtest.New()
	svc.AddUser("alpha", 3000)
	id := svc.AddUser("bravo", 2000)
	client := newTestClient(t, svc)

	user, err := client.UserRank(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), user.Rank)
	assert.Equal(t, "bravo", user.Username)

	_, err = client.UserRank(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.True(t, models.IsServerError(err, http.StatusNotFound))
}

func TestClient_UpdateRating(t *testing.T) {
	svc := rankingtest.New()
	id := svc.AddUser("alpha", 3000)
	client := newTestClient(t, svc)

	require.NoError(t, client.UpdateRating(context.Background(), id, 4100))

	rating, ok := svc.Rating(id)
	assert.True(t, ok)
	assert.Equal(t, 4100, rating)
}

func TestClient_UpdateRating_ValidatesBeforeSending(t *testing.T) {
	doer := &MockDoer{}
	client := NewClient("http://ranking.invalid/api", doer, discardLogger(), "test")

	tests := []struct {
		name   string
		userID int64
		rating int
	}{
		{"zero user", 0, 1500},
		{"rating below floor", 1, 99},
		{"rating above ceiling", 1, 5001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.UpdateRating(context.Background(), tt.userID, tt.rating)
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
		})
	}
	assert.Zero(t, doer.calls)
}
