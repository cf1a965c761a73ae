package screens

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	"github.com/stilln0thing/Matiks-Assignment/internal/ranking"
	"github.com/stilln0thing/Matiks-Assignment/internal/rankingtest"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRankingClient serves svc over HTTP and returns a client pointed at it
func newRankingClient(t *testing.T, svc *rankingtest.Service) *ranking.Client {
	t.Helper()
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return ranking.NewClient(srv.URL+"/api", ranking.NewHTTPClient(2*time.Second), discardLogger(), "test")
}

type pageCall struct {
	limit, offset int
	reply         chan pageReply
}

type pageReply struct {
	page *models.Page
	err  error
}

// GatedFetcher blocks every FetchPage until the test answers it
type GatedFetcher struct {
	mu    sync.Mutex
	calls chan pageCall
	count int
}

func NewGatedFetcher() *GatedFetcher {
	return &GatedFetcher{calls: make(chan pageCall, 16)}
}

func (g *GatedFetcher) FetchPage(ctx context.Context, limit, offset int) (*models.Page, error) {
	g.mu.Lock()
	g.count++
	g.mu.Unlock()

	call := pageCall{limit: limit, offset: offset, reply: make(chan pageReply, 1)}
	g.calls <- call
	select {
	case r := <-call.reply:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *GatedFetcher) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

func (g *GatedFetcher) next(t *testing.T) pageCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for FetchPage call")
		return pageCall{}
	}
}

// MockSearcher implements Searcher for testing
type MockSearcher struct {
	SearchFunc func(ctx context.Context, text string) (*models.SearchResult, error)
}

func (m *MockSearcher) Search(ctx context.Context, text string) (*models.SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, text)
	}
	return &models.SearchResult{Users: []models.RankedUser{}}, nil
}

func rankedPage(from, to int, total int64) *models.Page {
	users := make([]models.RankedUser, 0, to-from+1)
	for i := from; i <= to; i++ {
		users = append(users, models.RankedUser{Rank: int64(i), ID: int64(i), Username: "u", Rating: 5000 - i})
	}
	return &models.Page{Users: users, Total: total, Limit: 50, Offset: from - 1}
}
