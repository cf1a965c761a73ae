package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stilln0thing/Matiks-Assignment/internal/models"
	pkghttp "github.com/stilln0thing/Matiks-Assignment/pkg/http"
	pkglogger "github.com/stilln0thing/Matiks-Assignment/pkg/logger"
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a non-2xx body is kept on ServerError
const maxErrorBody = 4 << 10

// Doer is the HTTP capability the client needs; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient builds the process-wide HTTP client with a fixed timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Client talks to the remote ranking service. It never retries.
type Client struct {
	baseURL string
	http    Doer
	log     *pkglogger.RequestLogger
}

var validate = validator.New()

// NewClient creates a ranking client rooted at baseURL (e.g. http://host:8080/api)
func NewClient(baseURL string, doer Doer, logger *slog.Logger, env string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		log:     pkglogger.NewRequestLogger(logger, env),
	}
}

// FetchPage requests limit users starting at offset, ordered by ascending rank
func (c *Client) FetchPage(ctx context.Context, limit, offset int) (*models.Page, error) {
	if limit < 1 || offset < 0 {
		return nil, fmt.Errorf("%w: limit=%d offset=%d", models.ErrInvalidArgument, limit, offset)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page models.Page
	if err := c.do(ctx, http.MethodGet, "/leaderboard", q, nil, "", &page); err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if page.Users == nil {
		page.Users = []models.RankedUser{}
	}
	return &page, nil
}

// Search requests users whose username matches text. Blank text is rejected
// without I/O; callers are expected to short-circuit it themselves.
func (c *Client) Search(ctx context.Context, text string) (*models.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty search text", models.ErrInvalidArgument)
	}

	q := url.Values{}
	q.Set("q", text)

	var result models.SearchResult
	if err := c.do(ctx, http.MethodGet, "/search", q, nil, text, &result); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if result.Users == nil {
		result.Users = []models.RankedUser{}
	}
	return &result, nil
}

// UserRank returns the live rank of a single user
func (c *Client) UserRank(ctx context.Context, userID int64) (*models.RankedUser, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", models.ErrInvalidArgument, userID)
	}

	var user models.RankedUser
	path := "/user/" + strconv.FormatInt(userID, 10) + "/rank"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, "", &user); err != nil {
		if models.IsServerError(err, http.StatusNotFound) {
			return nil, fmt.Errorf("user rank: %w: %w", models.ErrNotFound, err)
		}
		return nil, fmt.Errorf("user rank: %w", err)
	}
	return &user, nil
}

// UpdateRating writes a new rating for a user. The response body is ignored.
func (c *Client) UpdateRating(ctx context.Context, userID int64, rating int) error {
	update := models.RatingUpdate{UserID: userID, Rating: rating}
	if err := validate.Struct(update); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}

	if err := c.do(ctx, http.MethodPost, "/rating", nil, body, "", nil); err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

// do performs one request and decodes a 2xx JSON body into out (if non-nil).
// Every failure is logged once here.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, searchText string, out any) error {
	start := time.Now()
	event := pkglogger.RequestEvent{
		RequestID: uuid.NewString(),
		Method:    method,
		Path:      path,
		Query:     searchText,
	}
	defer func() {
		event.Duration = time.Since(start)
		c.log.LogRequest(ctx, event)
	}()

	event.Err = c.roundTrip(ctx, &event, query, body, out)
	return event.Err
}

func (c *Client) roundTrip(ctx context.Context, event *pkglogger.RequestEvent, query url.Values, body []byte, out any) error {
	target := c.baseURL + event.Path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, event.Method, target, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", models.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, event.RequestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	event.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		event.Body = string(raw)
		return &models.ServerError{
			Status:  resp.StatusCode,
			Body:    string(raw),
			Message: pkghttp.ParseErrorMessage(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: decode response: %v", models.ErrNetwork, err)
	}
	return nil
}
